package proctoring

import (
	"testing"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestObjectClassifier_Classify(t *testing.T) {
	tests := []struct {
		label    string
		fallback models.ProctoringEventType
		expected models.ProctoringEventType
	}{
		{label: "cell phone", fallback: models.EventDeviceDetected, expected: models.EventPhoneDetected},
		{label: "phonebook", fallback: models.EventDeviceDetected, expected: models.EventPhoneDetected},
		{label: "book", fallback: models.EventDeviceDetected, expected: models.EventBookDetected},
		{label: "paper", fallback: models.EventDeviceDetected, expected: models.EventBookDetected},
		{label: "notebook", fallback: models.EventOther, expected: models.EventBookDetected},
		{label: "laptop", fallback: models.EventDeviceDetected, expected: models.EventDeviceDetected},
		{label: "tablet", fallback: models.EventOther, expected: models.EventOther},
		{label: "Cell Phone", fallback: models.EventDeviceDetected, expected: models.EventDeviceDetected},
		{label: "", fallback: models.EventOther, expected: models.EventOther},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			classifier := NewObjectClassifier(tt.fallback)
			assert.Equal(t, tt.expected, classifier.Classify(tt.label))
		})
	}
}

func TestObjectClassifier_Finding(t *testing.T) {
	finding := NewObjectClassifier(models.EventDeviceDetected).Finding("laptop")

	assert.Equal(t, models.EventDeviceDetected, finding.Type)
	assert.Equal(t, models.SeverityHigh, finding.Severity)
	assert.Nil(t, finding.Duration)
	assert.Equal(t, "Suspicious object detected: laptop", finding.Description)
}
