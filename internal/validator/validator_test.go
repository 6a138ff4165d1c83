package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type startRequest struct {
	CandidateName string `json:"candidate_name" validate:"required,candidate_name"`
}

type exportRequest struct {
	Format string `json:"format" validate:"export_format"`
}

func TestValidator_CandidateName(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(startRequest{CandidateName: "Ada Lovelace"}))

	err := v.Validate(startRequest{CandidateName: "   "})
	require.Error(t, err)
	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "candidate_name", errs[0].Field)
	assert.Equal(t, "candidate_name", errs[0].Rule)

	assert.Error(t, v.Validate(startRequest{CandidateName: strings.Repeat("x", 201)}))
}

func TestValidator_ExportFormat(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(exportRequest{Format: "json"}))
	assert.NoError(t, v.Validate(exportRequest{Format: "xlsx"}))
	assert.Error(t, v.Validate(exportRequest{Format: "csv"}))
}

func TestValidator_ValidateSample(t *testing.T) {
	v := New()

	assert.NoError(t, v.ValidateSample(nil))
	assert.NoError(t, v.ValidateSample(&models.DetectionSample{FaceCount: 1, ObjectLabels: []string{"cell phone"}}))

	err := v.ValidateSample(&models.DetectionSample{FaceCount: -1})
	require.Error(t, err)
	errs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, "faceCount", errs[0].Field)

	// Large or odd ticks are still valid perception output
	assert.NoError(t, v.ValidateSample(&models.DetectionSample{FaceCount: 65}))
	assert.NoError(t, v.ValidateSample(&models.DetectionSample{
		FaceCount:    2,
		ObjectLabels: append(make([]string, 33), "cell phone", strings.Repeat("x", 300)),
	}))
}
