package proctoring

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type labelRule struct {
	needles   []string
	eventType models.ProctoringEventType
}

// Rules are tried in order and the first match wins. Matching is case-sensitive on the raw label.
var objectRules = []labelRule{
	{needles: []string{"phone"}, eventType: models.EventPhoneDetected},
	{needles: []string{"book", "paper"}, eventType: models.EventBookDetected},
}

// ObjectClassifier maps raw detector labels to event categories
type ObjectClassifier struct {
	fallback models.ProctoringEventType
}

func NewObjectClassifier(fallback models.ProctoringEventType) *ObjectClassifier {
	return &ObjectClassifier{fallback: fallback}
}

func (c *ObjectClassifier) Classify(label string) models.ProctoringEventType {
	for _, rule := range objectRules {
		for _, needle := range rule.needles {
			if strings.Contains(label, needle) {
				return rule.eventType
			}
		}
	}
	return c.fallback
}

// Finding has no hysteresis: one sighting is a violation
func (c *ObjectClassifier) Finding(label string) Finding {
	return Finding{
		Type:        c.Classify(label),
		Severity:    models.SeverityHigh,
		Description: fmt.Sprintf("Suspicious object detected: %s", label),
	}
}
