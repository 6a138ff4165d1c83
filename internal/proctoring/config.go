package proctoring

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const (
	DefaultFocusThreshold       = 5 * time.Second
	DefaultFaceAbsenceThreshold = 10 * time.Second
	DefaultObjectFallback       = models.EventDeviceDetected
)

// Severity escalation points. Not configurable.
const (
	focusMediumAfter = 10 * time.Second
	focusHighAfter   = 15 * time.Second
	absenceHighAfter = 30 * time.Second

	initialIntegrity = 100
	minimumIntegrity = 0
)

// Config holds the hysteresis gates and the object fallback policy of one session
type Config struct {
	// FocusThreshold is the minimum gaze-away interval that becomes a FocusLost event
	FocusThreshold time.Duration
	// FaceAbsenceThreshold is the minimum face-absence interval that becomes a NoFace event
	FaceAbsenceThreshold time.Duration
	// ObjectFallback is the category for labels that are neither phones nor books/paper
	ObjectFallback models.ProctoringEventType
}

func DefaultConfig() Config {
	return Config{
		FocusThreshold:       DefaultFocusThreshold,
		FaceAbsenceThreshold: DefaultFaceAbsenceThreshold,
		ObjectFallback:       DefaultObjectFallback,
	}
}

func (c Config) Validate() error {
	if c.FocusThreshold <= 0 {
		return fmt.Errorf("%w: focus threshold must be positive, got %s", ErrInvalidConfig, c.FocusThreshold)
	}
	if c.FaceAbsenceThreshold <= 0 {
		return fmt.Errorf("%w: face absence threshold must be positive, got %s", ErrInvalidConfig, c.FaceAbsenceThreshold)
	}
	switch c.ObjectFallback {
	case models.EventDeviceDetected, models.EventOther:
	default:
		return fmt.Errorf("%w: unsupported object fallback category %q", ErrInvalidConfig, c.ObjectFallback)
	}
	return nil
}
