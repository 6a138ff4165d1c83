package proctoring

import (
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// Finding is a violation a tracker resolved during a tick. The session stamps it into an event.
type Finding struct {
	Type        models.ProctoringEventType
	Severity    models.Severity
	Duration    *float64
	Description string
}

func seconds(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}
