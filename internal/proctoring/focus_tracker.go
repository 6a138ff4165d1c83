package proctoring

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// FocusFlush is the outcome of closing a gaze-away interval
type FocusFlush struct {
	Elapsed time.Duration
	// Finding is nil when the interval stayed under the focus threshold
	Finding *Finding
}

// FocusTracker turns the per-tick gaze flag into FocusLost findings.
// Intervals shorter than the threshold are absorbed as normal eye movement.
type FocusTracker struct {
	threshold time.Duration
	lostStart *time.Time
}

func NewFocusTracker(threshold time.Duration) *FocusTracker {
	return &FocusTracker{threshold: threshold}
}

// Open reports whether a gaze-away interval is currently running
func (t *FocusTracker) Open() bool {
	return t.lostStart != nil
}

// Observe feeds one tick. A flush is returned only when an open interval was closed.
func (t *FocusTracker) Observe(lookingAway bool, now time.Time) (FocusFlush, bool) {
	if lookingAway {
		if t.lostStart == nil {
			start := now
			t.lostStart = &start
		}
		return FocusFlush{}, false
	}
	return t.Regain(now)
}

// Regain closes the open interval at now, if any
func (t *FocusTracker) Regain(now time.Time) (FocusFlush, bool) {
	if t.lostStart == nil {
		return FocusFlush{}, false
	}

	elapsed := now.Sub(*t.lostStart)
	if elapsed < 0 {
		elapsed = 0
	}
	t.lostStart = nil

	flush := FocusFlush{Elapsed: elapsed}
	if elapsed > t.threshold {
		flush.Finding = &Finding{
			Type:        models.EventFocusLost,
			Severity:    focusSeverity(elapsed),
			Duration:    seconds(elapsed),
			Description: fmt.Sprintf("Focus lost for %.1f seconds", elapsed.Seconds()),
		}
	}
	return flush, true
}

func focusSeverity(elapsed time.Duration) models.Severity {
	switch {
	case elapsed > focusHighAfter:
		return models.SeverityHigh
	case elapsed > focusMediumAfter:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
