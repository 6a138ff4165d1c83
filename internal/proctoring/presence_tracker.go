package proctoring

import (
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// PresenceObservation is what the presence tracker resolved for one tick
type PresenceObservation struct {
	// Recovered is set when a face came back after an open absence interval
	Recovered bool
	Findings  []Finding
}

// PresenceTracker detects sustained face absence and multiple faces in frame
type PresenceTracker struct {
	threshold   time.Duration
	noFaceStart *time.Time
}

func NewPresenceTracker(threshold time.Duration) *PresenceTracker {
	return &PresenceTracker{threshold: threshold}
}

// Open reports whether a face-absence interval is currently running
func (t *PresenceTracker) Open() bool {
	return t.noFaceStart != nil
}

func (t *PresenceTracker) Observe(faceCount int, now time.Time) PresenceObservation {
	var obs PresenceObservation

	if faceCount == 0 {
		if t.noFaceStart == nil {
			start := now
			t.noFaceStart = &start
		}
		return obs
	}

	if finding, ok := t.Recover(now); ok {
		obs.Recovered = true
		if finding != nil {
			obs.Findings = append(obs.Findings, *finding)
		}
	}

	// Several faces is a violation on every tick it is seen, not once per interval
	if faceCount > 1 {
		obs.Findings = append(obs.Findings, Finding{
			Type:        models.EventMultipleFaces,
			Severity:    models.SeverityHigh,
			Description: fmt.Sprintf("Multiple faces detected (%d faces)", faceCount),
		})
	}
	return obs
}

// Recover closes the open absence interval at now. The finding is nil below the threshold.
func (t *PresenceTracker) Recover(now time.Time) (*Finding, bool) {
	if t.noFaceStart == nil {
		return nil, false
	}

	elapsed := now.Sub(*t.noFaceStart)
	if elapsed < 0 {
		elapsed = 0
	}
	t.noFaceStart = nil

	if elapsed <= t.threshold {
		return nil, true
	}

	severity := models.SeverityMedium
	if elapsed > absenceHighAfter {
		severity = models.SeverityHigh
	}
	return &Finding{
		Type:        models.EventNoFace,
		Severity:    severity,
		Duration:    seconds(elapsed),
		Description: fmt.Sprintf("No face detected for %.1f seconds", elapsed.Seconds()),
	}, true
}
