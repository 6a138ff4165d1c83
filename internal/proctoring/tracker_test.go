package proctoring

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusTracker_Observe(t *testing.T) {
	tracker := NewFocusTracker(5 * time.Second)

	_, ok := tracker.Observe(false, epoch)
	assert.False(t, ok, "regaining without an open interval is a no-op")

	_, ok = tracker.Observe(true, epoch)
	assert.False(t, ok)
	assert.True(t, tracker.Open())

	// Later away ticks do not move the interval start
	tracker.Observe(true, epoch.Add(3*time.Second))

	flush, ok := tracker.Observe(false, epoch.Add(5*time.Second))
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, flush.Elapsed)
	assert.Nil(t, flush.Finding, "an interval exactly at the threshold is absorbed")
	assert.False(t, tracker.Open())
}

func TestFocusTracker_RegainAboveThreshold(t *testing.T) {
	tracker := NewFocusTracker(5 * time.Second)
	tracker.Observe(true, epoch)

	flush, ok := tracker.Regain(epoch.Add(12 * time.Second))
	require.True(t, ok)
	require.NotNil(t, flush.Finding)
	assert.Equal(t, models.EventFocusLost, flush.Finding.Type)
	assert.Equal(t, models.SeverityMedium, flush.Finding.Severity)
	assert.InDelta(t, 12.0, *flush.Finding.Duration, 0.001)
	assert.Equal(t, "Focus lost for 12.0 seconds", flush.Finding.Description)
}

func TestPresenceTracker_Observe(t *testing.T) {
	tracker := NewPresenceTracker(10 * time.Second)

	obs := tracker.Observe(1, epoch)
	assert.False(t, obs.Recovered)
	assert.Empty(t, obs.Findings)

	tracker.Observe(0, epoch)
	tracker.Observe(0, epoch.Add(4*time.Second))
	assert.True(t, tracker.Open())

	obs = tracker.Observe(2, epoch.Add(11*time.Second))
	assert.True(t, obs.Recovered)
	require.Len(t, obs.Findings, 2)
	assert.Equal(t, models.EventNoFace, obs.Findings[0].Type)
	assert.Equal(t, models.SeverityMedium, obs.Findings[0].Severity)
	assert.Equal(t, "No face detected for 11.0 seconds", obs.Findings[0].Description)
	assert.Equal(t, models.EventMultipleFaces, obs.Findings[1].Type)
	assert.False(t, tracker.Open())
}

func TestPresenceTracker_RecoverBelowThreshold(t *testing.T) {
	tracker := NewPresenceTracker(10 * time.Second)

	_, ok := tracker.Recover(epoch)
	assert.False(t, ok)

	tracker.Observe(0, epoch)
	finding, ok := tracker.Recover(epoch.Add(10 * time.Second))
	assert.True(t, ok)
	assert.Nil(t, finding)
}

func TestEventLog_Since(t *testing.T) {
	log := NewEventLog()
	assert.Nil(t, log.Since(0))

	log.Append(models.ProctoringEvent{ID: "a"})
	log.Append(models.ProctoringEvent{ID: "b"})
	log.Append(models.ProctoringEvent{ID: "c"})

	since := log.Since(1)
	require.Len(t, since, 2)
	assert.Equal(t, "b", since[0].ID)
	assert.Nil(t, log.Since(3))
	assert.Len(t, log.Since(-1), 3)

	last, ok := log.Last()
	require.True(t, ok)
	assert.Equal(t, "c", last.ID)
}
