package proctoring

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 500 * time.Millisecond

var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newStartedSession(t *testing.T, cfg Config) (*Session, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	session, err := NewSession("Ada Lovelace", cfg, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, session.Start())
	return session, clock
}

// feed delivers the same sample n times, one tick apart, and returns every emitted event
func feed(t *testing.T, s *Session, clock *ManualClock, sample models.DetectionSample, n int) []models.ProctoringEvent {
	t.Helper()
	var emitted []models.ProctoringEvent
	for i := 0; i < n; i++ {
		sample := sample
		events, err := s.Ingest(&sample)
		require.NoError(t, err)
		emitted = append(emitted, events...)
		clock.Advance(tick)
	}
	return emitted
}

func focused() models.DetectionSample {
	return models.DetectionSample{FaceCount: 1}
}

func lookingAway() models.DetectionSample {
	return models.DetectionSample{FaceCount: 1, IsLookingAway: true}
}

func noFace() models.DetectionSample {
	return models.DetectionSample{FaceCount: 0}
}

func TestSession_Start(t *testing.T) {
	session, _ := newStartedSession(t, DefaultConfig())

	assert.Equal(t, StateActive, session.State())
	assert.Equal(t, "session_1741942800000", session.ID())
	assert.Equal(t, "Ada Lovelace", session.CandidateName())
	assert.Equal(t, 100, session.Score())
	assert.Equal(t, models.FocusFocused, session.FocusState())
	assert.True(t, session.Stats().IsVideoActive)
	assert.Empty(t, session.Snapshot().Events)
}

func TestSession_FocusLostScenario(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	var events []models.ProctoringEvent
	events = append(events, feed(t, session, clock, focused(), 3)...)
	events = append(events, feed(t, session, clock, lookingAway(), 12)...)
	assert.Equal(t, models.FocusLookingAway, session.FocusState())
	events = append(events, feed(t, session, clock, focused(), 1)...)

	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, models.EventFocusLost, event.Type)
	assert.Equal(t, models.SeverityLow, event.Severity)
	require.NotNil(t, event.Duration)
	assert.InDelta(t, 6.0, *event.Duration, 0.001)
	assert.Equal(t, "Focus lost for 6.0 seconds", event.Description)
	assert.Equal(t, 98, session.Score())
	assert.Equal(t, models.FocusFocused, session.FocusState())
	assert.InDelta(t, 6.0, session.Stats().CumulativeFocusLostSeconds, 0.001)
}

func TestSession_SubThresholdGlanceIsAbsorbed(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	events := feed(t, session, clock, lookingAway(), 6) // 3s
	events = append(events, feed(t, session, clock, focused(), 1)...)

	assert.Empty(t, events)
	assert.Equal(t, 100, session.Score())
	assert.InDelta(t, 3.0, session.Stats().CumulativeFocusLostSeconds, 0.001)
}

func TestSession_FocusSeverityEscalates(t *testing.T) {
	tests := []struct {
		name     string
		ticks    int
		severity models.Severity
		score    int
	}{
		{name: "just over threshold", ticks: 11, severity: models.SeverityLow, score: 98},
		{name: "over ten seconds", ticks: 21, severity: models.SeverityMedium, score: 95},
		{name: "over fifteen seconds", ticks: 31, severity: models.SeverityHigh, score: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, clock := newStartedSession(t, DefaultConfig())

			feed(t, session, clock, lookingAway(), tt.ticks)
			events := feed(t, session, clock, focused(), 1)

			require.Len(t, events, 1)
			assert.Equal(t, tt.severity, events[0].Severity)
			assert.Equal(t, tt.score, session.Score())
		})
	}
}

func TestSession_ShortFaceAbsenceScenario(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	events := feed(t, session, clock, noFace(), 11)

	assert.Empty(t, events)
	assert.Equal(t, 100, session.Score())
	assert.Equal(t, models.FocusNoFace, session.FocusState())
	assert.Equal(t, 0, session.Stats().FacesDetected)

	flushed, err := session.End()
	require.NoError(t, err)
	assert.Empty(t, flushed)
	assert.Equal(t, 100, session.Score())
}

func TestSession_FaceAbsenceSeverity(t *testing.T) {
	tests := []struct {
		name     string
		ticks    int
		severity models.Severity
	}{
		{name: "medium", ticks: 24, severity: models.SeverityMedium},
		{name: "high", ticks: 62, severity: models.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, clock := newStartedSession(t, DefaultConfig())

			feed(t, session, clock, noFace(), tt.ticks)
			events := feed(t, session, clock, focused(), 1)

			require.Len(t, events, 1)
			assert.Equal(t, models.EventNoFace, events[0].Type)
			assert.Equal(t, tt.severity, events[0].Severity)
			assert.Contains(t, events[0].Description, "No face detected for")
			assert.Equal(t, models.FocusFocused, session.FocusState())
		})
	}
}

func TestSession_MultipleFacesEveryTick(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	events := feed(t, session, clock, models.DetectionSample{FaceCount: 3}, 4)

	require.Len(t, events, 4)
	for _, event := range events {
		assert.Equal(t, models.EventMultipleFaces, event.Type)
		assert.Equal(t, models.SeverityHigh, event.Severity)
		assert.Equal(t, "Multiple faces detected (3 faces)", event.Description)
		assert.Nil(t, event.Duration)
	}
	assert.Equal(t, 60, session.Score())
	assert.Equal(t, 3, session.Stats().FacesDetected)
}

func TestSession_PhoneScenario(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	events := feed(t, session, clock, models.DetectionSample{FaceCount: 1, ObjectLabels: []string{"cell phone"}}, 1)

	require.Len(t, events, 1)
	assert.Equal(t, models.EventPhoneDetected, events[0].Type)
	assert.Equal(t, models.SeverityHigh, events[0].Severity)
	assert.Equal(t, "Suspicious object detected: cell phone", events[0].Description)
	assert.Equal(t, 90, session.Score())
}

func TestSession_ObjectLabelsKeepDeliveryOrder(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	events := feed(t, session, clock, models.DetectionSample{
		FaceCount:    1,
		ObjectLabels: []string{"book", "laptop", "cell phone"},
	}, 1)

	require.Len(t, events, 3)
	assert.Equal(t, models.EventBookDetected, events[0].Type)
	assert.Equal(t, models.EventDeviceDetected, events[1].Type)
	assert.Equal(t, models.EventPhoneDetected, events[2].Type)
	assert.Equal(t, 70, session.Score())
}

func TestSession_ScoreIsBoundedAndNonIncreasing(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	samples := []models.DetectionSample{
		{FaceCount: 2, ObjectLabels: []string{"cell phone", "book"}},
		{FaceCount: 0, IsLookingAway: true},
		{FaceCount: 4, ObjectLabels: []string{"tablet"}},
		{FaceCount: 1, IsLookingAway: true},
		{FaceCount: 1},
	}

	previous := session.Score()
	for i := 0; i < 20; i++ {
		sample := samples[i%len(samples)]
		_, err := session.Ingest(&sample)
		require.NoError(t, err)
		clock.Advance(3 * time.Second)

		score := session.Score()
		assert.LessOrEqual(t, score, previous)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
		previous = score
	}
	assert.Equal(t, 0, session.Score())
}

func TestSession_EventsFollowTimestampOrder(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	feed(t, session, clock, lookingAway(), 14)
	feed(t, session, clock, models.DetectionSample{FaceCount: 0, IsLookingAway: true}, 25)
	feed(t, session, clock, models.DetectionSample{FaceCount: 2, ObjectLabels: []string{"paper"}}, 3)
	feed(t, session, clock, lookingAway(), 12)
	_, err := session.End()
	require.NoError(t, err)

	events := session.Snapshot().Events
	require.NotEmpty(t, events)
	seen := make(map[string]bool)
	for i, event := range events {
		assert.False(t, seen[event.ID], "duplicate event id %s", event.ID)
		seen[event.ID] = true
		if i > 0 {
			assert.False(t, event.Timestamp.Before(events[i-1].Timestamp))
		}
	}
}

func TestSession_NoFacePrecedesLookingAway(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	feed(t, session, clock, models.DetectionSample{FaceCount: 0, IsLookingAway: true}, 2)

	assert.Equal(t, models.FocusNoFace, session.FocusState())
	assert.True(t, session.presence.Open())
	assert.True(t, session.focus.Open())
}

func TestSession_FaceReturnFlushesFocusTimer(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())

	// 8s without a face while the gaze flag stays raised
	feed(t, session, clock, models.DetectionSample{FaceCount: 0, IsLookingAway: true}, 16)
	events := feed(t, session, clock, lookingAway(), 1)

	require.Len(t, events, 1)
	assert.Equal(t, models.EventFocusLost, events[0].Type)
	assert.InDelta(t, 8.0, *events[0].Duration, 0.001)
	assert.InDelta(t, 8.0, session.Stats().CumulativeFocusLostSeconds, 0.001)

	// Gaze is still away, so a fresh interval starts from the reappearance
	assert.True(t, session.focus.Open())
	assert.False(t, session.presence.Open())
	assert.Equal(t, models.FocusLookingAway, session.FocusState())
}

func TestSession_EndFlushesOpenIntervals(t *testing.T) {
	t.Run("focus lost above threshold", func(t *testing.T) {
		session, clock := newStartedSession(t, DefaultConfig())
		feed(t, session, clock, lookingAway(), 14) // 7s

		events, err := session.End()
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, models.EventFocusLost, events[0].Type)
		assert.InDelta(t, 7.0, *events[0].Duration, 0.001)
		assert.False(t, session.focus.Open())
		assert.False(t, session.presence.Open())
		assert.Equal(t, 98, session.Score())
	})

	t.Run("no face above threshold", func(t *testing.T) {
		session, clock := newStartedSession(t, DefaultConfig())
		feed(t, session, clock, noFace(), 24) // 12s

		events, err := session.End()
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, models.EventNoFace, events[0].Type)
		assert.Equal(t, models.SeverityMedium, events[0].Severity)
		assert.Equal(t, models.FocusFocused, session.FocusState())
	})

	t.Run("both below threshold", func(t *testing.T) {
		session, clock := newStartedSession(t, DefaultConfig())
		feed(t, session, clock, models.DetectionSample{FaceCount: 0, IsLookingAway: true}, 4)

		events, err := session.End()
		require.NoError(t, err)

		assert.Empty(t, events)
		assert.InDelta(t, 2.0, session.Stats().CumulativeFocusLostSeconds, 0.001)
		assert.False(t, session.focus.Open())
		assert.False(t, session.presence.Open())
	})
}

func TestSession_End(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())
	clock.Advance(90 * time.Second)

	_, err := session.End()
	require.NoError(t, err)

	snap := session.Snapshot()
	require.NotNil(t, snap.EndTime)
	assert.Equal(t, epoch.Add(90*time.Second), *snap.EndTime)
	assert.Equal(t, StateEnded, session.State())
	assert.False(t, session.Stats().IsVideoActive)
}

func TestSession_LifecycleRejections(t *testing.T) {
	clock := NewManualClock(epoch)
	session, err := NewSession("Grace Hopper", DefaultConfig(), WithClock(clock))
	require.NoError(t, err)

	_, err = session.Ingest(&models.DetectionSample{FaceCount: 1})
	assert.ErrorIs(t, err, ErrSessionNotStarted)
	_, err = session.End()
	assert.ErrorIs(t, err, ErrSessionNotStarted)
	_, err = session.Report()
	assert.ErrorIs(t, err, ErrSessionNotStarted)

	require.NoError(t, session.Start())
	assert.ErrorIs(t, session.Start(), ErrSessionAlreadyStarted)

	_, err = session.End()
	require.NoError(t, err)

	_, err = session.End()
	assert.ErrorIs(t, err, ErrSessionEnded)
	_, err = session.Ingest(&models.DetectionSample{FaceCount: 2})
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.ErrorIs(t, session.Start(), ErrSessionEnded)
	assert.Equal(t, 100, session.Score())

	_, err = session.Report()
	assert.NoError(t, err)
}

func TestSession_MissingSampleChangesNothing(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())
	feed(t, session, clock, lookingAway(), 2)

	before := session.Stats()
	for i := 0; i < 5; i++ {
		events, err := session.Ingest(nil)
		require.NoError(t, err)
		assert.Empty(t, events)
		clock.Advance(tick)
	}

	assert.Equal(t, before, session.Stats())
	assert.Equal(t, 100, session.Score())
	assert.True(t, session.focus.Open())
}

func TestSession_RejectsNegativeFaceCount(t *testing.T) {
	session, _ := newStartedSession(t, DefaultConfig())

	_, err := session.Ingest(&models.DetectionSample{FaceCount: -1})
	assert.ErrorIs(t, err, ErrInvalidSample)
	assert.Equal(t, 100, session.Score())
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	session, clock := newStartedSession(t, DefaultConfig())
	feed(t, session, clock, models.DetectionSample{FaceCount: 2}, 1)

	snap := session.Snapshot()
	snap.Events[0].Description = "tampered"
	snap.Events = append(snap.Events, models.ProctoringEvent{ID: "forged"})

	fresh := session.Snapshot()
	require.Len(t, fresh.Events, 1)
	assert.Equal(t, "Multiple faces detected (2 faces)", fresh.Events[0].Description)

	latest, ok := session.LatestEvent()
	require.True(t, ok)
	assert.Equal(t, fresh.Events[0].ID, latest.ID)
}

func TestNewSession_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero focus threshold", cfg: Config{FaceAbsenceThreshold: time.Second, ObjectFallback: models.EventOther}},
		{name: "negative absence threshold", cfg: Config{FocusThreshold: time.Second, FaceAbsenceThreshold: -time.Second, ObjectFallback: models.EventOther}},
		{name: "phone fallback", cfg: Config{FocusThreshold: time.Second, FaceAbsenceThreshold: time.Second, ObjectFallback: models.EventPhoneDetected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession("x", tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
