package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusState_LabelAndIndicator(t *testing.T) {
	tests := []struct {
		state     FocusState
		label     string
		indicator string
	}{
		{FocusFocused, "Focused", "success"},
		{FocusLookingAway, "Looking Away", "warning"},
		{FocusNoFace, "No Face Detected", "destructive"},
		{FocusState("blinking"), "Unknown", "secondary"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.label, tt.state.Label())
			assert.Equal(t, tt.indicator, tt.state.Indicator())
		})
	}
}

func TestProctoringEventType_IsSuspicious(t *testing.T) {
	assert.True(t, EventPhoneDetected.IsSuspicious())
	assert.True(t, EventMultipleFaces.IsSuspicious())
	assert.False(t, EventFocusLost.IsSuspicious())
	assert.False(t, EventNoFace.IsSuspicious())
	assert.False(t, EventOther.IsSuspicious())
	assert.False(t, ProctoringEventType("unknown").IsValid())
}

func TestReport_RoundTrip(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Minute)
	duration := 7.0
	report := Report{
		CandidateName:  "Ada Lovelace",
		SessionID:      "session_1",
		Duration:       4,
		StartTime:      start,
		EndTime:        &end,
		IntegrityScore: 98,
		TotalEvents:    1,
		FocusLostCount: 1,
		Events: []ProctoringEvent{
			{ID: "event_1", Type: EventFocusLost, Severity: SeverityLow, Timestamp: start.Add(time.Minute), Duration: &duration, Description: "Focus lost for 7.0 seconds"},
		},
		Summary: ReportSummary{TotalFocusLostTime: 9.5, AverageFocusLostDuration: 7.0, FocusLostEventCount: 1},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"averageFocusLostDuration":"7.0"`)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "session_1", decoded.SessionID)
	assert.True(t, end.Equal(*decoded.EndTime))
	assert.InDelta(t, 9.5, decoded.Summary.TotalFocusLostTime, 0.001)
	require.Len(t, decoded.Events, 1)
	assert.Equal(t, EventFocusLost, decoded.Events[0].Type)
}
