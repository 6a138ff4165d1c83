package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type ReportSummary struct {
	TotalFocusLostTime       float64 // Seconds
	AverageFocusLostDuration float64 // Seconds, zero without focus-lost events
	FocusLostEventCount      int
}

// Report is derived from a session and never stored by the engine
type Report struct {
	CandidateName        string
	SessionID            string
	Duration             float64 // Minutes
	StartTime            time.Time
	EndTime              *time.Time
	IntegrityScore       int
	TotalEvents          int
	FocusLostCount       int
	SuspiciousEventCount int
	Events               []ProctoringEvent
	Summary              ReportSummary
}

type reportSummaryJSON struct {
	TotalFocusLostTime       string `json:"totalFocusLostTime"`
	AverageFocusLostDuration string `json:"averageFocusLostDuration"`
}

type reportJSON struct {
	CandidateName        string            `json:"candidateName"`
	SessionID            string            `json:"sessionId"`
	Duration             string            `json:"duration"`
	StartTime            string            `json:"startTime"`
	EndTime              *string           `json:"endTime,omitempty"`
	IntegrityScore       int               `json:"integrityScore"`
	TotalEvents          int               `json:"totalEvents"`
	FocusLostCount       int               `json:"focusLostCount"`
	SuspiciousEventCount int               `json:"suspiciousEventCount"`
	Events               []ProctoringEvent `json:"events"`
	Summary              reportSummaryJSON `json:"summary"`
}

// MarshalJSON keeps the textual export format: one-decimal strings for durations,
// millisecond UTC timestamps and "0" as the average when nothing was averaged.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{
		CandidateName:        r.CandidateName,
		SessionID:            r.SessionID,
		Duration:             FormatOneDecimal(r.Duration),
		StartTime:            FormatTimestamp(r.StartTime),
		IntegrityScore:       r.IntegrityScore,
		TotalEvents:          r.TotalEvents,
		FocusLostCount:       r.FocusLostCount,
		SuspiciousEventCount: r.SuspiciousEventCount,
		Events:               r.Events,
		Summary: reportSummaryJSON{
			TotalFocusLostTime:       FormatOneDecimal(r.Summary.TotalFocusLostTime),
			AverageFocusLostDuration: "0",
		},
	}
	if out.Events == nil {
		out.Events = []ProctoringEvent{}
	}
	if r.EndTime != nil {
		end := FormatTimestamp(*r.EndTime)
		out.EndTime = &end
	}
	if r.Summary.FocusLostEventCount > 0 {
		out.Summary.AverageFocusLostDuration = FormatOneDecimal(r.Summary.AverageFocusLostDuration)
	}
	return json.Marshal(out)
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var raw reportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339Nano, raw.StartTime)
	if err != nil {
		return fmt.Errorf("invalid startTime: %w", err)
	}

	report := Report{
		CandidateName:        raw.CandidateName,
		SessionID:            raw.SessionID,
		StartTime:            start,
		IntegrityScore:       raw.IntegrityScore,
		TotalEvents:          raw.TotalEvents,
		FocusLostCount:       raw.FocusLostCount,
		SuspiciousEventCount: raw.SuspiciousEventCount,
		Events:               raw.Events,
	}
	if raw.EndTime != nil {
		end, err := time.Parse(time.RFC3339Nano, *raw.EndTime)
		if err != nil {
			return fmt.Errorf("invalid endTime: %w", err)
		}
		report.EndTime = &end
	}
	if _, err := fmt.Sscanf(raw.Duration, "%g", &report.Duration); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if _, err := fmt.Sscanf(raw.Summary.TotalFocusLostTime, "%g", &report.Summary.TotalFocusLostTime); err != nil {
		return fmt.Errorf("invalid totalFocusLostTime: %w", err)
	}
	if _, err := fmt.Sscanf(raw.Summary.AverageFocusLostDuration, "%g", &report.Summary.AverageFocusLostDuration); err != nil {
		return fmt.Errorf("invalid averageFocusLostDuration: %w", err)
	}
	report.Summary.FocusLostEventCount = report.FocusLostCount

	*r = report
	return nil
}

func FormatOneDecimal(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
