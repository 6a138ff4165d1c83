package proctoring

import (
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

// BuildReport summarizes a session. It does not modify its arguments; now is only
// used as the implicit end of a session that has not ended yet.
func BuildReport(session models.IntegritySession, stats models.VideoStats, now time.Time) models.Report {
	end := now
	if session.EndTime != nil {
		end = *session.EndTime
	}

	elapsed := end.Sub(session.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}

	var (
		focusLostCount  int
		suspiciousCount int
		focusLostTotal  float64
	)
	for _, event := range session.Events {
		if event.Type == models.EventFocusLost {
			focusLostCount++
			if event.Duration != nil {
				focusLostTotal += *event.Duration
			}
		}
		if event.Type.IsSuspicious() {
			suspiciousCount++
		}
	}

	var average float64
	if focusLostCount > 0 {
		average = focusLostTotal / float64(focusLostCount)
	}

	events := make([]models.ProctoringEvent, len(session.Events))
	copy(events, session.Events)

	report := models.Report{
		CandidateName:        session.CandidateName,
		SessionID:            session.SessionID,
		Duration:             elapsed.Minutes(),
		StartTime:            session.StartTime,
		IntegrityScore:       session.IntegrityScore,
		TotalEvents:          len(session.Events),
		FocusLostCount:       focusLostCount,
		SuspiciousEventCount: suspiciousCount,
		Events:               events,
		Summary: models.ReportSummary{
			TotalFocusLostTime:       stats.CumulativeFocusLostSeconds,
			AverageFocusLostDuration: average,
			FocusLostEventCount:      focusLostCount,
		},
	}
	if session.EndTime != nil {
		endTime := *session.EndTime
		report.EndTime = &endTime
	}
	return report
}
