package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const (
	messageSource  = "proctoring-service"
	messageVersion = "1.0"
)

// EventType represents the kinds of messages the proctoring service emits
type EventType string

const (
	EventIntegrityEventLogged EventType = "proctoring.integrity_event"
	EventSessionEnded         EventType = "proctoring.session_ended"
)

// ProctoringMessage is the envelope every published message shares
type ProctoringMessage struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type IntegrityEventPayload struct {
	CandidateName  string                 `json:"candidate_name"`
	Event          models.ProctoringEvent `json:"event"`
	IntegrityScore int                    `json:"integrity_score"` // Score after the deduction
}

type SessionEndedPayload struct {
	CandidateName        string        `json:"candidate_name"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              *time.Time    `json:"end_time,omitempty"`
	IntegrityScore       int           `json:"integrity_score"`
	TotalEvents          int           `json:"total_events"`
	FocusLostCount       int           `json:"focus_lost_count"`
	SuspiciousEventCount int           `json:"suspicious_event_count"`
	Report               models.Report `json:"report"`
}

func NewIntegrityEventMessage(sessionID, candidateName string, event models.ProctoringEvent, score int) *ProctoringMessage {
	return &ProctoringMessage{
		ID:        GenerateEventID(),
		Type:      EventIntegrityEventLogged,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Source:    messageSource,
		Version:   messageVersion,
		Data: IntegrityEventPayload{
			CandidateName:  candidateName,
			Event:          event,
			IntegrityScore: score,
		},
		Metadata: map[string]interface{}{
			"severity": string(event.Severity),
		},
	}
}

func NewSessionEndedMessage(report models.Report) *ProctoringMessage {
	return &ProctoringMessage{
		ID:        GenerateEventID(),
		Type:      EventSessionEnded,
		SessionID: report.SessionID,
		Timestamp: time.Now(),
		Source:    messageSource,
		Version:   messageVersion,
		Data: SessionEndedPayload{
			CandidateName:        report.CandidateName,
			StartTime:            report.StartTime,
			EndTime:              report.EndTime,
			IntegrityScore:       report.IntegrityScore,
			TotalEvents:          report.TotalEvents,
			FocusLostCount:       report.FocusLostCount,
			SuspiciousEventCount: report.SuspiciousEventCount,
			Report:               report,
		},
	}
}

func GenerateEventID() string {
	return uuid.NewString()
}
