package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionRecord is the archived form of an ended proctoring session
type SessionRecord struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	SessionID     string `json:"session_id" gorm:"size:64;not null;uniqueIndex"`
	CandidateName string `json:"candidate_name" gorm:"size:255;not null;index"`

	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`

	IntegrityScore             int     `json:"integrity_score" gorm:"not null"`
	CumulativeFocusLostSeconds float64 `json:"cumulative_focus_lost_seconds"`
	FacesDetected              int     `json:"faces_detected"`

	// Report snapshot taken when the session ended
	Report datatypes.JSON `json:"report" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Events []EventRecord `json:"events" gorm:"foreignKey:SessionRecordID;constraint:OnDelete:CASCADE"`
}

func (SessionRecord) TableName() string {
	return "proctoring_sessions"
}

type EventRecord struct {
	ID              uint                `json:"id" gorm:"primaryKey"`
	SessionRecordID uint                `json:"session_record_id" gorm:"not null;index"`
	EventID         string              `json:"event_id" gorm:"size:64;not null"`
	Sequence        int                 `json:"sequence" gorm:"not null"` // Position in the event log
	Type            ProctoringEventType `json:"type" gorm:"size:32;not null;index"`
	Severity        Severity            `json:"severity" gorm:"size:16;not null"`
	Timestamp       time.Time           `json:"timestamp" gorm:"not null"`
	Duration        *float64            `json:"duration"`
	Description     string              `json:"description" gorm:"type:text"`
}

func (EventRecord) TableName() string {
	return "proctoring_events"
}

func NewEventRecord(event ProctoringEvent, sequence int) EventRecord {
	return EventRecord{
		EventID:     event.ID,
		Sequence:    sequence,
		Type:        event.Type,
		Severity:    event.Severity,
		Timestamp:   event.Timestamp,
		Duration:    event.Duration,
		Description: event.Description,
	}
}

func (r EventRecord) ToEvent() ProctoringEvent {
	return ProctoringEvent{
		ID:          r.EventID,
		Type:        r.Type,
		Severity:    r.Severity,
		Timestamp:   r.Timestamp,
		Duration:    r.Duration,
		Description: r.Description,
	}
}
