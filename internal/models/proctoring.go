package models

import (
	"encoding/json"
	"time"
)

// ISOTimeLayout matches the millisecond UTC timestamps consumers of exported reports rely on
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

type ProctoringEventType string

const (
	EventFocusLost      ProctoringEventType = "focus_lost"
	EventNoFace         ProctoringEventType = "no_face"
	EventMultipleFaces  ProctoringEventType = "multiple_faces"
	EventPhoneDetected  ProctoringEventType = "phone_detected"
	EventBookDetected   ProctoringEventType = "book_detected"
	EventDeviceDetected ProctoringEventType = "device_detected"
	EventOther          ProctoringEventType = "other"
)

func (t ProctoringEventType) IsValid() bool {
	switch t {
	case EventFocusLost, EventNoFace, EventMultipleFaces, EventPhoneDetected,
		EventBookDetected, EventDeviceDetected, EventOther:
		return true
	}
	return false
}

// IsSuspicious reports whether the event type counts towards the suspicious-event total of a report
func (t ProctoringEventType) IsSuspicious() bool {
	switch t {
	case EventPhoneDetected, EventBookDetected, EventDeviceDetected, EventMultipleFaces:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

type FocusState string

const (
	FocusFocused     FocusState = "focused"
	FocusLookingAway FocusState = "looking_away"
	FocusNoFace      FocusState = "no_face"
)

func (f FocusState) IsValid() bool {
	switch f {
	case FocusFocused, FocusLookingAway, FocusNoFace:
		return true
	}
	return false
}

// Label is the human readable status shown on the live dashboard
func (f FocusState) Label() string {
	switch f {
	case FocusFocused:
		return "Focused"
	case FocusLookingAway:
		return "Looking Away"
	case FocusNoFace:
		return "No Face Detected"
	default:
		return "Unknown"
	}
}

// Indicator is the status color class used by the presentation layer
func (f FocusState) Indicator() string {
	switch f {
	case FocusFocused:
		return "success"
	case FocusLookingAway:
		return "warning"
	case FocusNoFace:
		return "destructive"
	default:
		return "secondary"
	}
}

// DetectionSample is one tick of perception output
type DetectionSample struct {
	FaceCount     int      `json:"faceCount" validate:"min=0"`
	IsLookingAway bool     `json:"isLookingAway"`
	ObjectLabels  []string `json:"objectLabels"` // Any label, blank ones included, is classified
}

// ProctoringEvent is immutable once created
type ProctoringEvent struct {
	ID          string              `json:"id"`
	Type        ProctoringEventType `json:"type"`
	Severity    Severity            `json:"severity"`
	Timestamp   time.Time           `json:"timestamp"`
	Duration    *float64            `json:"duration,omitempty"` // Seconds
	Description string              `json:"description"`
}

func (e ProctoringEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string              `json:"id"`
		Type        ProctoringEventType `json:"type"`
		Timestamp   string              `json:"timestamp"`
		Duration    *float64            `json:"duration,omitempty"`
		Severity    Severity            `json:"severity"`
		Description string              `json:"description"`
	}{
		ID:          e.ID,
		Type:        e.Type,
		Timestamp:   FormatTimestamp(e.Timestamp),
		Duration:    e.Duration,
		Severity:    e.Severity,
		Description: e.Description,
	})
}

// IntegritySession is the scored timeline of one proctored interview
type IntegritySession struct {
	CandidateName  string            `json:"candidateName"`
	SessionID      string            `json:"sessionId"`
	StartTime      time.Time         `json:"startTime"`
	EndTime        *time.Time        `json:"endTime,omitempty"`
	Events         []ProctoringEvent `json:"events"`
	IntegrityScore int               `json:"integrityScore"`
}

type VideoStats struct {
	IsVideoActive              bool       `json:"isVideoActive"`
	FacesDetected              int        `json:"facesDetected"`
	LastFaceDetection          *time.Time `json:"lastFaceDetection,omitempty"`
	CumulativeFocusLostSeconds float64    `json:"focusLostDuration"`
	CurrentFocusState          FocusState `json:"currentFocusState"`
}

// FormatTimestamp renders t the way exported reports encode instants
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOTimeLayout)
}
