package proctoring

import "github.com/SAP-F-2025/proctoring-service/internal/models"

// EventLog is the append-only timeline of one session. Events keep creation order.
type EventLog struct {
	events []models.ProctoringEvent
}

func NewEventLog() *EventLog {
	return &EventLog{events: make([]models.ProctoringEvent, 0)}
}

func (l *EventLog) Append(event models.ProctoringEvent) {
	l.events = append(l.events, event)
}

func (l *EventLog) Len() int {
	return len(l.events)
}

// Events returns a copy; callers cannot reorder or drop logged events
func (l *EventLog) Events() []models.ProctoringEvent {
	out := make([]models.ProctoringEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns a copy of the events appended after the first n
func (l *EventLog) Since(n int) []models.ProctoringEvent {
	if n < 0 {
		n = 0
	}
	if n >= len(l.events) {
		return nil
	}
	out := make([]models.ProctoringEvent, len(l.events)-n)
	copy(out, l.events[n:])
	return out
}

func (l *EventLog) Last() (models.ProctoringEvent, bool) {
	if len(l.events) == 0 {
		return models.ProctoringEvent{}, false
	}
	return l.events[len(l.events)-1], true
}
