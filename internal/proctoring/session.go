package proctoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

type LifecycleState string

const (
	StateNotStarted LifecycleState = "not_started"
	StateActive     LifecycleState = "active"
	StateEnded      LifecycleState = "ended"
)

// SessionIDFunc derives a session id from the session start instant
type SessionIDFunc func(start time.Time) string

func DefaultSessionID(start time.Time) string {
	return fmt.Sprintf("session_%d", start.UnixMilli())
}

type Option func(*Session)

func WithClock(clock Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

func WithSessionIDFunc(fn SessionIDFunc) Option {
	return func(s *Session) {
		s.newSessionID = fn
	}
}

// Session is the proctoring engine for one candidate. It owns the event log, the score,
// both interval timers and the video stats. It performs no locking: callers must deliver
// samples one at a time and let each call return before the next.
type Session struct {
	cfg          Config
	clock        Clock
	newSessionID SessionIDFunc

	state         LifecycleState
	candidateName string
	sessionID     string
	startTime     time.Time
	endTime       *time.Time
	sequence      int

	log        *EventLog
	scorer     *Scorer
	focus      *FocusTracker
	presence   *PresenceTracker
	classifier *ObjectClassifier
	stats      models.VideoStats
}

func NewSession(candidateName string, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:           cfg,
		clock:         SystemClock{},
		newSessionID:  DefaultSessionID,
		state:         StateNotStarted,
		candidateName: strings.TrimSpace(candidateName),
		log:           NewEventLog(),
		scorer:        NewScorer(),
		focus:         NewFocusTracker(cfg.FocusThreshold),
		presence:      NewPresenceTracker(cfg.FaceAbsenceThreshold),
		classifier:    NewObjectClassifier(cfg.ObjectFallback),
		stats: models.VideoStats{
			CurrentFocusState: models.FocusFocused,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) Start() error {
	switch s.state {
	case StateActive:
		return ErrSessionAlreadyStarted
	case StateEnded:
		return ErrSessionEnded
	}

	now := s.clock.Now()
	s.sessionID = s.newSessionID(now)
	s.startTime = now
	s.state = StateActive
	s.stats.IsVideoActive = true
	return nil
}

// Ingest processes one perception tick to completion and returns the events it produced.
// A nil sample stands for a skipped tick and changes nothing.
func (s *Session) Ingest(sample *models.DetectionSample) ([]models.ProctoringEvent, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, nil
	}
	if sample.FaceCount < 0 {
		return nil, fmt.Errorf("%w: negative face count %d", ErrInvalidSample, sample.FaceCount)
	}

	now := s.clock.Now()
	mark := s.log.Len()

	s.observePresence(sample.FaceCount, now)

	if flush, ok := s.focus.Observe(sample.IsLookingAway, now); ok {
		s.applyFocusFlush(flush, now)
	}

	for _, label := range sample.ObjectLabels {
		s.record(s.classifier.Finding(label), now)
	}

	s.refreshFocusState()
	return s.log.Since(mark), nil
}

// End flushes both open intervals at the current instant and closes the session for good
func (s *Session) End() ([]models.ProctoringEvent, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	mark := s.log.Len()

	if flush, ok := s.focus.Regain(now); ok {
		s.applyFocusFlush(flush, now)
	}
	if finding, ok := s.presence.Recover(now); ok && finding != nil {
		s.record(*finding, now)
	}

	end := now
	s.endTime = &end
	s.state = StateEnded
	s.stats.IsVideoActive = false
	s.refreshFocusState()

	return s.log.Since(mark), nil
}

func (s *Session) observePresence(faceCount int, now time.Time) {
	obs := s.presence.Observe(faceCount, now)

	if faceCount == 0 {
		s.stats.FacesDetected = 0
	} else {
		seen := now
		s.stats.FacesDetected = faceCount
		s.stats.LastFaceDetection = &seen
	}

	for _, finding := range obs.Findings {
		s.record(finding, now)
	}

	// A returning face means gaze tracking restarts from a known state;
	// a focus-lost timer left running through the absence is flushed here.
	if obs.Recovered {
		if flush, ok := s.focus.Regain(now); ok {
			s.applyFocusFlush(flush, now)
		}
	}
}

func (s *Session) applyFocusFlush(flush FocusFlush, now time.Time) {
	s.stats.CumulativeFocusLostSeconds += flush.Elapsed.Seconds()
	if flush.Finding != nil {
		s.record(*flush.Finding, now)
	}
}

func (s *Session) record(finding Finding, now time.Time) models.ProctoringEvent {
	s.sequence++
	event := models.ProctoringEvent{
		ID:          fmt.Sprintf("event_%d_%03d", now.UnixMilli(), s.sequence),
		Type:        finding.Type,
		Severity:    finding.Severity,
		Timestamp:   now,
		Duration:    finding.Duration,
		Description: finding.Description,
	}
	s.log.Append(event)
	s.scorer.Apply(event.Severity)
	return event
}

// No face outranks looking away: a face that cannot be found cannot be classified as looking anywhere
func (s *Session) refreshFocusState() {
	switch {
	case s.presence.Open():
		s.stats.CurrentFocusState = models.FocusNoFace
	case s.focus.Open():
		s.stats.CurrentFocusState = models.FocusLookingAway
	default:
		s.stats.CurrentFocusState = models.FocusFocused
	}
}

func (s *Session) requireActive() error {
	switch s.state {
	case StateNotStarted:
		return ErrSessionNotStarted
	case StateEnded:
		return ErrSessionEnded
	}
	return nil
}

func (s *Session) State() LifecycleState {
	return s.state
}

func (s *Session) ID() string {
	return s.sessionID
}

func (s *Session) CandidateName() string {
	return s.candidateName
}

func (s *Session) Config() Config {
	return s.cfg
}

func (s *Session) Score() int {
	return s.scorer.Score()
}

func (s *Session) FocusState() models.FocusState {
	return s.stats.CurrentFocusState
}

func (s *Session) LatestEvent() (models.ProctoringEvent, bool) {
	return s.log.Last()
}

// Snapshot copies the session so callers can read it without holding on to engine state
func (s *Session) Snapshot() models.IntegritySession {
	snap := models.IntegritySession{
		CandidateName:  s.candidateName,
		SessionID:      s.sessionID,
		StartTime:      s.startTime,
		Events:         s.log.Events(),
		IntegrityScore: s.scorer.Score(),
	}
	if s.endTime != nil {
		end := *s.endTime
		snap.EndTime = &end
	}
	return snap
}

func (s *Session) Stats() models.VideoStats {
	stats := s.stats
	if s.stats.LastFaceDetection != nil {
		seen := *s.stats.LastFaceDetection
		stats.LastFaceDetection = &seen
	}
	return stats
}

// Report builds a summary as of now. On an active session now stands in for the end time.
func (s *Session) Report() (models.Report, error) {
	if s.state == StateNotStarted {
		return models.Report{}, ErrSessionNotStarted
	}
	return BuildReport(s.Snapshot(), s.Stats(), s.clock.Now()), nil
}
