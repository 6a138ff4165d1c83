package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/proctoring-service/internal/cache"
	"github.com/SAP-F-2025/proctoring-service/internal/events"
	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/proctoring"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/validator"
)

// SessionService runs the live proctoring engines and archives them once they end
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error)
	Ingest(ctx context.Context, sessionID string, sample *models.DetectionSample) (*IngestResponse, error)
	End(ctx context.Context, sessionID string) (*models.Report, error)
	Get(ctx context.Context, sessionID string) (*SessionResponse, error)
	Report(ctx context.Context, sessionID string) (*models.Report, error)
	Events(ctx context.Context, sessionID string) ([]models.ProctoringEvent, error)
	List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error)
}

// ===== REQUEST/RESPONSE TYPES =====

type StartSessionRequest struct {
	CandidateName string `json:"candidate_name" validate:"required,candidate_name"`
}

type FocusStatus struct {
	State     models.FocusState `json:"state"`
	Label     string            `json:"label"`
	Indicator string            `json:"indicator"`
}

func NewFocusStatus(state models.FocusState) FocusStatus {
	return FocusStatus{
		State:     state,
		Label:     state.Label(),
		Indicator: state.Indicator(),
	}
}

type SessionResponse struct {
	Session     models.IntegritySession `json:"session"`
	State       string                  `json:"state"`
	Stats       models.VideoStats       `json:"stats"`
	FocusStatus FocusStatus             `json:"focus_status"`
	LatestEvent *models.ProctoringEvent `json:"latest_event,omitempty"`
}

type IngestResponse struct {
	SessionID      string                   `json:"session_id"`
	Events         []models.ProctoringEvent `json:"events"`
	IntegrityScore int                      `json:"integrity_score"`
	FocusStatus    FocusStatus              `json:"focus_status"`
}

type SessionSummary struct {
	SessionID      string     `json:"session_id"`
	CandidateName  string     `json:"candidate_name"`
	State          string     `json:"state"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	IntegrityScore int        `json:"integrity_score"`
	TotalEvents    int        `json:"total_events"`
}

type SessionListResponse struct {
	Active        []SessionSummary `json:"active"`
	Archived      []SessionSummary `json:"archived"`
	ArchivedTotal int64            `json:"archived_total"`
}

type SessionServiceConfig struct {
	Engine         proctoring.Config
	ReportCacheTTL time.Duration
	// Clock drives every engine; nil means wall-clock time
	Clock proctoring.Clock
}

// ===== IMPLEMENTATION =====

type liveSession struct {
	mu     sync.Mutex
	engine *proctoring.Session
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
	// Last id base handed out and how many sessions got it, so an archived
	// session from the same millisecond is never shadowed by a new one
	lastIDBase  string
	lastIDCount int

	cfg       SessionServiceConfig
	repo      repositories.SessionRepository // nil when persistence is disabled
	cache     cache.CacheService             // nil when caching is disabled
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	svcLog    *ServiceLogger
}

func NewSessionService(
	cfg SessionServiceConfig,
	repo repositories.SessionRepository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) SessionService {
	if cfg.Clock == nil {
		cfg.Clock = proctoring.SystemClock{}
	}
	return &sessionService{
		sessions:  make(map[string]*liveSession),
		cfg:       cfg,
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		svcLog:    NewServiceLogger(logger, LogConfig{Service: "proctoring-service", Component: "session"}),
	}
}

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (resp *SessionResponse, err error) {
	op := s.svcLog.WithOperation(ctx, "start", "")
	defer func() { op.LogResult(err) }()

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	engine, err := proctoring.NewSession(req.CandidateName, s.cfg.Engine,
		proctoring.WithClock(s.cfg.Clock),
		proctoring.WithSessionIDFunc(s.uniqueSessionID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := engine.Start(); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	live := &liveSession{engine: engine}
	s.sessions[engine.ID()] = live
	op.sessionID = engine.ID()

	s.logger.Info("Proctoring session started",
		"session_id", engine.ID(),
		"candidate_name", engine.CandidateName())

	return liveResponse(engine), nil
}

// uniqueSessionID suffixes the time-derived id for every further session started in the
// same millisecond, whether the earlier ones are still live or already archived.
// Called with s.mu held.
func (s *sessionService) uniqueSessionID(start time.Time) string {
	base := proctoring.DefaultSessionID(start)
	if base != s.lastIDBase {
		s.lastIDBase = base
		s.lastIDCount = 0
	}
	for {
		s.lastIDCount++
		id := base
		if s.lastIDCount > 1 {
			id = fmt.Sprintf("%s_%d", base, s.lastIDCount)
		}
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
}

func (s *sessionService) Ingest(ctx context.Context, sessionID string, sample *models.DetectionSample) (resp *IngestResponse, err error) {
	op := s.svcLog.WithOperation(ctx, "ingest", sessionID)
	defer func() { op.LogResult(err) }()

	live, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateSample(sample); err != nil {
		return nil, err
	}

	var (
		emitted []models.ProctoringEvent
		score   int
		focus   models.FocusState
	)
	err = func() (stepErr error) {
		live.mu.Lock()
		defer live.mu.Unlock()
		defer func() {
			if r := recover(); r != nil {
				s.svcLog.LogRecovery(ctx, "ingest", sessionID, r, debug.Stack())
				stepErr = fmt.Errorf("%w: engine failure", ErrInternalError)
			}
		}()

		emitted, stepErr = live.engine.Ingest(sample)
		if stepErr != nil {
			return mapEngineError(stepErr)
		}
		score = live.engine.Score()
		focus = live.engine.FocusState()
		// Published under the session lock so the topic sees events in log order
		s.publishIntegrityEvents(ctx, sessionID, live.engine.CandidateName(), emitted, score)
		return nil
	}()
	if err != nil {
		return nil, err
	}

	if emitted == nil {
		emitted = []models.ProctoringEvent{}
	}
	return &IngestResponse{
		SessionID:      sessionID,
		Events:         emitted,
		IntegrityScore: score,
		FocusStatus:    NewFocusStatus(focus),
	}, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) (report *models.Report, err error) {
	op := s.svcLog.WithOperation(ctx, "end", sessionID)
	defer func() { op.LogResult(err) }()

	live, err := s.live(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	live.mu.Lock()
	flushed, err := live.engine.End()
	if err != nil {
		live.mu.Unlock()
		return nil, mapEngineError(err)
	}
	final, _ := live.engine.Report()
	snapshot := live.engine.Snapshot()
	stats := live.engine.Stats()
	s.publishIntegrityEvents(ctx, sessionID, snapshot.CandidateName, flushed, snapshot.IntegrityScore)
	if err := s.publisher.PublishSessionEnded(ctx, events.NewSessionEndedMessage(final)); err != nil {
		s.logger.Warn("Failed to publish session ended message", "session_id", sessionID, "error", err)
	}
	live.mu.Unlock()

	// Only final reports are cached; live ones are always recomputed from the engine
	s.cacheReport(ctx, final)

	if s.archive(ctx, snapshot, stats, final) {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	}

	s.logger.Info("Proctoring session ended",
		"session_id", sessionID,
		"integrity_score", final.IntegrityScore,
		"total_events", final.TotalEvents)

	return &final, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionResponse, error) {
	if live, ok := s.lookup(sessionID); ok {
		live.mu.Lock()
		defer live.mu.Unlock()
		return liveResponse(live.engine), nil
	}

	record, err := s.archived(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return archivedResponse(record), nil
}

func (s *sessionService) Report(ctx context.Context, sessionID string) (*models.Report, error) {
	if live, ok := s.lookup(sessionID); ok {
		live.mu.Lock()
		report, err := live.engine.Report()
		live.mu.Unlock()
		if err != nil {
			return nil, mapEngineError(err)
		}
		return &report, nil
	}

	if s.cache != nil {
		var cached models.Report
		err := s.cache.Get(ctx, cache.ReportKey(sessionID), &cached)
		if err == nil && cached.EndTime != nil {
			return &cached, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Report cache lookup failed", "session_id", sessionID, "error", err)
		}
	}

	record, err := s.archived(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	report, err := reportFromRecord(record)
	if err != nil {
		return nil, err
	}
	s.cacheReport(ctx, *report)
	return report, nil
}

func (s *sessionService) Events(ctx context.Context, sessionID string) ([]models.ProctoringEvent, error) {
	if live, ok := s.lookup(sessionID); ok {
		live.mu.Lock()
		defer live.mu.Unlock()
		return live.engine.Snapshot().Events, nil
	}

	record, err := s.archived(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return recordEvents(record), nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error) {
	resp := &SessionListResponse{
		Active:   make([]SessionSummary, 0),
		Archived: make([]SessionSummary, 0),
	}

	s.mu.RLock()
	lives := make([]*liveSession, 0, len(s.sessions))
	for _, live := range s.sessions {
		lives = append(lives, live)
	}
	s.mu.RUnlock()

	for _, live := range lives {
		live.mu.Lock()
		summary := liveSummary(live.engine)
		live.mu.Unlock()
		resp.Active = append(resp.Active, summary)
	}
	sort.Slice(resp.Active, func(i, j int) bool {
		return resp.Active[i].StartTime.Before(resp.Active[j].StartTime)
	})

	if s.repo == nil {
		return resp, nil
	}

	records, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived sessions: %w", err)
	}
	for _, record := range records {
		resp.Archived = append(resp.Archived, archivedSummary(record))
	}
	resp.ArchivedTotal = total
	return resp, nil
}

// ===== HELPERS =====

func (s *sessionService) lookup(sessionID string) (*liveSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[sessionID]
	return live, ok
}

// live returns the in-memory engine or explains why the session cannot take more input
func (s *sessionService) live(ctx context.Context, sessionID string) (*liveSession, error) {
	if live, ok := s.lookup(sessionID); ok {
		return live, nil
	}
	if _, err := s.archived(ctx, sessionID); err == nil {
		return nil, ErrSessionAlreadyEnded
	}
	return nil, ErrSessionNotFound
}

func (s *sessionService) archived(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	if s.repo == nil {
		return nil, ErrSessionNotFound
	}
	record, err := s.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load archived session: %w", err)
	}
	return record, nil
}

// archive stores the ended session and reports whether the live engine can be released
func (s *sessionService) archive(ctx context.Context, snapshot models.IntegritySession, stats models.VideoStats, report models.Report) bool {
	if s.repo == nil {
		return false
	}

	record, err := newSessionRecord(snapshot, stats, report)
	if err == nil {
		err = s.repo.Save(ctx, record)
	}
	if err != nil {
		s.logger.Error("Failed to archive session, keeping it in memory",
			"session_id", snapshot.SessionID,
			"error", err)
		return false
	}
	return true
}

func (s *sessionService) publishIntegrityEvents(ctx context.Context, sessionID, candidate string, emitted []models.ProctoringEvent, score int) {
	for _, event := range emitted {
		s.svcLog.LogIntegrityEvent(ctx, sessionID, event, score)
		msg := events.NewIntegrityEventMessage(sessionID, candidate, event, score)
		if err := s.publisher.PublishIntegrityEvent(ctx, msg); err != nil {
			s.logger.Warn("Failed to publish integrity event",
				"session_id", sessionID,
				"event_id", event.ID,
				"error", err)
		}
	}
}

func (s *sessionService) cacheReport(ctx context.Context, report models.Report) {
	if s.cache == nil || report.SessionID == "" {
		return
	}
	if err := s.cache.Set(ctx, cache.ReportKey(report.SessionID), report, s.cfg.ReportCacheTTL); err != nil {
		s.logger.Warn("Failed to cache report", "session_id", report.SessionID, "error", err)
	}
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, proctoring.ErrSessionNotStarted):
		return fmt.Errorf("%w: %v", ErrSessionNotActive, err)
	case errors.Is(err, proctoring.ErrSessionEnded):
		return fmt.Errorf("%w: %v", ErrSessionAlreadyEnded, err)
	case errors.Is(err, proctoring.ErrInvalidSample):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}

func liveResponse(engine *proctoring.Session) *SessionResponse {
	resp := &SessionResponse{
		Session:     engine.Snapshot(),
		State:       string(engine.State()),
		Stats:       engine.Stats(),
		FocusStatus: NewFocusStatus(engine.FocusState()),
	}
	if latest, ok := engine.LatestEvent(); ok {
		resp.LatestEvent = &latest
	}
	return resp
}

func liveSummary(engine *proctoring.Session) SessionSummary {
	snap := engine.Snapshot()
	return SessionSummary{
		SessionID:      snap.SessionID,
		CandidateName:  snap.CandidateName,
		State:          string(engine.State()),
		StartTime:      snap.StartTime,
		EndTime:        snap.EndTime,
		IntegrityScore: snap.IntegrityScore,
		TotalEvents:    len(snap.Events),
	}
}

func newSessionRecord(snapshot models.IntegritySession, stats models.VideoStats, report models.Report) (*models.SessionRecord, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	record := &models.SessionRecord{
		SessionID:                  snapshot.SessionID,
		CandidateName:              snapshot.CandidateName,
		StartTime:                  snapshot.StartTime,
		EndTime:                    snapshot.EndTime,
		IntegrityScore:             snapshot.IntegrityScore,
		CumulativeFocusLostSeconds: stats.CumulativeFocusLostSeconds,
		FacesDetected:              stats.FacesDetected,
		Report:                     datatypes.JSON(payload),
		Events:                     make([]models.EventRecord, 0, len(snapshot.Events)),
	}
	for i, event := range snapshot.Events {
		record.Events = append(record.Events, models.NewEventRecord(event, i+1))
	}
	return record, nil
}

func recordEvents(record *models.SessionRecord) []models.ProctoringEvent {
	out := make([]models.ProctoringEvent, 0, len(record.Events))
	for _, event := range record.Events {
		out = append(out, event.ToEvent())
	}
	return out
}

func reportFromRecord(record *models.SessionRecord) (*models.Report, error) {
	var report models.Report
	if err := json.Unmarshal([]byte(record.Report), &report); err != nil {
		return nil, fmt.Errorf("failed to decode archived report: %w", err)
	}
	return &report, nil
}

func archivedResponse(record *models.SessionRecord) *SessionResponse {
	session := models.IntegritySession{
		CandidateName:  record.CandidateName,
		SessionID:      record.SessionID,
		StartTime:      record.StartTime,
		EndTime:        record.EndTime,
		Events:         recordEvents(record),
		IntegrityScore: record.IntegrityScore,
	}
	resp := &SessionResponse{
		Session: session,
		State:   string(proctoring.StateEnded),
		Stats: models.VideoStats{
			FacesDetected:              record.FacesDetected,
			CumulativeFocusLostSeconds: record.CumulativeFocusLostSeconds,
			CurrentFocusState:          models.FocusFocused,
		},
		FocusStatus: NewFocusStatus(models.FocusFocused),
	}
	if n := len(session.Events); n > 0 {
		latest := session.Events[n-1]
		resp.LatestEvent = &latest
	}
	return resp
}

func archivedSummary(record *models.SessionRecord) SessionSummary {
	return SessionSummary{
		SessionID:      record.SessionID,
		CandidateName:  record.CandidateName,
		State:          string(proctoring.StateEnded),
		StartTime:      record.StartTime,
		EndTime:        record.EndTime,
		IntegrityScore: record.IntegrityScore,
		TotalEvents:    len(record.Events),
	}
}
