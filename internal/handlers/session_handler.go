package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
	"github.com/SAP-F-2025/proctoring-service/internal/repositories"
	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	// Same cap as a websocket frame
	maxSampleBytes = maxMessageSize
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	exportService  services.ExportService
}

func NewSessionHandler(
	sessionService services.SessionService,
	exportService services.ExportService,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		exportService:  exportService,
	}
}

// StartSession starts proctoring a candidate
// @Summary Start session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Candidate"
// @Success 201 {object} SuccessResponse{data=services.SessionResponse}
// @Failure 400 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting proctoring session", "candidate_name", req.CandidateName)

	session, err := h.sessionService.Start(requestContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Session started", session, "session_id", session.Session.SessionID)
}

// ListSessions lists live sessions and the archived ones matching the filters
// @Router /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	list, err := h.sessionService.List(requestContext(c), sessionFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetSession returns the session snapshot with live stats and focus status
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	session, err := h.sessionService.Get(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// IngestSample feeds one perception tick into the session.
// An empty body or a JSON null stands for a skipped tick.
// @Accept json
// @Param sample body models.DetectionSample false "Detection sample"
// @Success 200 {object} services.IngestResponse
// @Router /sessions/{id}/samples [post]
func (h *SessionHandler) IngestSample(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSampleBytes)
	body, err := c.GetRawData()
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{
			Message: "Invalid detection sample",
			Details: err.Error(),
		})
		return
	}

	sample, err := decodeSample(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid detection sample",
			Details: err.Error(),
		})
		return
	}

	result, err := h.sessionService.Ingest(requestContext(c), sessionID, sample)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if len(result.Events) > 0 {
		h.LogInfo(c, "Integrity events logged", "session_id", sessionID, "count", len(result.Events))
	} else {
		h.LogDebug(c, "Sample ingested", "session_id", sessionID, "integrity_score", result.IntegrityScore)
	}
	c.JSON(http.StatusOK, result)
}

// EndSession closes the session and returns its final report
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	h.LogRequest(c, "Ending proctoring session", "session_id", sessionID)

	report, err := h.sessionService.End(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Session ended", report, "session_id", sessionID)
}

// GetEvents returns the event timeline in creation order
// @Router /sessions/{id}/events [get]
func (h *SessionHandler) GetEvents(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	timeline, err := h.sessionService.Events(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"events":     timeline,
		"total":      len(timeline),
	})
}

// GetReport builds the report; for a live session it is computed as of now
// @Router /sessions/{id}/report [get]
func (h *SessionHandler) GetReport(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	report, err := h.sessionService.Report(requestContext(c), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportReport downloads the report as JSON or xlsx
// @Param format query string false "json or xlsx"
// @Router /sessions/{id}/report/export [get]
func (h *SessionHandler) ExportReport(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	file, err := h.exportService.Export(requestContext(c), sessionID, c.DefaultQuery("format", services.ExportFormatJSON))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// sessionFilters reads the list query; limit falls back to the default when unset and is capped
func sessionFilters(c *gin.Context) repositories.SessionFilters {
	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return repositories.SessionFilters{
		CandidateName: c.Query("candidate_name"),
		Limit:         limit,
		Offset:        parseIntQuery(c, "offset", 0),
		SortOrder:     c.DefaultQuery("sort_order", "desc"),
	}
}

// decodeSample maps an empty body or JSON null to a nil sample
func decodeSample(body []byte) (*models.DetectionSample, error) {
	var sample *models.DetectionSample
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, err
	}
	return sample, nil
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", nil, validationErrors)
		return
	}

	switch {
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", nil, err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", nil)
	case errors.Is(err, services.ErrSessionAlreadyEnded):
		h.RespondWithError(c, http.StatusConflict, "Session already ended", nil)
	case errors.Is(err, services.ErrSessionNotActive):
		h.RespondWithError(c, http.StatusConflict, "Session is not active", nil)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
