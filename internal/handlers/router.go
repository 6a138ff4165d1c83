package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	streamHandler  *StreamHandler
	authHandler    *AuthHandler
}

// NewHandlerManager wires the HTTP handlers. A nil parser leaves the API unauthenticated.
func NewHandlerManager(
	sessionService services.SessionService,
	exportService services.ExportService,
	parser TokenParser,
	logger utils.Logger,
) *HandlerManager {
	hm := &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, exportService, logger),
		streamHandler:  NewStreamHandler(sessionService, logger),
	}
	if parser != nil {
		hm.authHandler = NewAuthHandler(parser, logger)
	}
	return hm
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "proctoring-service",
		})
	})

	v1 := router.Group("/api/v1")
	if hm.authHandler != nil {
		v1.Use(hm.authHandler.Middleware())
	}

	sessions := v1.Group("/sessions")
	{
		sessions.POST("", hm.sessionHandler.StartSession)
		sessions.GET("", hm.sessionHandler.ListSessions)
		sessions.GET("/:id", hm.sessionHandler.GetSession)
		sessions.POST("/:id/samples", hm.sessionHandler.IngestSample)
		sessions.POST("/:id/end", hm.sessionHandler.EndSession)
		sessions.GET("/:id/events", hm.sessionHandler.GetEvents)

		// Reports
		sessions.GET("/:id/report", hm.sessionHandler.GetReport)
		sessions.GET("/:id/report/export", hm.sessionHandler.ExportReport)

		// Live intake from the perception client
		sessions.GET("/:id/stream", hm.streamHandler.Stream)
	}
}
