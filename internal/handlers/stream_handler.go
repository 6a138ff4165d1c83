package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/SAP-F-2025/proctoring-service/internal/services"
	"github.com/SAP-F-2025/proctoring-service/internal/utils"
)

// Stream message types
const (
	MessageWelcome = "WELCOME"
	MessageSample  = "SAMPLE"
	MessageEvents  = "EVENTS"
	MessageEnd     = "END"
	MessageEnded   = "ENDED"
	MessagePing    = "PING"
	MessagePong    = "PONG"
	MessageError   = "ERROR"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
	sendBuffer = 64
	// A tick is small; anything larger is not a detection sample
	maxMessageSize = 64 * 1024
)

// StreamMessage is the frame exchanged with the perception client
type StreamMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// StreamHandler accepts a websocket per session and feeds every SAMPLE frame to the engine in arrival order
type StreamHandler struct {
	BaseHandler
	sessionService services.SessionService
	upgrader       websocket.Upgrader
}

func NewStreamHandler(sessionService services.SessionService, logger utils.Logger) *StreamHandler {
	return &StreamHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

type streamClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan StreamMessage
}

// Stream upgrades the connection. The read loop runs on the request goroutine so
// samples from one client are ingested strictly one at a time.
// @Router /sessions/{id}/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	sessionID := ParseStringIDParam(c, "id")
	if sessionID == "" {
		return
	}

	// Reject unknown sessions before upgrading so the client gets a plain HTTP status
	view, err := h.sessionService.Get(requestContext(c), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
			return
		}
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.LogError(c, err, "Websocket upgrade failed", "session_id", sessionID)
		return
	}

	client := &streamClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan StreamMessage, sendBuffer),
	}
	h.LogInfo(c, "Stream client connected", "session_id", sessionID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(client)
	}()

	client.send <- newStreamMessage(MessageWelcome, sessionID, gin.H{
		"state":        view.State,
		"focus_status": view.FocusStatus,
	})

	h.readPump(c, client)

	close(client.send)
	<-done
	h.LogInfo(c, "Stream client disconnected", "session_id", sessionID)
}

func (h *StreamHandler) readPump(c *gin.Context, client *streamClient) {
	conn := client.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.LogWarn(c, "Stream read failed", "session_id", client.sessionID, "error", err)
			}
			return
		}

		switch msg.Type {
		case MessagePing:
			client.send <- newStreamMessage(MessagePong, client.sessionID, nil)

		case MessageSample:
			sample, err := decodeSample(msg.Payload)
			if err != nil {
				client.send <- streamError(client.sessionID, "Invalid detection sample", err)
				continue
			}
			result, err := h.sessionService.Ingest(requestContext(c), client.sessionID, sample)
			if err != nil {
				client.send <- streamError(client.sessionID, "Sample rejected", err)
				if services.IsConflict(err) || services.IsNotFound(err) {
					return
				}
				continue
			}
			client.send <- newStreamMessage(MessageEvents, client.sessionID, result)

		case MessageEnd:
			report, err := h.sessionService.End(requestContext(c), client.sessionID)
			if err != nil {
				client.send <- streamError(client.sessionID, "End rejected", err)
				return
			}
			client.send <- newStreamMessage(MessageEnded, client.sessionID, report)
			return

		default:
			client.send <- streamError(client.sessionID, "Unknown message type "+msg.Type, nil)
		}
	}
}

func (h *StreamHandler) writePump(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				h.logger.Warn("Stream write failed", "session_id", client.sessionID, "error", err)
				client.drain()
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.drain()
				return
			}
		}
	}
}

// drain closes the connection so the read loop fails fast, then discards pending frames
// until the read loop closes the send channel
func (c *streamClient) drain() {
	c.conn.Close()
	for range c.send {
	}
}

func newStreamMessage(kind, sessionID string, payload interface{}) StreamMessage {
	msg := StreamMessage{
		Type:      kind,
		SessionID: sessionID,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			msg.Payload = raw
		}
	}
	return msg
}

func streamError(sessionID, message string, err error) StreamMessage {
	body := ErrorResponse{Message: message}
	if err != nil {
		body.Details = err.Error()
	}
	return newStreamMessage(MessageError, sessionID, body)
}
