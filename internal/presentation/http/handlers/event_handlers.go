package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// EventHandlers streams invalidation, notification and readiness events
type EventHandlers struct {
	events    *messaging.EventBroadcaster
	hub       *messaging.WebsocketHub
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	logger    *logging.ChanneledLogger
}

func NewEventHandlers(events *messaging.EventBroadcaster, hub *messaging.WebsocketHub, heartbeat time.Duration, logger *logging.ChanneledLogger) *EventHandlers {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &EventHandlers{
		events:    events,
		hub:       hub,
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// StreamEvents handles GET /api/v1/events/stream. ?type= limits delivery to
// one event type.
func (h *EventHandlers) StreamEvents(c *gin.Context) {
	filter := messaging.EventType(c.Query("type"))
	ch, err := h.events.AddClient(filter)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, messaging.ErrTooManyClients) {
			status = http.StatusServiceUnavailable
		}
		h.logger.SSE().Warn("SSE connection rejected", "error", err.Error())
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	defer h.events.RemoveClient(ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	fmt.Fprintf(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	h.logger.SSE().Info("SSE client connected", "filter", string(filter), "clients", h.events.ClientCount())
	connected := time.Now()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case message, ok := <-ch:
			if !ok {
				return false
			}
			_, err := io.WriteString(w, message)
			return err == nil
		case <-ticker.C:
			_, err := fmt.Fprintf(w, ": heartbeat %d\n\n", time.Now().Unix())
			return err == nil
		}
	})

	h.logger.SSE().Info("SSE client disconnected", "connectionDuration", time.Since(connected).String())
}

// ServeWebsocket handles GET /api/v1/events/ws
func (h *EventHandlers) ServeWebsocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.SSE().Error("Websocket upgrade failed", "error", err.Error())
		return
	}
	h.hub.Serve(conn)
}
