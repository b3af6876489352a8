package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSClient represents a single connected websocket client.
type WSClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

// SnapshotFunc produces the periodic state payload sent to every client.
type SnapshotFunc func() any

// WebsocketHub manages websocket clients and broadcasts data to them.
type WebsocketHub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan []byte
	snapshot   SnapshotFunc
	interval   time.Duration
	logger     *logging.ChanneledLogger
	done       chan struct{}
}

// NewWebsocketHub creates a hub. When snapshot is non-nil it is sent to all
// clients every interval and to each client when it connects.
func NewWebsocketHub(snapshot SnapshotFunc, interval time.Duration, logger *logging.ChanneledLogger) *WebsocketHub {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &WebsocketHub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan []byte, 256),
		snapshot:   snapshot,
		interval:   interval,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. This should be run as a goroutine.
func (h *WebsocketHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.SSE().Debug("Websocket client registered", "clients", len(h.clients))
			if msg := h.snapshotMessage(); msg != nil {
				h.send(client, msg)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.SSE().Debug("Websocket client unregistered", "clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				h.send(client, message)
			}

		case <-ticker.C:
			if len(h.clients) == 0 {
				continue
			}
			if msg := h.snapshotMessage(); msg != nil {
				for client := range h.clients {
					h.send(client, msg)
				}
			}
		}
	}
}

func (h *WebsocketHub) send(client *WSClient, message []byte) {
	select {
	case client.Send <- message:
	default:
		// slow client; drop
	}
}

func (h *WebsocketHub) snapshotMessage() []byte {
	if h.snapshot == nil {
		return nil
	}
	message, err := json.Marshal(Event{Type: EventSnapshot, Time: time.Now().UTC(), Data: h.snapshot()})
	if err != nil {
		h.logger.SSE().Error("Error marshaling websocket snapshot", "error", err.Error())
		return nil
	}
	return message
}

// Broadcast queues a message for every client without blocking.
func (h *WebsocketHub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.SSE().Warn("Websocket broadcast queue full, message dropped")
	}
}

// Register queues a client for registration.
func (h *WebsocketHub) Register(client *WSClient) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister queues a client for unregistration.
func (h *WebsocketHub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Serve registers conn and pumps messages until the peer goes away. It
// blocks, so callers run it on the request goroutine.
func (h *WebsocketHub) Serve(conn *websocket.Conn) {
	client := &WSClient{Conn: conn, Send: make(chan []byte, 64)}
	h.Register(client)

	go h.writePump(client)
	h.readPump(client)
}

// readPump discards inbound messages and watches for disconnects.
func (h *WebsocketHub) readPump(client *WSClient) {
	defer func() {
		h.Unregister(client)
		client.Conn.Close()
	}()
	client.Conn.SetReadLimit(512)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.SSE().Debug("Websocket read error", "error", err.Error())
			}
			return
		}
	}
}

func (h *WebsocketHub) writePump(client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
