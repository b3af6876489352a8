// Package messaging provides the concrete implementation of the SSE broadcaster.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// ErrTooManyClients is returned when the client limit is reached.
var ErrTooManyClients = fmt.Errorf("too many event stream clients")

// EventBroadcaster fans events out to SSE clients and, when attached, to a
// websocket hub.
type EventBroadcaster struct {
	clients    map[chan string]EventType // "" subscribes to every type
	maxClients int
	ws         *WebsocketHub
	mu         sync.Mutex
	logger     *logging.ChanneledLogger
	now        func() time.Time
}

// NewEventBroadcaster creates an event broadcaster. maxClients <= 0 uses
// config.MaxEventClients.
func NewEventBroadcaster(maxClients int, logger *logging.ChanneledLogger) *EventBroadcaster {
	if maxClients <= 0 {
		maxClients = config.MaxEventClients
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &EventBroadcaster{
		clients:    make(map[chan string]EventType),
		maxClients: maxClients,
		logger:     logger,
		now:        time.Now,
	}
}

// AttachWebsocketHub mirrors every published event to hub.
func (b *EventBroadcaster) AttachWebsocketHub(hub *WebsocketHub) {
	b.mu.Lock()
	b.ws = hub
	b.mu.Unlock()
}

// AddClient registers an SSE client. filter limits delivery to one event
// type; pass "" for everything.
func (b *EventBroadcaster) AddClient(filter EventType) (chan string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.clients) >= b.maxClients {
		return nil, ErrTooManyClients
	}
	ch := make(chan string, 32)
	b.clients[ch] = filter
	b.logger.SSE().Debug("SSE client registered", "filter", string(filter), "clients", len(b.clients))
	return ch, nil
}

// RemoveClient unregisters and closes ch.
func (b *EventBroadcaster) RemoveClient(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
		b.logger.SSE().Debug("SSE client unregistered", "clients", len(b.clients))
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *EventBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends an event to every matching client without blocking. Slow
// clients drop messages.
func (b *EventBroadcaster) Publish(eventType EventType, data any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in Publish", "error", r, "type", string(eventType))
		}
	}()

	event := Event{
		ID:   ulid.Make().String(),
		Type: eventType,
		Time: b.now().UTC(),
		Data: data,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal event", "error", err.Error(), "type", string(eventType))
		return
	}
	message := FormatSSE(event.ID, string(eventType), payload)

	b.mu.Lock()
	for ch, filter := range b.clients {
		if filter != "" && filter != eventType {
			continue
		}
		select {
		case ch <- message:
		default:
			b.logger.SSE().Warn("SSE channel full, message dropped", "type", string(eventType))
		}
	}
	ws := b.ws
	b.mu.Unlock()

	if ws != nil {
		ws.Broadcast(payload)
	}
}

// Close disconnects every SSE client.
func (b *EventBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		delete(b.clients, ch)
		close(ch)
	}
}

// FormatSSE renders one server-sent event frame.
func FormatSSE(id, event string, data []byte) string {
	return fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event, data)
}
