package logging

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// LogEntry is a single log line as sent to stream clients.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Operation string `json:"operation,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Client is one connected log viewer.
type Client struct {
	ID      string
	Channel chan []byte
	filters AppliedFilters
}

// AppliedFilters defines the channel and minimum level a client receives.
type AppliedFilters struct {
	Channel Channel // "all" matches every channel
	Level   slog.Level
}

// LogBroadcaster fans log entries out to registered clients.
type LogBroadcaster struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan LogEntry
	mu         sync.RWMutex
	stop       chan struct{}
	stopOnce   sync.Once
	dropped    uint64
}

var (
	broadcaster *LogBroadcaster
	once        sync.Once
)

// GetBroadcaster returns the process-wide LogBroadcaster, starting it on first use.
func GetBroadcaster() *LogBroadcaster {
	once.Do(func() {
		broadcaster = newLogBroadcaster()
		go broadcaster.run()
	})
	return broadcaster
}

func newLogBroadcaster() *LogBroadcaster {
	return &LogBroadcaster{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan LogEntry, 1000),
		stop:       make(chan struct{}),
	}
}

func (b *LogBroadcaster) run() {
	for {
		select {
		case <-b.stop:
			b.mu.Lock()
			for client := range b.clients {
				delete(b.clients, client)
				close(client.Channel)
			}
			b.mu.Unlock()
			return
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.Channel)
			}
			b.mu.Unlock()
		case entry := <-b.broadcast:
			b.distribute(entry)
		}
	}
}

func (b *LogBroadcaster) distribute(entry LogEntry) {
	message, err := json.Marshal(entry)
	if err != nil {
		return
	}

	level, _ := ParseLevel(entry.Level)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		channelMatch := client.filters.Channel == "all" || client.filters.Channel == Channel(entry.Channel)
		if !channelMatch || level < client.filters.Level {
			continue
		}
		select {
		case client.Channel <- message:
		default:
			// slow client; drop
		}
	}
}

// SubmitLog queues an entry without blocking. Entries are dropped when the
// queue is full.
func (b *LogBroadcaster) SubmitLog(entry LogEntry) {
	select {
	case b.broadcast <- entry:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
	}
}

// Dropped reports how many entries were discarded under load.
func (b *LogBroadcaster) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// NewClient creates a new client for the broadcaster.
func (b *LogBroadcaster) NewClient(filters AppliedFilters) *Client {
	if filters.Channel == "" {
		filters.Channel = "all"
	}
	return &Client{
		ID:      ulid.Make().String(),
		Channel: make(chan []byte, 100),
		filters: filters,
	}
}

func (b *LogBroadcaster) RegisterClient(client *Client) {
	select {
	case b.register <- client:
	case <-b.stop:
	}
}

func (b *LogBroadcaster) UnregisterClient(client *Client) {
	select {
	case b.unregister <- client:
	case <-b.stop:
	}
}

// Shutdown stops the broadcaster and closes all client channels.
func (b *LogBroadcaster) Shutdown() {
	b.stopOnce.Do(func() { close(b.stop) })
}
