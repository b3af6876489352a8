// Package messaging defines interfaces for real-time communication.
package messaging

import (
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
)

// EventType names the kind of payload carried by an Event.
type EventType string

const (
	EventInvalidation EventType = "content_invalidated"
	EventNotification EventType = "notification"
	EventReadiness    EventType = "page_readiness"
	EventSnapshot     EventType = "snapshot"
)

// Event is one message pushed to SSE and websocket clients.
type Event struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// Publisher fans events out to connected clients.
type Publisher interface {
	Publish(eventType EventType, data any)
}

// Notifier receives user-facing save and fetch notifications.
type Notifier interface {
	Notify(n content.Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(content.Notification)

func (f NotifierFunc) Notify(n content.Notification) { f(n) }

// MultiNotifier delivers each notification to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(n content.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

// PublishingNotifier forwards notifications to a Publisher as events.
type PublishingNotifier struct {
	Publisher Publisher
}

func (p PublishingNotifier) Notify(n content.Notification) {
	p.Publisher.Publish(EventNotification, n)
}
