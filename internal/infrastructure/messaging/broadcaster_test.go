package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
)

func TestPublishRespectsClientFilter(t *testing.T) {
	b := NewEventBroadcaster(10, nil)
	defer b.Close()

	all, err := b.AddClient("")
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	onlyNotifications, _ := b.AddClient(EventNotification)

	b.Publish(EventInvalidation, map[string]any{"names": []string{"hero_title"}})
	b.Publish(EventNotification, content.Notification{Level: content.NotifySuccess, Title: "Saved"})

	if len(all) != 2 {
		t.Fatalf("unfiltered client got %d messages, want 2", len(all))
	}
	if len(onlyNotifications) != 1 {
		t.Fatalf("filtered client got %d messages, want 1", len(onlyNotifications))
	}
	frame := <-onlyNotifications
	if !strings.HasPrefix(frame, "id: ") || !strings.Contains(frame, "event: notification\n") {
		t.Fatalf("frame = %q", frame)
	}
}

func TestAddClientEnforcesLimit(t *testing.T) {
	b := NewEventBroadcaster(1, nil)
	defer b.Close()
	if _, err := b.AddClient(""); err != nil {
		t.Fatalf("first AddClient: %v", err)
	}
	if _, err := b.AddClient(""); err != ErrTooManyClients {
		t.Fatalf("err = %v, want ErrTooManyClients", err)
	}
}

func TestRemoveClientClosesChannel(t *testing.T) {
	b := NewEventBroadcaster(10, nil)
	ch, _ := b.AddClient("")
	b.RemoveClient(ch)
	b.RemoveClient(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open")
	}
	if b.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0", b.ClientCount())
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	var got []string
	m := MultiNotifier{
		NotifierFunc(func(n content.Notification) { got = append(got, "a:"+n.Title) }),
		nil,
		NotifierFunc(func(n content.Notification) { got = append(got, "b:"+n.Title) }),
	}
	m.Notify(content.Notification{Title: "x"})
	if strings.Join(got, ",") != "a:x,b:x" {
		t.Fatalf("got = %v", got)
	}
}

func TestWebsocketHubDeliversPublishedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewWebsocketHub(func() any { return map[string]int{"entries": 3} }, time.Hour, nil)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Given a freshly connected client, the first frame is the snapshot
	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != EventSnapshot {
		t.Fatalf("first.Type = %q, want %q", first.Type, EventSnapshot)
	}

	// When an event is published through the broadcaster
	b := NewEventBroadcaster(10, nil)
	b.AttachWebsocketHub(hub)
	b.Publish(EventInvalidation, map[string]any{"names": []string{"about_title"}})

	// Then the websocket client receives it
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != EventInvalidation || ev.ID == "" {
		t.Fatalf("event = %+v", ev)
	}
}
