package email

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
)

type recordingSender struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (r *recordingSender) Send(from string, to []string, subject, html string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, html)
	return nil
}

func newSyncAlerter(sender Sender) *Alerter {
	a := NewAlerter(sender, "from@example.com", "owner@example.com", nil)
	a.send = func(f func()) { f() }
	return a
}

func TestAlerterSendsOnlyWarningsAndErrors(t *testing.T) {
	sender := &recordingSender{}
	a := newSyncAlerter(sender)

	a.Notify(content.Notification{Level: content.NotifySuccess, Title: "Saved", Name: "hero_title"})
	a.Notify(content.Notification{Level: content.NotifyError, Title: "Save failed", Name: "hero_title", Message: "<b>boom</b>"})

	if len(sender.subjects) != 1 || sender.subjects[0] != "[folio-go] Save failed" {
		t.Fatalf("subjects = %v", sender.subjects)
	}
	if strings.Contains(sender.bodies[0], "<b>boom</b>") {
		t.Fatal("message was not escaped")
	}
	if !strings.Contains(sender.bodies[0], "hero_title") {
		t.Fatal("body missing content name")
	}
}

func TestAlerterSuppressesRepeatsInQuietPeriod(t *testing.T) {
	sender := &recordingSender{}
	a := newSyncAlerter(sender)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	n := content.Notification{Level: content.NotifyWarning, Title: "Save verification failed", Name: "about_title"}
	a.Notify(n)
	a.Notify(n)
	now = now.Add(11 * time.Minute)
	a.Notify(n)

	if len(sender.subjects) != 2 {
		t.Fatalf("sent = %d, want 2", len(sender.subjects))
	}
}
