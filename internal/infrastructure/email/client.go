// Package email sends owner alerts when content saves fail or disagree
// with the store.
package email

import (
	"fmt"
	"sync"
	"time"

	"github.com/resendlabs/resend-go"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// Sender delivers one rendered message. ResendSender is the production
// implementation; tests substitute their own.
type Sender interface {
	Send(from string, to []string, subject, html string) error
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend-backed sender.
func NewResendSender(apiKey string) (*ResendSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	return &ResendSender{client: resend.NewClient(apiKey)}, nil
}

func (s *ResendSender) Send(from string, to []string, subject, html string) error {
	params := &resend.SendEmailRequest{
		From:    from,
		To:      to,
		Subject: subject,
		Html:    html,
	}
	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	return nil
}

// Alerter emails the site owner about warning and error notifications.
// Repeats for the same name and level are suppressed inside a quiet period.
type Alerter struct {
	sender Sender
	from   string
	to     []string
	quiet  time.Duration
	logger *logging.ChanneledLogger

	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
	send func(func())
}

// NewAlerter creates an alerter. Sending happens off the caller's goroutine.
func NewAlerter(sender Sender, from, to string, logger *logging.ChanneledLogger) *Alerter {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Alerter{
		sender: sender,
		from:   from,
		to:     []string{to},
		quiet:  10 * time.Minute,
		logger: logger,
		last:   make(map[string]time.Time),
		now:    time.Now,
		send:   func(f func()) { go f() },
	}
}

// NewAlerterFromConfig builds an alerter from pkg/config. It returns nil
// when alerts are not configured.
func NewAlerterFromConfig(logger *logging.ChanneledLogger) (*Alerter, error) {
	if config.ResendAPIKey == "" || config.AlertTo == "" {
		return nil, nil
	}
	sender, err := NewResendSender(config.ResendAPIKey)
	if err != nil {
		return nil, err
	}
	from := config.AlertFrom
	if from == "" {
		from = "folio-go <alerts@resend.dev>"
	}
	return NewAlerter(sender, from, config.AlertTo, logger), nil
}

// Notify sends an alert for warning and error notifications.
func (a *Alerter) Notify(n content.Notification) {
	if n.Level != content.NotifyWarning && n.Level != content.NotifyError {
		return
	}

	key := string(n.Level) + ":" + n.Name
	now := a.now()
	a.mu.Lock()
	if last, ok := a.last[key]; ok && now.Sub(last) < a.quiet {
		a.mu.Unlock()
		return
	}
	a.last[key] = now
	a.mu.Unlock()

	subject := fmt.Sprintf("[folio-go] %s", n.Title)
	html := RenderAlert(n)
	a.send(func() {
		if err := a.sender.Send(a.from, a.to, subject, html); err != nil {
			a.logger.Alert().Error("Owner alert failed", "error", err.Error(), "name", n.Name)
			return
		}
		a.logger.Alert().Info("Owner alert sent", "name", n.Name, "level", string(n.Level))
	})
}

// RenderAlert renders the HTML body for a notification.
func RenderAlert(n content.Notification) string {
	accent := "#e5c07b"
	if n.Level == content.NotifyError {
		accent = "#e06c75"
	}
	ts := n.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	body := templates.GetParagraph(n.Message) + templates.GetDetails([]templates.DetailRow{
		{Label: "Content", Value: n.Name},
		{Label: "Level", Value: string(n.Level)},
		{Label: "Time", Value: ts.UTC().Format(time.RFC3339)},
	})
	return templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: n.Title,
		Title:     n.Title,
		Content:   body,
		Accent:    accent,
	})
}
