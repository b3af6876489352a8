// Package gate puts request coalescing, a per-signature circuit breaker and
// static fallbacks in front of the remote content store. BulkFetch never
// fails outright: every path yields usable content.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
)

var (
	// ErrCircuitOpen is returned while a signature has exhausted its attempts.
	ErrCircuitOpen = errors.New("circuit breaker active")
	// ErrCooldown is returned when a signature is retried too soon.
	ErrCooldown = errors.New("cooldown")
)

// Stats counts gate outcomes since construction.
type Stats struct {
	Requests        int64 `json:"requests"`
	RemoteCalls     int64 `json:"remoteCalls"`
	Coalesced       int64 `json:"coalesced"`
	CircuitOpen     int64 `json:"circuitOpen"`
	Cooldowns       int64 `json:"cooldowns"`
	Failures        int64 `json:"failures"`
	OpenTrackers    int   `json:"openTrackers"`
	BlockedTrackers int   `json:"blockedTrackers"`
}

// Gate is the single entry point for bulk content reads.
type Gate struct {
	reader      repositories.ContentReader
	config      *Config
	clock       clock.Clock
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	group singleflight.Group

	mu       sync.Mutex
	trackers map[string]*RequestTracker
	stats    Stats
}

// New creates a gate in front of reader. A nil config uses NewConfig().
func New(reader repositories.ContentReader, cfg *Config, clk clock.Clock, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *Gate {
	if cfg == nil {
		cfg = NewConfig()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Gate{
		reader:      reader,
		config:      cfg,
		clock:       clk,
		logger:      logger,
		perfTracker: perfTracker,
		trackers:    make(map[string]*RequestTracker),
	}
}

// BulkFetch returns content for names. Concurrent calls for the same name
// set share one remote read and the same *FetchResult, which callers must
// treat as read-only. On failure Content holds fallbacks and Err says why.
func (g *Gate) BulkFetch(ctx context.Context, names []string) *content.FetchResult {
	unique := normalize(names)
	if len(unique) == 0 {
		return &content.FetchResult{Content: map[string]string{}}
	}
	signature := strings.Join(unique, ",")

	g.mu.Lock()
	g.stats.Requests++
	g.mu.Unlock()

	v, _, shared := g.group.Do(signature, func() (any, error) {
		return g.fetch(ctx, signature, unique), nil
	})
	if shared {
		g.mu.Lock()
		g.stats.Coalesced++
		g.mu.Unlock()
	}
	return v.(*content.FetchResult)
}

func (g *Gate) fetch(ctx context.Context, signature string, names []string) *content.FetchResult {
	if err := g.admit(signature); err != nil {
		g.logger.Fetch().Debug("Bulk fetch short-circuited", "signature", signature, "reason", err.Error())
		return &content.FetchResult{Content: content.FallbackFor(names), Err: err}
	}

	var marker *performance.Marker
	if g.perfTracker != nil {
		marker = g.perfTracker.StartOperation("fetch:bulk", signature)
		defer g.perfTracker.CompleteOperation(marker)
	}

	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.Timeout)
	defer cancel()

	start := time.Now()
	rows, err := g.reader.BulkRead(fetchCtx, names)
	if err != nil {
		if marker != nil {
			marker.SetError(err)
		}
		g.recordFailure(signature, err)
		return &content.FetchResult{
			Content: content.FallbackFor(names),
			Err:     fmt.Errorf("bulk fetch [%s]: %w", signature, err),
		}
	}

	g.recordSuccess(signature)

	result := content.FallbackFor(names)
	found := 0
	for _, row := range rows {
		if row == nil {
			continue
		}
		if _, requested := result[row.Name]; !requested {
			continue
		}
		result[row.Name] = row.Content
		found++
	}

	g.logger.Fetch().Debug("Bulk fetch completed",
		"signature", signature,
		"requested", len(names),
		"found", found,
		slog.Duration("duration", time.Since(start)))

	return &content.FetchResult{Content: result}
}

// admit applies the reset window, the breaker and the cooldown, and records
// the attempt when the call may proceed.
func (g *Gate) admit(signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	tracker, ok := g.trackers[signature]
	if !ok {
		tracker = &RequestTracker{}
		g.trackers[signature] = tracker
	}

	if tracker.Attempts > 0 && now.Sub(tracker.LastAttempt) > g.config.ResetWindow {
		tracker.Attempts = 0
		tracker.Blocked = false
	}

	if tracker.Blocked || tracker.Attempts >= g.config.MaxAttempts {
		tracker.Blocked = true
		g.stats.CircuitOpen++
		return ErrCircuitOpen
	}

	if tracker.Attempts > 0 && now.Sub(tracker.LastAttempt) < g.config.Cooldown {
		g.stats.Cooldowns++
		return ErrCooldown
	}

	tracker.Attempts++
	tracker.LastAttempt = now
	g.stats.RemoteCalls++
	return nil
}

func (g *Gate) recordSuccess(signature string) {
	g.mu.Lock()
	delete(g.trackers, signature)
	g.mu.Unlock()
}

func (g *Gate) recordFailure(signature string, err error) {
	nonRetryable := IsNonRetryable(err)

	g.mu.Lock()
	g.stats.Failures++
	tracker, ok := g.trackers[signature]
	if ok && nonRetryable {
		tracker.Attempts = g.config.MaxAttempts
		tracker.Blocked = true
	}
	var attempts int
	if ok {
		attempts = tracker.Attempts
	}
	g.mu.Unlock()

	if nonRetryable {
		g.logger.Fetch().Error("Bulk fetch failed with non-retryable error; circuit opened",
			"signature", signature, "error", err.Error())
		return
	}
	g.logger.Fetch().Warn("Bulk fetch failed",
		"signature", signature, "attempts", attempts, "error", err.Error())
}

// Tracker returns a copy of the tracker for a name set.
func (g *Gate) Tracker(names []string) (RequestTracker, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tracker, ok := g.trackers[Signature(names)]
	if !ok {
		return RequestTracker{}, false
	}
	return *tracker, true
}

// Reset forgets every tracker, closing all circuits.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.trackers = make(map[string]*RequestTracker)
	g.mu.Unlock()
	g.logger.Fetch().Info("Fetch gate trackers reset")
}

// Stats returns a snapshot of gate counters.
func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.stats
	s.OpenTrackers = len(g.trackers)
	for _, tracker := range g.trackers {
		if tracker.Blocked || tracker.Attempts >= g.config.MaxAttempts {
			s.BlockedTrackers++
		}
	}
	return s
}
