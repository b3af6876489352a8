// Package cleanup provides the background maintenance worker
package cleanup

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
)

// Target is anything with expired state to purge.
type Target interface {
	Cleanup() int
}

// StatsSource reports content cache statistics for verbose runs.
type StatsSource interface {
	GetStats() types.CacheStats
}

// Worker periodically purges expired state from its targets
type Worker struct {
	targets map[string]Target
	order   []string
	stats   StatsSource
	config  *Config
	logger  *logging.ChanneledLogger
	out     io.Writer
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(config *Config, logger *logging.ChanneledLogger) *Worker {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Worker{
		targets: make(map[string]Target),
		config:  config,
		logger:  logger,
		out:     os.Stdout,
	}
}

// AddTarget registers a named target. Targets run in registration order.
func (w *Worker) AddTarget(name string, target Target) *Worker {
	if _, exists := w.targets[name]; !exists {
		w.order = append(w.order, name)
	}
	w.targets[name] = target
	return w
}

// WithStats attaches the cache statistics printed on verbose runs.
func (w *Worker) WithStats(stats StatsSource) *Worker {
	w.stats = stats
	return w
}

// WithOutput redirects verbose reports.
func (w *Worker) WithOutput(out io.Writer) *Worker {
	w.out = out
	return w
}

// Start runs cleanup on every tick until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.System().Info("Cache cleanup worker started",
		"interval", w.config.CleanupInterval.String(),
		"verbose", w.config.VerboseReporting)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass and returns the per-target counts.
func (w *Worker) RunOnce(ctx context.Context) map[string]int {
	start := time.Now()
	reporter := NewReporter(w.out)

	if w.config.VerboseReporting {
		reporter.LogStage("PERIODIC CACHE CLEANUP")
		if w.stats != nil {
			reporter.WriteCacheReport(w.stats.GetStats())
		}
	}

	counts := make(map[string]int, len(w.order))
	total := 0
	for _, name := range w.order {
		select {
		case <-ctx.Done():
			return counts
		default:
		}
		n := w.targets[name].Cleanup()
		counts[name] = n
		total += n
	}

	duration := time.Since(start)
	if total > 0 {
		w.logger.Cache().Info("Cache cleanup finished",
			"removed", total, "targets", counts, "duration", duration.String())
		if w.config.VerboseReporting {
			reporter.LogSuccess("Cache cleanup finished: %d items removed in %v", total, duration)
		}
	} else if w.config.VerboseReporting {
		reporter.LogInfo("Cache cleanup completed - no expired items found (%v)", duration)
	}
	return counts
}
