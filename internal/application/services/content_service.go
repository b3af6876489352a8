// Package services provides application-level orchestration services
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/domain/repositories"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/gate"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/scheduler"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

// ErrSaveVerification is returned when a save was accepted by the store but
// reading it back produced a different value.
var ErrSaveVerification = errors.New("save verification failed")

// ContentServiceConfig holds save and retry settings
type ContentServiceConfig struct {
	SaveTimeout      time.Duration
	RetryBaseDelay   time.Duration
	RetryMaxAttempts int
	VerifySaves      bool
}

// NewContentServiceConfig creates settings from pkg/config
func NewContentServiceConfig() *ContentServiceConfig {
	return &ContentServiceConfig{
		SaveTimeout:      config.SaveTimeout,
		RetryBaseDelay:   config.RetryBaseDelay,
		RetryMaxAttempts: config.RetryMaxAttempts,
		VerifySaves:      config.VerifySaves,
	}
}

// ContentFetcher is satisfied by *gate.Gate.
type ContentFetcher interface {
	BulkFetch(ctx context.Context, names []string) *content.FetchResult
}

// ContentState is the observable state of a ContentService.
type ContentState struct {
	Content     map[string]string `json:"content"`
	IsLoading   bool              `json:"isLoading"`
	Error       string            `json:"error,omitempty"`
	FailedItems []string          `json:"failedItems"`
}

type stateListener struct {
	id uint64
	fn func(ContentState)
}

// ContentService coordinates preload, optimistic save and retries on top of
// the shared content cache. Local state survives cache expiry so readers
// always have something to show.
type ContentService struct {
	cache       *stores.ContentCache
	fetcher     ContentFetcher
	store       repositories.ContentRepository
	notifier    messaging.Notifier
	scheduler   *scheduler.Scheduler
	clock       clock.Clock
	config      *ContentServiceConfig
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker

	mu          sync.Mutex
	content     map[string]string
	loading     map[string]struct{}
	failed      map[string]struct{}
	retryCounts map[string]int
	unsaved     map[string]struct{}
	lastErr     string
	listeners   []stateListener
	nextID      uint64
	closed      bool

	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewContentService creates the service and subscribes it to cache
// invalidations. notifier and perfTracker may be nil.
func NewContentService(
	cache *stores.ContentCache,
	fetcher ContentFetcher,
	store repositories.ContentRepository,
	notifier messaging.Notifier,
	cfg *ContentServiceConfig,
	clk clock.Clock,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ContentService {
	if cfg == nil {
		cfg = NewContentServiceConfig()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if notifier == nil {
		notifier = messaging.NotifierFunc(func(content.Notification) {})
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &ContentService{
		cache:       cache,
		fetcher:     fetcher,
		store:       store,
		notifier:    notifier,
		scheduler:   scheduler.New(clk),
		clock:       clk,
		config:      cfg,
		logger:      logger,
		perfTracker: perfTracker,
		content:     make(map[string]string),
		loading:     make(map[string]struct{}),
		failed:      make(map[string]struct{}),
		retryCounts: make(map[string]int),
		unsaved:     make(map[string]struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.unsubscribe = cache.OnInvalidation(s.handleInvalidation)
	return s
}

// =============================================================================
// Preload and retry
// =============================================================================

// PreloadContent fetches every name not already cached, in flight, unsaved
// or waiting on a retry. Failed names receive fallback content and, on a first failure, a
// backoff retry chain. The returned error reports the fetch failure only;
// local state is usable either way.
func (s *ContentService) PreloadContent(ctx context.Context, names []string) error {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil
	}

	cached := make(map[string]string)
	for _, name := range names {
		if value, ok := s.cache.Get(name); ok {
			cached[name] = value
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("content service closed")
	}
	need := make([]string, 0, len(names))
	for _, name := range names {
		if value, ok := cached[name]; ok {
			if _, dirty := s.unsaved[name]; !dirty {
				s.content[name] = value
			}
			continue
		}
		if _, ok := s.loading[name]; ok {
			continue
		}
		// A local copy alone does not count: once the cache drops the
		// name it is fetched again. Failed names belong to the retry chain.
		if _, ok := s.unsaved[name]; ok {
			continue
		}
		if _, ok := s.failed[name]; ok {
			continue
		}
		s.loading[name] = struct{}{}
		need = append(need, name)
	}
	s.mu.Unlock()

	s.logger.Content().Debug("Preload partitioned",
		"requested", len(names), "cached", len(cached), "fetching", len(need))

	if len(need) == 0 {
		if len(cached) > 0 {
			s.emitChange()
		}
		return nil
	}
	s.emitChange()

	return s.fetch(ctx, need, false)
}

func (s *ContentService) fetch(ctx context.Context, names []string, isRetry bool) error {
	var marker *performance.Marker
	if s.perfTracker != nil {
		marker = s.perfTracker.StartOperation("content:preload", gate.Signature(names))
		defer s.perfTracker.CompleteOperation(marker)
	}

	result := s.fetcher.BulkFetch(ctx, names)

	if result.Err == nil {
		for _, name := range names {
			s.cache.Set(name, result.Content[name], types.SetOptions{Immediate: true, SkipCallbacks: true})
		}

		s.mu.Lock()
		for _, name := range names {
			if _, dirty := s.unsaved[name]; !dirty {
				s.content[name] = result.Content[name]
			}
			delete(s.loading, name)
			delete(s.failed, name)
			delete(s.retryCounts, name)
		}
		if len(s.failed) == 0 {
			s.lastErr = ""
		}
		s.mu.Unlock()

		s.logger.Content().Info("Content loaded", "count", len(names), "retry", isRetry)
		s.emitChange()
		return nil
	}

	if marker != nil {
		marker.SetError(result.Err)
	}

	s.mu.Lock()
	for _, name := range names {
		s.failed[name] = struct{}{}
		delete(s.loading, name)
		if _, dirty := s.unsaved[name]; dirty {
			continue
		}
		if value := result.Content[name]; value != "" {
			s.content[name] = value
		} else if _, ok := s.content[name]; !ok {
			s.content[name] = ""
		}
	}
	s.lastErr = result.ErrorMessage()
	s.mu.Unlock()

	s.logger.Content().Warn("Content fetch failed, using fallback content",
		"names", names, "retry", isRetry, "error", result.ErrorMessage())

	if !isRetry {
		s.scheduleRetry(names, 0)
	}
	s.emitChange()
	return fmt.Errorf("failed to load content: %w", result.Err)
}

// scheduleRetry queues the next backoff attempt for names that still have
// attempts left. Delay doubles with each attempt.
func (s *ContentService) scheduleRetry(names []string, attempt int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	eligible := make([]string, 0, len(names))
	exhausted := make([]string, 0)
	for _, name := range names {
		if s.retryCounts[name] >= s.config.RetryMaxAttempts {
			exhausted = append(exhausted, name)
			continue
		}
		s.retryCounts[name]++
		eligible = append(eligible, name)
	}
	s.mu.Unlock()

	if len(exhausted) > 0 {
		s.logger.Content().Warn("Retry attempts exhausted, content stays on fallback",
			"names", exhausted, "maxAttempts", s.config.RetryMaxAttempts)
	}
	if len(eligible) == 0 {
		return
	}

	delay := s.config.RetryBaseDelay * time.Duration(1<<attempt)
	key := "retry:" + gate.Signature(eligible)
	s.scheduler.Schedule(key, delay, func() {
		s.runRetry(eligible, attempt)
	})
	s.logger.Content().Debug("Retry scheduled", "names", eligible, "attempt", attempt+1, "delay", delay.String())
}

func (s *ContentService) runRetry(names []string, attempt int) {
	s.mu.Lock()
	pending := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := s.failed[name]; ok {
			pending = append(pending, name)
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if err := s.fetch(s.ctx, pending, true); err != nil {
		s.scheduleRetry(pending, attempt+1)
	}
}

// RetryFailedContent resets the retry budget for names (every failed name
// when none are given) and fetches them again.
func (s *ContentService) RetryFailedContent(ctx context.Context, names ...string) error {
	s.mu.Lock()
	if len(names) == 0 {
		for name := range s.failed {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	names = uniqueNames(names)
	for _, name := range names {
		delete(s.retryCounts, name)
		s.loading[name] = struct{}{}
	}
	s.mu.Unlock()

	if len(names) == 0 {
		return nil
	}
	s.logger.Content().Info("Manual retry requested", "names", names)
	s.emitChange()
	return s.fetch(ctx, names, false)
}

// =============================================================================
// Save
// =============================================================================

// SaveContent writes value optimistically to local state and the cache, then
// upserts it to the store. A failed upsert keeps the local value, invalidates
// the cache entry and returns the error.
func (s *ContentService) SaveContent(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("content name is required")
	}

	var marker *performance.Marker
	if s.perfTracker != nil {
		marker = s.perfTracker.StartOperation("content:save", name)
		defer s.perfTracker.CompleteOperation(marker)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("content service closed")
	}
	s.content[name] = value
	s.unsaved[name] = struct{}{}
	delete(s.failed, name)
	s.mu.Unlock()
	s.emitChange()

	s.cache.Set(name, value, types.SetOptions{Immediate: true, SkipCallbacks: true})

	saveCtx, cancel := context.WithTimeout(ctx, s.config.SaveTimeout)
	defer cancel()

	if err := s.store.Upsert(saveCtx, name, value); err != nil {
		if marker != nil {
			marker.SetError(err)
		}
		s.mu.Lock()
		s.lastErr = fmt.Sprintf("failed to save %s: %v", name, err)
		s.mu.Unlock()

		s.cache.Invalidate(name, types.ReasonSaveFailed)
		s.logger.Content().Error("Content save failed, keeping unsaved value", "name", name, "error", err.Error())
		s.notify(content.NotifyError, "Save failed", fmt.Sprintf("Could not save %s: %v", name, err), name)
		s.emitChange()
		return fmt.Errorf("failed to save %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.unsaved, name)
	s.mu.Unlock()

	s.cache.Set(name, value, types.SetOptions{Immediate: true})
	s.logger.Content().Info("Content saved", "name", name, "bytes", len(value))
	s.notify(content.NotifySuccess, "Saved", fmt.Sprintf("%s saved", name), name)
	s.emitChange()

	if !s.config.VerifySaves {
		return nil
	}
	return s.verifySave(saveCtx, name, value)
}

func (s *ContentService) verifySave(ctx context.Context, name, expected string) error {
	rows, err := s.store.BulkRead(ctx, []string{name})
	if err != nil {
		s.logger.Content().Warn("Save verification read failed", "name", name, "error", err.Error())
		return nil
	}
	var stored *content.ContentRow
	for _, row := range rows {
		if row != nil && row.Name == name {
			stored = row
			break
		}
	}
	if stored != nil && stored.Content == expected {
		return nil
	}

	got := "<missing>"
	if stored != nil {
		got = fmt.Sprintf("%d bytes", len(stored.Content))
	}
	s.logger.Content().Error("Save verification mismatch",
		"name", name, "expectedBytes", len(expected), "stored", got)
	s.notify(content.NotifyWarning, "Save verification failed",
		fmt.Sprintf("%s was saved but the stored value does not match", name), name)
	return fmt.Errorf("%s: %w", name, ErrSaveVerification)
}

// =============================================================================
// Reads and cache passthrough
// =============================================================================

// GetContent returns the cached value, then the local value, then fallback.
func (s *ContentService) GetContent(name, fallback string) string {
	if value, ok := s.cache.Get(name); ok {
		return value
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.content[name]; ok {
		return value
	}
	return fallback
}

// LocalContent returns the locally held value for name.
func (s *ContentService) LocalContent(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.content[name]
	return value, ok
}

// IsPlaceholder reports whether the local value for name is fallback text
// left by a failed load rather than stored or edited content.
func (s *ContentService) IsPlaceholder(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dirty := s.unsaved[name]; dirty {
		return false
	}
	_, failed := s.failed[name]
	return failed
}

// RefreshContent refetches names through the cache's batch refresh.
func (s *ContentService) RefreshContent(ctx context.Context, names []string) error {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil
	}
	if err := s.cache.Refresh(ctx, names); err != nil {
		return fmt.Errorf("failed to refresh content: %w", err)
	}
	return nil
}

// InvalidateContent drops names from the cache. Subscribers, including this
// service, are notified.
func (s *ContentService) InvalidateContent(names []string) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return
	}
	s.cache.InvalidateMultiple(names, types.ReasonInvalidate)
}

// InvalidatePattern drops every cached name matching pattern and returns
// the number removed.
func (s *ContentService) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern: %w", err)
	}
	return s.cache.InvalidateByPattern(re, types.ReasonPattern), nil
}

func (s *ContentService) GetCacheStats() types.CacheStats {
	return s.cache.GetStats()
}

func (s *ContentService) IsContentStale(name string) bool {
	return s.cache.IsStale(name)
}

// IsUnsaved reports whether name holds a value the store rejected.
func (s *ContentService) IsUnsaved(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unsaved[name]
	return ok
}

// =============================================================================
// Reactive state
// =============================================================================

// State returns a snapshot of the service state.
func (s *ContentService) State() ContentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *ContentService) stateLocked() ContentState {
	contentCopy := make(map[string]string, len(s.content))
	for k, v := range s.content {
		contentCopy[k] = v
	}
	failed := make([]string, 0, len(s.failed))
	for name := range s.failed {
		failed = append(failed, name)
	}
	sort.Strings(failed)
	return ContentState{
		Content:     contentCopy,
		IsLoading:   len(s.loading) > 0,
		Error:       s.lastErr,
		FailedItems: failed,
	}
}

// OnChange registers fn for state changes and returns an unsubscribe func.
func (s *ContentService) OnChange(fn func(ContentState)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, stateListener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *ContentService) emitChange() {
	s.mu.Lock()
	if len(s.listeners) == 0 || s.closed {
		s.mu.Unlock()
		return
	}
	state := s.stateLocked()
	listeners := make([]stateListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Content().Error("Content state listener panicked", "panic", fmt.Sprint(r))
				}
			}()
			l.fn(state)
		}()
	}
}

// handleInvalidation pulls fresh cache values into local state, or drops
// names the cache no longer holds. Unsaved optimistic values are kept, and
// expired names keep their last value until the next preload replaces it.
func (s *ContentService) handleInvalidation(event types.InvalidationEvent) {
	values := make(map[string]string, len(event.Names))
	for _, name := range event.Names {
		if value, ok := s.cache.Get(name); ok {
			values[name] = value
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	for _, name := range event.Names {
		if _, dirty := s.unsaved[name]; dirty {
			continue
		}
		if value, ok := values[name]; ok {
			s.content[name] = value
			delete(s.failed, name)
		} else if event.Reason != types.ReasonExpired {
			delete(s.content, name)
		}
	}
	s.mu.Unlock()

	s.logger.Content().Debug("Applied cache invalidation", "names", event.Names, "reason", string(event.Reason))
	s.emitChange()
}

func (s *ContentService) notify(level content.NotificationLevel, title, message, name string) {
	s.notifier.Notify(content.Notification{
		Level:   level,
		Title:   title,
		Message: message,
		Name:    name,
		Time:    s.clock.Now().UTC(),
	})
}

// Close cancels retry chains and unsubscribes from the cache.
func (s *ContentService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = nil
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.scheduler.Stop()
	s.cancel()
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
