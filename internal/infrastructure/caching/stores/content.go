// Package stores provides concrete cache store implementations
package stores

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/scheduler"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
)

const (
	refreshTaskKey = "refresh"
	writeTaskKey   = "write:"
)

// Fetcher loads a batch of names for background refresh.
type Fetcher interface {
	BulkFetch(ctx context.Context, names []string) *content.FetchResult
}

type pendingWrite struct {
	value string
	opts  types.SetOptions
}

type subscriber struct {
	id uint64
	cb types.InvalidationCallback
}

// ContentCache holds content values with lazy staleness and expiry,
// debounced writes and batched background refresh.
type ContentCache struct {
	mu            sync.Mutex
	entries       map[string]*types.CacheEntry
	pendingWrites map[string]pendingWrite
	refreshQueue  map[string]struct{}
	subscribers   []subscriber
	nextSubID     uint64
	stats         types.CacheStats
	closed        bool

	fetcher   Fetcher
	scheduler *scheduler.Scheduler
	clock     clock.Clock
	config    *ContentCacheConfig
	logger    *logging.ChanneledLogger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewContentCache creates a content cache. fetcher may be nil, in which case
// stale entries are never refreshed and simply expire.
func NewContentCache(fetcher Fetcher, cfg *ContentCacheConfig, clk clock.Clock, logger *logging.ChanneledLogger) *ContentCache {
	if cfg == nil {
		cfg = NewContentCacheConfig()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	logger.Cache().Info("Initializing content cache",
		"staleAfter", cfg.StaleAfter.String(),
		"expireAfter", cfg.ExpireAfter.String())

	return &ContentCache{
		entries:       make(map[string]*types.CacheEntry),
		pendingWrites: make(map[string]pendingWrite),
		refreshQueue:  make(map[string]struct{}),
		fetcher:       fetcher,
		scheduler:     scheduler.New(clk),
		clock:         clk,
		config:        cfg,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// =============================================================================
// Reads
// =============================================================================

// Get returns the committed value for name. Reading an entry past the stale
// threshold marks it stale and queues a background refresh. Reading one past
// the expiry threshold deletes it and misses.
func (c *ContentCache) Get(name string) (string, bool) {
	c.mu.Lock()

	entry, ok := c.entries[name]
	if !ok {
		c.stats.Misses++
		c.mu.Unlock()
		return "", false
	}

	age := entry.Age(c.clock.Now())
	if age > c.config.ExpireAfter {
		delete(c.entries, name)
		delete(c.refreshQueue, name)
		c.stats.Expirations++
		c.stats.Misses++
		c.mu.Unlock()
		c.logger.Cache().Debug("Content entry expired on read", "name", name, "age", age.String())
		c.notify([]string{name}, types.ReasonExpired)
		return "", false
	}

	if age > c.config.StaleAfter && !entry.IsStale {
		entry.IsStale = true
		c.enqueueRefreshLocked(name)
	}

	c.stats.Hits++
	value := entry.Value
	c.mu.Unlock()
	return value, true
}

// Has reports whether name holds an unexpired entry.
func (c *ContentCache) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	return ok && entry.Age(c.clock.Now()) <= c.config.ExpireAfter
}

// IsStale reports whether name is past the stale threshold or already
// flagged stale.
func (c *ContentCache) IsStale(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	if !ok {
		return false
	}
	return entry.IsStale || entry.Age(c.clock.Now()) > c.config.StaleAfter
}

// Entry returns a copy of the entry for name.
func (c *ContentCache) Entry(name string) (types.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[name]
	if !ok {
		return types.CacheEntry{}, false
	}
	return *entry, true
}

// GetAll returns every unexpired value.
func (c *ContentCache) GetAll() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	out := make(map[string]string, len(c.entries))
	for name, entry := range c.entries {
		if entry.Age(now) <= c.config.ExpireAfter {
			out[name] = entry.Value
		}
	}
	return out
}

// GetStats returns a snapshot of cache counters and sizes.
func (c *ContentCache) GetStats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	stats := c.stats
	stats.Entries = len(c.entries)
	stats.PendingWrites = len(c.pendingWrites)
	stats.PendingRefresh = len(c.refreshQueue)
	stats.Subscribers = len(c.subscribers)
	for _, entry := range c.entries {
		if entry.IsStale || entry.Age(now) > c.config.StaleAfter {
			stats.StaleEntries++
		}
		if stats.OldestEntry.IsZero() || entry.Timestamp.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.Timestamp
		}
		if entry.Timestamp.After(stats.NewestEntry) {
			stats.NewestEntry = entry.Timestamp
		}
	}
	return stats
}

// =============================================================================
// Writes
// =============================================================================

// Set writes value for name. New keys and Immediate writes commit at once.
// Other writes are debounced per key; a newer Set replaces a pending one.
func (c *ContentCache) Set(name, value string, opts types.SetOptions) {
	if opts.Reason == "" {
		opts.Reason = types.ReasonUpdate
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	_, exists := c.entries[name]
	if !exists || opts.Immediate {
		c.scheduler.Cancel(writeTaskKey + name)
		delete(c.pendingWrites, name)
		c.commitLocked(name, value)
		c.mu.Unlock()

		if !opts.SkipCallbacks {
			c.notify([]string{name}, opts.Reason)
		}
		return
	}

	c.pendingWrites[name] = pendingWrite{value: value, opts: opts}
	c.scheduler.Schedule(writeTaskKey+name, c.config.WriteDebounce, func() {
		c.flushWrite(name)
	})
	c.mu.Unlock()
}

func (c *ContentCache) flushWrite(name string) {
	c.mu.Lock()
	pw, ok := c.pendingWrites[name]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.pendingWrites, name)
	c.commitLocked(name, pw.value)
	c.mu.Unlock()

	if !pw.opts.SkipCallbacks {
		c.notify([]string{name}, pw.opts.Reason)
	}
}

func (c *ContentCache) commitLocked(name, value string) {
	now := c.clock.Now()
	entry, ok := c.entries[name]
	if !ok {
		entry = &types.CacheEntry{Name: name, LastModified: now}
		c.entries[name] = entry
	} else if entry.Value != value {
		entry.LastModified = now
	}
	entry.Value = value
	entry.Timestamp = now
	entry.Version++
	entry.IsStale = false
	delete(c.refreshQueue, name)
}

// =============================================================================
// Invalidation
// =============================================================================

// Invalidate removes name, dropping any pending write, and notifies subscribers.
func (c *ContentCache) Invalidate(name string, reason types.InvalidationReason) {
	c.InvalidateMultiple([]string{name}, reason)
}

// InvalidateMultiple removes names and notifies subscribers once.
func (c *ContentCache) InvalidateMultiple(names []string, reason types.InvalidationReason) {
	if len(names) == 0 {
		return
	}
	if reason == "" {
		reason = types.ReasonInvalidate
	}

	c.mu.Lock()
	for _, name := range names {
		c.removeLocked(name)
	}
	c.mu.Unlock()

	c.logger.Cache().Debug("Content invalidated", "names", names, "reason", string(reason))
	c.notify(names, reason)
}

// InvalidateByPattern removes every entry whose name matches pattern and
// returns how many were removed.
func (c *ContentCache) InvalidateByPattern(pattern *regexp.Regexp, reason types.InvalidationReason) int {
	if pattern == nil {
		return 0
	}
	if reason == "" {
		reason = types.ReasonPattern
	}

	c.mu.Lock()
	var matched []string
	for name := range c.entries {
		if pattern.MatchString(name) {
			matched = append(matched, name)
		}
	}
	for _, name := range matched {
		c.removeLocked(name)
	}
	c.mu.Unlock()

	if len(matched) > 0 {
		sort.Strings(matched)
		c.notify(matched, reason)
	}
	return len(matched)
}

// Clear removes every entry and pending write.
func (c *ContentCache) Clear() {
	c.mu.Lock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	for name := range c.pendingWrites {
		c.scheduler.Cancel(writeTaskKey + name)
	}
	c.scheduler.Cancel(refreshTaskKey)
	c.entries = make(map[string]*types.CacheEntry)
	c.pendingWrites = make(map[string]pendingWrite)
	c.refreshQueue = make(map[string]struct{})
	c.mu.Unlock()

	c.logger.Cache().Info("Content cache cleared", "entries", len(names))
	if len(names) > 0 {
		sort.Strings(names)
		c.notify(names, types.ReasonClear)
	}
}

func (c *ContentCache) removeLocked(name string) {
	delete(c.entries, name)
	delete(c.refreshQueue, name)
	if _, ok := c.pendingWrites[name]; ok {
		c.scheduler.Cancel(writeTaskKey + name)
		delete(c.pendingWrites, name)
	}
}

// OnInvalidation registers cb for invalidation events and returns a
// function that removes it.
func (c *ContentCache) OnInvalidation(cb types.InvalidationCallback) func() {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers = append(c.subscribers, subscriber{id: id, cb: cb})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.subscribers {
				if sub.id == id {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// notify calls every subscriber outside the lock. A panicking subscriber is
// logged and skipped.
func (c *ContentCache) notify(names []string, reason types.InvalidationReason) {
	c.mu.Lock()
	subs := make([]subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	event := types.InvalidationEvent{
		Names:  append([]string(nil), names...),
		Reason: reason,
		Time:   c.clock.Now(),
	}
	for _, sub := range subs {
		c.deliver(sub, event)
	}
}

func (c *ContentCache) deliver(sub subscriber, event types.InvalidationEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Cache().Error("Invalidation subscriber panicked",
				"subscriber", sub.id, "panic", fmt.Sprint(r))
		}
	}()
	sub.cb(event)
}

// =============================================================================
// Refresh
// =============================================================================

func (c *ContentCache) enqueueRefreshLocked(name string) {
	if c.fetcher == nil || c.closed {
		return
	}
	c.refreshQueue[name] = struct{}{}
	c.scheduler.Schedule(refreshTaskKey, c.config.RefreshDebounce, c.runQueuedRefresh)
}

func (c *ContentCache) runQueuedRefresh() {
	c.mu.Lock()
	names := make([]string, 0, len(c.refreshQueue))
	for name := range c.refreshQueue {
		names = append(names, name)
	}
	c.refreshQueue = make(map[string]struct{})
	ctx := c.ctx
	c.mu.Unlock()

	if len(names) == 0 {
		return
	}
	sort.Strings(names)
	if err := c.refreshBatch(ctx, names); err != nil {
		c.logger.Cache().Warn("Background refresh fell back to static content",
			"names", names, "error", err.Error())
	}
}

// Refresh fetches names now and writes the results, notifying subscribers
// once for the whole batch. The returned error reports a fetch failure; the
// cache still receives fallback values in that case.
func (c *ContentCache) Refresh(ctx context.Context, names []string) error {
	if c.fetcher == nil {
		return fmt.Errorf("content cache has no fetcher")
	}
	if len(names) == 0 {
		return nil
	}
	return c.refreshBatch(ctx, names)
}

func (c *ContentCache) refreshBatch(ctx context.Context, names []string) error {
	result := c.fetcher.BulkFetch(ctx, names)

	written := make([]string, 0, len(names))
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	for _, name := range names {
		value, ok := result.Content[name]
		if !ok || (result.Err != nil && value == "") {
			// No fallback for this name; leave the current value to expire.
			continue
		}
		if _, pending := c.pendingWrites[name]; pending {
			continue
		}
		c.commitLocked(name, value)
		written = append(written, name)
	}
	c.stats.Refreshes++
	if result.Err != nil {
		c.stats.RefreshFailures++
	}
	c.mu.Unlock()

	c.logger.Cache().Debug("Batch refresh applied",
		"requested", len(names), "written", len(written), "failed", result.Err != nil)

	if len(written) > 0 {
		c.notify(written, types.ReasonBatchRefresh)
	}
	return result.Err
}

// =============================================================================
// Maintenance
// =============================================================================

// Cleanup removes every entry past the expiry threshold, tells subscribers
// which names went away and returns the number removed.
func (c *ContentCache) Cleanup() int {
	c.mu.Lock()
	now := c.clock.Now()
	var expired []string
	for name, entry := range c.entries {
		if entry.Age(now) > c.config.ExpireAfter {
			delete(c.entries, name)
			delete(c.refreshQueue, name)
			expired = append(expired, name)
		}
	}
	c.stats.Expirations += int64(len(expired))
	c.mu.Unlock()

	if len(expired) > 0 {
		sort.Strings(expired)
		c.notify(expired, types.ReasonExpired)
	}
	return len(expired)
}

// Close stops pending timers and drops subscribers. Later writes are ignored.
func (c *ContentCache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subscribers = nil
	c.pendingWrites = make(map[string]pendingWrite)
	c.mu.Unlock()

	c.scheduler.Stop()
	c.cancel()
	c.logger.Cache().Info("Content cache closed")
}
