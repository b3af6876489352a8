// Package types defines cache data structures shared by the content cache,
// the fetch gate and their callers.
package types

import "time"

// CacheEntry holds one cached content value
type CacheEntry struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	Timestamp    time.Time `json:"timestamp"`    // last (re)write
	LastModified time.Time `json:"lastModified"` // last time the value itself changed
	Version      int64     `json:"version"`
	IsStale      bool      `json:"isStale"`
}

// Age returns how long ago the entry was written.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// SetOptions controls how a cache write is committed.
type SetOptions struct {
	// Immediate commits synchronously instead of debouncing.
	Immediate bool
	// SkipCallbacks suppresses invalidation subscribers for this write.
	SkipCallbacks bool
	// Reason is reported to subscribers. Defaults to ReasonUpdate.
	Reason InvalidationReason
}

// InvalidationReason describes why subscribers are being told about names.
type InvalidationReason string

const (
	ReasonUpdate       InvalidationReason = "update"
	ReasonInvalidate   InvalidationReason = "invalidate"
	ReasonPattern      InvalidationReason = "pattern"
	ReasonClear        InvalidationReason = "clear"
	ReasonBatchRefresh InvalidationReason = "batch_refresh"
	ReasonSaveFailed   InvalidationReason = "save_failed"
	ReasonExternal     InvalidationReason = "external"
	ReasonExpired      InvalidationReason = "expired"
)

// InvalidationEvent is delivered to cache subscribers.
type InvalidationEvent struct {
	Names  []string           `json:"names"`
	Reason InvalidationReason `json:"reason"`
	Time   time.Time          `json:"time"`
}

// InvalidationCallback receives cache invalidation events.
type InvalidationCallback func(InvalidationEvent)

// CacheStats is a point-in-time summary of the content cache.
type CacheStats struct {
	Entries         int       `json:"entries"`
	StaleEntries    int       `json:"staleEntries"`
	PendingWrites   int       `json:"pendingWrites"`
	PendingRefresh  int       `json:"pendingRefresh"`
	Subscribers     int       `json:"subscribers"`
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Expirations     int64     `json:"expirations"`
	Refreshes       int64     `json:"refreshes"`
	RefreshFailures int64     `json:"refreshFailures"`
	OldestEntry     time.Time `json:"oldestEntry,omitempty"`
	NewestEntry     time.Time `json:"newestEntry,omitempty"`
}

// HitRatio returns hits / (hits + misses), or 0 before any reads.
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
