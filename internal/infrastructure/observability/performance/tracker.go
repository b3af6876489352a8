package performance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Tracker manages performance markers and threshold alerts
type Tracker struct {
	markers    map[string]*Marker
	alerts     []*PerformanceAlert
	thresholds *AlertThresholds
	mu         sync.RWMutex
	started    time.Time
	config     *TrackerConfig
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers   int           `json:"maxMarkers"`
	MaxAlerts    int           `json:"maxAlerts"`
	Retention    time.Duration `json:"retention"` // how long completed markers are kept
	EnableAlerts bool          `json:"enableAlerts"`
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:   10000,
		MaxAlerts:    500,
		Retention:    time.Hour,
		EnableAlerts: true,
	}
}

// AlertThresholds defines performance thresholds for generating alerts
type AlertThresholds struct {
	SlowResponseThreshold     time.Duration `json:"slowResponseThreshold"`
	CriticalResponseThreshold time.Duration `json:"criticalResponseThreshold"`
	FetchThreshold            time.Duration `json:"fetchThreshold"`
	SaveThreshold             time.Duration `json:"saveThreshold"`
	AuthOperationThreshold    time.Duration `json:"authOperationThreshold"`
	LowCacheHitRatio          float64       `json:"lowCacheHitRatio"`
}

// DefaultAlertThresholds returns sensible default alert thresholds
func DefaultAlertThresholds() *AlertThresholds {
	return &AlertThresholds{
		SlowResponseThreshold:     2 * time.Second,
		CriticalResponseThreshold: 5 * time.Second,
		FetchThreshold:            time.Second,
		SaveThreshold:             3 * time.Second,
		AuthOperationThreshold:    200 * time.Millisecond,
		LowCacheHitRatio:          0.5,
	}
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		markers:    make(map[string]*Marker),
		thresholds: DefaultAlertThresholds(),
		started:    time.Now(),
		config:     config,
	}
}

// StartOperation creates and tracks a new performance marker for an operation
func (t *Tracker) StartOperation(operation, subject string) *Marker {
	marker := &Marker{
		Operation: operation,
		Subject:   subject,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true,
	}

	t.mu.Lock()
	t.markers[ulid.Make().String()] = marker
	over := len(t.markers) > t.config.MaxMarkers
	t.mu.Unlock()

	if over {
		t.Cleanup()
	}
	return marker
}

// StartOperationWithContext creates a marker that fails if ctx ends first
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation, subject string) *Marker {
	marker := t.StartOperation(operation, subject)
	go func() {
		<-ctx.Done()
		marker.mu.Lock()
		done := marker.Completed
		marker.mu.Unlock()
		if !done {
			marker.SetError(ctx.Err())
			t.CompleteOperation(marker)
		}
	}()
	return marker
}

// CompleteOperation completes an operation and checks for alerts
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil {
		return
	}
	marker.mu.Lock()
	done := marker.Completed
	marker.mu.Unlock()
	if done {
		return
	}
	marker.Complete()

	if t.config.EnableAlerts {
		t.checkForAlerts(marker.snapshot())
	}
}

func (t *Tracker) checkForAlerts(m Marker) {
	alerts := t.evaluateThresholds(m)
	if len(alerts) == 0 {
		return
	}
	t.mu.Lock()
	t.alerts = append(t.alerts, alerts...)
	if len(t.alerts) > t.config.MaxAlerts {
		t.alerts = t.alerts[len(t.alerts)-t.config.MaxAlerts:]
	}
	t.mu.Unlock()
}

func (t *Tracker) evaluateThresholds(m Marker) []*PerformanceAlert {
	var alerts []*PerformanceAlert

	if m.Duration > t.thresholds.CriticalResponseThreshold {
		alerts = append(alerts, t.createAlert(m, AlertCritical, t.thresholds.CriticalResponseThreshold,
			"Operation exceeded critical response time threshold"))
	} else if m.Duration > t.thresholds.SlowResponseThreshold {
		alerts = append(alerts, t.createAlert(m, AlertWarning, t.thresholds.SlowResponseThreshold,
			"Operation exceeded slow response time threshold"))
	}

	switch {
	case strings.HasPrefix(m.Operation, "fetch"):
		if m.Duration > t.thresholds.FetchThreshold {
			alerts = append(alerts, t.createAlert(m, AlertWarning, t.thresholds.FetchThreshold,
				"Content fetch exceeded threshold"))
		}
	case strings.Contains(m.Operation, "save"):
		if m.Duration > t.thresholds.SaveThreshold {
			alerts = append(alerts, t.createAlert(m, AlertWarning, t.thresholds.SaveThreshold,
				"Content save exceeded threshold"))
		}
	case strings.HasPrefix(m.Operation, "auth"):
		if m.Duration > t.thresholds.AuthOperationThreshold {
			alerts = append(alerts, t.createAlert(m, AlertWarning, t.thresholds.AuthOperationThreshold,
				"Authentication operation exceeded threshold"))
		}
	}

	if total := m.CacheHits + m.CacheMisses; total > 0 {
		if float64(m.CacheHits)/float64(total) < t.thresholds.LowCacheHitRatio {
			alerts = append(alerts, t.createAlert(m, AlertInfo, 0, "Cache hit ratio below optimal"))
		}
	}

	return alerts
}

func (t *Tracker) createAlert(m Marker, severity AlertSeverity, threshold time.Duration, message string) *PerformanceAlert {
	return &PerformanceAlert{
		ID:        ulid.Make().String(),
		Timestamp: time.Now(),
		Severity:  severity,
		Operation: m.Operation,
		Subject:   m.Subject,
		Threshold: threshold,
		Actual:    m.Duration,
		Message:   message,
	}
}

// GetAlerts returns alerts, newest first. A zero limit returns all.
func (t *Tracker) GetAlerts(limit int) []PerformanceAlert {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PerformanceAlert, 0, len(t.alerts))
	for i := len(t.alerts) - 1; i >= 0; i-- {
		out = append(out, *t.alerts[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// GetRecentMarkers returns completed markers for an operation prefix, newest first.
func (t *Tracker) GetRecentMarkers(prefix string, limit int) []Marker {
	t.mu.RLock()
	var out []Marker
	for _, marker := range t.markers {
		if !strings.HasPrefix(marker.Operation, prefix) {
			continue
		}
		snap := marker.snapshot()
		if snap.Completed {
			out = append(out, snap)
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.After(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Health summarizes recent alert severity.
func (t *Tracker) Health() HealthStatus {
	cutoff := time.Now().Add(-5 * time.Minute)
	t.mu.RLock()
	defer t.mu.RUnlock()
	status := HealthHealthy
	for _, alert := range t.alerts {
		if alert.Timestamp.Before(cutoff) {
			continue
		}
		switch alert.Severity {
		case AlertCritical:
			return HealthUnhealthy
		case AlertWarning:
			status = HealthDegraded
		}
	}
	return status
}

// Cleanup removes completed markers past retention and trims to MaxMarkers
func (t *Tracker) Cleanup() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-t.config.Retention)
	for id, marker := range t.markers {
		snap := marker.snapshot()
		if snap.Completed && snap.EndTime.Before(cutoff) {
			delete(t.markers, id)
			removed++
		}
	}

	// ULIDs sort by creation time, so dropping the lowest keys drops the oldest.
	if len(t.markers) > t.config.MaxMarkers {
		ids := make([]string, 0, len(t.markers))
		for id := range t.markers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids[:len(ids)-t.config.MaxMarkers/2] {
			delete(t.markers, id)
			removed++
		}
	}
	return removed
}

// GetOverallStats returns overall tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active, completed := 0, 0
	for _, marker := range t.markers {
		if marker.snapshot().Completed {
			completed++
		} else {
			active++
		}
	}

	return map[string]any{
		"trackerUptime":       time.Since(t.started).String(),
		"totalMarkers":        len(t.markers),
		"activeOperations":    active,
		"completedOperations": completed,
		"totalAlerts":         len(t.alerts),
	}
}

// String implements fmt.Stringer for log output.
func (t *Tracker) String() string {
	stats := t.GetOverallStats()
	return fmt.Sprintf("tracker(markers=%v active=%v alerts=%v)",
		stats["totalMarkers"], stats["activeOperations"], stats["totalAlerts"])
}
