package performance

import (
	"errors"
	"testing"
	"time"
)

func TestTrackerRecordsCompletedMarkers(t *testing.T) {
	tracker := NewTracker(nil)

	m := tracker.StartOperation("fetch:bulk", "hero_title")
	m.AddCacheHit()
	tracker.CompleteOperation(m)

	failed := tracker.StartOperation("fetch:bulk", "about_title")
	failed.SetError(errors.New("boom"))
	tracker.CompleteOperation(failed)

	tracker.StartOperation("content:save", "hero_title") // left open

	got := tracker.GetRecentMarkers("fetch", 0)
	if len(got) != 2 {
		t.Fatalf("got=%d markers want=2", len(got))
	}
	for _, marker := range got {
		if marker.Subject == "about_title" && (marker.Success || marker.Error != "boom") {
			t.Fatalf("failed marker not recorded: %+v", marker)
		}
	}

	stats := tracker.GetOverallStats()
	if stats["activeOperations"] != 1 || stats["completedOperations"] != 2 {
		t.Fatalf("stats=%v", stats)
	}
}

func TestTrackerCompleteIsIdempotent(t *testing.T) {
	tracker := NewTracker(nil)
	m := tracker.StartOperation("fetch:bulk", "x")
	tracker.CompleteOperation(m)
	first := m.EndTime
	time.Sleep(time.Millisecond)
	tracker.CompleteOperation(m)
	if !m.EndTime.Equal(first) {
		t.Fatalf("end time moved on second completion")
	}
}

func TestTrackerAlertsOnSlowFetch(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.thresholds.FetchThreshold = time.Nanosecond

	m := tracker.StartOperation("fetch:bulk", "hero_title")
	time.Sleep(time.Millisecond)
	tracker.CompleteOperation(m)

	alerts := tracker.GetAlerts(0)
	if len(alerts) == 0 {
		t.Fatalf("expected a slow fetch alert")
	}
	if alerts[0].Operation != "fetch:bulk" {
		t.Fatalf("got=%q want=fetch:bulk", alerts[0].Operation)
	}
	if tracker.Health() != HealthDegraded {
		t.Fatalf("got=%s want=%s", tracker.Health(), HealthDegraded)
	}
}

func TestTrackerCleanupTrimsToLimit(t *testing.T) {
	tracker := NewTracker(&TrackerConfig{MaxMarkers: 4, MaxAlerts: 10, Retention: time.Hour})
	for i := 0; i < 4; i++ {
		tracker.CompleteOperation(tracker.StartOperation("content:get", "x"))
	}
	// The fifth marker pushes the map over the limit and triggers a trim.
	tracker.StartOperation("content:get", "y")

	stats := tracker.GetOverallStats()
	if n := stats["totalMarkers"].(int); n > 4 {
		t.Fatalf("got=%d markers want<=4", n)
	}
}
