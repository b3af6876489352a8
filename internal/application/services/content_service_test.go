package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/gate"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/types"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/messaging"
)

type scriptedFetcher struct {
	mu     sync.Mutex
	calls  [][]string
	values map[string]string
	err    error
}

func (f *scriptedFetcher) BulkFetch(_ context.Context, names []string) *content.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), names...))
	out := content.FallbackFor(names)
	if f.err != nil {
		return &content.FetchResult{Content: out, Err: f.err}
	}
	for _, name := range names {
		if v, ok := f.values[name]; ok {
			out[name] = v
		}
	}
	return &content.FetchResult{Content: out}
}

func (f *scriptedFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type memoryStore struct {
	mu        sync.Mutex
	rows      map[string]string
	upsertErr error
	readErr   error
	rewrite   func(string) string
	reads     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]string)}
}

func (m *memoryStore) BulkRead(_ context.Context, names []string) ([]*content.ContentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	var rows []*content.ContentRow
	for _, name := range names {
		if v, ok := m.rows[name]; ok {
			rows = append(rows, &content.ContentRow{Name: name, Content: v})
		}
	}
	return rows, nil
}

func (m *memoryStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *memoryStore) Upsert(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if m.rewrite != nil {
		value = m.rewrite(value)
	}
	m.rows[name] = value
	return nil
}

type notificationLog struct {
	mu  sync.Mutex
	all []content.Notification
}

func (l *notificationLog) Notify(n content.Notification) {
	l.mu.Lock()
	l.all = append(l.all, n)
	l.mu.Unlock()
}

func (l *notificationLog) levels() []content.NotificationLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]content.NotificationLevel, 0, len(l.all))
	for _, n := range l.all {
		out = append(out, n.Level)
	}
	return out
}

type serviceFixture struct {
	svc     *ContentService
	cache   *stores.ContentCache
	fetcher *scriptedFetcher
	store   *memoryStore
	notes   *notificationLog
	clock   *clock.Manual
}

func newServiceFixture(t *testing.T, verify bool) *serviceFixture {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	fetcher := &scriptedFetcher{values: map[string]string{}}
	cache := stores.NewContentCache(fetcher, &stores.ContentCacheConfig{
		StaleAfter:      10 * time.Minute,
		ExpireAfter:     15 * time.Minute,
		WriteDebounce:   200 * time.Millisecond,
		RefreshDebounce: time.Second,
	}, clk, nil)
	store := newMemoryStore()
	notes := &notificationLog{}
	svc := NewContentService(cache, fetcher, store, messaging.MultiNotifier{notes}, &ContentServiceConfig{
		SaveTimeout:      15 * time.Second,
		RetryBaseDelay:   time.Second,
		RetryMaxAttempts: 3,
		VerifySaves:      verify,
	}, clk, nil, nil)
	t.Cleanup(func() {
		svc.Close()
		cache.Close()
	})
	return &serviceFixture{svc: svc, cache: cache, fetcher: fetcher, store: store, notes: notes, clock: clk}
}

func TestPreloadPopulatesCacheAndLocalState(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.values["hero_title"] = "Remote Hero"

	if err := f.svc.PreloadContent(context.Background(), []string{"hero_title", "about_title"}); err != nil {
		t.Fatalf("PreloadContent() error = %v", err)
	}

	if got, _ := f.cache.Get("hero_title"); got != "Remote Hero" {
		t.Fatalf("cache hero_title = %q, want %q", got, "Remote Hero")
	}
	state := f.svc.State()
	if state.Content["hero_title"] != "Remote Hero" || state.IsLoading || len(state.FailedItems) != 0 {
		t.Fatalf("state = %+v", state)
	}

	// Already satisfied names are not fetched again.
	if err := f.svc.PreloadContent(context.Background(), []string{"hero_title", "about_title"}); err != nil {
		t.Fatal(err)
	}
	if got := f.fetcher.callCount(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
}

func TestPreloadRefetchesAfterCleanupExpiry(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.values["hero_title"] = "v1"
	if err := f.svc.PreloadContent(context.Background(), []string{"hero_title"}); err != nil {
		t.Fatal(err)
	}

	f.fetcher.mu.Lock()
	f.fetcher.values["hero_title"] = "v2"
	f.fetcher.mu.Unlock()
	f.clock.Advance(16 * time.Minute)
	if n := f.cache.Cleanup(); n != 1 {
		t.Fatalf("Cleanup = %d, want 1", n)
	}

	// The last value stays readable until the next preload.
	if got := f.svc.GetContent("hero_title", "dflt"); got != "v1" {
		t.Fatalf("GetContent() after expiry = %q, want v1", got)
	}

	if err := f.svc.PreloadContent(context.Background(), []string{"hero_title"}); err != nil {
		t.Fatal(err)
	}
	if got := f.fetcher.callCount(); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}
	if got := f.svc.GetContent("hero_title", "dflt"); got != "v2" {
		t.Fatalf("GetContent() = %q, want v2", got)
	}
}

func TestPreloadRefetchesAfterExpiredRead(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.values["about_title"] = "v1"
	_ = f.svc.PreloadContent(context.Background(), []string{"about_title"})

	f.fetcher.mu.Lock()
	f.fetcher.values["about_title"] = "v2"
	f.fetcher.mu.Unlock()
	f.clock.Advance(16 * time.Minute)

	// Preload reads the cache first, which expires the entry.
	if err := f.svc.PreloadContent(context.Background(), []string{"about_title"}); err != nil {
		t.Fatal(err)
	}
	if got := f.fetcher.callCount(); got != 2 {
		t.Fatalf("fetch calls = %d, want 2", got)
	}
	if got, _ := f.svc.LocalContent("about_title"); got != "v2" {
		t.Fatalf("local about_title = %q, want v2", got)
	}
	if got, _ := f.cache.Get("about_title"); got != "v2" {
		t.Fatalf("cache about_title = %q, want v2", got)
	}
}

func TestPreloadFailureFallsBackAndRetriesWithBackoff(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.setErr(errors.New("network down"))

	err := f.svc.PreloadContent(context.Background(), []string{"hero_title"})
	if err == nil {
		t.Fatal("PreloadContent() error = nil, want fetch failure")
	}

	want, _ := content.Fallback("hero_title")
	state := f.svc.State()
	if state.Content["hero_title"] != want {
		t.Fatalf("local hero_title = %q, want fallback %q", state.Content["hero_title"], want)
	}
	if len(state.FailedItems) != 1 || state.Error == "" {
		t.Fatalf("state = %+v, want one failed item and an error", state)
	}

	// Given the backend recovers, the first backoff retry (1s) succeeds.
	f.fetcher.setErr(nil)
	f.fetcher.mu.Lock()
	f.fetcher.values["hero_title"] = "Recovered"
	f.fetcher.mu.Unlock()

	f.clock.Advance(999 * time.Millisecond)
	if got := f.fetcher.callCount(); got != 1 {
		t.Fatalf("fetch calls before backoff = %d, want 1", got)
	}
	f.clock.Advance(time.Millisecond)
	if got := f.fetcher.callCount(); got != 2 {
		t.Fatalf("fetch calls after backoff = %d, want 2", got)
	}

	state = f.svc.State()
	if state.Content["hero_title"] != "Recovered" || len(state.FailedItems) != 0 || state.Error != "" {
		t.Fatalf("state after retry = %+v", state)
	}
}

func TestRetriesStopAfterMaxAttempts(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.setErr(errors.New("network down"))

	_ = f.svc.PreloadContent(context.Background(), []string{"about_title"})

	// Retries at +1s, +2s and +4s after each failure.
	f.clock.Advance(time.Second)
	f.clock.Advance(2 * time.Second)
	f.clock.Advance(4 * time.Second)
	if got := f.fetcher.callCount(); got != 4 {
		t.Fatalf("fetch calls = %d, want 4 (initial + 3 retries)", got)
	}

	f.clock.Advance(time.Minute)
	if got := f.fetcher.callCount(); got != 4 {
		t.Fatalf("fetch calls after exhaustion = %d, want 4", got)
	}
	if failed := f.svc.State().FailedItems; len(failed) != 1 || failed[0] != "about_title" {
		t.Fatalf("FailedItems = %v, want [about_title]", failed)
	}

	// A manual retry resets the budget.
	f.fetcher.setErr(nil)
	if err := f.svc.RetryFailedContent(context.Background()); err != nil {
		t.Fatalf("RetryFailedContent() error = %v", err)
	}
	if failed := f.svc.State().FailedItems; len(failed) != 0 {
		t.Fatalf("FailedItems after manual retry = %v, want none", failed)
	}
}

func TestSaveFailureKeepsOptimisticValueAndInvalidatesCache(t *testing.T) {
	f := newServiceFixture(t, false)
	_ = f.svc.PreloadContent(context.Background(), []string{"hero_title"})
	f.store.upsertErr = errors.New("connection reset")

	err := f.svc.SaveContent(context.Background(), "hero_title", "Attempted Title")
	if err == nil {
		t.Fatal("SaveContent() error = nil, want upsert failure")
	}

	if got := f.svc.GetContent("hero_title", "default"); got != "Attempted Title" {
		t.Fatalf("GetContent() = %q, want the attempted value", got)
	}
	if f.cache.Has("hero_title") {
		t.Fatal("cache entry should be invalidated after a failed save")
	}
	if !f.svc.IsUnsaved("hero_title") {
		t.Fatal("IsUnsaved() = false, want true")
	}
	levels := f.notes.levels()
	if len(levels) != 1 || levels[0] != content.NotifyError {
		t.Fatalf("notifications = %v, want [error]", levels)
	}

	// Later invalidations leave the unsaved value alone.
	f.svc.InvalidateContent([]string{"hero_title"})
	if got, _ := f.svc.LocalContent("hero_title"); got != "Attempted Title" {
		t.Fatalf("local value after invalidation = %q", got)
	}
}

func TestSaveSuccessConfirmsCacheAndNotifies(t *testing.T) {
	f := newServiceFixture(t, true)
	var events []types.InvalidationEvent
	unsubscribe := f.cache.OnInvalidation(func(e types.InvalidationEvent) { events = append(events, e) })
	defer unsubscribe()

	if err := f.svc.SaveContent(context.Background(), "about_title", "About Alex"); err != nil {
		t.Fatalf("SaveContent() error = %v", err)
	}

	if got, _ := f.cache.Get("about_title"); got != "About Alex" {
		t.Fatalf("cache about_title = %q", got)
	}
	if f.store.rows["about_title"] != "About Alex" {
		t.Fatalf("store about_title = %q", f.store.rows["about_title"])
	}
	if len(events) != 1 || events[0].Reason != types.ReasonUpdate {
		t.Fatalf("events = %+v, want one update", events)
	}
	if levels := f.notes.levels(); len(levels) != 1 || levels[0] != content.NotifySuccess {
		t.Fatalf("notifications = %v, want [success]", levels)
	}
	if f.svc.IsUnsaved("about_title") {
		t.Fatal("IsUnsaved() = true after a successful save")
	}
}

func TestSaveVerificationMismatch(t *testing.T) {
	f := newServiceFixture(t, true)
	f.store.rewrite = func(v string) string { return v + " (trimmed)" }

	err := f.svc.SaveContent(context.Background(), "contact_email", "me@example.com")
	if !errors.Is(err, ErrSaveVerification) {
		t.Fatalf("SaveContent() error = %v, want ErrSaveVerification", err)
	}
	levels := f.notes.levels()
	if len(levels) != 2 || levels[1] != content.NotifyWarning {
		t.Fatalf("notifications = %v, want [success warning]", levels)
	}
}

func TestInvalidationSyncsLocalState(t *testing.T) {
	f := newServiceFixture(t, false)
	_ = f.svc.PreloadContent(context.Background(), []string{"skills_title"})

	// Another writer commits a new value.
	f.cache.Set("skills_title", "Toolbox", types.SetOptions{Immediate: true})
	if got, _ := f.svc.LocalContent("skills_title"); got != "Toolbox" {
		t.Fatalf("local skills_title = %q, want %q", got, "Toolbox")
	}

	f.svc.InvalidateContent([]string{"skills_title"})
	if _, ok := f.svc.LocalContent("skills_title"); ok {
		t.Fatal("local value should be dropped when the cache no longer has it")
	}
}

func TestGetContentPrefersCacheThenLocalThenDefault(t *testing.T) {
	f := newServiceFixture(t, false)

	if got := f.svc.GetContent("unknown_key", "dflt"); got != "dflt" {
		t.Fatalf("GetContent() = %q, want caller default", got)
	}

	f.fetcher.setErr(errors.New("down"))
	_ = f.svc.PreloadContent(context.Background(), []string{"footer_copyright"})
	want, _ := content.Fallback("footer_copyright")
	if got := f.svc.GetContent("footer_copyright", "dflt"); got != want {
		t.Fatalf("GetContent() = %q, want local fallback %q", got, want)
	}

	f.cache.Set("footer_copyright", "cached", types.SetOptions{Immediate: true, SkipCallbacks: true})
	if got := f.svc.GetContent("footer_copyright", "dflt"); got != "cached" {
		t.Fatalf("GetContent() = %q, want cache value", got)
	}
}

func TestOnChangeListenerReceivesStateAndUnsubscribes(t *testing.T) {
	f := newServiceFixture(t, false)
	var states []ContentState
	unsubscribe := f.svc.OnChange(func(s ContentState) { states = append(states, s) })

	_ = f.svc.PreloadContent(context.Background(), []string{"hero_title"})
	if len(states) == 0 {
		t.Fatal("listener was not called")
	}
	if last := states[len(states)-1]; last.IsLoading {
		t.Fatal("final state should not be loading")
	}

	unsubscribe()
	seen := len(states)
	_ = f.svc.SaveContent(context.Background(), "hero_title", "x")
	if len(states) != seen {
		t.Fatal("listener called after unsubscribe")
	}
}

func TestFailedPreloadIsStaticUntilRecovered(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.setErr(errors.New("network down"))
	_ = f.svc.PreloadContent(context.Background(), []string{"hero_title"})

	view := NewStableContentView(f.svc)
	want, _ := content.Fallback("hero_title")
	if got := view.Get("hero_title"); got != want {
		t.Fatalf("Get() = %q, want fallback %q", got, want)
	}
	if !view.IsStatic("hero_title") {
		t.Fatal("IsStatic() = false for fallback text after a failed load")
	}

	f.fetcher.setErr(nil)
	f.fetcher.mu.Lock()
	f.fetcher.values["hero_title"] = "Loaded"
	f.fetcher.mu.Unlock()
	if err := f.svc.RetryFailedContent(context.Background(), "hero_title"); err != nil {
		t.Fatalf("RetryFailedContent() error = %v", err)
	}
	if view.IsStatic("hero_title") || view.Get("hero_title") != "Loaded" {
		t.Fatalf("after recovery IsStatic = %v, Get = %q", view.IsStatic("hero_title"), view.Get("hero_title"))
	}
}

func TestUnsavedEditIsNotStatic(t *testing.T) {
	f := newServiceFixture(t, false)
	f.fetcher.setErr(errors.New("network down"))
	_ = f.svc.PreloadContent(context.Background(), []string{"hero_title"})
	f.store.upsertErr = errors.New("connection reset")
	_ = f.svc.SaveContent(context.Background(), "hero_title", "Draft")

	view := NewStableContentView(f.svc)
	if view.IsStatic("hero_title") || view.Get("hero_title") != "Draft" {
		t.Fatalf("IsStatic = %v, Get = %q, want the unsaved draft", view.IsStatic("hero_title"), view.Get("hero_title"))
	}
}

func TestRetriesThroughGateRespectCooldown(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := newMemoryStore()
	store.readErr = errors.New("connection reset")
	g := gate.New(store, &gate.Config{
		MaxAttempts: 3,
		Cooldown:    5 * time.Second,
		ResetWindow: 30 * time.Second,
		Timeout:     time.Second,
	}, clk, nil, nil)
	cache := stores.NewContentCache(g, &stores.ContentCacheConfig{
		StaleAfter:      10 * time.Minute,
		ExpireAfter:     15 * time.Minute,
		WriteDebounce:   200 * time.Millisecond,
		RefreshDebounce: time.Second,
	}, clk, nil)
	svc := NewContentService(cache, g, store, nil, &ContentServiceConfig{
		SaveTimeout:      15 * time.Second,
		RetryBaseDelay:   time.Second,
		RetryMaxAttempts: 3,
	}, clk, nil, nil)
	t.Cleanup(func() {
		svc.Close()
		cache.Close()
	})

	_ = svc.PreloadContent(context.Background(), []string{"hero_title"})
	if got := store.readCount(); got != 1 {
		t.Fatalf("store reads after preload = %d, want 1", got)
	}

	// Retries at 1s and 3s land inside the 5s cooldown and never reach the store.
	clk.Advance(time.Second)
	if got := store.readCount(); got != 1 {
		t.Fatalf("store reads at 1s = %d, want 1", got)
	}
	clk.Advance(2 * time.Second)
	if got := store.readCount(); got != 1 {
		t.Fatalf("store reads at 3s = %d, want 1", got)
	}

	// The third retry at 7s is past the cooldown.
	clk.Advance(4 * time.Second)
	if got := store.readCount(); got != 2 {
		t.Fatalf("store reads at 7s = %d, want 2", got)
	}

	clk.Advance(time.Minute)
	if got := store.readCount(); got != 2 {
		t.Fatalf("store reads after the budget is spent = %d, want 2", got)
	}
	if failed := svc.State().FailedItems; len(failed) != 1 || failed[0] != "hero_title" {
		t.Fatalf("FailedItems = %v, want [hero_title]", failed)
	}
	if !svc.IsPlaceholder("hero_title") {
		t.Fatal("IsPlaceholder() = false, want fallback text")
	}
}
