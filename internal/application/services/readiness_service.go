package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/caching/scheduler"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/folio-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/folio-go/pkg/config"
)

const (
	progressTaskKey = "progress"
	safetyTaskKey   = "safety"
	minimumTaskKey  = "minimum"
)

// ReadinessConfig holds page readiness timings
type ReadinessConfig struct {
	Debounce       time.Duration
	SafetyTimeout  time.Duration
	MinimumLoading time.Duration
}

// NewReadinessConfig creates timings from pkg/config
func NewReadinessConfig() *ReadinessConfig {
	return &ReadinessConfig{
		Debounce:       config.ReadinessDebounce,
		SafetyTimeout:  config.ReadinessSafety,
		MinimumLoading: config.ReadinessMinimum,
	}
}

// ContentResolver resolves a content name to its displayable value.
type ContentResolver interface {
	Get(name string) string
}

type SectionStatus struct {
	Name         string   `json:"name"`
	ContentNames []string `json:"contentNames"`
	Loaded       bool     `json:"loaded"`
}

// ReadinessState is the page-level loading state.
type ReadinessState struct {
	IsPageLoading      bool            `json:"isPageLoading"`
	LoadingProgress    float64         `json:"loadingProgress"`
	RegisteredSections int             `json:"registeredSections"`
	LoadedSections     int             `json:"loadedSections"`
	Forced             bool            `json:"forced"`
	Sections           []SectionStatus `json:"sections"`
}

type readinessListener struct {
	id uint64
	fn func(ReadinessState)
}

// PageReadinessService tracks which page sections have all their content.
// Progress is recomputed on a short debounce. The page is never ready before
// the minimum loading time, and is forced ready after the safety timeout.
type PageReadinessService struct {
	resolver  ContentResolver
	publisher messaging.Publisher
	scheduler *scheduler.Scheduler
	clock     clock.Clock
	config    *ReadinessConfig
	logger    *logging.ChanneledLogger

	mu             sync.Mutex
	sections       map[string][]string
	loaded         map[string]bool
	progress       float64
	isLoading      bool
	forced         bool
	minimumElapsed bool
	listeners      []readinessListener
	nextID         uint64
	closed         bool
}

// NewPageReadinessService starts the safety and minimum-loading timers.
// publisher may be nil.
func NewPageReadinessService(resolver ContentResolver, publisher messaging.Publisher, cfg *ReadinessConfig, clk clock.Clock, logger *logging.ChanneledLogger) *PageReadinessService {
	if cfg == nil {
		cfg = NewReadinessConfig()
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	p := &PageReadinessService{
		resolver:  resolver,
		publisher: publisher,
		scheduler: scheduler.New(clk),
		clock:     clk,
		config:    cfg,
		logger:    logger,
		sections:  make(map[string][]string),
		loaded:    make(map[string]bool),
		isLoading: true,
	}

	p.scheduler.Schedule(safetyTaskKey, cfg.SafetyTimeout, p.forceReady)
	p.scheduler.Schedule(minimumTaskKey, cfg.MinimumLoading, func() {
		p.mu.Lock()
		p.minimumElapsed = true
		p.mu.Unlock()
		p.recompute()
	})
	return p
}

// RegisterSection records the content a section depends on. Registering the
// same section again replaces its names without double counting.
func (p *PageReadinessService) RegisterSection(name string, contentNames []string) {
	if name == "" {
		return
	}
	names := append([]string(nil), contentNames...)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if existing, ok := p.sections[name]; ok && equalNames(existing, names) {
		return
	}
	p.sections[name] = names
	delete(p.loaded, name)
	p.scheduleRecomputeLocked()
	p.logger.Readiness().Debug("Section registered", "section", name, "contentNames", len(names))
}

func (p *PageReadinessService) UnregisterSection(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.sections[name]; !ok {
		return
	}
	delete(p.sections, name)
	delete(p.loaded, name)
	p.scheduleRecomputeLocked()
}

// TrackSection registers the section and evaluates it immediately.
func (p *PageReadinessService) TrackSection(name string, contentNames []string) bool {
	p.RegisterSection(name, contentNames)
	return p.evaluate(name)
}

// EvaluateSections re-checks every registered section.
func (p *PageReadinessService) EvaluateSections() {
	p.mu.Lock()
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	p.mu.Unlock()

	for _, name := range names {
		p.evaluate(name)
	}
}

func (p *PageReadinessService) evaluate(section string) bool {
	p.mu.Lock()
	contentNames, ok := p.sections[section]
	p.mu.Unlock()
	if !ok {
		return false
	}

	resolved := true
	for _, name := range contentNames {
		if p.resolver == nil || p.resolver.Get(name) == "" {
			resolved = false
			break
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if current, still := p.sections[section]; !still || !equalNames(current, contentNames) {
		return false
	}
	if p.loaded[section] != resolved {
		if resolved {
			p.loaded[section] = true
		} else {
			delete(p.loaded, section)
		}
		p.scheduleRecomputeLocked()
	}
	return resolved
}

func (p *PageReadinessService) scheduleRecomputeLocked() {
	if p.closed {
		return
	}
	p.scheduler.Schedule(progressTaskKey, p.config.Debounce, p.recompute)
}

func (p *PageReadinessService) recompute() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	registered := len(p.sections)
	loadedCount := len(p.loaded)

	if p.forced {
		p.progress = 100
		p.isLoading = false
	} else {
		if registered == 0 {
			p.progress = 0
		} else {
			p.progress = float64(loadedCount) / float64(registered) * 100
		}
		p.isLoading = !(p.minimumElapsed && registered > 0 && loadedCount == registered)
	}
	state := p.stateLocked()
	listeners := append([]readinessListener(nil), p.listeners...)
	p.mu.Unlock()

	p.logger.Readiness().Debug("Page progress recomputed",
		"progress", state.LoadingProgress, "loading", state.IsPageLoading,
		"loaded", loadedCount, "registered", registered)
	p.emit(state, listeners)
}

func (p *PageReadinessService) forceReady() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	wasLoading := p.isLoading
	p.forced = true
	p.mu.Unlock()

	if wasLoading {
		p.logger.Readiness().Warn("Safety timeout reached, forcing page ready",
			"timeout", p.config.SafetyTimeout.String())
	}
	p.recompute()
}

func (p *PageReadinessService) emit(state ReadinessState, listeners []readinessListener) {
	if p.publisher != nil {
		p.publisher.Publish(messaging.EventReadiness, state)
	}
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Readiness().Error("Readiness listener panicked", "panic", fmt.Sprint(r))
				}
			}()
			l.fn(state)
		}()
	}
}

// State returns the last computed state.
func (p *PageReadinessService) State() ReadinessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *PageReadinessService) stateLocked() ReadinessState {
	names := make([]string, 0, len(p.sections))
	for name := range p.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	sections := make([]SectionStatus, 0, len(names))
	for _, name := range names {
		sections = append(sections, SectionStatus{
			Name:         name,
			ContentNames: append([]string(nil), p.sections[name]...),
			Loaded:       p.loaded[name],
		})
	}
	return ReadinessState{
		IsPageLoading:      p.isLoading,
		LoadingProgress:    p.progress,
		RegisteredSections: len(p.sections),
		LoadedSections:     len(p.loaded),
		Forced:             p.forced,
		Sections:           sections,
	}
}

// OnChange registers fn for recomputed states.
func (p *PageReadinessService) OnChange(fn func(ReadinessState)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, readinessListener{id: id, fn: fn})
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

func (p *PageReadinessService) Close() {
	p.mu.Lock()
	p.closed = true
	p.listeners = nil
	p.mu.Unlock()
	p.scheduler.Stop()
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
