// Package scheduler provides keyed, cancellable delayed tasks. Scheduling a
// key that already has a pending task cancels the old task and replaces it,
// which is the primitive behind every debounce window in the cache layer.
package scheduler

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
)

type task struct {
	generation uint64
	timer      clock.Timer
}

// Scheduler runs at most one pending task per key.
type Scheduler struct {
	clock      clock.Clock
	mu         sync.Mutex
	tasks      map[string]*task
	generation uint64
	stopped    bool
}

// New creates a scheduler driven by the given clock.
func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.Real()
	}
	return &Scheduler{
		clock: clk,
		tasks: make(map[string]*task),
	}
}

// Schedule runs fn after delay unless another Schedule or Cancel for the same
// key happens first. It returns false when the scheduler has been stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	if existing, ok := s.tasks[key]; ok {
		existing.timer.Stop()
		delete(s.tasks, key)
	}

	s.generation++
	gen := s.generation
	t := &task{generation: gen}
	s.tasks[key] = t

	t.timer = s.clock.AfterFunc(delay, func() {
		if !s.claim(key, gen) {
			return
		}
		fn()
	})
	return true
}

// claim removes the task for key if it is still the given generation. A task
// that was replaced between its timer firing and this check does not run.
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[key]
	if !ok || current.generation != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}

// Cancel drops the pending task for key and reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Pending reports whether key has a task waiting to run.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every pending task and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tasks {
		t.timer.Stop()
		delete(s.tasks, key)
	}
	s.stopped = true
}
