package scheduler

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/infrastructure/clock"
)

func TestScheduleRunsAfterDelay(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := New(clk)

	ran := 0
	s.Schedule("k", 200*time.Millisecond, func() { ran++ })

	clk.Advance(199 * time.Millisecond)
	if ran != 0 {
		t.Fatalf("ran = %d before deadline, want 0", ran)
	}
	if !s.Pending("k") {
		t.Fatal("Pending(k) = false, want true")
	}

	clk.Advance(time.Millisecond)
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
	if s.Pending("k") {
		t.Fatal("Pending(k) = true after run, want false")
	}
}

func TestScheduleCancelAndReplace(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := New(clk)

	var got []int
	for i := 1; i <= 5; i++ {
		v := i
		s.Schedule("k", 200*time.Millisecond, func() { got = append(got, v) })
		clk.Advance(50 * time.Millisecond)
	}
	clk.Advance(time.Second)

	if len(got) != 1 || got[0] != 5 {
		t.Fatalf("ran %v, want only the last task [5]", got)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := New(clk)

	ran := map[string]bool{}
	s.Schedule("a", time.Second, func() { ran["a"] = true })
	s.Schedule("b", 2*time.Second, func() { ran["b"] = true })

	if n := s.Len(); n != 2 {
		t.Fatalf("Len() = %d, want 2", n)
	}

	s.Cancel("a")
	clk.Advance(3 * time.Second)

	if ran["a"] {
		t.Fatal("cancelled task a ran")
	}
	if !ran["b"] {
		t.Fatal("task b did not run")
	}
}

func TestStopRejectsNewTasks(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	s := New(clk)

	ran := false
	s.Schedule("a", time.Second, func() { ran = true })
	s.Stop()

	if s.Schedule("b", time.Second, func() { ran = true }) {
		t.Fatal("Schedule after Stop() = true, want false")
	}
	clk.Advance(5 * time.Second)
	if ran {
		t.Fatal("task ran after Stop()")
	}
}
