package effect

import (
	"testing"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/registry"
)

func runRound(s *Scheduler, register func(*Scheduler)) int {
	s.BeginRound()
	register(s)
	return s.Process(core.NewStep())
}

func TestScheduler_NilDepsRunEveryRound(t *testing.T) {
	s := New()
	runs := 0
	reg := func(s *Scheduler) {
		s.Register(func(*core.Step) { runs++ }, nil)
	}

	for i := 0; i < 3; i++ {
		runRound(s, reg)
	}
	if runs != 3 {
		t.Fatalf("nil deps should run every round, got %d runs", runs)
	}
}

func TestScheduler_EmptyDepsRunOnce(t *testing.T) {
	s := New()
	runs := 0
	reg := func(s *Scheduler) {
		s.Register(func(*core.Step) { runs++ }, []any{})
	}

	for i := 0; i < 3; i++ {
		runRound(s, reg)
	}
	if runs != 1 {
		t.Fatalf("empty deps should run once, got %d runs", runs)
	}
}

func TestScheduler_RunsOnElementwiseChange(t *testing.T) {
	s := New()
	runs := 0
	round := func(a, b any) {
		runRound(s, func(s *Scheduler) {
			s.Register(func(*core.Step) { runs++ }, []any{a, b})
		})
	}

	round(1, "x") // fresh slot, runs
	round(1, "x") // unchanged
	round(1, "y") // second element changed
	round(1, "y") // unchanged
	if runs != 2 {
		t.Fatalf("expected 2 runs (fresh + change), got %d", runs)
	}
}

func TestScheduler_DepCountChangeCountsAsChange(t *testing.T) {
	s := New()
	runs := 0

	runRound(s, func(s *Scheduler) {
		s.Register(func(*core.Step) { runs++ }, []any{1})
	})
	runRound(s, func(s *Scheduler) {
		s.Register(func(*core.Step) { runs++ }, []any{1, 2})
	})
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
}

func TestScheduler_HandleDeps(t *testing.T) {
	r := registry.New()
	s := New()
	runs := 0

	round := func(value string) *registry.Handle {
		r.BeginRound()
		h := r.Declare(registry.KindVariable, "topic", value)
		runRound(s, func(s *Scheduler) {
			s.Register(func(*core.Step) { runs++ }, []any{h})
		})
		r.Reconcile()
		return h
	}

	round("go")   // fresh
	round("go")   // same version, no run
	round("rust") // version bump
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}

	// Retract and readmit: fresh tag counts as a change even though the
	// value and version match the original admission.
	r.BeginRound()
	r.Reconcile()
	s.BeginRound()
	s.Process(core.NewStep())

	round("go")
	if runs != 3 {
		t.Fatalf("readmitted handle should trigger a run, got %d", runs)
	}
}

func TestScheduler_FuncDepsCompareByIdentity(t *testing.T) {
	s := New()
	runs := 0
	f1 := func() {}
	f2 := func() {}

	round := func(dep any) {
		runRound(s, func(s *Scheduler) {
			s.Register(func(*core.Step) { runs++ }, []any{dep})
		})
	}

	round(f1) // fresh
	round(f1) // same identity
	round(f2) // different function
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
}

func TestScheduler_TruncatedSlotsStartFresh(t *testing.T) {
	s := New()
	var first, second int

	both := func(s *Scheduler) {
		s.Register(func(*core.Step) { first++ }, []any{})
		s.Register(func(*core.Step) { second++ }, []any{})
	}
	onlyFirst := func(s *Scheduler) {
		s.Register(func(*core.Step) { first++ }, []any{})
	}

	runRound(s, both) // both fresh
	if s.Len() != 2 {
		t.Fatalf("expected 2 slots, got %d", s.Len())
	}

	runRound(s, onlyFirst) // second slot dropped
	if s.Len() != 1 {
		t.Fatalf("expected 1 slot after truncation, got %d", s.Len())
	}

	runRound(s, both) // second slot fresh again, runs once more
	if first != 1 {
		t.Fatalf("first slot should have run once, got %d", first)
	}
	if second != 2 {
		t.Fatalf("second slot should rerun after truncation, got %d", second)
	}
}

func TestScheduler_CallbacksRunInSlotOrder(t *testing.T) {
	s := New()
	var order []string

	runRound(s, func(s *Scheduler) {
		s.Register(func(*core.Step) { order = append(order, "a") }, nil)
		s.Register(func(*core.Step) { order = append(order, "b") }, nil)
		s.Register(func(*core.Step) { order = append(order, "c") }, nil)
	})

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("callbacks out of order: %v", order)
	}
}

func TestScheduler_AbortedRoundStillObservesChangeLater(t *testing.T) {
	s := New()
	runs := 0
	reg := func(dep int) func(*Scheduler) {
		return func(s *Scheduler) {
			s.Register(func(*core.Step) { runs++ }, []any{dep})
		}
	}

	runRound(s, reg(1)) // fresh, runs

	// A builder pass that registers but whose round aborts before Process.
	s.BeginRound()
	reg(2)(s)

	// Next round registers the same new value; the change against the last
	// committed snapshot must still be observed.
	runRound(s, reg(2))
	if runs != 2 {
		t.Fatalf("change across aborted round lost, got %d runs", runs)
	}
}

func TestScheduler_EffectReceivesStep(t *testing.T) {
	s := New()
	s.BeginRound()
	s.Register(func(step *core.Step) {
		step.SetSystems([]string{"override"})
	}, nil)

	step := core.NewStep()
	s.Process(step)

	sys, ok := step.Systems()
	if !ok || len(sys) != 1 || sys[0] != "override" {
		t.Fatalf("step override not applied: %v %v", sys, ok)
	}
}
