// Package effect schedules the side-effect callbacks a builder registers
// each round. Effects correlate across rounds by registration order: the
// n-th Effect call of one round continues the n-th slot of the previous
// round. Dependency semantics follow the declared deps slice:
//
//   - nil deps: the callback runs every round
//   - empty deps: the callback runs once, when its slot first appears
//   - otherwise: the callback runs when any dependency changed elementwise
//     since the slot's previous registration
//
// Registry handles used as dependencies are resolved to their admission tag
// and version, so a value change or a retract/readmit cycle counts as a
// change without comparing handler values.
package effect

import (
	"reflect"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/registry"
)

// Compile-time check that Scheduler satisfies the engine's registrar.
var _ core.EffectRegistrar = (*Scheduler)(nil)

type depMode int

const (
	modeAlways depMode = iota
	modeOnce
	modeOnChange
)

// handleDep is the comparable snapshot of a registry handle dependency. The
// tag pins the admission, the version pins the declared value.
type handleDep struct {
	tag     string
	version int
}

type slot struct {
	fn    core.EffectFunc
	mode  depMode
	last  []any // dep snapshot from the previous observed registration
	next  []any // dep snapshot from this round's registration
	armed bool  // registered this round
	fresh bool  // slot created this round
}

// Scheduler tracks effect slots across rounds. Not safe for concurrent use.
type Scheduler struct {
	slots []*slot
	count int
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// BeginRound opens a new registration cycle.
func (s *Scheduler) BeginRound() {
	s.count = 0
}

// Register records this round's n-th effect. Called by the round context
// during the builder pass.
func (s *Scheduler) Register(fn core.EffectFunc, deps []any) {
	i := s.count
	s.count++

	resolved := resolveDeps(deps)
	mode := modeOf(deps)

	if i < len(s.slots) {
		sl := s.slots[i]
		sl.fn = fn
		sl.mode = mode
		sl.next = resolved
		sl.armed = true
		return
	}
	s.slots = append(s.slots, &slot{
		fn:    fn,
		mode:  mode,
		next:  resolved,
		armed: true,
		fresh: true,
	})
}

// Process commits this round's registrations and runs the due callbacks in
// slot order, passing each the round's step for overrides. Dependency
// snapshots are committed before any callback runs, so a callback failure
// cannot replay an already-observed change. Slots beyond this round's
// registration count are dropped; re-registering them later starts fresh.
// Returns the number of callbacks run.
func (s *Scheduler) Process(step *core.Step) int {
	if s.count < len(s.slots) {
		s.slots = s.slots[:s.count]
	}

	var due []core.EffectFunc
	for _, sl := range s.slots {
		if !sl.armed {
			continue
		}
		run := false
		switch sl.mode {
		case modeAlways:
			run = true
		case modeOnce:
			run = sl.fresh
		case modeOnChange:
			run = sl.fresh || changed(sl.last, sl.next)
		}
		sl.last = sl.next
		sl.next = nil
		sl.armed = false
		sl.fresh = false
		if run {
			due = append(due, sl.fn)
		}
	}

	for _, fn := range due {
		fn(step)
	}
	return len(due)
}

// Len reports the number of live slots.
func (s *Scheduler) Len() int { return len(s.slots) }

func modeOf(deps []any) depMode {
	switch {
	case deps == nil:
		return modeAlways
	case len(deps) == 0:
		return modeOnce
	default:
		return modeOnChange
	}
}

func resolveDeps(deps []any) []any {
	if len(deps) == 0 {
		return nil
	}
	out := make([]any, len(deps))
	for i, d := range deps {
		if h, ok := d.(*registry.Handle); ok {
			out[i] = handleDep{tag: h.Tag(), version: h.Version()}
			continue
		}
		out[i] = d
	}
	return out
}

func changed(last, next []any) bool {
	if len(last) != len(next) {
		return true
	}
	for i := range next {
		if !depEqual(last[i], next[i]) {
			return true
		}
	}
	return false
}

// depEqual compares one dependency element. Functions compare by identity;
// everything else by deep value.
func depEqual(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Func || rb.Kind() == reflect.Func {
		return ra.Kind() == rb.Kind() && ra.Pointer() == rb.Pointer()
	}
	return reflect.DeepEqual(a, b)
}
