package core

import (
	"context"
	"fmt"

	"github.com/hupe1980/reagent/hook"
	"github.com/hupe1980/reagent/logging"
	"github.com/hupe1980/reagent/registry"
	"github.com/hupe1980/reagent/state"
)

// Builder is the caller-supplied function re-invoked every round to declare
// state, systems, variables, tools, agents, effects and hooks. Errors returned
// by a builder propagate to the caller awaiting the round; they are never
// converted into tool results.
type Builder func(rc *RoundContext) error

// EffectFunc is a side-effect callback run by the scheduler when its
// dependencies demand it. The step parameter installs per-round overrides of
// the assembled input.
type EffectFunc func(step *Step)

// EffectRegistrar accepts per-round effect declarations in call order.
type EffectRegistrar interface {
	Register(fn EffectFunc, deps []any)
}

// RoundContext is the explicit declaration surface passed to a Builder for
// exactly one round. All declarations go through it; nothing is captured
// implicitly. It aggregates:
//
//   - The ambient cancellation Context and the round index
//   - The persistent state store (deferred updates, flushed between rounds)
//   - The definition registry receiving this round's declarations
//   - The effect scheduler and hook pipeline registrars
//   - The persistent transcript for explicit user/assistant messages
//
// A RoundContext is only valid during its builder invocation; holding on to
// it past the round is a programming error.
type RoundContext struct {
	ctx        context.Context
	index      int
	store      *state.Store
	registry   *registry.Registry
	effects    EffectRegistrar
	hooks      *hook.Pipeline
	transcript *Transcript
	err        error

	*loggerAdapter
}

// NewRoundContext constructs the declaration surface for one round. Intended
// for the round driver; tests may construct one directly.
func NewRoundContext(
	ctx context.Context,
	index int,
	store *state.Store,
	reg *registry.Registry,
	effects EffectRegistrar,
	hooks *hook.Pipeline,
	transcript *Transcript,
	logger logging.Logger,
) *RoundContext {
	return &RoundContext{
		ctx:           ctx,
		index:         index,
		store:         store,
		registry:      reg,
		effects:       effects,
		hooks:         hooks,
		transcript:    transcript,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Context returns the ambient context for the round.
func (rc *RoundContext) Context() context.Context { return rc.ctx }

// Round returns the zero-based round index.
func (rc *RoundContext) Round() int { return rc.index }

// StateStore exposes the persistent store backing this engine instance.
// Typed access goes through the generic engine.State helper.
func (rc *RoundContext) StateStore() *state.Store { return rc.store }

// System declares a named system-prompt section for this round and returns
// its stable handle. Redeclaring the same name refreshes the text while
// keeping the definition's identity.
func (rc *RoundContext) System(name, text string) *registry.Handle {
	return rc.registry.Declare(registry.KindSystem, name, text)
}

// Variable declares a named template variable for this round. The value is
// substituted wherever the handle's tag appears in system or message text.
func (rc *RoundContext) Variable(name string, value any) *registry.Handle {
	return rc.registry.Declare(registry.KindVariable, name, value)
}

// Tool declares a callable tool or composite for this round.
func (rc *RoundContext) Tool(spec *Spec) *registry.Handle {
	if spec == nil {
		rc.fail(fmt.Errorf("nil tool spec declared"))
		return nil
	}
	if err := spec.Validate(); err != nil {
		rc.fail(err)
	} else if spec.IsAgent() {
		rc.fail(fmt.Errorf("spec %q: agent specs must be declared via Agent", spec.Name))
	}
	return rc.registry.Declare(registry.KindTool, spec.Name, spec)
}

// Agent declares a delegatable sub-agent for this round.
func (rc *RoundContext) Agent(spec *Spec) *registry.Handle {
	if spec == nil {
		rc.fail(fmt.Errorf("nil agent spec declared"))
		return nil
	}
	if err := spec.Validate(); err != nil {
		rc.fail(err)
	} else if !spec.IsAgent() {
		rc.fail(fmt.Errorf("spec %q: non-agent specs must be declared via Tool", spec.Name))
	}
	return rc.registry.Declare(registry.KindAgent, spec.Name, spec)
}

// User appends an explicit user message. Idempotent across re-executions of
// this round's builder pass; identical text in a different round appends a
// distinct message.
func (rc *RoundContext) User(text string) {
	rc.transcript.AppendUser(rc.index, text)
}

// Assistant appends an explicit assistant message. Never deduplicated.
func (rc *RoundContext) Assistant(text string) {
	rc.transcript.AppendAssistant(text)
}

// Messages returns a copy of the persistent conversation accumulated so far.
func (rc *RoundContext) Messages() []Content {
	return rc.transcript.Messages()
}

// Effect registers a side-effect callback for this round; correlation with
// prior rounds is by call order. deps semantics:
//
//   - nil: run every round
//   - empty (non-nil): run once, on first registration
//   - otherwise: re-run when any resolved dependency value changed
//
// Handle dependencies compare by definition identity and version, so a
// declared value change or a retract/readmit cycle counts as a change.
func (rc *RoundContext) Effect(fn EffectFunc, deps []any) {
	rc.effects.Register(fn, deps)
}

// Hook registers a per-round narrowing filter over the candidate systems,
// variables and tools. Hooks compose sequentially in registration order.
func (rc *RoundContext) Hook(fn hook.Func) {
	rc.hooks.Register(fn)
}

// Err returns the first declaration error recorded during this builder pass.
// The round driver aborts the round when non-nil.
func (rc *RoundContext) Err() error { return rc.err }

func (rc *RoundContext) fail(err error) {
	if rc.err == nil {
		rc.err = err
	}
}

// ToolContext provides a constrained, auditable surface for tool handlers.
// State mutations enqueue deferred updates applied at the next round
// boundary; reads observe the values as resolved for the current round.
type ToolContext struct {
	ctx            context.Context
	functionCallID string
	callName       string
	round          int
	store          *state.Store

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to one function call.
func NewToolContext(ctx context.Context, functionCallID, callName string, round int, store *state.Store, logger logging.Logger) *ToolContext {
	return &ToolContext{
		ctx:            ctx,
		functionCallID: functionCallID,
		callName:       callName,
		round:          round,
		store:          store,
		loggerAdapter:  newLoggerAdapter(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// FunctionCallID returns the function call ID associated with the invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// CallName returns the externally visible call name being dispatched.
func (tc *ToolContext) CallName() string { return tc.callName }

// Round returns the index of the round that requested the call.
func (tc *ToolContext) Round() int { return tc.round }

// GetState retrieves the current resolved value for a key. Updates enqueued
// during this round are not yet visible.
func (tc *ToolContext) GetState(k string) (any, bool) {
	return tc.store.Get(k)
}

// SetState enqueues a direct value update, applied at the round boundary.
func (tc *ToolContext) SetState(k string, v any) {
	tc.store.Set(k, v)
}

// UpdateState enqueues a functional update applied to the value as resolved
// at flush time; sequential updates compose left-to-right.
func (tc *ToolContext) UpdateState(k string, fn func(any) any) {
	tc.store.Update(k, fn)
}
