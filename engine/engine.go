// Package engine drives multi-round conversations in which a builder
// function re-declares the desired state, prompt definitions, effects, and
// hooks before every model call. Each round the engine reconciles the
// declarations against the previous round, assembles the request, dispatches
// any tool or agent calls the model makes, flushes deferred state updates,
// and loops until the model answers without calling a tool.
//
// A single engine is not safe for concurrent use. Agent specs spawn child
// engines with their own store and registry, so child runs never share
// mutable state with the parent.
package engine

import (
	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/effect"
	"github.com/hupe1980/reagent/hook"
	"github.com/hupe1980/reagent/logging"
	"github.com/hupe1980/reagent/registry"
	"github.com/hupe1980/reagent/state"
)

// Options defines tuning parameters for an engine.
type Options struct {
	// Logger receives structured engine events. Defaults to a no-op logger.
	Logger logging.Logger

	// Params are forwarded to the model on every request.
	Params *core.Params

	// MaxRounds caps the rounds a single Run may consume before it aborts
	// with ErrMaxRounds. Defaults to 25.
	MaxRounds int

	// Stream requests partial responses from the model. Partials are
	// recorded as attempts and surfaced through OnPartial; the engine
	// always acts on the final response only.
	Stream bool

	// OnPartial observes each partial response when Stream is enabled.
	OnPartial func(resp core.Response)
}

// Engine owns the conversation loop for one builder: the definition
// registry, the deferred state store, the effect scheduler, the hook
// pipeline, and the accumulated transcript and history.
type Engine struct {
	builder    core.Builder
	mdl        core.Model
	store      *state.Store
	registry   *registry.Registry
	effects    *effect.Scheduler
	hooks      *hook.Pipeline
	transcript *core.Transcript
	history    *core.History
	opts       Options
	logger     logging.Logger
	runID      string
	round      int
	depth      int
	remindLog  []string
}

// New creates an engine around a builder and a model. The builder runs once
// per round and declares everything the round needs; state it declares
// persists across rounds in the engine's store.
func New(builder core.Builder, mdl core.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:    logging.NoOpLogger{},
		MaxRounds: 25,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		builder:    builder,
		mdl:        mdl,
		store:      state.New(),
		registry:   registry.New(),
		effects:    effect.New(),
		hooks:      hook.NewPipeline(),
		transcript: core.NewTranscript(),
		history:    core.NewHistory(),
		opts:       opts,
		logger:     opts.Logger,
		runID:      core.NewID(),
	}

	if e.logger == nil {
		e.logger = logging.NoOpLogger{}
	}
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		e.logger = el.WithRun(e.runID, e.depth)
	}

	return e
}

// newChild builds an isolated engine for an agent sub-run. The child shares
// nothing mutable with the parent: it gets a fresh store, registry, effect
// scheduler, and transcript. Model, params, logger, and round limit are
// inherited unless the spec's ChildConfig overrides them.
func (e *Engine) newChild(spec *core.Spec, args map[string]any) *Engine {
	builder := func(rc *core.RoundContext) error {
		return spec.Run(rc, args)
	}

	mdl := e.mdl
	if spec.Child.Model != nil {
		mdl = spec.Child.Model
	}

	child := New(builder, mdl, func(o *Options) {
		o.Logger = e.opts.Logger
		if spec.Child.Logger != nil {
			o.Logger = spec.Child.Logger
		}
		o.Params = e.opts.Params
		if spec.Child.Params != nil {
			o.Params = spec.Child.Params
		}
		o.MaxRounds = e.opts.MaxRounds
		if spec.Child.MaxRounds > 0 {
			o.MaxRounds = spec.Child.MaxRounds
		}
	})

	child.depth = e.depth + 1
	if el, ok := child.logger.(*logging.EngineLogger); ok {
		child.logger = el.WithRun(child.runID, child.depth)
	}
	return child
}

// RunID returns the unique identifier assigned to this engine.
func (e *Engine) RunID() string { return e.runID }

// Round returns the index of the next round to execute.
func (e *Engine) Round() int { return e.round }

// History returns the per-round record of the conversation so far.
func (e *Engine) History() *core.History { return e.history }

// Store exposes the engine's state store, mainly for tests and evaluators.
func (e *Engine) Store() *state.Store { return e.store }

// State declares a typed persistent value in the round's store. The first
// declaration of a key seeds it with initial; later declarations return the
// current value unchanged. Writes through the setter are deferred until the
// end of the round.
func State[T any](rc *core.RoundContext, key string, initial T) (T, state.Setter[T]) {
	return state.Declare(rc.StateStore(), key, initial)
}
