// Package reagent provides a high-level façade over the round-driving engine
// enabling rapid construction of tool-augmented conversational programs. Most
// applications interact with this package by:
//  1. Writing a builder function that declares state, prompt sections, tools
//     and effects for each round
//  2. Creating a Conversation via New() with a model adapter
//  3. Calling Send() once per user turn
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger.
package reagent

import (
	"context"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/engine"
	"github.com/hupe1980/reagent/logging"
)

// Options configures the Conversation instance.
type Options struct {
	// Params are sampling overrides forwarded to the model on every request.
	Params *core.Params

	// MaxRounds bounds the rounds a single Send may consume. Zero keeps the
	// engine default.
	MaxRounds int

	// Stream requests incremental responses from the model adapter.
	Stream bool

	// OnPartial observes each partial response when Stream is set.
	OnPartial func(resp core.Response)

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Conversation is the high-level façade pairing a caller's builder with a
// persistent engine instance. Each Send delivers one user turn and drives
// rounds until the model answers without requesting a tool.
type Conversation struct {
	opts    Options
	eng     *engine.Engine
	pending string
	start   int
}

// New creates a new Conversation around a builder and a model. The supplied
// builder keeps full control of declarations; the façade only injects the
// turn text handed to Send as a user message before delegating.
func New(builder core.Builder, mdl core.Model, optFns ...func(o *Options)) *Conversation {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Conversation{opts: opts}
	wrapped := func(rc *core.RoundContext) error {
		if c.pending != "" && rc.Round() == c.start {
			rc.User(c.pending)
		}
		return builder(rc)
	}

	c.eng = engine.New(wrapped, mdl, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.Params = opts.Params
		if opts.MaxRounds > 0 {
			o.MaxRounds = opts.MaxRounds
		}
		o.Stream = opts.Stream
		o.OnPartial = opts.OnPartial
	})
	return c
}

// Send delivers one user turn and blocks until the model produces a final
// response. Conversation state, declarations and transcript persist across
// turns; each call returns the result of the rounds it drove.
func (c *Conversation) Send(ctx context.Context, text string) (*engine.Result, error) {
	c.pending = text
	c.start = c.eng.Round()
	defer func() { c.pending = "" }()
	return c.eng.Run(ctx)
}

// Continue drives the conversation without injecting a new user turn, for
// builders that manage their own messages.
func (c *Conversation) Continue(ctx context.Context) (*engine.Result, error) {
	return c.Send(ctx, "")
}

// Engine exposes the underlying engine for advanced use.
func (c *Conversation) Engine() *engine.Engine { return c.eng }
