package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/reagent/core"
)

// Run drives rounds until the model answers without requesting a call.
// Builder and model errors abort the run; call failures do not, they degrade
// to error payloads inside the round. A second Run continues the same
// conversation, with the round budget applied per invocation.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runStart := e.round
	e.logger.Info("engine.run.start", "run_id", e.runID, "model", e.mdl.Info().Name)

	var usage core.TokenUsage
	for spent := 0; ; spent++ {
		if spent >= e.opts.MaxRounds {
			e.logger.Error("engine.run.aborted", "run_id", e.runID, "rounds", spent, "error", ErrMaxRounds)
			return nil, fmt.Errorf("%w after %d rounds", ErrMaxRounds, spent)
		}

		outcome, err := e.runRound(ctx)
		if err != nil {
			e.logger.Error("engine.run.failed", "run_id", e.runID, "round", e.round, "error", err)
			return nil, err
		}
		usage.Add(outcome.usage)

		if outcome.final {
			e.logger.Info(
				"engine.run.completed",
				"run_id", e.runID,
				"rounds", spent+1,
				"duration_ms", time.Since(start).Milliseconds(),
				"total_tokens", usage.TotalTokens,
			)
			return e.buildResult(runStart, outcome, usage), nil
		}
	}
}

// roundOutcome carries one round's result back to the run loop.
type roundOutcome struct {
	final        bool
	content      core.Content
	finishReason string
	usage        *core.TokenUsage
}

// runRound executes one full cycle: builder re-invocation, reconciliation,
// effects, assembly, model call, dispatch, and the deferred state flush.
func (e *Engine) runRound(ctx context.Context) (*roundOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.registry.BeginRound()
	e.effects.BeginRound()
	e.hooks.Reset()

	rc := core.NewRoundContext(ctx, e.round, e.store, e.registry, e.effects, e.hooks, e.transcript, e.logger)
	if err := e.builder(rc); err != nil {
		return nil, fmt.Errorf("builder failed in round %d: %w", e.round, err)
	}
	if err := rc.Err(); err != nil {
		return nil, fmt.Errorf("builder failed in round %d: %w", e.round, err)
	}

	for _, d := range e.registry.Reconcile() {
		e.logger.Debug("engine.definition.retracted", "kind", string(d.Kind()), "name", d.Name())
	}

	step := core.NewStep()
	if ran := e.effects.Process(step); ran > 0 {
		e.logger.Debug("engine.effects.ran", "round", e.round, "count", ran)
	}

	input := e.assemble(step)

	req := core.Request{
		Instructions: input.Instructions,
		Contents:     input.Messages,
		Tools:        input.Tools,
		Params:       e.opts.Params,
		Stream:       e.opts.Stream,
	}

	modelStart := time.Now()
	final, attempts, err := e.consumeModel(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model call failed in round %d: %w", e.round, err)
	}
	e.logger.Debug(
		"engine.model.responded",
		"round", e.round,
		"model", e.mdl.Info().Name,
		"finish_reason", final.FinishReason,
		"duration_ms", time.Since(modelStart).Milliseconds(),
	)

	e.transcript.Append(final.Content)

	calls := final.Content.FunctionCalls()
	e.history.Append(core.Round{
		Index:           e.round,
		Input:           input,
		Output:          core.RoundOutput{Content: final.Content, FinishReason: final.FinishReason, Usage: final.Usage},
		Attempts:        attempts,
		ActiveToolNames: toolNames(input.Tools),
	})

	for _, c := range e.dispatchCalls(ctx, calls) {
		e.transcript.Append(c)
	}

	if applied := e.store.Flush(); applied > 0 {
		e.logger.Debug("engine.state.flushed", "round", e.round, "updates", applied)
	}
	e.round++

	return &roundOutcome{
		final:        len(calls) == 0,
		content:      final.Content,
		finishReason: final.FinishReason,
		usage:        final.Usage,
	}, nil
}

// consumeModel drains the model's response stream, recording every chunk as
// an attempt and returning the final response.
func (e *Engine) consumeModel(ctx context.Context, req core.Request) (core.Response, []core.Attempt, error) {
	respCh, errCh := e.mdl.Generate(ctx, req)

	var final core.Response
	var attempts []core.Attempt
	gotFinal := false

	for resp := range respCh {
		attempts = append(attempts, core.Attempt{Round: e.round, Partial: resp.Partial, Content: resp.Content})
		if resp.Partial {
			if e.opts.OnPartial != nil {
				e.opts.OnPartial(resp)
			}
			continue
		}
		final = resp
		gotFinal = true
	}

	if err := <-errCh; err != nil {
		return core.Response{}, attempts, err
	}
	if !gotFinal {
		return core.Response{}, attempts, fmt.Errorf("model %q closed the stream without a final response", e.mdl.Info().Name)
	}
	return final, attempts, nil
}
