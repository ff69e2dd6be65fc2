package engine

import (
	"errors"

	"github.com/hupe1980/reagent/core"
)

// ErrMaxRounds is returned when a run consumes its round budget without the
// model producing a final answer.
var ErrMaxRounds = errors.New("max rounds reached")

// Result is the outcome of a completed run: the final answer plus this run's
// per-round records and the settled state.
type Result struct {
	// Text is the model's final answer.
	Text string

	// Content is the complete final assistant content, including any
	// non-text parts.
	Content core.Content

	// FinishReason reports why the model stopped.
	FinishReason string

	// Rounds are this run's simplified round records, one per round.
	Rounds []core.Round

	// Attempts are this run's streamed chunks, including partials.
	Attempts []core.Attempt

	// State snapshots the resolved store after the final flush.
	State map[string]any

	// Reminded lists the kind:name identifiers of definitions flagged via
	// Handle.Remind and re-emphasized to the model since the previous
	// result consumed them.
	Reminded []string

	// Usage aggregates token counts across this run's rounds.
	Usage core.TokenUsage
}

// buildResult assembles the caller-facing outcome from the rounds this run
// appended to the history.
func (e *Engine) buildResult(runStart int, outcome *roundOutcome, usage core.TokenUsage) *Result {
	var rounds []core.Round
	for _, r := range e.history.Rounds() {
		if r.Index >= runStart {
			rounds = append(rounds, r)
		}
	}
	var attempts []core.Attempt
	for _, a := range e.history.Attempts() {
		if a.Round >= runStart {
			attempts = append(attempts, a)
		}
	}
	reminded := e.remindLog
	e.remindLog = nil
	return &Result{
		Text:         outcome.content.Text(),
		Content:      outcome.content,
		FinishReason: outcome.finishReason,
		Rounds:       rounds,
		Attempts:     attempts,
		State:        e.store.Snapshot(),
		Reminded:     reminded,
		Usage:        usage,
	}
}
