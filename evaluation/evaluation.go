// Package evaluation scores completed runs against expectations: the tool
// trajectory the model actually took, and how closely its final answer
// matches a reference response. Evaluators operate on the recorded round
// history, so they work on any finished run regardless of which model
// produced it.
package evaluation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hupe1980/reagent/core"
)

// Invocation is one completed run under evaluation.
type Invocation struct {
	Rounds        []core.Round
	FinalResponse core.Content
}

// NewInvocation derives an invocation from recorded rounds, taking the last
// round's model output as the final response.
func NewInvocation(rounds []core.Round) Invocation {
	inv := Invocation{Rounds: rounds}
	if n := len(rounds); n > 0 {
		inv.FinalResponse = rounds[n-1].Output.Content
	}
	return inv
}

// Result carries a normalized score in [0, 1]. Reasons explain every lost
// point; an empty list accompanies a perfect score.
type Result struct {
	Score   float64
	Pass    bool
	Reasons []string
}

// Evaluator scores one invocation.
type Evaluator interface {
	Evaluate(invocation Invocation) (*Result, error)
}

// Trajectory extracts the tool call names issued across the rounds of a run,
// in round order then call order.
func Trajectory(rounds []core.Round) []string {
	var names []string
	for _, r := range rounds {
		for _, fc := range r.Output.Content.FunctionCalls() {
			names = append(names, fc.Name)
		}
	}
	return names
}

// ToolTrajectoryEvaluator compares the observed tool trajectory against an
// expected one position by position. The score is the fraction of agreeing
// positions, normalized by the longer trajectory; 1.0 means the model called
// exactly the expected tools in the expected order.
type ToolTrajectoryEvaluator struct {
	Expected []string
}

// Evaluate implements Evaluator.
func (e *ToolTrajectoryEvaluator) Evaluate(invocation Invocation) (*Result, error) {
	observed := Trajectory(invocation.Rounds)
	n := len(e.Expected)
	if len(observed) > n {
		n = len(observed)
	}
	if n == 0 {
		return &Result{Score: 1, Pass: true}, nil
	}

	matches := 0
	var reasons []string
	for i := 0; i < n; i++ {
		switch {
		case i >= len(observed):
			reasons = append(reasons, fmt.Sprintf("step %d: expected call %q, none issued", i, e.Expected[i]))
		case i >= len(e.Expected):
			reasons = append(reasons, fmt.Sprintf("step %d: unexpected call %q", i, observed[i]))
		case observed[i] != e.Expected[i]:
			reasons = append(reasons, fmt.Sprintf("step %d: expected call %q, got %q", i, e.Expected[i], observed[i]))
		default:
			matches++
		}
	}

	return &Result{
		Score:   float64(matches) / float64(n),
		Pass:    matches == n,
		Reasons: reasons,
	}, nil
}

// ResponseMatchEvaluator scores the final response text against a reference
// answer by unigram recall: the fraction of reference words, counted with
// multiplicity and compared case-insensitively, that appear in the response.
type ResponseMatchEvaluator struct {
	Expected string

	// Threshold is the minimum passing score. The zero value requires a
	// perfect match.
	Threshold float64
}

// Evaluate implements Evaluator.
func (e *ResponseMatchEvaluator) Evaluate(invocation Invocation) (*Result, error) {
	expected := tokenize(e.Expected)
	if len(expected) == 0 {
		return &Result{Score: 1, Pass: true}, nil
	}

	available := map[string]int{}
	for _, tok := range tokenize(invocation.FinalResponse.Text()) {
		available[tok]++
	}

	hits := 0
	var missing []string
	for _, tok := range expected {
		if available[tok] > 0 {
			available[tok]--
			hits++
		} else {
			missing = append(missing, tok)
		}
	}

	threshold := e.Threshold
	if threshold == 0 {
		threshold = 1
	}
	score := float64(hits) / float64(len(expected))

	res := &Result{Score: score, Pass: score >= threshold}
	if len(missing) > 0 {
		res.Reasons = append(res.Reasons, "missing from response: "+strings.Join(missing, ", "))
	}
	return res, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
