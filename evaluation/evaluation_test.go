package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/internal/testutil"
)

// -------------------- Invocation Tests --------------------

func TestNewInvocation_TakesLastRoundOutput(t *testing.T) {
	inv := NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("search").Build(),
		testutil.NewRoundBuilder(1).OutputText("The answer is 42.").Build(),
	})
	assert.Len(t, inv.Rounds, 2)
	assert.Equal(t, "The answer is 42.", inv.FinalResponse.Text())
}

func TestTrajectory_OrderedAcrossRounds(t *testing.T) {
	rounds := []core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("search", "fetch").Build(),
		testutil.NewRoundBuilder(1).OutputCalls("summarize").Build(),
		testutil.NewRoundBuilder(2).OutputText("done").Build(),
	}
	assert.Equal(t, []string{"search", "fetch", "summarize"}, Trajectory(rounds))
}

// -------------------- ToolTrajectoryEvaluator Tests --------------------

func TestToolTrajectory_ExactMatch(t *testing.T) {
	e := &ToolTrajectoryEvaluator{Expected: []string{"search", "summarize"}}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("search").Build(),
		testutil.NewRoundBuilder(1).OutputCalls("summarize").Build(),
		testutil.NewRoundBuilder(2).OutputText("done").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, res.Pass)
	assert.Empty(t, res.Reasons)
}

func TestToolTrajectory_WrongOrder(t *testing.T) {
	e := &ToolTrajectoryEvaluator{Expected: []string{"search", "summarize"}}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("summarize", "search").Build(),
		testutil.NewRoundBuilder(1).OutputText("done").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Pass)
	assert.Len(t, res.Reasons, 2)
}

func TestToolTrajectory_UnexpectedExtraCall(t *testing.T) {
	e := &ToolTrajectoryEvaluator{Expected: []string{"search"}}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("search", "fetch").Build(),
		testutil.NewRoundBuilder(1).OutputText("done").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 0.5, res.Score)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Reasons[0], "fetch")
}

func TestToolTrajectory_MissingCall(t *testing.T) {
	e := &ToolTrajectoryEvaluator{Expected: []string{"search", "fetch"}}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputCalls("search").Build(),
		testutil.NewRoundBuilder(1).OutputText("done").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 0.5, res.Score)
	assert.Contains(t, res.Reasons[0], "none issued")
}

func TestToolTrajectory_NothingExpectedNothingCalled(t *testing.T) {
	e := &ToolTrajectoryEvaluator{}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("done").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, res.Pass)
}

// -------------------- ResponseMatchEvaluator Tests --------------------

func TestResponseMatch_Perfect(t *testing.T) {
	e := &ResponseMatchEvaluator{Expected: "the answer is 42"}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("The answer is 42.").Build(),
	}))
	assert.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, res.Pass)
}

func TestResponseMatch_JoinsTextParts(t *testing.T) {
	e := &ResponseMatchEvaluator{Expected: "the answer is 42"}
	inv := Invocation{
		FinalResponse: testutil.NewContentBuilder().
			AssistantText("The answer ").
			AssistantText("is 42.").
			Build(),
	}
	res, err := e.Evaluate(inv)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestResponseMatch_PartialBelowDefaultThreshold(t *testing.T) {
	e := &ResponseMatchEvaluator{Expected: "answer is 42"}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("The answer is unknown.").Build(),
	}))
	assert.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, res.Score, 1e-9)
	assert.False(t, res.Pass)
	assert.Contains(t, res.Reasons[0], "42")
}

func TestResponseMatch_ThresholdAllowsPartial(t *testing.T) {
	e := &ResponseMatchEvaluator{Expected: "answer is 42", Threshold: 0.5}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("The answer is unknown.").Build(),
	}))
	assert.NoError(t, err)
	assert.True(t, res.Pass)
}

func TestResponseMatch_CountsWithMultiplicity(t *testing.T) {
	e := &ResponseMatchEvaluator{Expected: "go go go"}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("go go").Build(),
	}))
	assert.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, res.Score, 1e-9)
}

func TestResponseMatch_EmptyReferencePasses(t *testing.T) {
	e := &ResponseMatchEvaluator{}
	res, err := e.Evaluate(NewInvocation([]core.Round{
		testutil.NewRoundBuilder(0).OutputText("anything").Build(),
	}))
	assert.NoError(t, err)
	assert.True(t, res.Pass)
}
