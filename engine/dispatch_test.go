package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/model"
	"github.com/hupe1980/reagent/tool"
)

// runSingleCall scripts one round of tool calls followed by a closing text
// and returns the tool responses the model saw in round 1.
func runSingleCall(t *testing.T, builder core.Builder, calls ...core.FunctionCall) []core.FunctionResponse {
	t.Helper()

	mock := model.NewMockModel("scripted")
	mock.QueueToolCalls(calls...)
	mock.QueueText("done")

	_, err := New(builder, mock).Run(context.Background())
	assert.NoError(t, err)

	if len(mock.Requests()) != 2 {
		t.Fatalf("expected 2 model requests, got %d", len(mock.Requests()))
	}
	return toolResponses(mock.Requests()[1])
}

func errorPayload(t *testing.T, fr core.FunctionResponse) core.ErrorPayload {
	t.Helper()
	payload, ok := fr.Response.(core.ErrorPayload)
	if !ok {
		t.Fatalf("expected an error payload, got %T", fr.Response)
	}
	return payload
}

// -------------------- Single Call Lifecycle Tests --------------------

func TestDispatch_UnknownCallName(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(noopTool())
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "ghost", Arguments: "{}"})
	if len(frs) != 1 {
		t.Fatalf("expected one tool response, got %d", len(frs))
	}
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeResolution, payload.Error)
	assert.Contains(t, frs[0].Error, "ghost")
}

func TestDispatch_InputValidationSkipsHandler(t *testing.T) {
	type echoArgs struct {
		Message string `json:"message"`
	}

	invoked := false
	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("echo", "Repeats the message", func(_ *core.ToolContext, args echoArgs) (any, error) {
			invoked = true
			return args.Message, nil
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "echo", Arguments: `{"message": 7}`})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeValidation, payload.Error)
	assert.False(t, invoked)
}

func TestDispatch_MalformedArgumentsRepaired(t *testing.T) {
	type echoArgs struct {
		Message string `json:"message"`
	}

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("echo", "Repeats the message", func(_ *core.ToolContext, args echoArgs) (any, error) {
			return args.Message, nil
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	// Trailing comma is repairable, so the call still goes through.
	frs := runSingleCall(t, builder, core.FunctionCall{Name: "echo", Arguments: `{"message": "hi",}`})
	assert.Equal(t, "hi", frs[0].Response)
	assert.Empty(t, frs[0].Error)
}

func TestDispatch_BeforeCallShortCircuits(t *testing.T) {
	invoked := false
	cached := map[string]any{"cached": true}

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("lookup", "Cached lookup", func(_ *core.ToolContext, _ struct{}) (any, error) {
			invoked = true
			return "fresh", nil
		}, func(o *tool.Options) {
			o.BeforeCall = func(_ *core.ToolContext, _ map[string]any) any { return cached }
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "lookup", Arguments: "{}"})
	assert.Equal(t, cached, frs[0].Response)
	assert.False(t, invoked)
}

func TestDispatch_OnSuccessReplacesResult(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("fetch", "Fetches raw data", func(_ *core.ToolContext, _ struct{}) (any, error) {
			return "raw", nil
		}, func(o *tool.Options) {
			o.OnSuccess = func(_ *core.ToolContext, _ map[string]any, output any) any {
				return fmt.Sprintf("polished %v", output)
			}
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "fetch", Arguments: "{}"})
	assert.Equal(t, "polished raw", frs[0].Response)
}

func TestDispatch_PanicBecomesExecutionError(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("explode", "Panics", func(_ *core.ToolContext, _ struct{}) (any, error) {
			panic("kaboom")
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "explode", Arguments: "{}"})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeExecution, payload.Error)
	assert.Contains(t, payload.Message, "kaboom")
}

func TestDispatch_ResponseSchemaRejectsResult(t *testing.T) {
	statusSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"status": {Type: "string"},
		},
		Required: []string{"status"},
	}

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("report", "Reports status", func(_ *core.ToolContext, _ struct{}) (any, error) {
			return map[string]any{"ok": true}, nil
		}, func(o *tool.Options) {
			o.ResponseSchema = statusSchema
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "report", Arguments: "{}"})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeResponseValidation, payload.Error)
}

func TestDispatch_RecoveredValueMeetingSchema(t *testing.T) {
	statusSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"status": {Type: "string"},
		},
		Required: []string{"status"},
	}
	fallback := map[string]any{"status": "degraded"}

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("flaky", "Fails and recovers", func(_ *core.ToolContext, _ struct{}) (any, error) {
			return nil, errors.New("upstream down")
		}, func(o *tool.Options) {
			o.ResponseSchema = statusSchema
			o.OnError = func(_ *core.ToolContext, _ map[string]any, _ error) any { return fallback }
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "flaky", Arguments: "{}"})
	assert.Equal(t, fallback, frs[0].Response)
	assert.Empty(t, frs[0].Error)
}

func TestDispatch_RecoveredValueStillValidated(t *testing.T) {
	statusSchema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"status": {Type: "string"},
		},
		Required: []string{"status"},
	}

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustNew("flaky", "Fails and recovers badly", func(_ *core.ToolContext, _ struct{}) (any, error) {
			return nil, errors.New("upstream down")
		}, func(o *tool.Options) {
			o.ResponseSchema = statusSchema
			o.OnError = func(_ *core.ToolContext, _ map[string]any, _ error) any {
				return map[string]any{"fallback": true}
			}
		}))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	// The recovered output misses the schema; the gate failure is terminal.
	frs := runSingleCall(t, builder, core.FunctionCall{Name: "flaky", Arguments: "{}"})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeResponseValidation, payload.Error)
}

// -------------------- Composite Tests --------------------

type riskyArgs struct {
	X float64 `json:"x,omitempty"`
}

func opsComposite(onErrorResult any) *core.Spec {
	safe := tool.MustNew("safe", "Always succeeds", func(_ *core.ToolContext, _ struct{}) (any, error) {
		return "fine", nil
	})
	risky := tool.MustNew("risky", "Fails when x is zero", func(_ *core.ToolContext, args riskyArgs) (any, error) {
		if args.X == 0 {
			return nil, errors.New("x must be non-zero")
		}
		return args.X, nil
	}, func(o *tool.Options) {
		if onErrorResult != nil {
			o.OnError = func(_ *core.ToolContext, _ map[string]any, _ error) any { return onErrorResult }
		}
	})
	return tool.MustComposite("ops", "Bundled operations", safe, risky)
}

func TestDispatch_CompositeOrderedWithRecovery(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(opsComposite(map[string]any{"handled": true}))
		if rc.Round() == 0 {
			rc.User("run both")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{
		Name:      "ops",
		Arguments: `{"calls": [{"name": "safe"}, {"name": "risky"}]}`,
	})
	if len(frs) != 1 {
		t.Fatalf("expected one tool response, got %d", len(frs))
	}

	subs, ok := frs[0].Response.([]core.SubResult)
	if !ok {
		t.Fatalf("expected sub results, got %T", frs[0].Response)
	}
	if len(subs) != 2 {
		t.Fatalf("expected two sub results, got %d", len(subs))
	}
	assert.Equal(t, "safe", subs[0].Name)
	assert.Equal(t, "fine", subs[0].Result)
	assert.Equal(t, "risky", subs[1].Name)
	assert.Equal(t, map[string]any{"handled": true}, subs[1].Result)
	assert.Empty(t, frs[0].Error)
}

func TestDispatch_CompositeIsolatesFailures(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(opsComposite(nil))
		if rc.Round() == 0 {
			rc.User("run both")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{
		Name:      "ops",
		Arguments: `{"calls": [{"name": "risky"}, {"name": "safe"}]}`,
	})
	subs, ok := frs[0].Response.([]core.SubResult)
	if !ok {
		t.Fatalf("expected sub results, got %T", frs[0].Response)
	}

	// The first member failed unrecovered yet the second still ran.
	payload, ok := subs[0].Result.(core.ErrorPayload)
	if !ok {
		t.Fatalf("expected an error payload, got %T", subs[0].Result)
	}
	assert.Equal(t, core.CodeExecution, payload.Error)
	assert.Equal(t, "fine", subs[1].Result)
}

func TestDispatch_CompositeUnknownMember(t *testing.T) {
	builder := func(rc *core.RoundContext) error {
		rc.Tool(opsComposite(nil))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{
		Name:      "ops",
		Arguments: `{"calls": [{"name": "safe"}, {"name": "nope"}]}`,
	})
	subs, ok := frs[0].Response.([]core.SubResult)
	if !ok {
		t.Fatalf("expected sub results, got %T", frs[0].Response)
	}
	if len(subs) != 2 {
		t.Fatalf("expected two sub results, got %d", len(subs))
	}
	assert.Equal(t, "fine", subs[0].Result)

	payload, ok := subs[1].Result.(core.ErrorPayload)
	if !ok {
		t.Fatalf("expected an error payload, got %T", subs[1].Result)
	}
	assert.Equal(t, core.CodeResolution, payload.Error)
}

// -------------------- Agent Tests --------------------

func analystSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"summary": {Type: "string"},
			"score":   {Type: "number"},
		},
		Required: []string{"summary", "score"},
	}
}

func analystAgent(child core.Model, schema *jsonschema.Schema) *core.Spec {
	return tool.NewAgent("analyst", "Scores a candidate",
		func(rc *core.RoundContext, args map[string]any) error {
			rc.System("role", "You are a strict analyst.")
			if rc.Round() == 0 {
				rc.User(fmt.Sprintf("Analyze %v.", args["candidate"]))
			}
			return nil
		},
		func(o *tool.AgentOptions) {
			o.ResponseSchema = schema
			o.Child = core.ChildConfig{Model: child}
		})
}

func TestDispatch_AgentDelegation(t *testing.T) {
	child := model.NewMockModel("child")
	child.QueueText("solid candidate")

	builder := func(rc *core.RoundContext) error {
		rc.Agent(analystAgent(child, nil))
		if rc.Round() == 0 {
			rc.User("Assess Jo.")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "analyst", Arguments: `{"candidate": "Jo"}`})
	assert.Equal(t, "solid candidate", frs[0].Response)
	assert.Empty(t, frs[0].Error)

	// The child ran against its own model with its own transcript.
	assert.Len(t, child.Requests(), 1)
	assert.Equal(t, []string{"Analyze Jo."}, roleTexts(child.Requests()[0], core.RoleUser))
}

func TestDispatch_AgentParsedAnswerValidates(t *testing.T) {
	child := model.NewMockModel("child")
	child.QueueText(`{"summary": "strong profile", "score": 0.87}`)

	builder := func(rc *core.RoundContext) error {
		rc.Agent(analystAgent(child, analystSchema()))
		if rc.Round() == 0 {
			rc.User("Score Jo.")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "analyst", Arguments: `{"candidate": "Jo"}`})
	assert.Equal(t, map[string]any{"summary": "strong profile", "score": 0.87}, frs[0].Response)
	assert.Empty(t, frs[0].Error)
}

func TestDispatch_AgentAnswerMissingRequiredField(t *testing.T) {
	child := model.NewMockModel("child")
	child.QueueText(`{"summary": "ok"}`)

	builder := func(rc *core.RoundContext) error {
		rc.Agent(analystAgent(child, analystSchema()))
		if rc.Round() == 0 {
			rc.User("Score Jo.")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "analyst", Arguments: `{"candidate": "Jo"}`})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeResponseValidation, payload.Error)
	assert.NotEmpty(t, frs[0].Error)
}

func TestDispatch_AgentNonJSONAnswerWithSchema(t *testing.T) {
	child := model.NewMockModel("child")
	child.QueueText("I would rate this candidate quite highly.")

	builder := func(rc *core.RoundContext) error {
		rc.Agent(analystAgent(child, analystSchema()))
		if rc.Round() == 0 {
			rc.User("Score Jo.")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{Name: "analyst", Arguments: `{"candidate": "Jo"}`})
	payload := errorPayload(t, frs[0])
	assert.Equal(t, core.CodeResponseValidation, payload.Error)
}

func TestDispatch_CompositeWithAgentMember(t *testing.T) {
	child := model.NewMockModel("child")
	child.QueueText("summary done")

	summarize := tool.NewAgent("summarize", "Summarizes input",
		func(rc *core.RoundContext, args map[string]any) error {
			if rc.Round() == 0 {
				rc.User(fmt.Sprintf("Summarize: %v", args["text"]))
			}
			return nil
		},
		func(o *tool.AgentOptions) {
			o.Child = core.ChildConfig{Model: child}
		})
	echo := tool.MustNew("echo", "Echoes text", func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["text"], nil
	})

	builder := func(rc *core.RoundContext) error {
		rc.Tool(tool.MustComposite("research", "Echo then summarize", echo, summarize))
		if rc.Round() == 0 {
			rc.User("go")
		}
		return nil
	}

	frs := runSingleCall(t, builder, core.FunctionCall{
		Name:      "research",
		Arguments: `{"calls": [{"name": "echo", "args": {"text": "hello"}}, {"name": "summarize", "args": {"text": "hello"}}]}`,
	})
	subs, ok := frs[0].Response.([]core.SubResult)
	if !ok {
		t.Fatalf("expected sub results, got %T", frs[0].Response)
	}
	assert.Equal(t, "hello", subs[0].Result)
	assert.Equal(t, "summary done", subs[1].Result)
}
