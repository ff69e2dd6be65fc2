package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/internal/util"
	"github.com/hupe1980/reagent/registry"
)

// dispatchCalls executes the model's requested calls sequentially and wraps
// each outcome as a tool-role content. A failed call degrades to a
// structured error payload in its own response; it never aborts the round or
// the remaining calls.
func (e *Engine) dispatchCalls(ctx context.Context, calls []core.FunctionCall) []core.Content {
	out := make([]core.Content, 0, len(calls))
	for _, fc := range calls {
		out = append(out, core.NewToolContent(e.dispatchCall(ctx, fc)))
	}
	return out
}

func (e *Engine) dispatchCall(ctx context.Context, fc core.FunctionCall) core.FunctionResponse {
	start := time.Now()
	result, cerr := e.executeCall(ctx, fc)
	e.logger.Info(
		"engine.call.executed",
		"call", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", cerr != nil,
	)

	if cerr != nil {
		return core.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: cerr.Payload(),
			Error:    cerr.Message,
		}
	}
	return core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
}

// executeCall resolves a requested call against every declared tool and
// agent, including disabled ones, and runs it through the shared lifecycle.
func (e *Engine) executeCall(ctx context.Context, fc core.FunctionCall) (any, *core.CallError) {
	spec := e.lookupSpec(fc.Name)
	if spec == nil {
		return nil, core.NewCallError(fc.Name, fmt.Sprintf("no tool or agent named %q is declared", fc.Name), core.CodeResolution)
	}

	args, err := parseArgs(fc.Arguments)
	if err != nil {
		return nil, core.NewCallError(fc.Name, "arguments are not a JSON object: "+err.Error(), core.CodeValidation)
	}

	return e.runSpec(ctx, spec, fc.ID, fc.Name, args)
}

// lookupSpec resolves a call name to its spec. Tools shadow agents on a name
// collision.
func (e *Engine) lookupSpec(name string) *core.Spec {
	if d, ok := e.registry.Lookup(registry.KindTool, name); ok {
		if s, ok := d.Value().(*core.Spec); ok {
			return s
		}
	}
	if d, ok := e.registry.Lookup(registry.KindAgent, name); ok {
		if s, ok := d.Value().(*core.Spec); ok {
			return s
		}
	}
	return nil
}

// runSpec is the single call lifecycle shared by top-level calls and
// composite members: validate the arguments, give BeforeCall a chance to
// short-circuit, execute by form, run the OnSuccess or OnError callback, and
// finally validate the standing output against the response schema. The
// schema gate runs last on every successful path, so short-circuit values,
// replaced outputs and recovered outputs are all held to the same contract;
// a gate violation is terminal and never re-enters OnError.
func (e *Engine) runSpec(ctx context.Context, spec *core.Spec, callID, callName string, args map[string]any) (any, *core.CallError) {
	if schema := spec.Definition().InputSchema; schema != nil {
		if err := util.ValidateValue(schema, args); err != nil {
			return nil, core.NewCallError(callName, "invalid arguments: "+err.Error(), core.CodeValidation)
		}
	}

	toolCtx := core.NewToolContext(ctx, callID, callName, e.round, e.store, e.logger)

	var result any
	shortCircuited := false
	if spec.BeforeCall != nil {
		if early := spec.BeforeCall(toolCtx, args); early != nil {
			e.logger.Debug("engine.call.short_circuited", "call", callName)
			result = early
			shortCircuited = true
		}
	}

	if !shortCircuited {
		var cerr *core.CallError
		switch {
		case spec.IsComposite():
			result, cerr = e.runComposite(ctx, spec, callID, args)
		case spec.IsAgent():
			result, cerr = e.runAgent(ctx, spec, args)
		default:
			result, cerr = e.runHandler(spec, toolCtx, callName, args)
		}

		if cerr != nil {
			if spec.OnError != nil {
				if recovered := spec.OnError(toolCtx, args, cerr); recovered != nil {
					e.logger.Debug("engine.call.recovered", "call", callName, "code", cerr.Code)
					result = recovered
					cerr = nil
				}
			}
			if cerr != nil {
				return nil, cerr
			}
		} else if spec.OnSuccess != nil {
			if replaced := spec.OnSuccess(toolCtx, args, result); replaced != nil {
				result = replaced
			}
		}
	}

	if cerr := validateResponse(spec, callName, result); cerr != nil {
		return nil, cerr
	}
	return result, nil
}

// runHandler executes a plain tool handler, converting panics and raw errors
// to call errors.
func (e *Engine) runHandler(spec *core.Spec, toolCtx *core.ToolContext, callName string, args map[string]any) (result any, cerr *core.CallError) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				e.logger.Error("engine.call.panic", "call", callName, "recover", r)
			}
		}()
		result, err = spec.Execute(toolCtx, args)
	}()

	if err != nil {
		var existing *core.CallError
		if errors.As(err, &existing) {
			return nil, existing
		}
		return nil, core.NewCallError(callName, err.Error(), core.CodeExecution)
	}
	return result, nil
}

// runComposite executes the requested members sequentially. Every requested
// sub-call produces exactly one entry in order; a member failure or an
// unknown member name degrades that entry to an error payload and the rest
// still run.
func (e *Engine) runComposite(ctx context.Context, spec *core.Spec, callID string, args map[string]any) (any, *core.CallError) {
	subCalls, err := parseSubCalls(args)
	if err != nil {
		return nil, core.NewCallError(spec.Name, "invalid composite call list: "+err.Error(), core.CodeValidation)
	}

	results := make([]core.SubResult, 0, len(subCalls))
	for _, sub := range subCalls {
		if err := ctx.Err(); err != nil {
			cerr := core.NewCallError(sub.Name, err.Error(), core.CodeExecution)
			results = append(results, core.SubResult{Name: sub.Name, Result: cerr.Payload()})
			continue
		}

		member, ok := spec.Subs[sub.Name]
		if !ok {
			cerr := core.NewCallError(sub.Name, fmt.Sprintf("composite %q has no member %q", spec.Name, sub.Name), core.CodeResolution)
			results = append(results, core.SubResult{Name: sub.Name, Result: cerr.Payload()})
			continue
		}

		subArgs := sub.Args
		if subArgs == nil {
			subArgs = map[string]any{}
		}

		res, cerr := e.runSpec(ctx, member, callID, sub.Name, subArgs)
		if cerr != nil {
			results = append(results, core.SubResult{Name: sub.Name, Result: cerr.Payload()})
			continue
		}
		results = append(results, core.SubResult{Name: sub.Name, Result: res})
	}
	return results, nil
}

// runAgent spawns an isolated child engine for the spec and runs it to
// completion. With a response schema declared the child's final text must
// parse as JSON; the parsed value is validated by the shared lifecycle.
func (e *Engine) runAgent(ctx context.Context, spec *core.Spec, args map[string]any) (any, *core.CallError) {
	child := e.newChild(spec, args)
	e.logger.Debug("engine.agent.spawned", "agent", spec.Name, "child_run_id", child.runID, "depth", child.depth)

	res, err := child.Run(ctx)
	if err != nil {
		return nil, core.NewCallError(spec.Name, "agent run failed: "+err.Error(), core.CodeExecution)
	}

	if spec.ResponseSchema == nil {
		return res.Text, nil
	}

	var parsed any
	if err := util.Unmarshal([]byte(res.Text), &parsed); err != nil {
		return nil, core.NewCallError(spec.Name, "final answer is not valid JSON: "+err.Error(), core.CodeResponseValidation)
	}
	return parsed, nil
}

// validateResponse checks a result against the spec's response schema. The
// value is normalized through JSON first so struct results validate the same
// way their wire form would.
func validateResponse(spec *core.Spec, callName string, result any) *core.CallError {
	if spec.ResponseSchema == nil {
		return nil
	}
	if err := util.ValidateValue(spec.ResponseSchema, normalizeJSON(result)); err != nil {
		return core.NewCallError(callName, "result rejected by response schema: "+err.Error(), core.CodeResponseValidation)
	}
	return nil
}

// normalizeJSON round-trips a value through JSON. Values that cannot be
// marshaled validate as-is.
func normalizeJSON(v any) any {
	switch v.(type) {
	case nil, string, bool, float64, int, int64, map[string]any, []any:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// parseArgs decodes a raw argument string into a map, treating empty input
// as an empty object and repairing malformed JSON where possible.
func parseArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := util.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// parseSubCalls extracts the ordered member invocations from composite
// arguments.
func parseSubCalls(args map[string]any) ([]core.SubCall, error) {
	raw, ok := args["calls"]
	if !ok {
		return nil, errors.New(`missing "calls"`)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var subCalls []core.SubCall
	if err := json.Unmarshal(data, &subCalls); err != nil {
		return nil, err
	}
	return subCalls, nil
}

// panicError converts a recovered panic value to an error carrying the stack.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
