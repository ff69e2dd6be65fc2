// Package tool builds the declarative specs the engine dispatches: plain
// function tools with schema-validated arguments, composites that bundle
// several tools behind one call name, and agents that drive isolated child
// conversations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters, or let New derive one
//   - Handle errors gracefully; recovery belongs in OnError
//   - Follow consistent naming conventions (snake_case recommended)
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hupe1980/reagent/core"
)

// Func is a typed tool handler. Arguments arrive decoded into Args after
// schema validation.
type Func[Args any] func(toolCtx *core.ToolContext, args Args) (any, error)

// Options customize a constructed spec beyond name, description and handler.
type Options struct {
	// InputSchema overrides the schema derived from the Args type.
	InputSchema *jsonschema.Schema

	// ResponseSchema validates the call result; violations surface to the
	// model as structured errors.
	ResponseSchema *jsonschema.Schema

	BeforeCall core.BeforeCallFunc
	OnSuccess  core.OnSuccessFunc
	OnError    core.OnErrorFunc
}

// New constructs a function tool spec. The argument schema is derived from
// the Args type via reflection unless overridden; the handler receives the
// validated arguments decoded into Args.
func New[Args any](name, description string, fn Func[Args], optFns ...func(o *Options)) (*core.Spec, error) {
	opts := Options{}
	for _, optFn := range optFns {
		optFn(&opts)
	}

	schema := opts.InputSchema
	if schema == nil {
		derived, err := jsonschema.For[Args](nil)
		if err != nil {
			return nil, fmt.Errorf("derive schema for %q: %w", name, err)
		}
		schema = derived
	}

	spec := &core.Spec{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Execute: func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			var typed Args
			b, err := json.Marshal(args)
			if err != nil {
				return nil, fmt.Errorf("encode arguments for %q: %w", name, err)
			}
			if err := json.Unmarshal(b, &typed); err != nil {
				return nil, fmt.Errorf("decode arguments for %q: %w", name, err)
			}
			return fn(toolCtx, typed)
		},
		BeforeCall:     opts.BeforeCall,
		OnSuccess:      opts.OnSuccess,
		OnError:        opts.OnError,
		ResponseSchema: opts.ResponseSchema,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// MustNew is New, panicking on error. Intended for package-level tool
// declarations where a schema derivation failure is a programming error.
func MustNew[Args any](name, description string, fn Func[Args], optFns ...func(o *Options)) *core.Spec {
	spec, err := New(name, description, fn, optFns...)
	if err != nil {
		panic(err)
	}
	return spec
}

// Composite bundles sub-specs behind one visible call name. The model
// invokes the composite once with an ordered calls list; each sub-call is
// dispatched sequentially and reported as its own {name, result} entry.
func Composite(name, description string, subs ...*core.Spec) (*core.Spec, error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("composite %q: at least one sub-spec required", name)
	}
	m := make(map[string]*core.Spec, len(subs))
	for _, sub := range subs {
		if sub == nil {
			return nil, fmt.Errorf("composite %q: nil sub-spec", name)
		}
		if _, dup := m[sub.Name]; dup {
			return nil, fmt.Errorf("composite %q: duplicate sub-spec %q", name, sub.Name)
		}
		m[sub.Name] = sub
	}
	spec := &core.Spec{
		Name:        name,
		Description: description,
		Subs:        m,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// MustComposite is Composite, panicking on error.
func MustComposite(name, description string, subs ...*core.Spec) *core.Spec {
	spec, err := Composite(name, description, subs...)
	if err != nil {
		panic(err)
	}
	return spec
}

// AgentOptions customize an agent spec.
type AgentOptions struct {
	// InputSchema validates the delegation arguments. Nil accepts any
	// argument object.
	InputSchema *jsonschema.Schema

	// ResponseSchema validates the child's parsed final answer. Violations
	// surface to the parent model as structured errors.
	ResponseSchema *jsonschema.Schema

	// Child overrides the inherited model, params, logger or round limit of
	// the spawned child engine.
	Child core.ChildConfig

	BeforeCall core.BeforeCallFunc
	OnSuccess  core.OnSuccessFunc
	OnError    core.OnErrorFunc
}

// NewAgent constructs an agent spec. The run function becomes the builder of
// an isolated child engine that is driven to completion on every delegation;
// the child's final text is the call result.
func NewAgent(name, description string, run core.AgentFunc, optFns ...func(o *AgentOptions)) *core.Spec {
	opts := AgentOptions{}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	return &core.Spec{
		Name:           name,
		Description:    description,
		InputSchema:    opts.InputSchema,
		Run:            run,
		BeforeCall:     opts.BeforeCall,
		OnSuccess:      opts.OnSuccess,
		OnError:        opts.OnError,
		ResponseSchema: opts.ResponseSchema,
		Child:          opts.Child,
	}
}
