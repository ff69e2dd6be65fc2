package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hupe1980/reagent/logging"
)

// HandlerFunc executes a single tool call with validated arguments.
type HandlerFunc func(toolCtx *ToolContext, args map[string]any) (any, error)

// AgentFunc declares a child engine's conversation. The round context belongs
// to the isolated child engine; the function is re-invoked as the child's
// builder every child round with the same arguments.
type AgentFunc func(rc *RoundContext, args map[string]any) error

// BeforeCallFunc runs before the handler. A non-nil return value becomes the
// call result and the handler is skipped entirely.
type BeforeCallFunc func(toolCtx *ToolContext, args map[string]any) any

// OnSuccessFunc runs after a successful handler. A non-nil return value
// replaces the handler output.
type OnSuccessFunc func(toolCtx *ToolContext, args map[string]any, output any) any

// OnErrorFunc runs when execution fails. A non-nil return value recovers the
// call with that value as its result; the recovered value is still held to
// any declared response schema.
type OnErrorFunc func(toolCtx *ToolContext, args map[string]any, err error) any

// ChildConfig controls how an agent's child engine is constructed. A zero
// value inherits everything from the dispatching parent; any non-zero field
// overrides the inherited one.
type ChildConfig struct {
	Model     Model          // nil inherits the parent model
	Params    *Params        // nil inherits the parent sampling params
	Logger    logging.Logger // nil inherits the parent logger
	MaxRounds int            // 0 inherits the parent limit
}

// SubCall is one member invocation of a composite call, in the order given by
// the model.
type SubCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// SubResult pairs a sub-call name with its isolated result. Composite dispatch
// returns one entry per requested sub-call, preserving call order.
type SubResult struct {
	Name   string `json:"name"`
	Result any    `json:"result"`
}

// Spec is the declarative tool/agent specification. Exactly one execution
// form must be set:
//
//   - Execute: a single tool handler
//   - Subs: a composite grouping named sub-specs under one visible call name;
//     the model invokes it once with an ordered "calls" list
//   - Run: an agent that drives an isolated child engine to completion
//
// BeforeCall/OnSuccess/OnError wrap execution; ResponseSchema validates the
// (possibly recovered) output, or for agents the child's parsed final text.
// Re-declaring the same *Spec pointer across rounds keeps the definition
// unchanged; a new pointer counts as a changed definition.
type Spec struct {
	Name        string
	Description string

	// InputSchema validates the argument object before execution. For
	// composites a schema over the "calls" list is generated when nil.
	InputSchema *jsonschema.Schema

	Execute HandlerFunc
	Subs    map[string]*Spec
	Run     AgentFunc

	BeforeCall BeforeCallFunc
	OnSuccess  OnSuccessFunc
	OnError    OnErrorFunc

	ResponseSchema *jsonschema.Schema

	// Child configures agent child engines; ignored for plain tools.
	Child ChildConfig
}

// IsComposite reports whether the spec groups sub-specs.
func (s *Spec) IsComposite() bool { return len(s.Subs) > 0 }

// IsAgent reports whether the spec spawns a child engine.
func (s *Spec) IsAgent() bool { return s.Run != nil }

// Validate checks structural consistency of the spec.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec name must not be empty")
	}
	forms := 0
	if s.Execute != nil {
		forms++
	}
	if len(s.Subs) > 0 {
		forms++
	}
	if s.Run != nil {
		forms++
	}
	if forms != 1 {
		return fmt.Errorf("spec %q: exactly one of Execute, Subs or Run must be set", s.Name)
	}
	for name, sub := range s.Subs {
		if sub == nil {
			return fmt.Errorf("spec %q: sub-spec %q is nil", s.Name, name)
		}
		if sub.IsComposite() {
			return fmt.Errorf("spec %q: sub-spec %q: composites cannot nest", s.Name, name)
		}
	}
	return nil
}

// Definition projects the spec into the tool definition shown to the model.
func (s *Spec) Definition() ToolDefinition {
	schema := s.InputSchema
	if schema == nil && s.IsComposite() {
		schema = s.compositeSchema()
	}
	return ToolDefinition{Name: s.Name, Description: s.Description, InputSchema: schema}
}

// compositeSchema generates the calls-list schema for a composite spec: an
// ordered array of {name, args} pairs. Member names are listed in the
// description rather than an enum so that an unknown name degrades to a
// per-entry dispatch error instead of invalidating the whole call.
func (s *Spec) compositeSchema() *jsonschema.Schema {
	names := make([]string, 0, len(s.Subs))
	for name := range s.Subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"calls": {
				Type:        "array",
				Description: "Sub-calls to dispatch sequentially, in order",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name": {
							Type:        "string",
							Description: "Member to invoke. One of: " + strings.Join(names, ", "),
						},
						"args": {Type: "object"},
					},
					Required: []string{"name"},
				},
			},
		},
		Required: []string{"calls"},
	}
}
