package core

import (
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

func noopHandler(*ToolContext, map[string]any) (any, error) { return nil, nil }

func TestSpec_Validate(t *testing.T) {
	if err := (&Spec{Execute: noopHandler}).Validate(); err == nil {
		t.Error("empty name must be rejected")
	}
	if err := (&Spec{Name: "t"}).Validate(); err == nil {
		t.Error("spec without an execution form must be rejected")
	}
	if err := (&Spec{Name: "t", Execute: noopHandler, Run: func(*RoundContext, map[string]any) error { return nil }}).Validate(); err == nil {
		t.Error("two execution forms must be rejected")
	}
	if err := (&Spec{Name: "t", Execute: noopHandler}).Validate(); err != nil {
		t.Errorf("plain tool spec should validate, got %v", err)
	}

	nested := &Spec{
		Name: "outer",
		Subs: map[string]*Spec{
			"inner": {Name: "inner", Subs: map[string]*Spec{"leaf": {Name: "leaf", Execute: noopHandler}}},
		},
	}
	err := nested.Validate()
	if err == nil || !strings.Contains(err.Error(), "nest") {
		t.Errorf("nested composite must be rejected, got %v", err)
	}

	if err := (&Spec{Name: "t", Subs: map[string]*Spec{"a": nil}}).Validate(); err == nil {
		t.Error("nil sub-spec must be rejected")
	}
}

func TestSpec_FormPredicates(t *testing.T) {
	tool := &Spec{Name: "t", Execute: noopHandler}
	comp := &Spec{Name: "c", Subs: map[string]*Spec{"a": {Name: "a", Execute: noopHandler}}}
	agent := &Spec{Name: "g", Run: func(*RoundContext, map[string]any) error { return nil }}

	if tool.IsComposite() || tool.IsAgent() {
		t.Error("plain tool misclassified")
	}
	if !comp.IsComposite() || comp.IsAgent() {
		t.Error("composite misclassified")
	}
	if agent.IsComposite() || !agent.IsAgent() {
		t.Error("agent misclassified")
	}
}

func TestSpec_CompositeDefinitionSchema(t *testing.T) {
	comp := &Spec{
		Name:        "image_ops",
		Description: "Batched image operations",
		Subs: map[string]*Spec{
			"resize":  {Name: "resize", Execute: noopHandler},
			"export":  {Name: "export", Execute: noopHandler},
			"sharpen": {Name: "sharpen", Execute: noopHandler},
		},
	}

	def := comp.Definition()
	if def.Name != "image_ops" || def.InputSchema == nil {
		t.Fatalf("unexpected definition: %+v", def)
	}

	calls, ok := def.InputSchema.Properties["calls"]
	if !ok || calls.Type != "array" {
		t.Fatalf("generated schema must expose an ordered calls array: %+v", def.InputSchema)
	}
	name := calls.Items.Properties["name"]
	// Member names are documented, not enforced, so an unknown name fails
	// per entry instead of failing the whole call.
	if !strings.Contains(name.Description, "export, resize, sharpen") {
		t.Errorf("member names missing or unsorted in description: %q", name.Description)
	}
	if len(name.Enum) != 0 {
		t.Errorf("member names must not be an enum: %v", name.Enum)
	}
}

func TestSpec_ExplicitSchemaWins(t *testing.T) {
	own := &Spec{Name: "t", Execute: noopHandler}
	if def := own.Definition(); def.InputSchema != nil {
		t.Errorf("plain tool without schema should project nil, got %+v", def.InputSchema)
	}

	custom := &jsonschema.Schema{Type: "object"}
	comp := &Spec{
		Name:        "batch",
		InputSchema: custom,
		Subs:        map[string]*Spec{"a": {Name: "a", Execute: noopHandler}},
	}
	if def := comp.Definition(); def.InputSchema != custom {
		t.Error("explicit input schema must override the generated calls schema")
	}
}
