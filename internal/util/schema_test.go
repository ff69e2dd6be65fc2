package util

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

func objectSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string"},
			"limit": {Type: "integer"},
		},
		Required: []string{"query"},
	}
}

func TestSchemaToMap(t *testing.T) {
	m := SchemaToMap(objectSchema())
	if m == nil {
		t.Fatal("expected a map")
	}
	if m["type"] != "object" {
		t.Errorf("expected type object, got %v", m["type"])
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", m)
	}
	if _, ok := props["query"]; !ok {
		t.Error("query property lost in conversion")
	}
	if SchemaToMap(nil) != nil {
		t.Error("nil schema should convert to nil")
	}
}

func TestValidateValue(t *testing.T) {
	s := objectSchema()

	if err := ValidateValue(s, map[string]any{"query": "go"}); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}
	if err := ValidateValue(s, map[string]any{"limit": 3}); err == nil {
		t.Error("missing required field should fail")
	}
	if err := ValidateValue(s, map[string]any{"query": 7}); err == nil {
		t.Error("wrong type should fail")
	}
	if err := ValidateValue(nil, map[string]any{"anything": true}); err != nil {
		t.Errorf("nil schema should accept anything, got %v", err)
	}
}
