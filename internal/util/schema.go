package util

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// SchemaToMap converts a JSON schema into the loosely typed map shape the
// provider SDKs expect for function parameters.
func SchemaToMap(s *jsonschema.Schema) map[string]any {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// ValidateValue checks value against schema. A nil schema accepts anything.
func ValidateValue(s *jsonschema.Schema, value any) error {
	if s == nil {
		return nil
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}
	return resolved.Validate(value)
}
