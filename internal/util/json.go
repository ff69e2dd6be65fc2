package util

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// Unmarshal decodes JSON into v. If decoding fails with a syntax error the
// input is run through jsonrepair and decoded again; model-produced argument
// payloads are occasionally truncated, single-quoted or trailing-comma'd,
// and repair keeps those calls dispatchable.
func Unmarshal(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

// Stringify renders a value for embedding in prompt or message text.
// Strings pass through untouched; other values render as compact JSON with
// a fmt fallback for unmarshalable types.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case error:
		return t.Error()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
