package testutil

import (
	"github.com/hupe1980/reagent/core"
)

// ContentBuilder provides a fluent helper for constructing content in tests.
// Example:
//
//	c := NewContentBuilder().AssistantText("hello").FunctionCall("fc-1", "search", `{"q":"go"}`).Build()
//
// Chain only the parts you need; the role defaults to assistant.
type ContentBuilder struct {
	role  string
	parts []core.Part
}

// NewContentBuilder creates an empty builder.
func NewContentBuilder() *ContentBuilder { return &ContentBuilder{} }

// Role overrides the content role (chainable).
func (b *ContentBuilder) Role(r string) *ContentBuilder { b.role = r; return b }

// UserText appends a text part and sets role to user (chainable).
func (b *ContentBuilder) UserText(t string) *ContentBuilder {
	b.role = core.RoleUser
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// AssistantText appends a text part and sets role to assistant (chainable).
func (b *ContentBuilder) AssistantText(t string) *ContentBuilder {
	b.role = core.RoleAssistant
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// FunctionCall adds a function call part with the provided id, name and JSON
// argument string (chainable).
func (b *ContentBuilder) FunctionCall(id, name, args string) *ContentBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{
		FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args},
	})
	return b
}

// FunctionResponse adds a function response part representing dispatch output
// and sets role to tool (chainable).
func (b *ContentBuilder) FunctionResponse(id, name string, result any, err error) *ContentBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: fr})
	return b
}

// AddPart appends a custom content part (chainable).
func (b *ContentBuilder) AddPart(p core.Part) *ContentBuilder {
	b.parts = append(b.parts, p)
	return b
}

// Build constructs the core.Content value.
func (b *ContentBuilder) Build() core.Content {
	role := b.role
	if role == "" {
		role = core.RoleAssistant
	}
	return core.Content{Role: role, Parts: b.parts}
}
