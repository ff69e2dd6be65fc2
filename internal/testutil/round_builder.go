package testutil

import (
	"fmt"

	"github.com/hupe1980/reagent/core"
)

// RoundBuilder helps construct round records with fluent chaining for tests.
// Example:
//
//	r := NewRoundBuilder(0).UserMessage("hi").OutputCalls("search").Build()
//
// A fresh builder produces a round whose output is an empty final response.
type RoundBuilder struct {
	index    int
	input    core.RoundInput
	output   core.RoundOutput
	attempts []core.Attempt
	tools    []string
}

// NewRoundBuilder creates a new builder for a round with the given index.
// Use chainable methods then call Build.
func NewRoundBuilder(index int) *RoundBuilder {
	return &RoundBuilder{
		index:  index,
		output: core.RoundOutput{FinishReason: core.FinishStop},
	}
}

// Instructions sets the assembled instruction text (chainable).
func (b *RoundBuilder) Instructions(text string) *RoundBuilder {
	b.input.Instructions = text
	return b
}

// UserMessage appends a user message to the round input (chainable).
func (b *RoundBuilder) UserMessage(text string) *RoundBuilder {
	b.input.Messages = append(b.input.Messages, core.NewUserContent(text))
	return b
}

// Variable sets a resolved variable on the round input (chainable).
func (b *RoundBuilder) Variable(name string, value any) *RoundBuilder {
	if b.input.Variables == nil {
		b.input.Variables = map[string]any{}
	}
	b.input.Variables[name] = value
	return b
}

// OutputText sets the round output to a final assistant text (chainable).
func (b *RoundBuilder) OutputText(text string) *RoundBuilder {
	b.output.Content = core.NewAssistantContent(text)
	b.output.FinishReason = core.FinishStop
	return b
}

// OutputCalls sets the round output to one tool call request per name, in
// order, with generated call IDs and empty argument objects (chainable).
func (b *RoundBuilder) OutputCalls(names ...string) *RoundBuilder {
	cb := NewContentBuilder().Role(core.RoleAssistant)
	for i, n := range names {
		cb.FunctionCall(fmt.Sprintf("fc-%d-%d", b.index, i), n, "{}")
	}
	b.output.Content = cb.Build()
	b.output.FinishReason = core.FinishToolCalls
	return b
}

// Usage sets the token usage recorded for the round (chainable).
func (b *RoundBuilder) Usage(prompt, completion int) *RoundBuilder {
	b.output.Usage = &core.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
	return b
}

// ActiveTools records the tool names advertised for the round (chainable).
func (b *RoundBuilder) ActiveTools(names ...string) *RoundBuilder {
	b.tools = append(b.tools, names...)
	return b
}

// Attempt appends a streamed attempt record (chainable).
func (b *RoundBuilder) Attempt(partial bool, c core.Content) *RoundBuilder {
	b.attempts = append(b.attempts, core.Attempt{Round: b.index, Partial: partial, Content: c})
	return b
}

// Build returns the core.Round record.
func (b *RoundBuilder) Build() core.Round {
	return core.Round{
		Index:           b.index,
		Input:           b.input,
		Output:          b.output,
		Attempts:        b.attempts,
		ActiveToolNames: b.tools,
	}
}
