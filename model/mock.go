package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/reagent/core"
)

// Compile-time check.
var _ core.Model = (*MockModel)(nil)

type scriptEntry struct {
	resp core.Response
	err  error
}

// MockModel is a lightweight in‑memory core.Model for tests and examples.
// Queued responses are consumed in order, which maps naturally onto the
// engine's round loop: queue a tool-call response for round one and a text
// response for round two. When the queue is empty it falls back to canned
// per-prompt completions, echoing the input if none matches.
type MockModel struct {
	info      core.Info
	script    []scriptEntry
	responses map[string]string
	requests  []core.Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: core.Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// QueueText queues a final text response.
func (m *MockModel) QueueText(text string) {
	m.QueueResponse(core.Response{
		Content:      core.NewAssistantContent(text),
		FinishReason: core.FinishStop,
	})
}

// QueueToolCalls queues an assistant response requesting the given calls.
func (m *MockModel) QueueToolCalls(calls ...core.FunctionCall) {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		if fc.ID == "" {
			fc.ID = core.NewID()
		}
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	m.QueueResponse(core.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: core.FinishToolCalls,
	})
}

// QueueResponse queues a fully specified response.
func (m *MockModel) QueueResponse(resp core.Response) {
	m.script = append(m.script, scriptEntry{resp: resp})
}

// QueueError queues a generation failure.
func (m *MockModel) QueueError(err error) {
	m.script = append(m.script, scriptEntry{err: err})
}

// Requests returns every request this model has received, in order.
func (m *MockModel) Requests() []core.Request { return m.requests }

// LastRequest returns the most recent request.
func (m *MockModel) LastRequest() (core.Request, bool) {
	if len(m.requests) == 0 {
		return core.Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Generate implements core.Model; emits optional streaming char chunks then
// the final response.
func (m *MockModel) Generate(ctx context.Context, req core.Request) (<-chan core.Response, <-chan error) {
	m.requests = append(m.requests, req)

	respCh := make(chan core.Response, 16)
	errCh := make(chan error, 1)

	var entry *scriptEntry
	if len(m.script) > 0 {
		e := m.script[0]
		m.script = m.script[1:]
		entry = &e
	}

	go func() {
		defer close(respCh)
		defer close(errCh)

		if entry != nil {
			if entry.err != nil {
				errCh <- entry.err
				return
			}
			final := entry.resp
			if req.Stream {
				m.streamText(ctx, final.Content.Text(), respCh, errCh)
			}
			respCh <- final
			return
		}

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		last := req.Contents[len(req.Contents)-1]
		inputText := last.Text()
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream {
			m.streamText(ctx, full, respCh, errCh)
		}
		respCh <- core.Response{
			Content:      core.NewAssistantContent(full),
			FinishReason: core.FinishStop,
		}
	}()
	return respCh, errCh
}

func (m *MockModel) streamText(ctx context.Context, text string, respCh chan<- core.Response, errCh chan<- error) {
	for _, r := range text {
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return
		case respCh <- core.Response{
			Partial: true,
			Content: core.NewAssistantContent(string(r)),
		}:
		}
	}
}

// Info implements core.Model.
func (m *MockModel) Info() core.Info { return m.info }
