package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/reagent/core"
)

func collect(respCh <-chan core.Response, errCh <-chan error) ([]core.Response, error) {
	var responses []core.Response
	for r := range respCh {
		responses = append(responses, r)
	}
	return responses, <-errCh
}

func TestMockModel_ScriptConsumedInOrder(t *testing.T) {
	m := NewMockModel("scripted")
	m.QueueToolCalls(core.FunctionCall{Name: "increment", Arguments: "{}"})
	m.QueueText("done")

	req := core.Request{Contents: []core.Content{core.NewUserContent("go")}}

	resps, err := collect(splitGenerate(m, req))
	assert.NoError(t, err)
	assert.Len(t, resps, 1)
	calls := resps[0].Content.FunctionCalls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "increment", calls[0].Name)
	assert.NotEmpty(t, calls[0].ID)
	assert.Equal(t, core.FinishToolCalls, resps[0].FinishReason)

	resps, err = collect(splitGenerate(m, req))
	assert.NoError(t, err)
	assert.Equal(t, "done", resps[0].Content.Text())
	assert.Equal(t, core.FinishStop, resps[0].FinishReason)
}

func TestMockModel_FallsBackToCannedResponses(t *testing.T) {
	m := NewMockModel("canned")
	m.AddResponse("hello", "hi there")

	resps, err := collect(splitGenerate(m, core.Request{Contents: []core.Content{core.NewUserContent("hello")}}))
	assert.NoError(t, err)
	assert.Equal(t, "hi there", resps[0].Content.Text())

	resps, err = collect(splitGenerate(m, core.Request{Contents: []core.Content{core.NewUserContent("unknown")}}))
	assert.NoError(t, err)
	assert.Equal(t, "Mock response to: unknown", resps[0].Content.Text())
}

func TestMockModel_QueuedError(t *testing.T) {
	m := NewMockModel("failing")
	m.QueueError(errors.New("model unavailable"))

	resps, err := collect(splitGenerate(m, core.Request{Contents: []core.Content{core.NewUserContent("x")}}))
	assert.Empty(t, resps)
	assert.EqualError(t, err, "model unavailable")
}

func TestMockModel_RecordsRequests(t *testing.T) {
	m := NewMockModel("recording")
	m.QueueText("one")
	m.QueueText("two")

	first := core.Request{Instructions: "be brief", Contents: []core.Content{core.NewUserContent("a")}}
	second := core.Request{Contents: []core.Content{core.NewUserContent("b")}}
	_, _ = collect(splitGenerate(m, first))
	_, _ = collect(splitGenerate(m, second))

	assert.Len(t, m.Requests(), 2)
	assert.Equal(t, "be brief", m.Requests()[0].Instructions)
	last, ok := m.LastRequest()
	assert.True(t, ok)
	assert.Equal(t, "b", last.Contents[0].Text())
}

func TestMockModel_StreamingEmitsPartials(t *testing.T) {
	m := NewMockModel("streaming")
	m.QueueText("abc")

	resps, err := collect(splitGenerate(m, core.Request{
		Stream:   true,
		Contents: []core.Content{core.NewUserContent("x")},
	}))
	assert.NoError(t, err)
	// Three char partials plus the final response.
	assert.Len(t, resps, 4)
	assert.True(t, resps[0].Partial)
	final := resps[len(resps)-1]
	assert.False(t, final.Partial)
	assert.Equal(t, "abc", final.Content.Text())
}

func splitGenerate(m *MockModel, req core.Request) (<-chan core.Response, <-chan error) {
	return m.Generate(context.Background(), req)
}
