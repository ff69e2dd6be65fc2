package core

// RoundInput is the concrete assembled input for one round: the joined system
// text with its source sections, the resolved variable map, the conversation
// messages, and the tool definitions shown to the model.
type RoundInput struct {
	Instructions string           `json:"instructions"`
	Systems      []string         `json:"systems,omitempty"`
	Variables    map[string]any   `json:"variables,omitempty"`
	Messages     []Content        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// RoundOutput is the final model response for one round.
type RoundOutput struct {
	Content      Content     `json:"content"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Attempt is one streamed chunk observed while producing a round's output.
// Partial attempts precede the final one; the final attempt carries the
// complete content and finish reason.
type Attempt struct {
	Round   int     `json:"round"`
	Partial bool    `json:"partial"`
	Content Content `json:"content"`
}

// Round records one completed cycle of builder re-invocation, assembly, model
// call and dispatch. Immutable once appended to a History.
type Round struct {
	Index           int         `json:"index"`
	Input           RoundInput  `json:"input"`
	Output          RoundOutput `json:"output"`
	Attempts        []Attempt   `json:"attempts,omitempty"`
	ActiveToolNames []string    `json:"active_tool_names,omitempty"`
}

// History is the ordered record of completed rounds. The engine is
// single-threaded cooperative, so History carries no locking; exactly one
// round is in flight and mutates it.
//
// Contract:
//   - Rounds returns a defensive copy without per-attempt granularity
//   - Attempts flattens the full per-attempt record across all rounds
//   - rounds are append-only; records are never modified after Append
type History struct {
	rounds []Round
}

// NewHistory creates an empty round history.
func NewHistory() *History {
	return &History{rounds: []Round{}}
}

// Append adds a completed round record.
func (h *History) Append(r Round) {
	h.rounds = append(h.rounds, r)
}

// Len returns the number of completed rounds.
func (h *History) Len() int { return len(h.rounds) }

// Rounds returns the simplified projection: one record per round, attempts
// stripped. The returned slice is a defensive copy.
func (h *History) Rounds() []Round {
	res := make([]Round, len(h.rounds))
	copy(res, h.rounds)
	for i := range res {
		res[i].Attempts = nil
	}
	return res
}

// Attempts returns the full projection including partial streamed chunks, in
// round order then chunk order.
func (h *History) Attempts() []Attempt {
	var res []Attempt
	for _, r := range h.rounds {
		res = append(res, r.Attempts...)
	}
	return res
}

// Transcript accumulates the persistent conversation messages across rounds:
// explicit user/assistant declarations, model outputs and tool results. Like
// History it has exactly one writer and carries no locking.
//
// User messages declared through a builder are deduplicated per round index:
// re-executing the same round's builder pass never appends the same text
// twice, while identical text declared in two different rounds produces two
// distinct messages. Assistant declarations always append.
type Transcript struct {
	messages []Content
	userSeen map[int]map[string]struct{}
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{userSeen: map[int]map[string]struct{}{}}
}

// AppendUser appends a user message declared by the given round's builder
// pass. Returns false when the text was already declared for this round.
func (t *Transcript) AppendUser(round int, text string) bool {
	seen, ok := t.userSeen[round]
	if !ok {
		seen = map[string]struct{}{}
		t.userSeen[round] = seen
	}
	if _, dup := seen[text]; dup {
		return false
	}
	seen[text] = struct{}{}
	t.messages = append(t.messages, NewUserContent(text))
	return true
}

// AppendAssistant appends an assistant message. Never deduplicated.
func (t *Transcript) AppendAssistant(text string) {
	t.messages = append(t.messages, NewAssistantContent(text))
}

// Append adds an arbitrary content record (model output, tool result).
func (t *Transcript) Append(c Content) {
	t.messages = append(t.messages, c)
}

// Messages returns a defensive copy of the accumulated conversation.
func (t *Transcript) Messages() []Content {
	res := make([]Content, len(t.messages))
	copy(res, t.messages)
	return res
}

// Len returns the number of accumulated messages.
func (t *Transcript) Len() int { return len(t.messages) }
