package core

// Step collects per-round overrides installed by effects. Each override
// replaces one aspect of the round's assembled input (messages, tools,
// systems or variables) for that round only; persistent state, the registry
// and the transcript are never touched. Effects run in declaration order, so
// a later effect's override wins for the same aspect.
type Step struct {
	messages     []Content
	messagesSet  bool
	tools        []ToolDefinition
	toolsSet     bool
	systems      []string
	systemsSet   bool
	variables    map[string]any
	variablesSet bool
}

// NewStep creates an empty override holder for one round.
func NewStep() *Step { return &Step{} }

// SetMessages replaces the round's message list.
func (s *Step) SetMessages(messages []Content) {
	s.messages = messages
	s.messagesSet = true
}

// SetTools replaces the round's tool definitions.
func (s *Step) SetTools(tools []ToolDefinition) {
	s.tools = tools
	s.toolsSet = true
}

// SetSystems replaces the round's system sections.
func (s *Step) SetSystems(systems []string) {
	s.systems = systems
	s.systemsSet = true
}

// SetVariables replaces the round's resolved variable map.
func (s *Step) SetVariables(variables map[string]any) {
	s.variables = variables
	s.variablesSet = true
}

// Messages returns the override and whether one was installed.
func (s *Step) Messages() ([]Content, bool) { return s.messages, s.messagesSet }

// Tools returns the override and whether one was installed.
func (s *Step) Tools() ([]ToolDefinition, bool) { return s.tools, s.toolsSet }

// Systems returns the override and whether one was installed.
func (s *Step) Systems() ([]string, bool) { return s.systems, s.systemsSet }

// Variables returns the override and whether one was installed.
func (s *Step) Variables() (map[string]any, bool) { return s.variables, s.variablesSet }
