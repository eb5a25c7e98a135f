package orchestrator

import "context"

// LLMEventKind tags one variant of the LLM Stream Driver's event union
// (spec.md §4.7).
type LLMEventKind string

const (
	LLMStart        LLMEventKind = "start"
	LLMTextStart    LLMEventKind = "text-start"
	LLMTextDelta    LLMEventKind = "text-delta"
	LLMTextEnd      LLMEventKind = "text-end"
	LLMReasoningStart LLMEventKind = "reasoning-start"
	LLMReasoningDelta LLMEventKind = "reasoning-delta"
	LLMReasoningEnd   LLMEventKind = "reasoning-end"
	LLMToolCall     LLMEventKind = "tool-call"
	LLMToolResult   LLMEventKind = "tool-result"
	LLMToolError    LLMEventKind = "tool-error"
	LLMFinish       LLMEventKind = "finish"
	LLMError        LLMEventKind = "error"
	LLMAbort        LLMEventKind = "abort"
)

// LLMEvent is one tagged-union event from a streaming generation. Only the
// fields relevant to Kind are populated; consumers must treat an unknown
// Kind as a no-op rather than failing (spec.md §9 tagged-variant pattern),
// since provider SDKs add event kinds over time.
type LLMEvent struct {
	Kind LLMEventKind

	TextDelta string

	ReasoningDelta string

	ToolCallID string
	ToolName   string
	ToolArgs   string

	ToolResultPayload string
	ToolErr           error

	Err error
}

// ToolDefinition describes one callable tool surfaced to the model
// (spec.md §6 tool surface).
type ToolDefinition struct {
	Name        string
	Description string
	// ParametersSchema is a JSON Schema object describing the tool's
	// arguments, passed through verbatim to the provider SDK.
	ParametersSchema map[string]interface{}
}

// ToolHandler executes one tool call and returns its result payload.
// Handlers are looked up by name; an unregistered tool name produces a
// tool-error event rather than panicking (spec.md §7:
// ErrToolExecutionFailed is non-fatal to the Session).
type ToolHandler func(ctx context.Context, argsJSON string) (string, error)

// LLMStreamProvider is the duplex, tool-calling streaming LLM contract of
// spec.md §4.7. Generate starts a cancellable generation; onEvent is
// invoked for each LLMEvent from an internal goroutine. Cancelling ctx
// (or the context passed to a later Generate call for the same
// conversation) must reliably stop the stream at the next suspension
// point and deliver an LLMAbort event, never an LLMError.
type LLMStreamProvider interface {
	Generate(ctx context.Context, history []Message, tools []ToolDefinition, onEvent func(LLMEvent)) error
	Name() string
}

// ToolRegistry maps tool names to handlers and their schemas, used by the
// Session Orchestrator both to advertise the tool surface to the LLM
// Stream Driver (Definitions) and to execute tool-call events emitted by
// it, feeding tool-result events back into the conversation.
type ToolRegistry struct {
	handlers    map[string]ToolHandler
	definitions []ToolDefinition
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{handlers: make(map[string]ToolHandler)}
}

// Register binds def.Name to handler, overwriting any existing binding,
// and makes def part of the tool surface returned by Definitions.
func (r *ToolRegistry) Register(def ToolDefinition, handler ToolHandler) {
	replaced := false
	for i, existing := range r.definitions {
		if existing.Name == def.Name {
			r.definitions[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		r.definitions = append(r.definitions, def)
	}
	r.handlers[def.Name] = handler
}

// Definitions returns the tool surface to pass to LLMStreamProvider.Generate.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	return r.definitions
}

// Execute runs the handler bound to name. Returns ErrToolExecutionFailed
// if no handler is registered.
func (r *ToolRegistry) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", ErrToolExecutionFailed
	}
	return h(ctx, argsJSON)
}
