// Package gatekeeper implements the Response Gatekeeper advisor spec.md
// §4.10 names, reusing the batch (non-streaming) LLM adapter the teacher
// carried for one-shot completions rather than the streaming tool-calling
// driver the Session Orchestrator otherwise uses — a gate decision is a
// single short classification, not a conversational turn.
package gatekeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

// completer is the batch LLM contract this package consumes. Satisfied by
// pkg/providers/llm.AnthropicLLM.Complete; kept as a narrow local
// interface so this package doesn't import the concrete provider.
type completer interface {
	Complete(ctx context.Context, messages []orchestrator.Message) (string, error)
}

// LLMGatekeeper implements orchestrator.GatekeeperProvider by asking a
// batch LLM completer to classify whether the agent should speak next,
// given the shared conference conversation and the last human speaker
// (spec.md §4.10/§4.11: a conference turn between two humans should only
// rarely draw the agent in).
type LLMGatekeeper struct {
	llm completer
}

// NewLLMGatekeeper wraps llm. llm is typically *llmprovider.AnthropicLLM.
func NewLLMGatekeeper(llm completer) *LLMGatekeeper {
	return &LLMGatekeeper{llm: llm}
}

// gatekeeperSystemPrompt instructs the completer to answer with a single
// JSON object matching decisionJSON, never prose.
const gatekeeperSystemPrompt = `You are a silent listener on a phone call. Decide whether the AI assistant should speak next, or stay silent and let the humans keep talking to each other.

Reply with exactly one JSON object and nothing else, in this shape:
{"respond": true|false, "reason": "<short reason>", "confidence": <0.0-1.0>}

Respond true only when the humans are addressing the assistant directly, asking it a question, or have reached a clear decision point that needs the assistant's action. Default to false.`

type decisionJSON struct {
	Respond    bool    `json:"respond"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Decide asks the wrapped completer for a gate decision. Any failure to
// call or parse the completer's response is surfaced as an error, which
// Gatekeeper.Ask treats as a silent verdict (spec.md §7).
func (g *LLMGatekeeper) Decide(ctx context.Context, history []orchestrator.Message, lastSpeaker orchestrator.Speaker) (orchestrator.GatekeeperDecision, error) {
	messages := make([]orchestrator.Message, 0, len(history)+1)
	messages = append(messages, orchestrator.Message{Role: orchestrator.RoleSystem, Content: gatekeeperSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, orchestrator.Message{
		Role:    orchestrator.RoleUser,
		Content: fmt.Sprintf("Last speaker: %s. Should the assistant respond now?", lastSpeaker),
	})

	raw, err := g.llm.Complete(ctx, messages)
	if err != nil {
		return orchestrator.GatekeeperDecision{}, fmt.Errorf("gatekeeper completion failed: %w", err)
	}

	var d decisionJSON
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &d); err != nil {
		return orchestrator.GatekeeperDecision{}, fmt.Errorf("gatekeeper decision unparseable: %w", err)
	}

	return orchestrator.GatekeeperDecision{Respond: d.Respond, Reason: d.Reason, Confidence: d.Confidence}, nil
}

// extractJSONObject trims any leading/trailing prose a completer adds
// around the JSON object despite instructions, taking the substring
// between the first '{' and the last '}'.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
