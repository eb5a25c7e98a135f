package orchestrator

import (
	"context"
	"errors"
	"testing"
)

func TestToolRegistryExecuteUnknownTool(t *testing.T) {
	r := NewToolRegistry()
	_, err := r.Execute(context.Background(), "missing", "{}")
	if !errors.Is(err, ErrToolExecutionFailed) {
		t.Fatalf("expected ErrToolExecutionFailed, got %v", err)
	}
}

func TestToolRegistryExecuteRegistered(t *testing.T) {
	r := NewToolRegistry()
	r.Register(ToolDefinition{Name: "getCalendarAvailability"}, func(ctx context.Context, argsJSON string) (string, error) {
		return `{"slots":[]}`, nil
	})
	out, err := r.Execute(context.Background(), "getCalendarAvailability", "{}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"slots":[]}` {
		t.Fatalf("unexpected payload: %q", out)
	}
}

func TestToolRegistryOverwrite(t *testing.T) {
	r := NewToolRegistry()
	r.Register(ToolDefinition{Name: "hangUpCall"}, func(ctx context.Context, argsJSON string) (string, error) { return "v1", nil })
	r.Register(ToolDefinition{Name: "hangUpCall"}, func(ctx context.Context, argsJSON string) (string, error) { return "v2", nil })
	out, _ := r.Execute(context.Background(), "hangUpCall", "{}")
	if out != "v2" {
		t.Fatalf("expected latest registration to win, got %q", out)
	}
}

func TestToolRegistryDefinitionsDedupOnOverwrite(t *testing.T) {
	r := NewToolRegistry()
	r.Register(ToolDefinition{Name: "hangUpCall", Description: "v1"}, func(ctx context.Context, argsJSON string) (string, error) { return "", nil })
	r.Register(ToolDefinition{Name: "hangUpCall", Description: "v2"}, func(ctx context.Context, argsJSON string) (string, error) { return "", nil })
	defs := r.Definitions()
	if len(defs) != 1 {
		t.Fatalf("expected one definition after re-registering the same name, got %d", len(defs))
	}
	if defs[0].Description != "v2" {
		t.Fatalf("expected latest registration's definition to win, got %q", defs[0].Description)
	}
}

type fakeLLM struct {
	events []LLMEvent
}

func (f *fakeLLM) Generate(ctx context.Context, history []Message, tools []ToolDefinition, onEvent func(LLMEvent)) error {
	for _, ev := range f.events {
		select {
		case <-ctx.Done():
			onEvent(LLMEvent{Kind: LLMAbort})
			return ctx.Err()
		default:
			onEvent(ev)
		}
	}
	return nil
}

func (f *fakeLLM) Name() string { return "fake" }

func TestLLMStreamProviderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &fakeLLM{events: []LLMEvent{{Kind: LLMTextDelta, TextDelta: "hi"}}}
	var got []LLMEvent
	err := provider.Generate(ctx, nil, nil, func(ev LLMEvent) { got = append(got, ev) })
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if len(got) != 1 || got[0].Kind != LLMAbort {
		t.Fatalf("expected a single abort event, got %v", got)
	}
}
