package gatekeeper

import (
	"context"
	"errors"
	"testing"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	return f.reply, f.err
}

func TestLLMGatekeeperDecideParsesJSON(t *testing.T) {
	gk := NewLLMGatekeeper(&fakeCompleter{reply: `{"respond": true, "reason": "owner asked a direct question", "confidence": 0.9}`})

	d, err := gk.Decide(context.Background(), nil, orchestrator.SpeakerOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Respond || d.Reason == "" || d.Confidence != 0.9 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestLLMGatekeeperDecideToleratesSurroundingProse(t *testing.T) {
	gk := NewLLMGatekeeper(&fakeCompleter{reply: "Sure, here's my answer: {\"respond\": false, \"reason\": \"humans talking\", \"confidence\": 0.4} hope that helps"})

	d, err := gk.Decide(context.Background(), nil, orchestrator.SpeakerCaller)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Respond || d.Reason != "humans talking" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestLLMGatekeeperDecidePropagatesCompleterError(t *testing.T) {
	gk := NewLLMGatekeeper(&fakeCompleter{err: errors.New("boom")})

	if _, err := gk.Decide(context.Background(), nil, orchestrator.SpeakerNone); err == nil {
		t.Fatalf("expected error to propagate")
	}
}

func TestLLMGatekeeperDecideErrorsOnUnparseableReply(t *testing.T) {
	gk := NewLLMGatekeeper(&fakeCompleter{reply: "not json at all"})

	if _, err := gk.Decide(context.Background(), nil, orchestrator.SpeakerNone); err == nil {
		t.Fatalf("expected error for unparseable reply")
	}
}
