package orchestrator

import (
	"context"
	"errors"
	"testing"
)

type fakeGatekeeper struct {
	decision GatekeeperDecision
	err      error
}

func (f *fakeGatekeeper) Decide(ctx context.Context, history []Message, lastSpeaker Speaker) (GatekeeperDecision, error) {
	return f.decision, f.err
}

func TestGatekeeperAskReturnsProviderDecision(t *testing.T) {
	g := NewGatekeeper(&fakeGatekeeper{decision: GatekeeperDecision{Respond: true, Confidence: 0.9}}, nil)
	d := g.Ask(context.Background(), nil, SpeakerCaller)
	if !d.Respond || d.Confidence != 0.9 {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestGatekeeperAskDefaultsSilentOnError(t *testing.T) {
	g := NewGatekeeper(&fakeGatekeeper{err: errors.New("boom")}, nil)
	d := g.Ask(context.Background(), nil, SpeakerCaller)
	if d.Respond {
		t.Fatalf("expected silent decision on provider error, got %+v", d)
	}
}

func TestGatekeeperAskNilProviderIsSilent(t *testing.T) {
	g := NewGatekeeper(nil, nil)
	d := g.Ask(context.Background(), nil, SpeakerCaller)
	if d.Respond {
		t.Fatalf("expected silent decision for nil provider, got %+v", d)
	}
}
