package orchestrator

import (
	"testing"
	"time"
)

func TestAudioGateSendRequiresEnabled(t *testing.T) {
	g := NewAudioGate(nil)
	var forwarded [][]byte
	sink := func(b []byte) { forwarded = append(forwarded, b) }

	if g.Send([]byte{1, 2, 3}, sink) {
		t.Fatalf("expected send to be dropped while disabled")
	}
	g.Enable()
	if !g.Send([]byte{1, 2, 3}, sink) {
		t.Fatalf("expected send to succeed while enabled")
	}
	if len(forwarded) != 1 {
		t.Fatalf("expected exactly one forwarded frame, got %d", len(forwarded))
	}
}

func TestAudioGateEnableDisableIdempotent(t *testing.T) {
	g := NewAudioGate(nil)
	g.Enable()
	g.Enable()
	if !g.IsEnabled() {
		t.Fatalf("expected gate enabled")
	}
	g.Disable()
	g.Disable()
	if g.IsEnabled() {
		t.Fatalf("expected gate disabled")
	}
}

func TestAudioGateClearDownstreamRepeatsAndDebounces(t *testing.T) {
	calls := 0
	g := NewAudioGate(func() { calls++ })

	g.ClearDownstream()
	if calls != clearRepeatCount {
		t.Fatalf("expected %d clear calls, got %d", clearRepeatCount, calls)
	}

	g.ClearDownstream()
	if calls != clearRepeatCount {
		t.Fatalf("expected debounced second call to add no clears, got %d", calls)
	}

	time.Sleep(clearDebounce + 10*time.Millisecond)
	g.ClearDownstream()
	if calls != clearRepeatCount*2 {
		t.Fatalf("expected clear after debounce window to add %d calls, got %d", clearRepeatCount, calls)
	}
}

func TestAudioGateStopImmediately(t *testing.T) {
	calls := 0
	g := NewAudioGate(func() { calls++ })
	g.Enable()

	g.StopImmediately()

	if g.IsEnabled() {
		t.Fatalf("expected gate disabled after stopImmediately")
	}
	if calls != clearRepeatCount {
		t.Fatalf("expected stopImmediately to issue a downstream clear burst, got %d calls", calls)
	}
}
