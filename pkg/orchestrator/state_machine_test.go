package orchestrator

import (
	"context"
	"testing"
	"time"
)

func TestStateMachineLegalTransitions(t *testing.T) {
	m := NewStateMachine()
	if m.Current() != StateIdle {
		t.Fatalf("expected initial state IDLE, got %s", m.Current())
	}

	steps := []State{StateListening, StateThinking, StateSpeaking, StateListening}
	for _, to := range steps {
		if !m.Attempt(to, "test") {
			t.Fatalf("expected transition to %s to be legal", to)
		}
		if m.Current() != to {
			t.Fatalf("expected current state %s, got %s", to, m.Current())
		}
	}
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	m := NewStateMachine()
	if m.Attempt(StateSpeaking, "test") {
		t.Fatalf("expected IDLE -> SPEAKING to be illegal")
	}
	if m.Current() != StateIdle {
		t.Fatalf("rejected transition must not change state, got %s", m.Current())
	}
}

func TestStateMachineTeardownAlwaysLegal(t *testing.T) {
	m := NewStateMachine()
	m.Attempt(StateListening, "start")
	m.Attempt(StateThinking, "turn")
	if !m.Attempt(StateIdle, "teardown") {
		t.Fatalf("expected any -> IDLE to always be legal")
	}
}

func TestStateMachineHistoryBounded(t *testing.T) {
	m := NewStateMachine()
	for i := 0; i < maxHistory+50; i++ {
		m.Attempt(StateListening, "a")
		m.Attempt(StateThinking, "b")
		m.Attempt(StateListening, "c")
		m.Attempt(StateThinking, "d")
		m.Attempt(StateSpeaking, "e")
		m.Attempt(StateListening, "f")
	}
	if len(m.History()) > maxHistory {
		t.Fatalf("expected history bounded at %d, got %d", maxHistory, len(m.History()))
	}
}

func TestStateMachineListenersFireSynchronously(t *testing.T) {
	m := NewStateMachine()
	var seen []State
	m.Subscribe(func(tr Transition) {
		seen = append(seen, tr.To)
	})
	m.Attempt(StateListening, "x")
	if len(seen) != 1 || seen[0] != StateListening {
		t.Fatalf("expected listener to observe LISTENING, got %v", seen)
	}
}

func TestStateMachineWaitForAlreadyThere(t *testing.T) {
	m := NewStateMachine()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if !m.WaitFor(ctx, StateIdle) {
		t.Fatalf("expected WaitFor to return immediately when already at target")
	}
}

func TestStateMachineWaitForTimesOut(t *testing.T) {
	m := NewStateMachine()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if m.WaitFor(ctx, StateSpeaking) {
		t.Fatalf("expected WaitFor to time out when target is unreachable")
	}
}

func TestStateMachineWaitForUnblocksOnTransition(t *testing.T) {
	m := NewStateMachine()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- m.WaitFor(ctx, StateThinking)
	}()

	time.Sleep(10 * time.Millisecond)
	m.Attempt(StateListening, "a")
	m.Attempt(StateThinking, "b")

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected WaitFor to succeed")
		}
	case <-time.After(time.Second):
		t.Fatalf("WaitFor did not unblock")
	}
}
