package orchestrator

import (
	"context"
	"sync"
	"time"
)

// State is one of the call phases enumerated in spec.md §4.1.
type State string

const (
	StateIdle        State = "IDLE"
	StateListening    State = "LISTENING"
	StateThinking     State = "THINKING"
	StateSpeaking     State = "SPEAKING"
	StateInterrupted  State = "INTERRUPTED"
)

// legalTransitions is the transition table of spec.md §4.1. A wildcard
// "any -> IDLE" (teardown) is checked separately in attempt.
var legalTransitions = map[State]map[State]bool{
	StateIdle:       {StateListening: true},
	StateListening:  {StateThinking: true},
	StateThinking:   {StateSpeaking: true, StateListening: true},
	StateSpeaking:   {StateListening: true, StateInterrupted: true},
	StateInterrupted: {StateListening: true},
}

// Transition is one appended entry in a Session's state history.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// TransitionListener is notified synchronously on every successful
// transition. Listeners must not block (spec.md §4.1).
type TransitionListener func(t Transition)

// maxHistory bounds the transition log (spec.md §3: "truncation permitted
// above a bound").
const maxHistory = 256

// StateMachine enforces the legal transition table for one Session. It is
// safe for concurrent use, but per spec.md §5 all mutation is expected to
// originate from a single Session event loop.
type StateMachine struct {
	mu        sync.Mutex
	current   State
	history   []Transition
	listeners []TransitionListener
}

// NewStateMachine creates a machine starting in IDLE.
func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateIdle}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe registers a listener invoked synchronously on every successful
// transition, in registration order.
func (m *StateMachine) Subscribe(l TransitionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// History returns a copy of the bounded transition log.
func (m *StateMachine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// Attempt tries to move to `to` with the given reason. Returns false
// (IllegalTransition, non-fatal) if the transition is not legal. Teardown
// (any -> IDLE) is always legal.
func (m *StateMachine) Attempt(to State, reason string) bool {
	m.mu.Lock()

	from := m.current
	legal := to == StateIdle || legalTransitions[from][to]
	if !legal {
		m.mu.Unlock()
		return false
	}

	m.current = to
	t := Transition{From: from, To: to, Reason: reason, Timestamp: time.Now()}
	m.history = append(m.history, t)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	listeners := make([]TransitionListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(t)
	}
	return true
}

// WaitFor blocks until the machine reaches `target` or ctx is done.
// Returns immediately (true) if already there. Modeled on the
// Leg.WaitForState pattern used by the b2bua example in the retrieval
// pack: a lightweight one-shot listener subscribed only for the duration
// of the wait.
func (m *StateMachine) WaitFor(ctx context.Context, target State) bool {
	if m.Current() == target {
		return true
	}

	reached := make(chan struct{})
	var once sync.Once
	m.Subscribe(func(t Transition) {
		if t.To == target {
			once.Do(func() { close(reached) })
		}
	})

	select {
	case <-reached:
		return true
	case <-ctx.Done():
		return false
	}
}
