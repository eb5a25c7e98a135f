package orchestrator

import "context"

// GatekeeperDecision is the Response Gatekeeper's verdict (spec.md §4.10).
type GatekeeperDecision struct {
	Respond    bool
	Reason     string
	Confidence float64
}

// silentDecision is returned whenever the advisor cannot be consulted
// (spec.md §4.10/§7: gatekeeper failures default to silent, never to
// responding).
var silentDecision = GatekeeperDecision{Respond: false, Reason: "gatekeeper unavailable", Confidence: 0}

// GatekeeperProvider is the pluggable advisor consulted before the Session
// Orchestrator starts a response generation in conference mode (and,
// where configured, in solo mode). It must be safe to cancel at any time;
// a cancelled or errored call is treated identically to a "don't respond"
// verdict.
type GatekeeperProvider interface {
	Decide(ctx context.Context, history []Message, lastSpeaker Speaker) (GatekeeperDecision, error)
}

// Gatekeeper wraps a GatekeeperProvider with the default-silent failure
// policy, so callers never need to special-case an error return.
type Gatekeeper struct {
	provider GatekeeperProvider
	logger   Logger
}

// NewGatekeeper wraps provider. A nil provider makes every Ask call return
// the silent decision, which is not what solo calls want — callers that
// want "always respond" simply don't construct a Gatekeeper at all and
// leave SessionDeps.Gatekeeper nil.
func NewGatekeeper(provider GatekeeperProvider, logger Logger) *Gatekeeper {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Gatekeeper{provider: provider, logger: logger}
}

// Ask consults the advisor. On error, context cancellation, or a nil
// provider, it returns the silent decision rather than propagating the
// error to the Session (spec.md §7: ErrGatekeeperFailed is non-fatal).
func (g *Gatekeeper) Ask(ctx context.Context, history []Message, lastSpeaker Speaker) GatekeeperDecision {
	if g == nil || g.provider == nil {
		return silentDecision
	}

	decision, err := g.provider.Decide(ctx, history, lastSpeaker)
	if err != nil {
		g.logger.Warn("gatekeeper advisor failed, defaulting to silent", "error", err)
		return silentDecision
	}
	return decision
}
