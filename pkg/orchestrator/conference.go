package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Conference pairs exactly two human Sessions (caller and owner) with one
// shared TTS adapter (spec.md §4.11). Raw inbound audio is routed
// peer-to-peer between the two legs, bypassing each Session's own Audio
// Gate/Interruption Detector (a human leg's own barge-in machinery has no
// role once two humans are simply talking to each other); shared LLM
// generation (e.g. the agent chiming in) remains gated by the Response
// Gatekeeper, and the shared TTS adapter is created lazily, only once the
// agent actually needs to speak into the conference.
type Conference struct {
	ID string

	mu         sync.Mutex
	caller     *Session
	owner      *Session
	sharedTTS  TTSProvider
	ttsFactory func() (TTSProvider, error)
	logger     Logger

	// EgressCaller/EgressOwner push one frame to the named leg's telephony
	// downlink directly, bypassing that Session's own Audio Gate — both
	// peer-to-peer routed audio (OnRawFrame) and the shared-TTS fanout
	// (SpeakToConference) use these rather than Session.OnTTSFrame, whose
	// gate is never enabled for a conference leg and would silently drop
	// every frame (spec.md §4.11 / seed test 5).
	EgressCaller func(frame []byte)
	EgressOwner  func(frame []byte)
}

// NewConference creates a coordinator pairing caller and owner, with
// ttsFactory lazily constructing the shared TTS adapter on first use.
func NewConference(caller, owner *Session, ttsFactory func() (TTSProvider, error), logger Logger) *Conference {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	caller.Role = RoleCaller
	owner.Role = RoleOwner
	return &Conference{
		ID:         uuid.NewString(),
		caller:     caller,
		owner:      owner,
		ttsFactory: ttsFactory,
		logger:     logger,
	}
}

// OnRawFrame routes one inbound frame from fromCaller directly to the
// opposite leg, bypassing gate/detector machinery — conference audio is
// peer-to-peer, not agent-mediated (spec.md §4.11).
func (c *Conference) OnRawFrame(fromCaller bool, frame []byte) {
	if fromCaller {
		if c.EgressOwner != nil {
			c.EgressOwner(frame)
		}
		return
	}
	if c.EgressCaller != nil {
		c.EgressCaller(frame)
	}
}

// OnTranscript feeds one finalized transcript from either leg into both
// Sessions' shared Conversation state and lets the Gatekeeper decide
// whether the agent should speak. Both Sessions observe the same turn so
// a later solo fallback (Disconnect) has full context. Unlike solo mode,
// a response (if any) is synthesized once via the shared TTS adapter and
// fanned out to both legs, rather than through either Session's own
// Speech Adapter.
func (c *Conference) OnTranscript(ctx context.Context, fromCaller bool, t STTTranscript) {
	speaker := SpeakerOwner
	if fromCaller {
		speaker = SpeakerCaller
	}
	c.caller.conversation.AppendUser(t.Text, speaker)
	c.owner.conversation.AppendUser(t.Text, speaker)

	decision := c.caller.deps.Gatekeeper.Ask(ctx, c.caller.conversation.Snapshot(), speaker)
	if c.caller.deps.Gatekeeper != nil && !decision.Respond {
		return
	}

	history := c.caller.conversation.Snapshot()
	c.caller.conversation.StartAssistant()
	c.owner.conversation.StartAssistant()

	var tools []ToolDefinition
	if c.caller.deps.Tools != nil {
		tools = c.caller.deps.Tools.Definitions()
	}

	var reply string
	var parts []Part
	var toolCalls bool
	err := c.caller.deps.LLM.Generate(ctx, history, tools, func(ev LLMEvent) {
		switch ev.Kind {
		case LLMTextDelta:
			reply += ev.TextDelta
			c.caller.conversation.ExtendAssistant(ev.TextDelta)
			c.owner.conversation.ExtendAssistant(ev.TextDelta)

		case LLMToolCall:
			toolCalls = true
			parts = append(parts, Part{Kind: PartToolCall, ToolCallID: ev.ToolCallID, ToolName: ev.ToolName, ToolArgs: ev.ToolArgs})
			c.runTool(ctx, ev)
		}
	})

	if toolCalls {
		c.caller.conversation.AddAssistantStructured(parts)
		c.owner.conversation.AddAssistantStructured(parts)
	}
	c.caller.conversation.FinishAssistant()
	c.owner.conversation.FinishAssistant()
	if err != nil || reply == "" {
		return
	}

	if err := c.SpeakToConference(ctx, reply, c.caller.voice, c.caller.lang); err != nil {
		c.logger.Warn("conference speak failed", "conferenceID", c.ID, "error", err)
	}
}

// runTool executes one tool call raised during a shared generation via the
// caller leg's ToolRegistry (the owner leg's own registry is not used) and
// appends the result to both Sessions' conversations, mirroring
// Session.runTool for the conference path (spec.md §4.11: tool calls are
// not inert just because the generation is shared).
func (c *Conference) runTool(ctx context.Context, ev LLMEvent) {
	if c.caller.deps.Tools == nil {
		return
	}
	payload, err := c.caller.deps.Tools.Execute(ctx, ev.ToolName, ev.ToolArgs)
	if err != nil {
		c.logger.Warn("conference tool execution failed", "conferenceID", c.ID, "tool", ev.ToolName, "error", err)
		payload = ""
	}
	result := []ToolResult{{ToolCallID: ev.ToolCallID, Payload: payload}}
	c.caller.conversation.AddToolResults(result)
	c.owner.conversation.AddToolResults(result)
}

func (c *Conference) sharedTTSAdapter() (TTSProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sharedTTS != nil {
		return c.sharedTTS, nil
	}
	if c.ttsFactory == nil {
		return nil, ErrNilProvider
	}
	tts, err := c.ttsFactory()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConferenceSetupFailed, err)
	}
	c.sharedTTS = tts
	return tts, nil
}

// SpeakToConference synthesizes text once via the lazily-created shared
// TTS adapter and fans the resulting audio out to both legs' telephony
// downlinks directly via EgressCaller/EgressOwner. It does not route
// through Session.OnTTSFrame: that method gates on the Session's own
// Audio Gate, which is never enabled for a conference leg (the gate
// exists for the solo barge-in path, which conference mode bypasses
// entirely) and would silently drop every chunk.
func (c *Conference) SpeakToConference(ctx context.Context, text string, voice Voice, lang Language) error {
	tts, err := c.sharedTTSAdapter()
	if err != nil {
		return err
	}
	return tts.StreamSynthesize(ctx, text, voice, lang, func(chunk []byte) error {
		if c.EgressCaller != nil {
			c.EgressCaller(chunk)
		}
		if c.EgressOwner != nil {
			c.EgressOwner(chunk)
		}
		return nil
	})
}

// Disconnect tears the conference down given that failed has already
// dropped off the call. Per spec.md §4.11 failure semantics, the
// surviving peer reverts to a solo Session rather than being torn down
// too — the caller simply resumes talking to the agent alone. The failed
// leg is cleaned up (best-effort; its underlying call may already be
// gone).
func (c *Conference) Disconnect(ctx context.Context, failed *Session) {
	c.mu.Lock()
	tts := c.sharedTTS
	c.sharedTTS = nil
	c.mu.Unlock()

	survivor := c.owner
	if failed == c.owner {
		survivor = c.caller
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { survivor.Role = RoleSolo; survivor.LeaveConference(); return nil })
	g.Go(func() error { failed.HangUp(); return nil })
	g.Wait()

	if tts != nil {
		_ = tts.Abort()
	}
}
