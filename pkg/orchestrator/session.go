package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AppointmentPersister is the persistence hook contract spec.md §6 names
// for the fetchAppointment/updateAppointmentStatus tool effects. Kept as a
// small local interface (rather than importing pkg/appointment directly)
// so pkg/orchestrator has no dependency on its storage backend.
type AppointmentPersister interface {
	FetchAppointment(ctx context.Context, id string) (string, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) error
}

// SessionDeps are the collaborators a Session is wired to at
// construction. Every field is a narrow function or interface so the
// Session stays decoupled from pkg/telephony and the concrete provider
// packages (the teacher's own orchestrator.go/managed_stream.go couple
// directly to *Orchestrator; this generalizes that to the duplex
// Speech Adapter and LLM Stream Driver contracts spec.md §4.5-§4.7 name).
type SessionDeps struct {
	STT        StreamingSTTProvider
	TTS        TTSProvider
	LLM        LLMStreamProvider
	Gatekeeper *Gatekeeper
	Tools      *ToolRegistry
	Appointment AppointmentPersister

	// SendMedia pushes one synthesized μ-law frame downstream. Wraps the
	// telephony media-stream socket.
	SendMedia func(frame []byte)
	// ClearDownstream flushes the telephony provider's jitter buffer.
	ClearDownstream func()
	// RequestDrainMark asks telephony to echo back a completion marker
	// once everything sent via SendMedia so far has actually played out;
	// the echo arrives later as a call to Session.OnTTSDrained.
	RequestDrainMark func(name string)
	// SendDTMF emits one DTMF digit on the call leg.
	SendDTMF func(digit string) error
	// Hangup tears down the underlying call leg.
	Hangup func() error
	// RequestTransfer asks the control plane to create a conference and
	// dial ownerNumber into it. Returns once the dial-out request is
	// accepted, not once the transfer has settled.
	RequestTransfer func(ctx context.Context, ownerNumber string) error
}

// responseGen groups the cancellation state of one response generation
// (one user turn's worth of LLM + TTS work), so interruption can discard
// it atomically without racing a new generation being started.
type responseGen struct {
	id          int
	cancel      context.CancelFunc
	drained     chan struct{}
	drainedOnce sync.Once
}

// Session is the Session Orchestrator of spec.md §4.8: it owns the State
// Machine, Conversation Model, Audio Gate, Interruption Detector, Speech
// Adapters and LLM Stream Driver for one call leg, and serializes all
// mutation through its own mutex the way the teacher's ManagedStream does
// (spec.md §5: one event loop per Session, parallel across Sessions).
type Session struct {
	ID   string
	Role SessionRole

	logger Logger
	cfg    Config
	deps   SessionDeps

	machine      *StateMachine
	conversation *Conversation
	gate         *AudioGate
	detector     *InterruptionDetector
	speakers     *SpeakerBinding

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	lang          Language
	voice         Voice
	sttChan       chan<- []byte
	sttCancel     context.CancelFunc
	sttGeneration int
	current       *responseGen

	// connEpoch counts physical-connection swaps performed by
	// ReplaceAdapters. Process wiring captures it when a media-stream
	// connection is accepted and compares it again at teardown, so a stale
	// connection's cleanup never deletes a Session a newer reconnect has
	// since taken over (spec.md §4.8: the swap, and its inverse teardown,
	// must be atomic with respect to which physical connection owns the
	// Session).
	connEpoch int

	// conferenceRawRoute and conferenceTranscript are set by JoinConference
	// while this Session is paired (spec.md §4.11): raw inbound frames are
	// additionally forwarded to the peer leg, and finalized transcripts are
	// routed through the Conference Coordinator's shared-Gatekeeper/shared-
	// TTS path instead of the solo generateResponse loop. Both are nil for
	// a solo Session.
	conferenceRawRoute   func(frame []byte)
	conferenceTranscript func(ctx context.Context, t STTTranscript, speaker Speaker)

	userSpeechEndTime time.Time
	botSpeakStartTime time.Time
	sttStartTime      time.Time
	sttEndTime        time.Time
	llmStartTime      time.Time
	llmEndTime        time.Time
	ttsStartTime      time.Time
	ttsFirstChunkTime time.Time
	ttsEndTime        time.Time

	events    chan OrchestratorEvent
	closeOnce sync.Once
}

// NewSession constructs a Session in IDLE, ready for Init.
func NewSession(ctx context.Context, id string, role SessionRole, deps SessionDeps, cfg Config, logger Logger) *Session {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	sCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		ID:           id,
		Role:         role,
		logger:       logger,
		cfg:          cfg,
		deps:         deps,
		machine:      NewStateMachine(),
		conversation: NewConversation(cfg.MaxContextMessages, cfg.InterruptedMinCodepoints),
		detector:     NewInterruptionDetector(),
		speakers:     NewSpeakerBinding(),
		ctx:          sCtx,
		cancel:       cancel,
		lang:         cfg.Language,
		voice:        cfg.VoiceStyle,
		events:       make(chan OrchestratorEvent, 1024),
	}
	s.gate = NewAudioGate(func() {
		if deps.ClearDownstream != nil {
			deps.ClearDownstream()
		}
	})
	s.machine.Subscribe(func(t Transition) {
		s.emit(EvStateChanged, t)
	})
	return s
}

// Events returns the Session's outward event stream.
func (s *Session) Events() <-chan OrchestratorEvent { return s.events }

// State returns the current State Machine state.
func (s *Session) State() State { return s.machine.Current() }

// ConnEpoch returns the current physical-connection generation, bumped by
// every ReplaceAdapters call. Process wiring uses this to detect whether a
// connection tearing down is still the Session's current owner (spec.md
// §4.8).
func (s *Session) ConnEpoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connEpoch
}

// Init transitions the Session from IDLE to LISTENING and starts the
// streaming STT adapter, readying it to accept inbound audio.
func (s *Session) Init() error {
	if !s.machine.Attempt(StateListening, "init") {
		return fmt.Errorf("%w: cannot init from %s", ErrIllegalTransition, s.machine.Current())
	}
	return s.restartSTT()
}

// OnInboundFrame feeds one inbound μ-law audio frame (from the caller or,
// in conference mode, from one conference leg) through the Interruption
// Detector and into the active STT stream. trackID identifies the source
// track; in solo mode it is ignored.
func (s *Session) OnInboundFrame(frame []byte, trackID string) {
	speaker := SpeakerCaller
	if s.Role != RoleSolo {
		speaker = s.speakers.Resolve(trackID)
	}

	if s.cfg.EnableActivityInterruption {
		if ev := s.detector.Process(frame); ev != nil && ev.Type == VADActive && s.machine.Current() == StateSpeaking {
			s.interrupt("activity-detected")
		}
	}

	s.mu.Lock()
	ch := s.sttChan
	route := s.conferenceRawRoute
	s.mu.Unlock()

	if route != nil {
		route(frame)
	}

	if ch == nil {
		return
	}
	select {
	case ch <- frame:
	default:
	}
	_ = speaker
}

// OnTranscript handles one fragment delivered by the streaming STT
// adapter (spec.md §4.5/§4.8). Partial fragments are surfaced as events
// and, while the assistant is speaking, trigger interruption immediately
// — the transcript arriving at all is the authoritative barge-in signal
// (spec.md §9: activity detection is defense-in-depth only).
func (s *Session) OnTranscript(t STTTranscript, speaker Speaker) {
	if t.Text == "" && !t.SpeechFinal {
		return
	}

	if s.machine.Current() == StateSpeaking && t.Text != "" {
		s.interrupt("barge-in")
	}

	if !t.SpeechFinal {
		s.emit(EvTranscriptPartial, t)
		return
	}

	s.mu.Lock()
	s.sttEndTime = time.Now()
	s.userSpeechEndTime = s.sttEndTime
	s.mu.Unlock()

	s.emit(EvTranscriptFinal, t)

	s.mu.Lock()
	onConf := s.conferenceTranscript
	s.mu.Unlock()
	if onConf != nil {
		onConf(s.ctx, t, speaker)
		return
	}

	s.conversation.AppendUser(t.Text, speaker)
	s.generateResponse()
}

// generateResponse runs the response-generation algorithm of
// spec.md §4.8: consult the Gatekeeper, drive the LLM Stream Driver,
// execute any tool calls, then speak the finished text.
func (s *Session) generateResponse() {
	if !s.machine.Attempt(StateThinking, "generate") {
		return
	}

	decision := s.deps.Gatekeeper.Ask(s.ctx, s.conversation.Snapshot(), s.conversation.LastSpeaker())
	if s.deps.Gatekeeper != nil && !decision.Respond {
		s.machine.Attempt(StateListening, "gatekeeper-silent")
		return
	}

	gen := s.newGeneration()
	genCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	gen.cancel = cancel
	s.llmStartTime = time.Now()
	s.mu.Unlock()

	go s.runGeneration(genCtx, gen)
}

func (s *Session) newGeneration() *responseGen {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.cancel != nil {
		s.current.cancel()
	}
	gen := &responseGen{id: s.sttGeneration + 1, drained: make(chan struct{})}
	s.current = gen
	return gen
}

func (s *Session) runGeneration(ctx context.Context, gen *responseGen) {
	history := s.conversation.Snapshot()
	s.conversation.StartAssistant()

	var parts []Part
	var toolCalls bool

	var tools []ToolDefinition
	if s.deps.Tools != nil {
		tools = s.deps.Tools.Definitions()
	}

	err := s.deps.LLM.Generate(ctx, history, tools, func(ev LLMEvent) {
		switch ev.Kind {
		case LLMTextDelta:
			s.conversation.ExtendAssistant(ev.TextDelta)
			s.emit(EvAssistantDelta, ev.TextDelta)

		case LLMToolCall:
			toolCalls = true
			parts = append(parts, Part{Kind: PartToolCall, ToolCallID: ev.ToolCallID, ToolName: ev.ToolName, ToolArgs: ev.ToolArgs})
			s.emit(EvToolCall, ev)
			s.runTool(ctx, ev)

		case LLMToolError:
			s.emit(EvErrorEvent, ev.ToolErr)

		case LLMError:
			s.emit(EvErrorEvent, ev.Err)

		case LLMAbort:
			// expected cancellation; nothing to surface.
		}
	})

	s.mu.Lock()
	s.llmEndTime = time.Now()
	s.mu.Unlock()

	if ctx.Err() != nil {
		// Interrupted or superseded: interruption path already handled
		// the Conversation/State Machine transition.
		return
	}

	if err != nil {
		s.emit(EvErrorEvent, fmt.Errorf("%w: %v", ErrLLMFailed, err))
		s.machine.Attempt(StateListening, "llm-error")
		return
	}

	if toolCalls {
		s.conversation.AddAssistantStructured(parts)
	}

	text, _ := s.conversation.FinishAssistant()
	if text.Content == "" {
		s.machine.Attempt(StateListening, "empty-response")
		return
	}

	s.speak(ctx, gen, text.Content)
}

func (s *Session) runTool(ctx context.Context, ev LLMEvent) {
	if s.deps.Tools == nil {
		return
	}
	payload, err := s.deps.Tools.Execute(ctx, ev.ToolName, ev.ToolArgs)
	if err != nil {
		s.emit(EvErrorEvent, fmt.Errorf("%w: %s", ErrToolExecutionFailed, ev.ToolName))
		payload = ""
	}
	s.conversation.AddToolResults([]ToolResult{{ToolCallID: ev.ToolCallID, Payload: payload}})
	s.emit(EvToolResult, payload)
}

// speak drives the TTS adapter for one finished response and manages the
// THINKING->SPEAKING->LISTENING transition, including the drain wait of
// spec.md §5 (onTTSDrained bounded by TTSDrainTimeoutSeconds to avoid
// deadlocking the Session if the telephony provider never echoes a mark).
func (s *Session) speak(ctx context.Context, gen *responseGen, text string) {
	if !s.machine.Attempt(StateSpeaking, "speak") {
		return
	}
	s.gate.Enable()

	s.mu.Lock()
	s.botSpeakStartTime = time.Now()
	s.ttsStartTime = s.botSpeakStartTime
	s.mu.Unlock()

	err := s.deps.TTS.StreamSynthesize(ctx, text, s.voice, s.lang, func(chunk []byte) error {
		s.OnTTSFrame(chunk)
		return nil
	})

	s.mu.Lock()
	s.ttsEndTime = time.Now()
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.emit(EvErrorEvent, fmt.Errorf("%w: %v", ErrTTSFailed, err))
		s.machine.Attempt(StateListening, "tts-error")
		return
	}

	if s.deps.RequestDrainMark != nil {
		s.deps.RequestDrainMark(fmt.Sprintf("gen-%d", gen.id))
		s.waitForDrain(ctx, gen)
		return
	}

	s.machine.Attempt(StateListening, "tts-finished")
}

// OnTTSFrame is invoked once per synthesized audio chunk. It is exported
// so a TTS adapter driven directly (outside runGeneration, e.g. future
// incremental-synthesis drivers) can still route through the Audio Gate.
func (s *Session) OnTTSFrame(chunk []byte) {
	s.mu.Lock()
	if s.ttsFirstChunkTime.IsZero() {
		s.ttsFirstChunkTime = time.Now()
	}
	s.mu.Unlock()

	sent := s.gate.Send(chunk, func(b []byte) {
		if s.deps.SendMedia != nil {
			s.deps.SendMedia(b)
		}
	})
	if sent {
		s.emit(EvAudioChunk, chunk)
	}
}

// OnTTSDrained is called by the telephony layer once the provider echoes
// back the playback-completion marker requested in speak. It releases
// whichever generation is currently waiting on drain.
func (s *Session) OnTTSDrained(markName string) {
	s.mu.Lock()
	gen := s.current
	s.mu.Unlock()
	if gen == nil {
		return
	}
	if markName != "" && markName != fmt.Sprintf("gen-%d", gen.id) {
		return
	}
	gen.drainedOnce.Do(func() { close(gen.drained) })
}

func (s *Session) waitForDrain(ctx context.Context, gen *responseGen) {
	timeout := time.Duration(s.cfg.TTSDrainTimeoutSeconds * float64(time.Second))
	select {
	case <-gen.drained:
	case <-time.After(timeout):
		s.logger.Warn("tts drain timed out, forcing LISTENING", "sessionID", s.ID)
	case <-ctx.Done():
		return
	}
	s.machine.Attempt(StateListening, "tts-drained")
}

// SpeakVerbatim synthesizes and plays fixed text outside the normal
// LLM-driven response path (e.g. a transfer announcement). Valid only
// from LISTENING or IDLE.
func (s *Session) SpeakVerbatim(text string) error {
	cur := s.machine.Current()
	if cur != StateListening && cur != StateIdle {
		return fmt.Errorf("%w: speakVerbatim requires LISTENING, got %s", ErrInvalidState, cur)
	}
	if cur == StateIdle {
		s.machine.Attempt(StateListening, "speak-verbatim-init")
	}

	gen := s.newGeneration()
	genCtx, cancel := context.WithCancel(s.ctx)
	gen.cancel = cancel
	defer cancel()

	s.conversation.StartAssistant()
	s.conversation.ExtendAssistant(text)
	s.conversation.FinishAssistant()

	s.speak(genCtx, gen, text)
	return nil
}

// SendDTMF emits one DTMF digit on the call leg (spec.md §6 tool
// surface).
func (s *Session) SendDTMF(digit string) error {
	if s.deps.SendDTMF == nil {
		return nil
	}
	return s.deps.SendDTMF(digit)
}

// HangUp tears down the call leg and cleans up the Session.
func (s *Session) HangUp() error {
	var err error
	if s.deps.Hangup != nil {
		err = s.deps.Hangup()
	}
	s.emit(EvHangup, nil)
	s.Cleanup()
	return err
}

// TransferToHuman announces the transfer, waits the fixed settle delay,
// then asks the control plane to create a conference and dial
// ownerNumber into it (spec.md §4.8/§4.11). On conference setup failure
// the Session reverts to LISTENING and the error is returned to the
// tool-call site.
func (s *Session) TransferToHuman(ctx context.Context, ownerNumber, announcement string) error {
	if announcement != "" {
		if err := s.SpeakVerbatim(announcement); err != nil {
			return err
		}
	}

	settle := time.Duration(s.cfg.TransferSettleSeconds * float64(time.Second))
	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.deps.RequestTransfer == nil {
		return ErrConferenceSetupFailed
	}
	if err := s.deps.RequestTransfer(ctx, ownerNumber); err != nil {
		s.machine.Attempt(StateListening, "transfer-failed")
		return fmt.Errorf("%w: %v", ErrConferenceSetupFailed, err)
	}
	return nil
}

// ReplaceAdapters atomically swaps every per-connection collaborator
// backing this Session — the STT/TTS provider adapters and all six
// transport closures — preserving Conversation Model state, State Machine
// state, and speaker bindings: the reconnection semantics of spec.md §4.8.
// The in-flight STT stream is restarted against the new adapter; any
// in-flight response generation is left alone, matching the teacher's
// generation-counter pattern (stale callbacks from the old adapter are
// invalidated by restartSTT bumping sttGeneration). The Audio Gate's clear
// callback is rebound too, since it closes over the transport closures
// captured at NewSession time, not a live view of s.deps.
func (s *Session) ReplaceAdapters(rd ReconnectDeps) error {
	s.mu.Lock()
	s.deps.STT = rd.STT
	s.deps.TTS = rd.TTS
	s.deps.SendMedia = rd.SendMedia
	s.deps.ClearDownstream = rd.ClearDownstream
	s.deps.RequestDrainMark = rd.RequestDrainMark
	s.deps.SendDTMF = rd.SendDTMF
	s.deps.Hangup = rd.Hangup
	s.deps.RequestTransfer = rd.RequestTransfer
	s.connEpoch++
	s.mu.Unlock()

	s.gate.SetClear(func() {
		if rd.ClearDownstream != nil {
			rd.ClearDownstream()
		}
	})

	s.detector.Reset()
	if s.machine.Current() != StateIdle {
		return s.restartSTT()
	}
	return nil
}

// JoinConference pairs this Session into a Conference (spec.md §4.11):
// raw inbound frames are additionally forwarded to the peer leg via
// routeRaw, and finalized transcripts are routed to the Conference
// Coordinator's shared-Gatekeeper/shared-TTS path via onTranscript instead
// of the solo generateResponse loop.
func (s *Session) JoinConference(routeRaw func(frame []byte), onTranscript func(ctx context.Context, t STTTranscript, speaker Speaker)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conferenceRawRoute = routeRaw
	s.conferenceTranscript = onTranscript
}

// LeaveConference reverts this Session to solo routing — used by
// Conference.Disconnect when a leg survives the other's failure
// (spec.md §4.11). The Gatekeeper installed for the conference is removed
// too, so the solo Session always responds again.
func (s *Session) LeaveConference() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conferenceRawRoute = nil
	s.conferenceTranscript = nil
	s.deps.Gatekeeper = nil
}

// SetGatekeeper installs the Response Gatekeeper this Session's
// generateResponse (solo) or the Conference Coordinator (paired) consults
// before each LLM generation. A nil Gatekeeper means "always respond" —
// see NewGatekeeper's doc comment.
func (s *Session) SetGatekeeper(gk *Gatekeeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps.Gatekeeper = gk
}

func (s *Session) restartSTT() error {
	s.mu.Lock()
	if s.sttCancel != nil {
		s.sttCancel()
	}
	s.sttGeneration++
	generation := s.sttGeneration
	s.mu.Unlock()

	if s.deps.STT == nil {
		return ErrNilProvider
	}

	ctx, cancel := context.WithCancel(s.ctx)
	ch, err := s.deps.STT.StreamTranscribe(ctx, s.lang, func(t STTTranscript) error {
		s.mu.Lock()
		stale := generation != s.sttGeneration
		s.mu.Unlock()
		if stale {
			return nil
		}
		speaker := SpeakerCaller
		if s.Role != RoleSolo {
			speaker = s.speakers.Resolve(t.SpeakerID)
		}
		s.OnTranscript(t, speaker)
		return nil
	})
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrAdapterClosed, err)
	}

	s.mu.Lock()
	s.sttCancel = cancel
	s.sttChan = ch
	s.sttStartTime = time.Now()
	s.mu.Unlock()
	return nil
}

// interrupt implements the exact interruption ordering of spec.md §4.8:
// gate disabled + downstream cleared, LLM generation cancelled, TTS
// cancelled (via the same generation context), the in-flight partial
// assistant turn closed through the Conversation Model's interruption
// path, then state moved to INTERRUPTED and back to LISTENING.
func (s *Session) interrupt(reason string) {
	s.gate.StopImmediately()

	s.mu.Lock()
	gen := s.current
	s.current = nil
	s.mu.Unlock()
	if gen != nil && gen.cancel != nil {
		gen.cancel()
	}

	if err := s.deps.TTS.Abort(); err != nil {
		s.logger.Warn("tts abort failed", "sessionID", s.ID, "error", err)
	}

	s.conversation.FinishAssistantInterrupted()

	s.machine.Attempt(StateInterrupted, reason)
	s.machine.Attempt(StateListening, reason)
	s.emit(EvInterrupted, reason)
}

// Cleanup tears down the Session: cancels all in-flight work, closes the
// streaming STT adapter's context, and closes the event channel. Safe to
// call more than once.
func (s *Session) Cleanup() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.current != nil && s.current.cancel != nil {
			s.current.cancel()
		}
		if s.sttCancel != nil {
			s.sttCancel()
		}
		s.mu.Unlock()

		s.machine.Attempt(StateIdle, "cleanup")
		s.cancel()
		time.Sleep(10 * time.Millisecond)
		close(s.events)
	})
}

func (s *Session) emit(t EventType, data interface{}) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}
	defer func() { recover() }()
	select {
	case s.events <- OrchestratorEvent{Type: t, SessionID: s.ID, Data: data}:
	default:
	}
}

// LatencyBreakdown mirrors the teacher's per-turn instrumentation
// (ManagedStream.GetLatencyBreakdown), generalized to the Session's
// field names; useful for diagnosing barge-in/response latency without
// amounting to a cross-call analytics pipeline (spec.md Non-goals exclude
// the latter, not per-call instrumentation).
type LatencyBreakdown struct {
	UserToSTT          int64
	STT                int64
	UserToLLM          int64
	LLM                int64
	UserToTTSFirstByte int64
	LLMToTTSFirstByte  int64
	TTSTotal           int64
	BotStartLatency    int64
}

// GetLatencyBreakdown returns the measured timings for the most recent
// turn.
func (s *Session) GetLatencyBreakdown() LatencyBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bd LatencyBreakdown
	if s.userSpeechEndTime.IsZero() {
		return bd
	}
	if !s.sttEndTime.IsZero() {
		bd.UserToSTT = s.sttEndTime.Sub(s.userSpeechEndTime).Milliseconds()
	}
	if !s.sttStartTime.IsZero() && !s.sttEndTime.IsZero() {
		bd.STT = s.sttEndTime.Sub(s.sttStartTime).Milliseconds()
	}
	if !s.llmEndTime.IsZero() {
		bd.UserToLLM = s.llmEndTime.Sub(s.userSpeechEndTime).Milliseconds()
	}
	if !s.llmStartTime.IsZero() && !s.llmEndTime.IsZero() {
		bd.LLM = s.llmEndTime.Sub(s.llmStartTime).Milliseconds()
	}
	if !s.ttsFirstChunkTime.IsZero() {
		bd.UserToTTSFirstByte = s.ttsFirstChunkTime.Sub(s.userSpeechEndTime).Milliseconds()
	}
	if !s.llmEndTime.IsZero() && !s.ttsFirstChunkTime.IsZero() {
		bd.LLMToTTSFirstByte = s.ttsFirstChunkTime.Sub(s.llmEndTime).Milliseconds()
	}
	if !s.ttsStartTime.IsZero() && !s.ttsEndTime.IsZero() {
		bd.TTSTotal = s.ttsEndTime.Sub(s.ttsStartTime).Milliseconds()
	}
	if !s.botSpeakStartTime.IsZero() {
		bd.BotStartLatency = s.botSpeakStartTime.Sub(s.userSpeechEndTime).Milliseconds()
	}
	return bd
}
