// Command agentd is the telephony voice-agent process: it accepts
// media-stream websocket connections from the telephony provider, wires
// each one to a Session Orchestrator, and exposes the control-plane
// operations (transfer to human) a Session needs to drive outbound
// dialing. Provider/config wiring here replaces the teacher's local-mic
// demo (cmd/agent/main.go), which has no telephony call leg to drive.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lokutor-ai/lokutor-orchestrator/pkg/appointment"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/config"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/logging"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
	gatekeeperProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/gatekeeper"
	llmProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/llm"
	sttProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/stt"
	ttsProvider "github.com/lokutor-ai/lokutor-orchestrator/pkg/providers/tts"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/telephony"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using system environment variables")
	}

	configPath := flag.String("config", "config.yaml", "path to the agent configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zapLog.Sync()
	logger := logging.New(zapLog)

	store, err := appointment.Open(cfg.Appointment.DatabasePath)
	if err != nil {
		logger.Error("open appointment store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	stt := buildSTT(cfg.Providers.STT)
	llm := buildLLM(cfg.Providers.LLM)
	gk := buildGatekeeper(cfg, logger)

	ttsFactory := func() (orchestrator.TTSProvider, error) {
		return buildTTS(cfg.Providers.TTS), nil
	}

	var controlPlane *telephony.ControlPlane
	if baseURL := os.Getenv("TELEPHONY_CONTROL_PLANE_URL"); baseURL != "" {
		controlPlane = telephony.NewControlPlane(baseURL, os.Getenv("TELEPHONY_ACCOUNT_SID"), os.Getenv("TELEPHONY_AUTH_TOKEN"))
	}

	registry := orchestrator.NewRegistry()
	orchCfg := buildOrchestratorConfig(cfg)

	srv := &agentServer{
		cfg:          cfg,
		logger:       logger,
		registry:     registry,
		store:        store,
		controlPlane: controlPlane,
		orchCfg:      orchCfg,
		gatekeeper:   gk,
		newSTT:       func() orchestrator.StreamingSTTProvider { return stt },
		newLLM:       func() orchestrator.LLMStreamProvider { return llm },
		ttsFactory:   ttsFactory,
		pendingConf:  make(map[string]*pendingCaller),
		conferences:  make(map[string]*activeConference),
		sessionConf:  make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/media-stream", srv.handleMediaStream)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	httpSrv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}

	go func() {
		logger.Info("agentd listening", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down", "activeSessions", registry.Len())
	drainTimeout := time.Duration(orchCfg.TTSDrainTimeoutSeconds * float64(time.Second))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("registry shutdown reported errors", "error", err)
	}
}

// pendingCaller is a caller leg waiting to be paired once the owner leg it
// transferred to dials back in (spec.md §4.11). Registered by
// transferToHuman's RequestTransfer closure, consumed by pairOwnerLeg.
type pendingCaller struct {
	sess   *orchestrator.Session
	egress func(frame []byte)
}

// activeConference is one paired Conference Coordinator plus the two
// Session IDs it binds, so teardownConference can clear both sides of
// sessionConf without reaching into orchestrator.Conference's internals.
type activeConference struct {
	conf     *orchestrator.Conference
	callerID string
	ownerID  string
}

// agentServer holds the provider factories and collaborators each accepted
// media-stream connection is wired to. Providers are constructed once and
// shared across Sessions except TTS, which each Session's conference path
// needs to instantiate fresh via ttsFactory (spec.md §4.11: the shared
// conference TTS adapter is its own connection).
type agentServer struct {
	cfg          *config.Config
	logger       orchestrator.Logger
	registry     *orchestrator.Registry
	store        *appointment.Store
	controlPlane *telephony.ControlPlane
	orchCfg      orchestrator.Config
	gatekeeper   *orchestrator.Gatekeeper

	newSTT     func() orchestrator.StreamingSTTProvider
	newLLM     func() orchestrator.LLMStreamProvider
	ttsFactory func() (orchestrator.TTSProvider, error)

	// confMu guards the transfer/conference-pairing bookkeeping below. It
	// is distinct from any per-Session lock: pairing touches two Sessions
	// and the process-level maps at once (spec.md §4.11/§9).
	confMu      sync.Mutex
	pendingConf map[string]*pendingCaller
	conferences map[string]*activeConference
	sessionConf map[string]string // Session ID -> conference ID
}

// handleMediaStream accepts one telephony media-stream websocket and runs
// its Session for the lifetime of the call. A "start" frame bearing a
// stream id already registered (a reconnection, spec.md §4.8) swaps the
// Session's adapters in place instead of minting a new Session; a "start"
// frame carrying role=owner and a conferenceId pairs this leg with the
// caller leg waiting under that id (spec.md §4.11).
func (a *agentServer) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	ms, err := telephony.Accept(w, r)
	if err != nil {
		a.logger.Warn("accept media stream failed", "error", err)
		return
	}

	role := mediaStreamParam(r, ms, "role")
	conferenceID := mediaStreamParam(r, ms, "conferenceId")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tts, err := a.ttsFactory()
	if err != nil {
		a.logger.Error("construct tts adapter failed", "error", err)
		ms.Close()
		return
	}

	var sess *orchestrator.Session
	tools := a.buildToolRegistry(&sess)

	sendMedia := func(frame []byte) {
		if err := ms.SendMedia(ctx, "outbound", frame); err != nil {
			a.logger.Warn("send media failed", "callSID", ms.CallSID, "error", err)
		}
	}
	clearDownstream := func() {
		if err := ms.SendClear(ctx); err != nil {
			a.logger.Warn("send clear failed", "callSID", ms.CallSID, "error", err)
		}
	}
	requestDrainMark := func(name string) {
		if err := ms.SendMark(ctx, name); err != nil {
			a.logger.Warn("send mark failed", "callSID", ms.CallSID, "error", err)
		}
	}
	hangup := func() error { return ms.Close() }

	// requestTransfer registers the caller leg under a fresh conference id
	// and templates it into the owner's media-stream URL, so the callback
	// that dials the owner in (a brand new media-stream connection) can be
	// paired by handleMediaStream without depending on the provider
	// echoing custom parameters back (spec.md §4.11/§6).
	requestTransfer := func(ctx context.Context, ownerNumber string) error {
		if a.controlPlane == nil {
			return orchestrator.ErrConferenceSetupFailed
		}
		callerSess := sess
		confID := uuid.NewString()
		a.registerPendingCaller(confID, callerSess, sendMedia)

		mediaURL := fmt.Sprintf("%s/media-stream?role=owner&conferenceId=%s", a.cfg.Server.PublicURL, url.QueryEscape(confID))
		_, err := a.controlPlane.CreateConferenceAndDial(ctx, telephony.CreateConferenceAndDialRequest{
			ConferenceName: fmt.Sprintf("transfer-%s", ms.CallSID),
			DialTo:         ownerNumber,
			DialFrom:       a.cfg.Server.OwnerNumber,
			MediaStreamURL: mediaURL,
		})
		if err != nil {
			a.forgetPendingCaller(confID)
		}
		return err
	}

	deps := orchestrator.SessionDeps{
		STT:              a.newSTT(),
		TTS:              tts,
		LLM:              a.newLLM(),
		Tools:            tools,
		Appointment:      a.store,
		SendMedia:        sendMedia,
		ClearDownstream:  clearDownstream,
		RequestDrainMark: requestDrainMark,
		Hangup:           hangup,
		RequestTransfer:  requestTransfer,
	}

	rd := orchestrator.ReconnectDeps{
		STT:              deps.STT,
		TTS:              deps.TTS,
		SendMedia:        deps.SendMedia,
		ClearDownstream:  deps.ClearDownstream,
		RequestDrainMark: deps.RequestDrainMark,
		Hangup:           deps.Hangup,
		RequestTransfer:  deps.RequestTransfer,
	}

	sessRole := orchestrator.RoleSolo
	switch role {
	case "owner":
		sessRole = orchestrator.RoleOwner
	case "caller":
		sessRole = orchestrator.RoleCaller
	}

	sess, reconnected, err := a.registry.CreateOrReconnect(ctx, ms.StreamSID, sessRole, deps, rd, a.orchCfg, a.logger)
	if err != nil {
		a.logger.Error("session create/reconnect failed", "streamSID", ms.StreamSID, "error", err)
		ms.Close()
		return
	}
	connEpoch := sess.ConnEpoch()

	if reconnected {
		a.logger.Info("session reconnected", "sessionID", sess.ID, "callSID", ms.CallSID)
	} else {
		a.logger.Info("session started", "sessionID", sess.ID, "callSID", ms.CallSID)
	}

	if role == "owner" && conferenceID != "" && !reconnected {
		if !a.pairOwnerLeg(conferenceID, sess, sendMedia) {
			a.logger.Warn("owner leg could not be paired, running solo", "sessionID", sess.ID, "conferenceID", conferenceID)
		}
	}

	defer func() {
		a.teardownConference(context.Background(), sess)
		// Only the connection that is still the Session's current owner
		// tears the Session itself down; a stale connection racing a
		// reconnect must not delete the live, just-reconnected Session
		// (spec.md §4.8).
		if sess.ConnEpoch() == connEpoch {
			a.registry.Delete(sess.ID)
		}
		a.logger.Info("session ended", "sessionID", sess.ID, "callSID", ms.CallSID)
	}()

	for {
		frame, err := ms.ReadFrame(ctx)
		if err != nil {
			return
		}
		switch frame.Event {
		case telephony.UplinkMedia:
			if frame.Media == nil {
				continue
			}
			ulaw, err := decodeMediaPayload(frame.Media.Payload)
			if err != nil {
				continue
			}
			sess.OnInboundFrame(ulaw, frame.Media.Track)
		case telephony.UplinkMark:
			if frame.Mark != nil {
				sess.OnTTSDrained(frame.Mark.Name)
			}
		case telephony.UplinkDTMF:
			// DTMF delivery is telephony-provider initiated; the Session
			// has no inbound handler for it today (spec.md §6 lists
			// sendDTMF as an outbound-only tool effect).
		case telephony.UplinkClear:
			// Acknowledgement of our own clearDownstream request; no
			// Session-side action needed.
		}
	}
}

// mediaStreamParam reads a custom parameter first from the request's own
// query string (the mechanism this process uses when it dials the owner
// leg itself) and falls back to the "start" frame's customParameters
// (the literal wire mechanism of spec.md §6, for providers that echo
// parameters back instead of the query string).
func mediaStreamParam(r *http.Request, ms *telephony.MediaStream, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	if ms.Start != nil {
		return ms.Start.Params[key]
	}
	return ""
}

// registerPendingCaller records the caller leg awaiting the owner leg its
// own transferToHuman dialed out.
func (a *agentServer) registerPendingCaller(conferenceID string, sess *orchestrator.Session, egress func(frame []byte)) {
	a.confMu.Lock()
	defer a.confMu.Unlock()
	a.pendingConf[conferenceID] = &pendingCaller{sess: sess, egress: egress}
}

// forgetPendingCaller drops a pending registration whose dial-out never
// succeeded.
func (a *agentServer) forgetPendingCaller(conferenceID string) {
	a.confMu.Lock()
	defer a.confMu.Unlock()
	delete(a.pendingConf, conferenceID)
}

// pairOwnerLeg resolves the caller leg registered under conferenceID,
// builds the Conference Coordinator pairing it with the just-connected
// owner leg, wires both legs' raw-audio routing and transcript dispatch
// through it, and injects the shared Gatekeeper (spec.md §4.10/§4.11).
// Returns false if no caller is waiting under conferenceID (e.g. the
// owner leg reconnected after the caller already hung up).
func (a *agentServer) pairOwnerLeg(conferenceID string, ownerSess *orchestrator.Session, ownerEgress func(frame []byte)) bool {
	a.confMu.Lock()
	pending, ok := a.pendingConf[conferenceID]
	if ok {
		delete(a.pendingConf, conferenceID)
	}
	a.confMu.Unlock()
	if !ok {
		return false
	}

	conf := orchestrator.NewConference(pending.sess, ownerSess, a.ttsFactory, a.logger)
	conf.EgressCaller = pending.egress
	conf.EgressOwner = ownerEgress

	pending.sess.SetGatekeeper(a.gatekeeper)
	ownerSess.SetGatekeeper(a.gatekeeper)

	pending.sess.JoinConference(
		func(frame []byte) { conf.OnRawFrame(true, frame) },
		func(ctx context.Context, t orchestrator.STTTranscript, speaker orchestrator.Speaker) {
			conf.OnTranscript(ctx, speaker == orchestrator.SpeakerCaller, t)
		},
	)
	ownerSess.JoinConference(
		func(frame []byte) { conf.OnRawFrame(false, frame) },
		func(ctx context.Context, t orchestrator.STTTranscript, speaker orchestrator.Speaker) {
			conf.OnTranscript(ctx, speaker == orchestrator.SpeakerCaller, t)
		},
	)

	a.confMu.Lock()
	a.conferences[conferenceID] = &activeConference{conf: conf, callerID: pending.sess.ID, ownerID: ownerSess.ID}
	a.sessionConf[pending.sess.ID] = conferenceID
	a.sessionConf[ownerSess.ID] = conferenceID
	a.confMu.Unlock()

	a.logger.Info("conference paired", "conferenceID", conferenceID, "callerSessionID", pending.sess.ID, "ownerSessionID", ownerSess.ID)
	return true
}

// teardownConference pops sess's conference binding, if any, exactly once
// and disconnects it — reverting whichever leg survives back to solo
// (spec.md §4.11 failure semantics). Safe to call from both legs'
// cleanup paths racing each other.
func (a *agentServer) teardownConference(ctx context.Context, sess *orchestrator.Session) {
	a.confMu.Lock()
	conferenceID, ok := a.sessionConf[sess.ID]
	if !ok {
		a.confMu.Unlock()
		return
	}
	ac, ok := a.conferences[conferenceID]
	if ok {
		delete(a.conferences, conferenceID)
		delete(a.sessionConf, ac.callerID)
		delete(a.sessionConf, ac.ownerID)
	}
	a.confMu.Unlock()
	if ac == nil {
		return
	}
	ac.conf.Disconnect(ctx, sess)
}

// buildToolRegistry wires the hangUpCall/transferToHuman/appointment tool
// surface spec.md §6 names. sess is set by the caller after
// Registry.CreateOrReconnect returns; the handlers close over the pointer
// rather than its value, so they observe the real Session once
// construction completes (tool calls only ever run after Init, by which
// point sess is assigned).
func (a *agentServer) buildToolRegistry(sess **orchestrator.Session) *orchestrator.ToolRegistry {
	tools := orchestrator.NewToolRegistry()

	tools.Register(orchestrator.ToolDefinition{
		Name:        "fetchAppointment",
		Description: "Look up the caller's appointment record by id.",
		ParametersSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
			"required":   []string{"id"},
		},
	}, func(ctx context.Context, argsJSON string) (string, error) {
		var args struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", err
		}
		return a.store.FetchAppointment(ctx, args.ID)
	})

	tools.Register(orchestrator.ToolDefinition{
		Name:        "updateAppointmentStatus",
		Description: "Persist the outcome status of the appointment being handled on this call.",
		ParametersSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":     map[string]interface{}{"type": "string"},
				"status": map[string]interface{}{"type": "string"},
			},
			"required": []string{"id", "status"},
		},
	}, func(ctx context.Context, argsJSON string) (string, error) {
		var args struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", err
		}
		if err := a.store.UpdateAppointmentStatus(ctx, args.ID, args.Status); err != nil {
			// Non-fatal: the error becomes the tool result. The outcome
			// is not retained and no retry happens on cleanup.
			return "", err
		}
		return `{"ok":true}`, nil
	})

	tools.Register(orchestrator.ToolDefinition{
		Name:        "hangUpCall",
		Description: "End the call.",
	}, func(ctx context.Context, argsJSON string) (string, error) {
		s := *sess
		if s == nil {
			return "", orchestrator.ErrSessionClosed
		}
		return `{"ok":true}`, s.HangUp()
	})

	tools.Register(orchestrator.ToolDefinition{
		Name:        "transferToHuman",
		Description: "Announce a transfer and connect the caller to a human owner.",
		ParametersSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"announcement": map[string]interface{}{"type": "string"},
			},
		},
	}, func(ctx context.Context, argsJSON string) (string, error) {
		s := *sess
		if s == nil {
			return "", orchestrator.ErrSessionClosed
		}
		var args struct {
			Announcement string `json:"announcement"`
		}
		_ = json.Unmarshal([]byte(argsJSON), &args)
		if err := s.TransferToHuman(ctx, a.cfg.Server.OwnerNumber, args.Announcement); err != nil {
			return "", err
		}
		return `{"ok":true}`, nil
	})

	return tools
}

func decodeMediaPayload(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(payload)
}

func buildSTT(name string) orchestrator.StreamingSTTProvider {
	switch name {
	case "deepgram":
		key := os.Getenv("DEEPGRAM_API_KEY")
		if key == "" {
			log.Fatal("DEEPGRAM_API_KEY must be set for providers.stt: deepgram")
		}
		return sttProvider.NewDeepgramStreamingSTT(key)
	default:
		log.Fatalf("unsupported providers.stt %q (streaming speech-to-text is required)", name)
		return nil
	}
}

func buildLLM(name string) orchestrator.LLMStreamProvider {
	switch name {
	case "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			log.Fatal("ANTHROPIC_API_KEY must be set for providers.llm: anthropic")
		}
		return llmProvider.NewAnthropicStreamLLM(key, os.Getenv("ANTHROPIC_MODEL"))
	default:
		log.Fatalf("unsupported providers.llm %q (only the streaming tool-calling anthropic adapter is wired to the Session Orchestrator)", name)
		return nil
	}
}

// buildGatekeeper wires the Response Gatekeeper (spec.md §4.10) to the
// batch (non-streaming) Anthropic adapter the teacher carried for one-shot
// completions, reusing the same streaming LLM's credentials. Returns nil
// (always-respond, solo-call behavior) if no batch completer can be
// built — conference calls still function, just ungated.
func buildGatekeeper(cfg *config.Config, logger orchestrator.Logger) *orchestrator.Gatekeeper {
	if cfg.Providers.LLM != "anthropic" {
		return nil
	}
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil
	}
	batch := llmProvider.NewAnthropicLLM(key, os.Getenv("ANTHROPIC_MODEL"))
	return orchestrator.NewGatekeeper(gatekeeperProvider.NewLLMGatekeeper(batch), logger)
}

func buildTTS(name string) orchestrator.TTSProvider {
	switch name {
	case "lokutor":
		key := os.Getenv("LOKUTOR_API_KEY")
		if key == "" {
			log.Fatal("LOKUTOR_API_KEY must be set for providers.tts: lokutor")
		}
		return ttsProvider.NewLokutorTTS(key)
	default:
		log.Fatalf("unsupported providers.tts %q", name)
		return nil
	}
}

func buildOrchestratorConfig(cfg *config.Config) orchestrator.Config {
	oc := orchestrator.DefaultConfig()
	oc.MaxContextMessages = cfg.Agent.MaxContextMessages
	oc.Language = orchestrator.Language(cfg.Agent.Language)
	oc.VoiceStyle = orchestrator.Voice(cfg.Agent.Voice)
	oc.TTSDrainTimeoutSeconds = cfg.Agent.TTSDrainTimeoutSeconds
	oc.TransferSettleSeconds = cfg.Agent.TransferSettleSeconds
	oc.EnableActivityInterruption = cfg.Agent.EnableActivityInterruption
	return oc
}
