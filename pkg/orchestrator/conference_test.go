package orchestrator

import (
	"context"
	"testing"
)

func newConferenceLeg(t *testing.T, id string) *Session {
	t.Helper()
	s := NewSession(context.Background(), id, RoleSolo, testDeps(), DefaultConfig(), nil)
	if err := s.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return s
}

func TestConferenceOnRawFrameRoutesToPeer(t *testing.T) {
	caller := newConferenceLeg(t, "caller")
	owner := newConferenceLeg(t, "owner")

	var egressedToOwner []byte
	var egressedToCaller []byte
	conf := NewConference(caller, owner, nil, nil)
	conf.EgressOwner = func(frame []byte) { egressedToOwner = frame }
	conf.EgressCaller = func(frame []byte) { egressedToCaller = frame }

	conf.OnRawFrame(true, []byte{9, 9, 9})
	if len(egressedToOwner) != 3 || egressedToCaller != nil {
		t.Fatalf("expected caller frame routed to owner egress only, got owner=%v caller=%v", egressedToOwner, egressedToCaller)
	}
}

func TestConferenceOnTranscriptSpeaksViaSharedTTSBypassingGate(t *testing.T) {
	caller := newConferenceLeg(t, "caller")
	owner := newConferenceLeg(t, "owner")

	sharedTTS := &fakeSessionTTS{}
	conf := NewConference(caller, owner, func() (TTSProvider, error) { return sharedTTS, nil }, nil)

	var callerAudio, ownerAudio []byte
	conf.EgressCaller = func(frame []byte) { callerAudio = frame }
	conf.EgressOwner = func(frame []byte) { ownerAudio = frame }

	// Both gates stay disabled, as they do in production for conference
	// legs (solo speak() never runs): the fix under test is that shared-TTS
	// audio reaches both egress streams regardless.
	if caller.gate.IsEnabled() || owner.gate.IsEnabled() {
		t.Fatalf("test setup assumption violated: gates should start disabled")
	}

	conf.OnTranscript(context.Background(), true, STTTranscript{Text: "hi", SpeechFinal: true})

	if len(callerAudio) == 0 || len(ownerAudio) == 0 {
		t.Fatalf("expected shared TTS audio fanned to both egress streams even with gates disabled, got caller=%v owner=%v", callerAudio, ownerAudio)
	}
	if len(caller.conversation.Snapshot()) == 0 || len(owner.conversation.Snapshot()) == 0 {
		t.Fatalf("expected both legs to observe the transcript turn")
	}
}

func TestConferenceDisconnectRevertsSurvivorToSolo(t *testing.T) {
	caller := newConferenceLeg(t, "caller")
	owner := newConferenceLeg(t, "owner")
	conf := NewConference(caller, owner, nil, nil)

	caller.deps.Hangup = func() error { return nil }
	owner.deps.Hangup = func() error { return nil }

	conf.Disconnect(context.Background(), owner)

	if caller.Role != RoleSolo {
		t.Fatalf("expected surviving caller reverted to solo, got %s", caller.Role)
	}
}
