package orchestrator

import (
	"context"
	"testing"
)

func testDeps() SessionDeps {
	return SessionDeps{
		STT: &fakeStreamingSTT{},
		TTS: &fakeSessionTTS{},
		LLM: &fakeSessionLLM{reply: "hi"},
	}
}

func TestRegistryCreateGetHasDelete(t *testing.T) {
	r := NewRegistry()
	s := r.Create(context.Background(), "stream-1", RoleSolo, testDeps(), DefaultConfig(), nil)

	if !r.Has(s.ID) {
		t.Fatalf("expected registry to have created session")
	}
	got, ok := r.Get(s.ID)
	if !ok || got != s {
		t.Fatalf("expected Get to return the same session")
	}
	if err := r.Delete(s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Has(s.ID) {
		t.Fatalf("expected session removed after delete")
	}
}

func TestRegistryDeleteUnknownSession(t *testing.T) {
	r := NewRegistry()
	if err := r.Delete("missing"); err == nil {
		t.Fatalf("expected error deleting unknown session")
	}
}

func TestRegistryReplaceAdaptersUnknownSession(t *testing.T) {
	r := NewRegistry()
	err := r.ReplaceAdapters("missing", ReconnectDeps{STT: &fakeStreamingSTT{}, TTS: &fakeSessionTTS{}})
	if err == nil {
		t.Fatalf("expected error replacing adapters on unknown session")
	}
}

func TestRegistryCreateOrReconnectReusesExistingSession(t *testing.T) {
	r := NewRegistry()
	first, reconnected, err := r.CreateOrReconnect(context.Background(), "stream-1", RoleSolo, testDeps(), ReconnectDeps{}, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reconnected {
		t.Fatalf("expected first CreateOrReconnect to create, not reconnect")
	}
	first.conversation.AppendUser("hello", SpeakerNone)

	newSTT := &fakeStreamingSTT{}
	newTTS := &fakeSessionTTS{}
	second, reconnected, err := r.CreateOrReconnect(context.Background(), "stream-1", RoleSolo, testDeps(), ReconnectDeps{STT: newSTT, TTS: newTTS}, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error on reconnect: %v", err)
	}
	if !reconnected {
		t.Fatalf("expected second CreateOrReconnect with the same id to reconnect")
	}
	if second != first {
		t.Fatalf("expected reconnect to reuse the same Session, got a different one")
	}
	if len(second.conversation.Snapshot()) == 0 {
		t.Fatalf("expected conversation state preserved across reconnect")
	}
	if r.Len() != 1 {
		t.Fatalf("expected exactly one registered session after reconnect, got %d", r.Len())
	}
}

func TestRegistryShutdownTearsDownAll(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		s := r.Create(context.Background(), "", RoleSolo, testDeps(), DefaultConfig(), nil)
		if err := s.Init(); err != nil {
			t.Fatalf("init failed: %v", err)
		}
	}
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected all sessions removed after shutdown, got %d", r.Len())
	}
}
