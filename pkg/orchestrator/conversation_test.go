package orchestrator

import "testing"

func TestConversationAppendUserConferencePrefixing(t *testing.T) {
	c := NewConversation(40, 10)
	m := c.AppendUser("hello", SpeakerCaller)
	if m.Content != "[CALLER]: hello" {
		t.Fatalf("expected caller prefix, got %q", m.Content)
	}
	m2 := c.AppendUser("hi", SpeakerOwner)
	if m2.Content != "[OWNER]: hi" {
		t.Fatalf("expected owner prefix, got %q", m2.Content)
	}
	m3 := c.AppendUser("solo", SpeakerNone)
	if m3.Content != "solo" {
		t.Fatalf("expected no prefix outside conference mode, got %q", m3.Content)
	}
}

func TestConversationFinishAssistantPromotes(t *testing.T) {
	c := NewConversation(40, 10)
	c.StartAssistant()
	c.ExtendAssistant("hello ")
	c.ExtendAssistant("world")

	msg, ok := c.FinishAssistant()
	if !ok {
		t.Fatalf("expected finish to succeed")
	}
	if msg.Content != "hello world" {
		t.Fatalf("expected accumulated text, got %q", msg.Content)
	}
	if c.HasOpenPartial() {
		t.Fatalf("expected partial cleared after finish")
	}
}

func TestConversationFinishAssistantInterruptedBoundary9Dropped(t *testing.T) {
	c := NewConversation(40, 10)
	c.StartAssistant()
	c.ExtendAssistant("123456789") // 9 codepoints
	_, ok := c.FinishAssistantInterrupted()
	if ok {
		t.Fatalf("expected 9-codepoint interrupted partial to be dropped")
	}
	if len(c.Snapshot()) != 0 {
		t.Fatalf("expected no message appended for dropped partial")
	}
}

func TestConversationFinishAssistantInterruptedBoundary10Kept(t *testing.T) {
	c := NewConversation(40, 10)
	c.StartAssistant()
	c.ExtendAssistant("1234567890") // 10 codepoints
	msg, ok := c.FinishAssistantInterrupted()
	if !ok {
		t.Fatalf("expected 10-codepoint interrupted partial to be kept")
	}
	if !msg.Interrupted {
		t.Fatalf("expected message marked interrupted")
	}
}

func TestConversationFinishAssistantInterruptedBoundary11Kept(t *testing.T) {
	c := NewConversation(40, 10)
	c.StartAssistant()
	c.ExtendAssistant("12345678901") // 11 codepoints
	msg, ok := c.FinishAssistantInterrupted()
	if !ok {
		t.Fatalf("expected 11-codepoint interrupted partial to be kept")
	}
	if !msg.Interrupted {
		t.Fatalf("expected message marked interrupted")
	}
}

func TestConversationMultibyteCodepointCounting(t *testing.T) {
	c := NewConversation(40, 10)
	c.StartAssistant()
	// 10 multi-byte runes: each "é" is 2 bytes but 1 codepoint.
	c.ExtendAssistant("éééééééééé")
	_, ok := c.FinishAssistantInterrupted()
	if !ok {
		t.Fatalf("expected codepoint counting (not byte counting) to keep a 10-rune partial")
	}
}

func TestConversationAppendOnlyExceptPartialPromotion(t *testing.T) {
	c := NewConversation(40, 10)
	c.AppendUser("a", SpeakerNone)
	c.StartAssistant()
	c.ExtendAssistant("reply")
	c.FinishAssistant()
	c.AppendUser("b", SpeakerNone)

	snap := c.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 finalized messages, got %d", len(snap))
	}
	for i, m := range snap {
		if m.Index != i {
			t.Fatalf("expected message index %d, got %d", i, m.Index)
		}
	}
}

func TestConversationMaxMessagesBound(t *testing.T) {
	c := NewConversation(3, 10)
	for i := 0; i < 10; i++ {
		c.AppendUser("x", SpeakerNone)
	}
	if len(c.Snapshot()) != 3 {
		t.Fatalf("expected bounded to 3 messages, got %d", len(c.Snapshot()))
	}
}

func TestSpeakerBindingFirstTwoDistinctThenOwner(t *testing.T) {
	b := NewSpeakerBinding()
	if s := b.Resolve("track-a"); s != SpeakerCaller {
		t.Fatalf("expected first track bound to caller, got %s", s)
	}
	if s := b.Resolve("track-b"); s != SpeakerOwner {
		t.Fatalf("expected second track bound to owner, got %s", s)
	}
	if s := b.Resolve("track-a"); s != SpeakerCaller {
		t.Fatalf("expected stable rebind for track-a, got %s", s)
	}
	if s := b.Resolve("track-c"); s != SpeakerOwner {
		t.Fatalf("expected third distinct track bound to owner, got %s", s)
	}
}
