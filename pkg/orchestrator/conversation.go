package orchestrator

import (
	"sync"
	"unicode/utf8"
)

// Conversation is the append-only turn log of one Session, plus the single
// mutable in-flight assistant buffer (spec.md §4.2). It replaces the
// teacher's ConversationSession, keeping the same mutex-guarded-struct
// shape but switching from a flat string context to a structured Message
// log capable of carrying tool calls/results and conference speaker tags.
type Conversation struct {
	mu sync.Mutex

	messages    []Message
	nextIndex   int
	maxMessages int

	// partial is the in-flight assistant turn. Nil when no assistant turn
	// is open. Promoted to a Message on finishAssistant, discarded (or
	// finalized short) on finishAssistantInterrupted depending on length.
	partial *partialAssistant

	minInterruptedCodepoints int
}

type partialAssistant struct {
	text string
}

// NewConversation creates an empty conversation. minInterruptedCodepoints
// is the spec.md §4.2 threshold (10) below which an interrupted partial is
// dropped instead of finalized.
func NewConversation(maxMessages, minInterruptedCodepoints int) *Conversation {
	return &Conversation{
		maxMessages:              maxMessages,
		minInterruptedCodepoints: minInterruptedCodepoints,
	}
}

func (c *Conversation) append(m Message) Message {
	m.Index = c.nextIndex
	c.nextIndex++
	c.messages = append(c.messages, m)
	if c.maxMessages > 0 && len(c.messages) > c.maxMessages {
		c.messages = c.messages[len(c.messages)-c.maxMessages:]
	}
	return m
}

// AppendUser appends a user turn. speaker is SpeakerNone outside
// conference mode; inside conference mode callers pass SpeakerCaller or
// SpeakerOwner and the text is prefixed for the LLM's benefit the way a
// human transcript would read.
func (c *Conversation) AppendUser(text string, speaker Speaker) Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	content := text
	switch speaker {
	case SpeakerCaller:
		content = "[CALLER]: " + text
	case SpeakerOwner:
		content = "[OWNER]: " + text
	}

	return c.append(Message{Role: RoleUser, Speaker: speaker, Content: content})
}

// StartAssistant opens a new partial assistant turn. No-op if one is
// already open (callers must finish or drop the existing one first).
func (c *Conversation) StartAssistant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.partial == nil {
		c.partial = &partialAssistant{}
	}
}

// ExtendAssistant appends delta text to the in-flight partial. Returns the
// accumulated text so far.
func (c *Conversation) ExtendAssistant(delta string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.partial == nil {
		c.partial = &partialAssistant{}
	}
	c.partial.text += delta
	return c.partial.text
}

// FinishAssistant promotes the partial buffer to a finalized Message and
// clears it. No-op (returns zero Message, false) if no partial is open.
func (c *Conversation) FinishAssistant() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.partial == nil {
		return Message{}, false
	}
	text := c.partial.text
	c.partial = nil
	return c.append(Message{Role: RoleAssistant, Content: text}), true
}

// FinishAssistantInterrupted closes the partial buffer following an
// interruption. Per spec.md §4.2/§4.3: if the accumulated text has fewer
// than minInterruptedCodepoints codepoints it is dropped entirely (the
// conversation looks as if the assistant never started speaking);
// otherwise it is finalized as a Message with Interrupted=true. Returns
// the finalized Message and true if one was appended.
func (c *Conversation) FinishAssistantInterrupted() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.partial == nil {
		return Message{}, false
	}
	text := c.partial.text
	c.partial = nil

	if utf8.RuneCountInString(text) < c.minInterruptedCodepoints {
		return Message{}, false
	}
	return c.append(Message{Role: RoleAssistant, Content: text, Interrupted: true}), true
}

// HasOpenPartial reports whether an assistant turn is currently in flight.
func (c *Conversation) HasOpenPartial() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partial != nil
}

// AddAssistantStructured appends a finalized assistant turn carrying
// structured parts (text mixed with tool calls), used when the LLM Stream
// Driver finishes a generation that invoked tools.
func (c *Conversation) AddAssistantStructured(parts []Part) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.append(Message{Role: RoleAssistant, Parts: parts})
}

// AddToolResults appends one tool-result turn.
func (c *Conversation) AddToolResults(results []ToolResult) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.append(Message{Role: RoleToolResult, ToolResults: results})
}

// Snapshot returns a copy of the finalized message log, in the shape an
// LLM Stream Driver would consume as conversation history. The in-flight
// partial (if any) is not included — it is not yet a Message.
func (c *Conversation) Snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LastSpeaker returns the Speaker of the most recent user Message, or
// SpeakerNone if there is none or the conversation isn't in conference
// mode.
func (c *Conversation) LastSpeaker() Speaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			return c.messages[i].Speaker
		}
	}
	return SpeakerNone
}

// SpeakerBinding resolves telephony-stream track identifiers to the
// Speaker tags used by the Conversation Model in conference mode. The
// first distinct track id observed is bound to caller, the second to
// owner; per spec.md §4.11 / Open Questions, any further distinct id
// (e.g. a misrouted third leg) is treated as the owner channel rather
// than rejected, since a live call has no recovery path for "unknown
// speaker" and the owner leg is conventionally the one re-dialed.
type SpeakerBinding struct {
	mu    sync.Mutex
	byID  map[string]Speaker
	order []string
}

// NewSpeakerBinding creates an empty binding table.
func NewSpeakerBinding() *SpeakerBinding {
	return &SpeakerBinding{byID: make(map[string]Speaker)}
}

// Resolve returns the Speaker bound to trackID, assigning a new binding on
// first sight.
func (b *SpeakerBinding) Resolve(trackID string) Speaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.byID[trackID]; ok {
		return s
	}

	var s Speaker
	switch len(b.order) {
	case 0:
		s = SpeakerCaller
	default:
		s = SpeakerOwner
	}
	b.byID[trackID] = s
	b.order = append(b.order, trackID)
	return s
}
