package orchestrator

import "errors"

// Error taxonomy. Kinds are handled semantically per spec.md §7; none of
// these ever propagate to the telephony boundary except by tearing down
// the Session.
var (
	// ErrEmptyTranscription: STT returned only whitespace.
	ErrEmptyTranscription = errors.New("transcription returned empty text")

	// ErrTranscriptionFailed: STT adapter failed.
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")

	// ErrLLMFailed: unexpected LLM fault (taxonomy: LLM-error).
	ErrLLMFailed = errors.New("language model generation failed")

	// ErrTTSFailed: TTS adapter failed.
	ErrTTSFailed = errors.New("text-to-speech synthesis failed")

	// ErrNilProvider: a required provider dependency was not supplied.
	ErrNilProvider = errors.New("required provider is nil")

	// ErrContextCancelled: operation observed context cancellation.
	ErrContextCancelled = errors.New("operation cancelled by context")

	// ErrIllegalTransition: State Machine rejected a transition. Non-fatal,
	// logged and ignored by callers.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrAdapterClosed: STT/TTS/telephony stream ended unexpectedly.
	// Action: cleanup the Session.
	ErrAdapterClosed = errors.New("adapter closed unexpectedly")

	// ErrLLMAbort: expected cancellation from interruption or cleanup.
	// Action: silent, never surfaced as a user-visible failure.
	ErrLLMAbort = errors.New("language model stream aborted")

	// ErrGatekeeperFailed: the Response Gatekeeper advisor could not be
	// reached or returned an error. Action: default to silent.
	ErrGatekeeperFailed = errors.New("gatekeeper advisor unavailable")

	// ErrConferenceSetupFailed: Telephony control-plane conference
	// creation or dial-out failed. Action: revert announcing Session to
	// LISTENING, surface to transferToHuman's caller.
	ErrConferenceSetupFailed = errors.New("conference setup failed")

	// ErrToolExecutionFailed: a tool invocation failed. Surfaced as a
	// tool-error event in the LLM stream; Session state is unchanged.
	ErrToolExecutionFailed = errors.New("tool execution failed")

	// ErrPersistenceFailed: appointment store write failed. Non-fatal to
	// the Session; the outcome is not retained for a later retry.
	ErrPersistenceFailed = errors.New("persistence operation failed")

	// ErrSessionNotFound: registry lookup miss.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed: operation attempted on a torn-down Session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNotInConference: a conference-only operation was attempted on a
	// solo Session, or vice versa.
	ErrNotInConference = errors.New("session is not part of a conference")

	// ErrInvalidState: an operation's state precondition was not met
	// (e.g. speakVerbatim while THINKING).
	ErrInvalidState = errors.New("operation not valid in current state")
)
