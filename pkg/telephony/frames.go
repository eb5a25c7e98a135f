// Package telephony implements the duplex media-stream wire protocol and
// control-plane client spec.md §6 describes: a downlink/uplink JSON frame
// protocol carried over a websocket, plus an HTTP control-plane client for
// placing calls, updating an in-progress call, and creating a conference
// and dialing a third party into it.
package telephony

import "encoding/json"

// DownlinkKind enumerates frame kinds the telephony provider sends to the
// orchestrator over the media-stream socket (spec.md §6).
type DownlinkKind string

const (
	DownlinkConnected DownlinkKind = "connected"
	DownlinkStart     DownlinkKind = "start"
	DownlinkMedia     DownlinkKind = "media"
	DownlinkStop      DownlinkKind = "stop"
)

// UplinkKind enumerates frame kinds the orchestrator sends to the
// telephony provider (spec.md §6).
type UplinkKind string

const (
	UplinkMedia UplinkKind = "media"
	UplinkMark  UplinkKind = "mark"
	UplinkClear UplinkKind = "clear"
	UplinkDTMF  UplinkKind = "dtmf"
)

// MediaPayload carries one frame of base64-encoded μ-law audio plus the
// stream/track identifiers needed to demultiplex conference legs.
type MediaPayload struct {
	StreamSID string `json:"streamSid"`
	Track     string `json:"track,omitempty"`
	Payload   string `json:"payload"`
}

// StartPayload describes the call/stream metadata delivered once, at the
// beginning of a media-stream connection.
type StartPayload struct {
	StreamSID string            `json:"streamSid"`
	CallSID   string            `json:"callSid"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Params    map[string]string `json:"customParameters,omitempty"`
}

// DTMFPayload carries one detected DTMF digit.
type DTMFPayload struct {
	StreamSID string `json:"streamSid"`
	Digit     string `json:"digit"`
}

// MarkPayload is an opaque completion marker the orchestrator attaches to
// an outbound media burst and the provider echoes back once it has been
// played out, used to pace onTTSDrained.
type MarkPayload struct {
	StreamSID string `json:"streamSid"`
	Name      string `json:"name"`
}

// Frame is one JSON message exchanged over the media-stream socket. Event
// is always present; at most one of the payload fields is populated
// depending on Event's value. Extra holds the raw frame as received, so
// fields this decoder does not map are preserved.
type Frame struct {
	Event UplinkKind      `json:"event"`
	Media *MediaPayload   `json:"media,omitempty"`
	Start *StartPayload   `json:"start,omitempty"`
	Mark  *MarkPayload    `json:"mark,omitempty"`
	DTMF  *DTMFPayload    `json:"dtmf,omitempty"`
	Extra json.RawMessage `json:"-"`
}

// DecodeFrame parses one inbound JSON frame. Unknown events decode
// successfully with a zero payload rather than erroring, matching
// spec.md §9's tagged-union-with-unknown-arm handling: a provider adding a
// new uplink event must not take the Session down.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, err
	}
	f.Extra = json.RawMessage(raw)
	return f, nil
}

// EncodeMedia builds the downlink JSON frame for one outbound audio
// chunk.
func EncodeMedia(streamSID string, track string, payloadB64 string) ([]byte, error) {
	return json.Marshal(struct {
		Event string       `json:"event"`
		Media MediaPayload `json:"media"`
	}{
		Event: string(DownlinkMedia),
		Media: MediaPayload{StreamSID: streamSID, Track: track, Payload: payloadB64},
	})
}

// EncodeClear builds the downlink "clear" frame that flushes a provider's
// jitter buffer (Audio Gate's clearDownstream, spec.md §4.4).
func EncodeClear(streamSID string) ([]byte, error) {
	return json.Marshal(struct {
		Event     string `json:"event"`
		StreamSID string `json:"streamSid"`
	}{Event: "clear", StreamSID: streamSID})
}

// EncodeMark builds the downlink "mark" frame used to request a playback
// completion echo for pacing onTTSDrained.
func EncodeMark(streamSID, name string) ([]byte, error) {
	return json.Marshal(struct {
		Event string      `json:"event"`
		Mark  MarkPayload `json:"mark"`
	}{
		Event: "mark",
		Mark:  MarkPayload{StreamSID: streamSID, Name: name},
	})
}
