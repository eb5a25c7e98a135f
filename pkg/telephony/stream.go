package telephony

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

// MediaStream is one accepted media-stream connection: a duplex websocket
// carrying Frame JSON messages, grounded on the read/write-loop shape of
// the teacher's LokutorTTS websocket client (pkg/providers/tts/lokutor.go),
// generalized from a single request/response exchange to a long-lived
// full-duplex call leg.
type MediaStream struct {
	conn      *websocket.Conn
	StreamSID string
	CallSID   string

	// Start is the full payload of the accepted "start" frame, including
	// custom parameters (role, conferenceId, appointmentId — spec.md §6).
	// Process wiring reads these as a fallback when the dialing side
	// couldn't template them into the media-stream URL's query string.
	Start *StartPayload
}

// Accept upgrades an inbound HTTP request to a media-stream websocket and
// blocks reading the first frame, which must be a "start" event carrying
// the stream/call identifiers.
func Accept(w http.ResponseWriter, r *http.Request) (*MediaStream, error) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("telephony: accept media stream: %w", err)
	}

	ms := &MediaStream{conn: conn}
	frame, err := ms.ReadFrame(r.Context())
	if err != nil {
		conn.Close(websocket.StatusAbnormalClosure, "failed to read start frame")
		return nil, fmt.Errorf("telephony: read start frame: %w", err)
	}
	if frame.Event != "start" || frame.Start == nil {
		conn.Close(websocket.StatusAbnormalClosure, "expected start frame")
		return nil, fmt.Errorf("telephony: expected start frame, got %s", frame.Event)
	}

	ms.StreamSID = frame.Start.StreamSID
	ms.CallSID = frame.Start.CallSID
	ms.Start = frame.Start
	return ms, nil
}

// ReadFrame blocks for the next inbound JSON frame.
func (ms *MediaStream) ReadFrame(ctx context.Context) (Frame, error) {
	_, payload, err := ms.conn.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	return DecodeFrame(payload)
}

// SendMedia base64-encodes and writes one outbound μ-law audio chunk.
func (ms *MediaStream) SendMedia(ctx context.Context, track string, ulaw []byte) error {
	payload := base64.StdEncoding.EncodeToString(ulaw)
	frame, err := EncodeMedia(ms.StreamSID, track, payload)
	if err != nil {
		return err
	}
	return ms.conn.Write(ctx, websocket.MessageText, frame)
}

// SendClear writes the downlink "clear" frame.
func (ms *MediaStream) SendClear(ctx context.Context) error {
	frame, err := EncodeClear(ms.StreamSID)
	if err != nil {
		return err
	}
	return ms.conn.Write(ctx, websocket.MessageText, frame)
}

// SendMark writes a downlink "mark" frame requesting a playback-complete
// echo under name.
func (ms *MediaStream) SendMark(ctx context.Context, name string) error {
	frame, err := EncodeMark(ms.StreamSID, name)
	if err != nil {
		return err
	}
	return ms.conn.Write(ctx, websocket.MessageText, frame)
}

// Close tears down the underlying websocket.
func (ms *MediaStream) Close() error {
	return ms.conn.Close(websocket.StatusNormalClosure, "")
}
