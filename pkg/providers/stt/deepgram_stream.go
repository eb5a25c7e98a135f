package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

// DeepgramStreamingSTT is the duplex streaming adapter backing
// orchestrator.StreamingSTTProvider, grounded on the websocket
// request/response loop the teacher uses for LokutorTTS
// (pkg/providers/tts/lokutor.go) and on the μ-law/8kHz telephony media
// format documented by the Twilio-Deepgram example in the retrieval pack
// (other_examples/...twilio-deepgram-elevenlabs-voice-agent/main.go).
type DeepgramStreamingSTT struct {
	apiKey string
	host   string
}

// NewDeepgramStreamingSTT creates a streaming adapter for the given API
// key.
func NewDeepgramStreamingSTT(apiKey string) *DeepgramStreamingSTT {
	return &DeepgramStreamingSTT{apiKey: apiKey, host: "api.deepgram.com"}
}

func (s *DeepgramStreamingSTT) Name() string { return "deepgram-streaming-stt" }

// Transcribe delegates to the batch DeepgramSTT for one-shot use.
func (s *DeepgramStreamingSTT) Transcribe(ctx context.Context, audio []byte, lang orchestrator.Language) (string, error) {
	return NewDeepgramSTT(s.apiKey).Transcribe(ctx, audio, lang)
}

type deepgramResult struct {
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// StreamTranscribe opens a Deepgram streaming recognition websocket
// configured for telephony μ-law/8kHz audio, and accumulates
// is_final=true fragments into one utterance per speech_final=true
// delivery (spec.md §4.5).
func (s *DeepgramStreamingSTT) StreamTranscribe(ctx context.Context, lang orchestrator.Language, onTranscript func(orchestrator.STTTranscript) error) (chan<- []byte, error) {
	u := url.URL{
		Scheme: "wss",
		Host:   s.host,
		Path:   "/v1/listen",
	}
	q := u.Query()
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", "8000")
	q.Set("channels", "1")
	q.Set("model", "nova-2")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	q.Set("endpointing", "500")
	if lang != "" {
		q.Set("language", string(lang))
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: map[string][]string{"Authorization": {"Token " + s.apiKey}},
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial stream: %w", err)
	}

	audioIn := make(chan []byte, 64)
	accumulated := ""

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-audioIn:
				if !ok {
					return
				}
				if err := conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		for {
			_, payload, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var res deepgramResult
			if err := json.Unmarshal(payload, &res); err != nil {
				continue
			}
			if len(res.Channel.Alternatives) == 0 {
				continue
			}
			text := res.Channel.Alternatives[0].Transcript
			if text == "" && !res.SpeechFinal {
				continue
			}

			if res.IsFinal {
				if accumulated == "" {
					accumulated = text
				} else if text != "" {
					accumulated += " " + text
				}
			}

			if res.SpeechFinal {
				final := accumulated
				accumulated = ""
				onTranscript(orchestrator.STTTranscript{Final: true, SpeechFinal: true, Text: final})
			} else if !res.IsFinal {
				onTranscript(orchestrator.STTTranscript{Final: false, Text: text})
			}
		}
	}()

	return audioIn, nil
}
