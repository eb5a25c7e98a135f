package telephony

import "testing"

func TestDecodeFrameMedia(t *testing.T) {
	raw := []byte(`{"event":"media","media":{"streamSid":"SS1","track":"inbound","payload":"YWJj"}}`)
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Event != UplinkMedia || f.Media == nil || f.Media.StreamSID != "SS1" {
		t.Fatalf("unexpected decoded frame: %+v", f)
	}
}

func TestDecodeFrameUnknownEventDoesNotError(t *testing.T) {
	raw := []byte(`{"event":"some-future-event"}`)
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("expected unknown event to decode without error, got %v", err)
	}
	if f.Event != "some-future-event" {
		t.Fatalf("expected event preserved, got %s", f.Event)
	}
}

func TestEncodeMediaRoundTrip(t *testing.T) {
	raw, err := EncodeMedia("SS1", "outbound", "YWJj")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if f.Media.Payload != "YWJj" || f.Media.Track != "outbound" {
		t.Fatalf("unexpected round-trip: %+v", f.Media)
	}
}

func TestEncodeClear(t *testing.T) {
	raw, err := EncodeClear("SS1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := DecodeFrame(raw)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if f.Event != "clear" {
		t.Fatalf("expected clear event, got %s", f.Event)
	}
}
