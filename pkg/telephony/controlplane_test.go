package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestControlPlanePlaceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Calls" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		user, _, ok := r.BasicAuth()
		if !ok || user != "AC123" {
			t.Fatalf("expected basic auth with account sid")
		}
		json.NewEncoder(w).Encode(PlaceCallResult{CallSID: "CA1", Status: "queued"})
	}))
	defer srv.Close()

	c := NewControlPlane(srv.URL, "AC123", "token")
	out, err := c.PlaceCall(context.Background(), PlaceCallRequest{
		To: "+15551234567", From: "+15557654321", MediaStreamURL: "wss://example/media",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CallSID != "CA1" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestControlPlaneErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewControlPlane(srv.URL, "AC123", "token")
	_, err := c.PlaceCall(context.Background(), PlaceCallRequest{To: "x", From: "y"})
	if err == nil {
		t.Fatalf("expected error on non-2xx status")
	}
}

func TestControlPlaneCreateConferenceAndDial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Conferences" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(CreateConferenceAndDialResult{ConferenceSID: "CF1", CallSID: "CA2"})
	}))
	defer srv.Close()

	c := NewControlPlane(srv.URL, "AC123", "token")
	out, err := c.CreateConferenceAndDial(context.Background(), CreateConferenceAndDialRequest{
		ConferenceName: "transfer-1", DialTo: "+15550001111", DialFrom: "+15557654321",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ConferenceSID != "CF1" || out.CallSID != "CA2" {
		t.Fatalf("unexpected result: %+v", out)
	}
}
