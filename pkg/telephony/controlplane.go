package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ControlPlane is an HTTP client for the telephony provider's REST API:
// placing outbound calls, updating an in-progress call's routing, and
// creating a conference and dialing a third party into it (spec.md §6).
// Grounded on the raw net/http request-building style the teacher uses for
// its batch LLM/STT providers (pkg/providers/llm/*.go,
// pkg/providers/stt/*.go) rather than a provider-specific SDK, since the
// retrieval pack's only Twilio wiring goes through an abstraction layer
// (other_examples' omnivoice-twilio transport) that isn't vendored here.
type ControlPlane struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient *http.Client
}

// NewControlPlane creates a client for the given provider base URL
// (e.g. "https://api.twilio.com/2010-04-01") and account credentials.
func NewControlPlane(baseURL, accountSID, authToken string) *ControlPlane {
	return &ControlPlane{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// PlaceCallRequest describes an outbound call to originate.
type PlaceCallRequest struct {
	To              string
	From            string
	MediaStreamURL  string
	StatusCallback  string
}

// PlaceCallResult is the provider's acknowledgement of a placed call.
type PlaceCallResult struct {
	CallSID string `json:"call_sid"`
	Status  string `json:"status"`
}

// PlaceCall originates an outbound call that connects to a media stream
// at MediaStreamURL.
func (c *ControlPlane) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	var out PlaceCallResult
	err := c.doJSON(ctx, http.MethodPost, "/Calls", map[string]string{
		"To":             req.To,
		"From":           req.From,
		"MediaStreamUrl": req.MediaStreamURL,
		"StatusCallback": req.StatusCallback,
	}, &out)
	return out, err
}

// UpdateCall redirects an in-progress call to a new media-stream URL.
// cmd/agentd's transferToHuman path does not call it: the caller leg keeps
// its existing media stream and is paired in-process with the owner leg
// that CreateConferenceAndDial dials.
func (c *ControlPlane) UpdateCall(ctx context.Context, callSID, mediaStreamURL string) error {
	path := fmt.Sprintf("/Calls/%s", callSID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]string{
		"MediaStreamUrl": mediaStreamURL,
	}, nil)
}

// CreateConferenceAndDialRequest describes a conference to create plus the
// third party to dial into it (spec.md §4.11 transferToHuman).
type CreateConferenceAndDialRequest struct {
	ConferenceName string
	DialTo         string
	DialFrom       string
	MediaStreamURL string
}

// CreateConferenceAndDialResult is the provider's acknowledgement.
type CreateConferenceAndDialResult struct {
	ConferenceSID string `json:"conference_sid"`
	CallSID       string `json:"call_sid"`
}

// CreateConferenceAndDial creates a named conference and originates a call
// into it.
func (c *ControlPlane) CreateConferenceAndDial(ctx context.Context, req CreateConferenceAndDialRequest) (CreateConferenceAndDialResult, error) {
	var out CreateConferenceAndDialResult
	err := c.doJSON(ctx, http.MethodPost, "/Conferences", map[string]string{
		"ConferenceName": req.ConferenceName,
		"DialTo":         req.DialTo,
		"DialFrom":       req.DialFrom,
		"MediaStreamUrl": req.MediaStreamURL,
	}, &out)
	return out, err
}

// StatusCallback is the shape of the provider's asynchronous call/
// conference status webhook (spec.md §6).
type StatusCallback struct {
	CallSID       string `json:"call_sid"`
	ConferenceSID string `json:"conference_sid,omitempty"`
	Status        string `json:"status"`
}

func (c *ControlPlane) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: control-plane request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("telephony: control-plane returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
