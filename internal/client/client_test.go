package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		token:   "token",
		http: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func TestClientCreateSession(t *testing.T) {
	var seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","session_id":7}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	id, err := c.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if id != 7 {
		t.Fatalf("session id = %d, want 7", id)
	}
	if seenAuth != "Bearer token" {
		t.Fatalf("auth header = %q", seenAuth)
	}
}

func TestClientSubmitTurnForwardsRawPayload(t *testing.T) {
	var seenPath, seenBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		seenBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","reason":"invalid_submission"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	raw := json.RawMessage(`{"type":"control","command":"stop"}`)
	result, err := c.SubmitTurn(context.Background(), 3, raw)
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if seenPath != "/v1/sessions/3/turns" {
		t.Fatalf("path = %q", seenPath)
	}
	if seenBody != string(raw) {
		t.Fatalf("body = %q, want %q", seenBody, raw)
	}
	// Reason-coded rejections surface on the result, not as an error.
	if result.Status != "error" || result.Reason != "invalid_submission" {
		t.Fatalf("result = %+v", result)
	}
}

func TestClientPollEvents(t *testing.T) {
	var seenURI string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenURI = r.URL.RequestURI()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","events":[{"seq":5,"kind":"agent_message","payload":{"message":"hi"}}],"next_cursor":6}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	events, next, err := c.PollEvents(context.Background(), 9, 5)
	if err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if seenURI != "/v1/sessions/9/events?cursor=5" {
		t.Fatalf("uri = %q", seenURI)
	}
	if len(events) != 1 || events[0].Seq != 5 || next != 6 {
		t.Fatalf("events = %+v next = %d", events, next)
	}
}

func TestClientPollEventsReasonedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"error","reason":"session_not_found"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, _, err := c.PollEvents(context.Background(), 1, 0)
	if err == nil || !strings.Contains(err.Error(), "session_not_found") {
		t.Fatalf("err = %v, want session_not_found", err)
	}
}

func TestClientCloseSession(t *testing.T) {
	var seenMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.CloseSession(context.Background(), 4); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if seenMethod != http.MethodDelete {
		t.Fatalf("method = %q, want DELETE", seenMethod)
	}
}

func TestClientDecodesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Usage(context.Background())
	apiErr := asAPIError(err)
	if apiErr == nil {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "unauthorized" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestClientHealthSkipsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("health request carried auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"version":"dev","pid":123}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !resp.OK || resp.Version != "dev" || resp.PID != 123 {
		t.Fatalf("health = %+v", resp)
	}
}
