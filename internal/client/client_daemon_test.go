package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/daemon"
	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

// Round trip against the real API surface instead of canned handlers.
func TestClientAgainstDaemonAPI(t *testing.T) {
	api := &daemon.API{Version: "test", Engine: engine.New()}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	server := httptest.NewServer(daemon.TokenAuthMiddleware("token", mux))
	defer server.Close()

	c := &Client{
		baseURL: server.URL,
		token:   "token",
		http:    &http.Client{Timeout: 2 * time.Second},
	}
	ctx := context.Background()

	id, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	result, err := c.SubmitTurn(ctx, id, json.RawMessage(`{"type":"control","command":"stop"}`))
	if err != nil {
		t.Fatalf("SubmitTurn: %v", err)
	}
	if result.Status != engine.StatusOK {
		t.Fatalf("result = %+v", result)
	}

	events, next, err := c.PollEvents(ctx, id, 0)
	if err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	if len(events) != 2 || next != 2 {
		t.Fatalf("events = %d next = %d, want 2/2", len(events), next)
	}
	if events[0].Kind != types.EventKindCoordinatorEvent {
		t.Fatalf("first event = %q", events[0].Kind)
	}

	sessions, err := c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != id {
		t.Fatalf("sessions = %+v", sessions)
	}

	if err := c.CloseSession(ctx, id); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if err := c.CloseSession(ctx, id); err == nil {
		t.Fatalf("expected close of missing session to fail")
	}

	replay, err := c.ReplaySequence(ctx, json.RawMessage(`{
		"initial_state": {"phase": {"name": "awaiting_coordinator", "prompt_ready": true}, "continue_mode": "manual"},
		"operations": [{"type": "update_continue_mode", "mode": "ten_seconds"}]
	}`))
	if err != nil {
		t.Fatalf("ReplaySequence: %v", err)
	}
	if replay.Kind != engine.KindAutoDriveSequence || len(replay.Steps) != 1 {
		t.Fatalf("replay = %+v", replay)
	}
}
