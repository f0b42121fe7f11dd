// Package daemon exposes the session engine over a token-guarded local HTTP
// API and owns the daemon process lifecycle.
package daemon

import (
	"context"

	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

// API carries the handler dependencies. Handlers translate HTTP traffic into
// engine calls; all session semantics live behind the engine boundary.
type API struct {
	Version  string
	Engine   *engine.Engine
	Logger   logging.Logger
	Shutdown func(ctx context.Context) error
}

type CreateSessionResponse struct {
	Status    string `json:"status"`
	SessionID uint64 `json:"session_id"`
}

type ListSessionsResponse struct {
	Status   string                 `json:"status"`
	Sessions []types.SessionSummary `json:"sessions"`
}

type EventsResponse struct {
	Status     string              `json:"status"`
	Events     []types.EventRecord `json:"events"`
	NextCursor uint64              `json:"next_cursor"`
}

type UsageResponse struct {
	Status string             `json:"status"`
	Usage  engine.UsageReport `json:"usage"`
}
