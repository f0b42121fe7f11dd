package client

import (
	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

type HealthResponse struct {
	OK       bool   `json:"ok"`
	Version  string `json:"version"`
	PID      int    `json:"pid"`
	Sessions int    `json:"sessions"`
}

type CreateSessionResponse struct {
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	SessionID uint64 `json:"session_id"`
}

type ListSessionsResponse struct {
	Status   string                 `json:"status"`
	Sessions []types.SessionSummary `json:"sessions"`
}

// EventsResponse covers both reply shapes of the events endpoint: the ok
// window and the status/reason rejection.
type EventsResponse struct {
	Status     string              `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	Events     []types.EventRecord `json:"events"`
	NextCursor uint64              `json:"next_cursor"`
}

type UsageResponse struct {
	Status string             `json:"status"`
	Reason string             `json:"reason,omitempty"`
	Usage  engine.UsageReport `json:"usage"`
}
