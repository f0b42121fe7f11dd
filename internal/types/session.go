package types

import "time"

type SessionState string

const (
	SessionStateOpen   SessionState = "open"
	SessionStateClosed SessionState = "closed"
)

type SessionRecord struct {
	ID        uint64       `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ClosedAt  *time.Time   `json:"closed_at,omitempty"`
	Turns     int          `json:"turns"`
	Events    int          `json:"events"`
	Goal      string       `json:"goal,omitempty"`
	Usage     UsageTotals  `json:"usage"`
}

type SessionSummary struct {
	ID        uint64       `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	Turns     int          `json:"turns"`
	Events    int          `json:"events"`
	Goal      string       `json:"goal,omitempty"`
}
