package types

const (
	EventKindAgentMessage     = "agent_message"
	EventKindCoordinatorEvent = "coordinator_event"
	EventKindAutoDriveStep    = "auto_drive_step"
	EventKindAutoDriveStatus  = "auto_drive_status"
)

// EventRecord is one entry of a session's append-only log. Seq is assigned
// by the session host, starts at 0, and increments by exactly one per
// appended event.
type EventRecord struct {
	Seq     uint64         `json:"seq"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}
