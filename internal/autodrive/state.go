package autodrive

import (
	"encoding/json"
	"fmt"
)

type ContinueMode string

const (
	ContinueImmediate    ContinueMode = "immediate"
	ContinueTenSeconds   ContinueMode = "ten_seconds"
	ContinueSixtySeconds ContinueMode = "sixty_seconds"
	ContinueManual       ContinueMode = "manual"
)

// Seconds returns the countdown duration for the mode. Manual has no
// duration; ok is false.
func (m ContinueMode) Seconds() (int, bool) {
	switch m {
	case ContinueImmediate:
		return 0, true
	case ContinueTenSeconds:
		return 10, true
	case ContinueSixtySeconds:
		return 60, true
	default:
		return 0, false
	}
}

func (m ContinueMode) SecondsOrZero() int {
	seconds, _ := m.Seconds()
	return seconds
}

func (m ContinueMode) Valid() bool {
	switch m {
	case ContinueImmediate, ContinueTenSeconds, ContinueSixtySeconds, ContinueManual:
		return true
	default:
		return false
	}
}

// State is the controller's sole mutable aggregate. Transitions take and
// return it by value; nothing in this package retains a reference.
type State struct {
	Phase                    Phase
	ContinueMode             ContinueMode
	CountdownID              uint64
	CountdownDecisionSeq     uint64
	SecondsRemaining         int
	TransientRestartAttempts int
	RestartToken             uint64
	Goal                     string
	ExecIssued               bool
	PatchIssued              bool
	TurnsCompleted           int
}

// NewState returns the idle starting state used for fresh sessions.
func NewState() State {
	return State{Phase: Phase{Kind: PhaseIdle}, ContinueMode: ContinueManual}
}

type stateWire struct {
	Phase                    Phase        `json:"phase"`
	ContinueMode             ContinueMode `json:"continue_mode"`
	CountdownID              uint64       `json:"countdown_id"`
	CountdownDecisionSeq     uint64       `json:"countdown_decision_seq"`
	SecondsRemaining         int          `json:"seconds_remaining,omitempty"`
	TransientRestartAttempts int          `json:"transient_restart_attempts,omitempty"`
	RestartToken             uint64       `json:"restart_token,omitempty"`
	Goal                     string       `json:"goal,omitempty"`
	ExecIssued               bool         `json:"exec_issued,omitempty"`
	PatchIssued              bool         `json:"patch_issued,omitempty"`
	TurnsCompleted           int          `json:"turns_completed,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateWire{
		Phase:                    s.Phase,
		ContinueMode:             s.ContinueMode,
		CountdownID:              s.CountdownID,
		CountdownDecisionSeq:     s.CountdownDecisionSeq,
		SecondsRemaining:         s.SecondsRemaining,
		TransientRestartAttempts: s.TransientRestartAttempts,
		RestartToken:             s.RestartToken,
		Goal:                     s.Goal,
		ExecIssued:               s.ExecIssued,
		PatchIssued:              s.PatchIssued,
		TurnsCompleted:           s.TurnsCompleted,
	})
}

// UnmarshalJSON decodes a state snapshot. seconds_remaining is never
// trusted from the wire; it is re-derived from the continue mode.
func (s *State) UnmarshalJSON(data []byte) error {
	var wire stateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Phase.Kind == "" {
		return fmt.Errorf("state missing phase")
	}
	if !wire.ContinueMode.Valid() {
		return fmt.Errorf("unknown continue mode %q", wire.ContinueMode)
	}
	*s = State{
		Phase:                    wire.Phase,
		ContinueMode:             wire.ContinueMode,
		CountdownID:              wire.CountdownID,
		CountdownDecisionSeq:     wire.CountdownDecisionSeq,
		SecondsRemaining:         wire.ContinueMode.SecondsOrZero(),
		TransientRestartAttempts: wire.TransientRestartAttempts,
		RestartToken:             wire.RestartToken,
		Goal:                     wire.Goal,
		ExecIssued:               wire.ExecIssued,
		PatchIssued:              wire.PatchIssued,
		TurnsCompleted:           wire.TurnsCompleted,
	}
	return nil
}
