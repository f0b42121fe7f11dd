package autodrive

import (
	"encoding/json"
	"fmt"
)

type PhaseKind string

const (
	PhaseIdle                PhaseKind = "idle"
	PhaseAwaitingGoalEntry   PhaseKind = "awaiting_goal_entry"
	PhaseLaunching           PhaseKind = "launching"
	PhaseActive              PhaseKind = "active"
	PhasePausedManual        PhaseKind = "paused_manual"
	PhaseAwaitingCoordinator PhaseKind = "awaiting_coordinator"
	PhaseAwaitingDiagnostics PhaseKind = "awaiting_diagnostics"
	PhaseAwaitingReview      PhaseKind = "awaiting_review"
	PhaseTransientRecovery   PhaseKind = "transient_recovery"
)

// Phase is one branch of the controller's state enumeration. Only the
// fields belonging to the kind are meaningful; the codec drops the rest.
type Phase struct {
	Kind               PhaseKind
	PromptReady        bool
	ResumeAfterSubmit  bool
	BypassNextSubmit   bool
	CoordinatorWaiting bool
	DiagnosticsPending bool
	BackoffMs          int64
}

func (p Phase) Name() string {
	return string(p.Kind)
}

// armed reports whether countdown ticks are honored in this phase: the run
// must be past goal entry, not manually paused, and the coordinator must be
// waiting with a prompt ready to submit.
func armed(p Phase) bool {
	switch p.Kind {
	case PhaseIdle, PhaseAwaitingGoalEntry:
		return false
	case PhasePausedManual:
		return false
	case PhaseAwaitingCoordinator:
		return p.PromptReady
	default:
		return false
	}
}

func validPhaseKind(kind PhaseKind) bool {
	switch kind {
	case PhaseIdle, PhaseAwaitingGoalEntry, PhaseLaunching, PhaseActive,
		PhasePausedManual, PhaseAwaitingCoordinator, PhaseAwaitingDiagnostics,
		PhaseAwaitingReview, PhaseTransientRecovery:
		return true
	default:
		return false
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	obj := map[string]any{"name": string(p.Kind)}
	switch p.Kind {
	case PhasePausedManual:
		obj["resume_after_submit"] = p.ResumeAfterSubmit
		obj["bypass_next_submit"] = p.BypassNextSubmit
	case PhaseAwaitingCoordinator:
		obj["prompt_ready"] = p.PromptReady
	case PhaseAwaitingDiagnostics:
		obj["coordinator_waiting"] = p.CoordinatorWaiting
	case PhaseAwaitingReview:
		obj["diagnostics_pending"] = p.DiagnosticsPending
	case PhaseTransientRecovery:
		obj["backoff_ms"] = p.BackoffMs
	}
	return json.Marshal(obj)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name               string `json:"name"`
		PromptReady        bool   `json:"prompt_ready"`
		ResumeAfterSubmit  bool   `json:"resume_after_submit"`
		BypassNextSubmit   bool   `json:"bypass_next_submit"`
		CoordinatorWaiting bool   `json:"coordinator_waiting"`
		DiagnosticsPending bool   `json:"diagnostics_pending"`
		BackoffMs          int64  `json:"backoff_ms"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	kind := PhaseKind(wire.Name)
	if !validPhaseKind(kind) {
		return fmt.Errorf("unknown phase %q", wire.Name)
	}
	out := Phase{Kind: kind}
	switch kind {
	case PhasePausedManual:
		out.ResumeAfterSubmit = wire.ResumeAfterSubmit
		out.BypassNextSubmit = wire.BypassNextSubmit
	case PhaseAwaitingCoordinator:
		out.PromptReady = wire.PromptReady
	case PhaseAwaitingDiagnostics:
		out.CoordinatorWaiting = wire.CoordinatorWaiting
	case PhaseAwaitingReview:
		out.DiagnosticsPending = wire.DiagnosticsPending
	case PhaseTransientRecovery:
		out.BackoffMs = wire.BackoffMs
	}
	*p = out
	return nil
}
