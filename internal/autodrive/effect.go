package autodrive

// Effect is the closed set of controller outputs. Effects carry no
// behavior here; the host serializes them for observers via EncodeEffect.
type Effect interface {
	EffectType() string
}

type RefreshUI struct{}

type StartCountdown struct {
	CountdownID uint64
	DecisionSeq uint64
	Seconds     int
}

type SubmitPrompt struct{}

type TransientPause struct {
	Attempt int
	DelayMs int64
	Reason  string
}

type ScheduleRestart struct {
	Token   uint64
	Attempt int
	DelayMs int64
}

type StopCompleted struct {
	Message        string
	TurnsCompleted int
	DurationMs     int64
}

type LaunchStarted struct {
	Message string
}

type LaunchFailure struct {
	Message string
	Hint    string
}

type ShowGoalEntry struct{}

type CancelCoordinator struct{}

type ResetHistory struct{}

type ClearCoordinatorView struct{}

type UpdateTerminalHint struct {
	Hint *string
}

type SetTaskRunning struct {
	Running bool
}

type EnsureInputFocus struct{}

type ExecRequest struct {
	CallID  string
	Command []string
	Cwd     string
	Reason  string
}

type PatchChange struct {
	Kind    string
	Content string
}

type PatchRequest struct {
	CallID    string
	Changes   map[string]PatchChange
	Reason    string
	GrantRoot bool
}

func (RefreshUI) EffectType() string            { return "refresh_ui" }
func (StartCountdown) EffectType() string       { return "start_countdown" }
func (SubmitPrompt) EffectType() string         { return "submit_prompt" }
func (TransientPause) EffectType() string       { return "transient_pause" }
func (ScheduleRestart) EffectType() string      { return "schedule_restart" }
func (StopCompleted) EffectType() string        { return "stop_completed" }
func (LaunchStarted) EffectType() string        { return "launch_started" }
func (LaunchFailure) EffectType() string        { return "launch_failed" }
func (ShowGoalEntry) EffectType() string        { return "show_goal_entry" }
func (CancelCoordinator) EffectType() string    { return "cancel_coordinator" }
func (ResetHistory) EffectType() string         { return "reset_history" }
func (ClearCoordinatorView) EffectType() string { return "clear_coordinator_view" }
func (UpdateTerminalHint) EffectType() string   { return "update_terminal_hint" }
func (SetTaskRunning) EffectType() string       { return "set_task_running" }
func (EnsureInputFocus) EffectType() string     { return "ensure_input_focus" }
func (ExecRequest) EffectType() string          { return "exec_request" }
func (PatchRequest) EffectType() string         { return "patch_request" }

// EncodeEffect renders one effect as a wire payload tagged by "type".
func EncodeEffect(e Effect) map[string]any {
	payload := map[string]any{"type": e.EffectType()}
	switch ef := e.(type) {
	case StartCountdown:
		payload["countdown_id"] = ef.CountdownID
		payload["decision_seq"] = ef.DecisionSeq
		payload["seconds"] = ef.Seconds
	case TransientPause:
		payload["attempt"] = ef.Attempt
		payload["delay_ms"] = ef.DelayMs
		payload["reason"] = ef.Reason
	case ScheduleRestart:
		payload["token"] = ef.Token
		payload["attempt"] = ef.Attempt
		payload["delay_ms"] = ef.DelayMs
	case StopCompleted:
		if ef.Message != "" {
			payload["message"] = ef.Message
		}
		payload["turns_completed"] = ef.TurnsCompleted
		payload["duration_ms"] = ef.DurationMs
	case LaunchStarted:
		payload["message"] = ef.Message
	case LaunchFailure:
		payload["message"] = ef.Message
		payload["hint"] = ef.Hint
	case UpdateTerminalHint:
		if ef.Hint != nil {
			payload["hint"] = *ef.Hint
		} else {
			payload["hint"] = nil
		}
	case SetTaskRunning:
		payload["running"] = ef.Running
	case ExecRequest:
		payload["call_id"] = ef.CallID
		payload["command"] = ef.Command
		if ef.Cwd != "" {
			payload["cwd"] = ef.Cwd
		}
		payload["reason"] = ef.Reason
	case PatchRequest:
		changes := make(map[string]any, len(ef.Changes))
		for path, change := range ef.Changes {
			entry := map[string]any{"type": change.Kind}
			if change.Content != "" {
				entry["content"] = change.Content
			}
			changes[path] = entry
		}
		payload["call_id"] = ef.CallID
		payload["changes"] = changes
		payload["reason"] = ef.Reason
		if ef.GrantRoot {
			payload["grant_root"] = true
		}
	}
	return payload
}

func EncodeEffects(effects []Effect) []map[string]any {
	encoded := make([]map[string]any, 0, len(effects))
	for _, e := range effects {
		encoded = append(encoded, EncodeEffect(e))
	}
	return encoded
}

func EffectTypeNames(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		names = append(names, e.EffectType())
	}
	return names
}
