package autodrive

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPhaseRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		phase Phase
		wire  string
	}{
		{"idle", Phase{Kind: PhaseIdle}, `{"name":"idle"}`},
		{"goal entry", Phase{Kind: PhaseAwaitingGoalEntry}, `{"name":"awaiting_goal_entry"}`},
		{"paused", Phase{Kind: PhasePausedManual, ResumeAfterSubmit: true}, `{"bypass_next_submit":false,"name":"paused_manual","resume_after_submit":true}`},
		{"coordinator", Phase{Kind: PhaseAwaitingCoordinator, PromptReady: true}, `{"name":"awaiting_coordinator","prompt_ready":true}`},
		{"diagnostics", Phase{Kind: PhaseAwaitingDiagnostics, CoordinatorWaiting: true}, `{"coordinator_waiting":true,"name":"awaiting_diagnostics"}`},
		{"review", Phase{Kind: PhaseAwaitingReview, DiagnosticsPending: true}, `{"diagnostics_pending":true,"name":"awaiting_review"}`},
		{"recovery", Phase{Kind: PhaseTransientRecovery, BackoffMs: 5000}, `{"backoff_ms":5000,"name":"transient_recovery"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.phase)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.wire {
				t.Fatalf("expected %s, got %s", tt.wire, data)
			}
			var back Phase
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back != tt.phase {
				t.Fatalf("expected %+v, got %+v", tt.phase, back)
			}
		})
	}
}

func TestPhaseRejectsUnknownName(t *testing.T) {
	var p Phase
	if err := json.Unmarshal([]byte(`{"name":"warp_drive"}`), &p); err == nil {
		t.Fatalf("expected error for unknown phase name")
	}
}

func TestStateDecodeDerivesSeconds(t *testing.T) {
	tests := []struct {
		mode string
		want int
	}{
		{"immediate", 0},
		{"ten_seconds", 10},
		{"sixty_seconds", 60},
		{"manual", 0},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			raw := `{"phase":{"name":"awaiting_coordinator","prompt_ready":true},"continue_mode":"` + tt.mode + `","countdown_id":10,"countdown_decision_seq":3,"seconds_remaining":42}`
			var st State
			if err := json.Unmarshal([]byte(raw), &st); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if st.SecondsRemaining != tt.want {
				t.Fatalf("expected derived seconds %d, got %d", tt.want, st.SecondsRemaining)
			}
			if st.CountdownID != 10 || st.CountdownDecisionSeq != 3 {
				t.Fatalf("unexpected countdown fields %+v", st)
			}
			if !st.Phase.PromptReady {
				t.Fatalf("expected prompt ready phase")
			}
		})
	}
}

func TestStateDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing phase", `{"continue_mode":"manual"}`},
		{"unknown mode", `{"phase":{"name":"idle"},"continue_mode":"eventually"}`},
		{"unknown phase", `{"phase":{"name":"nope"},"continue_mode":"manual"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st State
			if err := json.Unmarshal([]byte(tt.raw), &st); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	st := State{
		Phase:                Phase{Kind: PhaseAwaitingCoordinator, PromptReady: true},
		ContinueMode:         ContinueTenSeconds,
		CountdownID:          4,
		CountdownDecisionSeq: 2,
		SecondsRemaining:     10,
		RestartToken:         1,
		Goal:                 "tidy the queue",
		ExecIssued:           true,
		TurnsCompleted:       2,
	}
	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != st {
		t.Fatalf("expected %+v, got %+v", st, back)
	}
}

func TestDecodeOperations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Operation
	}{
		{
			name: "update continue mode",
			raw:  `{"type":"update_continue_mode","mode":"sixty_seconds"}`,
			want: UpdateContinueMode{Mode: ContinueSixtySeconds},
		},
		{
			name: "countdown tick",
			raw:  `{"type":"handle_countdown_tick","countdown_id":10,"decision_seq":3,"seconds_left":9}`,
			want: HandleCountdownTick{CountdownID: 10, DecisionSeq: 3, SecondsLeft: 9},
		},
		{
			name: "transient failure",
			raw:  `{"type":"pause_for_transient_failure","reason":"parity check"}`,
			want: PauseForTransientFailure{Reason: "parity check"},
		},
		{
			name: "stop run",
			raw:  `{"type":"stop_run","message":"done"}`,
			want: StopRun{Message: "done"},
		},
		{
			name: "stop run without message",
			raw:  `{"type":"stop_run"}`,
			want: StopRun{},
		},
		{
			name: "launch succeeded",
			raw:  `{"type":"launch_result","result":"succeeded","goal":"fix flaky test"}`,
			want: LaunchResult{Result: LaunchSucceeded, Goal: "fix flaky test"},
		},
		{
			name: "launch failed",
			raw:  `{"type":"launch_result","result":"failed","goal":"fix flaky test","error":"spawn failed"}`,
			want: LaunchResult{Result: LaunchFailed, Goal: "fix flaky test", Error: "spawn failed"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := DecodeOperation([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(op, tt.want) {
				t.Fatalf("expected %+v, got %+v", tt.want, op)
			}
		})
	}
}

func TestDecodeOperationRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unknown type", `{"type":"warp"}`},
		{"missing type", `{}`},
		{"bad mode", `{"type":"update_continue_mode","mode":"whenever"}`},
		{"bad outcome", `{"type":"launch_result","result":"maybe","goal":"g"}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOperation([]byte(tt.raw)); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
}

func TestEncodeEffectShapes(t *testing.T) {
	hint := "Press Esc again to exit Auto Drive"
	tests := []struct {
		name   string
		effect Effect
		want   map[string]any
	}{
		{
			name:   "refresh",
			effect: RefreshUI{},
			want:   map[string]any{"type": "refresh_ui"},
		},
		{
			name:   "start countdown",
			effect: StartCountdown{CountdownID: 2, DecisionSeq: 1, Seconds: 10},
			want:   map[string]any{"type": "start_countdown", "countdown_id": uint64(2), "decision_seq": uint64(1), "seconds": 10},
		},
		{
			name:   "hint set",
			effect: UpdateTerminalHint{Hint: &hint},
			want:   map[string]any{"type": "update_terminal_hint", "hint": hint},
		},
		{
			name:   "hint cleared",
			effect: UpdateTerminalHint{},
			want:   map[string]any{"type": "update_terminal_hint", "hint": nil},
		},
		{
			name:   "task running",
			effect: SetTaskRunning{Running: false},
			want:   map[string]any{"type": "set_task_running", "running": false},
		},
		{
			name:   "stop completed without message",
			effect: StopCompleted{TurnsCompleted: 2},
			want:   map[string]any{"type": "stop_completed", "turns_completed": 2, "duration_ms": int64(0)},
		},
		{
			name:   "exec request",
			effect: ExecRequest{CallID: "auto-drive-exec", Command: []string{"bash", "-lc", "ls -la"}, Reason: "goal"},
			want: map[string]any{
				"type":    "exec_request",
				"call_id": "auto-drive-exec",
				"command": []string{"bash", "-lc", "ls -la"},
				"reason":  "goal",
			},
		},
		{
			name:   "patch request",
			effect: PatchRequest{CallID: "auto-drive-patch", Changes: map[string]PatchChange{"AUTO_DRIVE_NOTES.md": {Kind: "add", Content: "Auto Drive goal: g\n"}}, Reason: "g"},
			want: map[string]any{
				"type":    "patch_request",
				"call_id": "auto-drive-patch",
				"changes": map[string]any{
					"AUTO_DRIVE_NOTES.md": map[string]any{"type": "add", "content": "Auto Drive goal: g\n"},
				},
				"reason": "g",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeEffect(tt.effect)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestSequenceEnvelopeDecode(t *testing.T) {
	raw := `{
		"initial_state": {
			"phase": {"name": "awaiting_coordinator", "prompt_ready": true},
			"continue_mode": "ten_seconds",
			"countdown_id": 10,
			"countdown_decision_seq": 3
		},
		"operations": [
			{"type": "update_continue_mode", "mode": "sixty_seconds"},
			{"type": "handle_countdown_tick", "countdown_id": 11, "decision_seq": 3, "seconds_left": 59}
		]
	}`
	var env struct {
		InitialState State             `json:"initial_state"`
		Operations   []json.RawMessage `json:"operations"`
	}
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ops, err := DecodeOperations(env.Operations)
	if err != nil {
		t.Fatalf("decode operations: %v", err)
	}
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(ops))
	}
	if env.InitialState.SecondsRemaining != 10 {
		t.Fatalf("expected derived seconds 10, got %d", env.InitialState.SecondsRemaining)
	}

	st := env.InitialState
	var effects []Effect
	st, effects = Apply(st, ops[0])
	if st.CountdownID != 11 || st.SecondsRemaining != 60 {
		t.Fatalf("unexpected state after mode change: %+v", st)
	}
	if got := effectNames(effects); !reflect.DeepEqual(got, []string{"refresh_ui", "start_countdown"}) {
		t.Fatalf("unexpected effects %v", got)
	}
	st, effects = Apply(st, ops[1])
	if got := effectNames(effects); !reflect.DeepEqual(got, []string{"refresh_ui"}) {
		t.Fatalf("unexpected tick effects %v", got)
	}
	if st.SecondsRemaining != 59 {
		t.Fatalf("expected 59 seconds remaining, got %d", st.SecondsRemaining)
	}
}
