// Package autodrive implements the deterministic controller at the center
// of the auto-drive loop: a pure transition function from (state,
// operation) to (state, effects). Invalid or stale operations produce no
// effects and no state change; transitions never fail.
package autodrive

import "fmt"

const (
	maxRestartAttempts = 6
	backoffBaseMs      = 5_000
	backoffCapMs       = 120_000

	reasonLimit   = 160
	goalNoteLimit = 60

	pauseHint = "Press Esc again to exit Auto Drive"

	execCallID    = "auto-drive-exec"
	patchCallID   = "auto-drive-patch"
	notesFileName = "AUTO_DRIVE_NOTES.md"
)

// Apply runs one transition. The returned effect list may be empty; callers
// must treat that as a valid silent outcome.
func Apply(st State, op Operation) (State, []Effect) {
	switch op := op.(type) {
	case UpdateContinueMode:
		return applyContinueMode(st, op)
	case HandleCountdownTick:
		return applyCountdownTick(st, op)
	case PauseForTransientFailure:
		return applyTransientFailure(st, op)
	case StopRun:
		return applyStopRun(st, op)
	case LaunchResult:
		return applyLaunchResult(st, op)
	default:
		return st, nil
	}
}

func applyContinueMode(st State, op UpdateContinueMode) (State, []Effect) {
	st.ContinueMode = op.Mode
	st.SecondsRemaining = op.Mode.SecondsOrZero()
	if st.SecondsRemaining == 0 {
		st.CountdownDecisionSeq = 0
	}
	effects := []Effect{RefreshUI{}}
	if armed(st.Phase) && op.Mode != ContinueManual {
		st.CountdownID++
		effects = append(effects, StartCountdown{
			CountdownID: st.CountdownID,
			DecisionSeq: st.CountdownDecisionSeq,
			Seconds:     st.SecondsRemaining,
		})
	}
	return st, effects
}

func applyCountdownTick(st State, op HandleCountdownTick) (State, []Effect) {
	// Staleness rejection: ticks for a superseded countdown or decision
	// round are dropped without effects.
	if !armed(st.Phase) || op.CountdownID != st.CountdownID || op.DecisionSeq != st.CountdownDecisionSeq {
		return st, nil
	}
	st.SecondsRemaining = op.SecondsLeft
	if op.SecondsLeft == 0 {
		st.TurnsCompleted++
		return st, []Effect{SubmitPrompt{}}
	}
	return st, []Effect{RefreshUI{}}
}

func applyTransientFailure(st State, op PauseForTransientFailure) (State, []Effect) {
	st.TransientRestartAttempts++
	if st.TransientRestartAttempts > maxRestartAttempts {
		return exhaustRestarts(st, op.Reason)
	}
	attempt := st.TransientRestartAttempts
	delay := backoffDelayMs(attempt)
	st.Phase = Phase{Kind: PhaseTransientRecovery, BackoffMs: delay}
	st.RestartToken++
	hint := pauseHint
	return st, []Effect{
		CancelCoordinator{},
		SetTaskRunning{Running: false},
		UpdateTerminalHint{Hint: &hint},
		TransientPause{Attempt: attempt, DelayMs: delay, Reason: truncateRunes(op.Reason, reasonLimit)},
		ScheduleRestart{Token: st.RestartToken, Attempt: attempt, DelayMs: delay},
		RefreshUI{},
	}
}

// exhaustRestarts is the attempt-ceiling path: the run is abandoned with a
// full reset back to goal entry. Not an error; the effect sequence is the
// deterministic outcome.
func exhaustRestarts(st State, reason string) (State, []Effect) {
	st.Phase = Phase{Kind: PhaseAwaitingGoalEntry}
	st.CountdownID = 0
	st.CountdownDecisionSeq = 0
	st.SecondsRemaining = st.ContinueMode.SecondsOrZero()
	st.TransientRestartAttempts = 0
	st.RestartToken = 0
	st.ExecIssued = false
	st.PatchIssued = false
	st.TurnsCompleted = 0
	message := fmt.Sprintf("stopped after %d attempts; last error: %s",
		maxRestartAttempts, truncateRunes(reason, reasonLimit))
	return st, []Effect{
		CancelCoordinator{},
		ResetHistory{},
		ClearCoordinatorView{},
		UpdateTerminalHint{},
		SetTaskRunning{Running: false},
		EnsureInputFocus{},
		StopCompleted{Message: message, TurnsCompleted: 0, DurationMs: 0},
		RefreshUI{},
	}
}

func applyStopRun(st State, op StopRun) (State, []Effect) {
	turns := st.TurnsCompleted
	patchPending := !st.PatchIssued
	st.Phase = Phase{Kind: PhaseAwaitingGoalEntry}
	st.CountdownID = 0
	st.CountdownDecisionSeq = 0
	st.SecondsRemaining = st.ContinueMode.SecondsOrZero()
	st.ExecIssued = false
	st.PatchIssued = false
	st.TurnsCompleted = 0
	effects := []Effect{
		CancelCoordinator{},
		ResetHistory{},
		ClearCoordinatorView{},
		UpdateTerminalHint{},
		SetTaskRunning{Running: false},
		EnsureInputFocus{},
		StopCompleted{Message: op.Message, TurnsCompleted: turns, DurationMs: 0},
	}
	if patchPending {
		effects = append(effects, buildPatchRequest(st.Goal))
	}
	effects = append(effects, RefreshUI{})
	return st, effects
}

func applyLaunchResult(st State, op LaunchResult) (State, []Effect) {
	if op.Result == LaunchFailed {
		st.Phase = Phase{Kind: PhaseAwaitingGoalEntry}
		hint := op.Error
		if hint == "" {
			hint = "unknown error"
		}
		return st, []Effect{
			LaunchFailure{Message: op.Goal, Hint: hint},
			ShowGoalEntry{},
			RefreshUI{},
		}
	}
	st.Phase = Phase{Kind: PhaseAwaitingDiagnostics, CoordinatorWaiting: true}
	st.Goal = op.Goal
	effects := []Effect{
		LaunchStarted{Message: op.Goal},
		RefreshUI{},
	}
	if !st.ExecIssued {
		st.ExecIssued = true
		effects = append(effects, buildExecRequest(st.Goal))
	}
	return st, effects
}

func backoffDelayMs(attempt int) int64 {
	if attempt <= 1 {
		return backoffBaseMs
	}
	exponent := min(attempt-1, 5)
	delay := int64(backoffBaseMs) << exponent
	if delay > backoffCapMs {
		delay = backoffCapMs
	}
	return delay
}

func buildExecRequest(goal string) ExecRequest {
	return ExecRequest{
		CallID:  execCallID,
		Command: []string{"bash", "-lc", "ls -la"},
		Reason:  truncateRunes(goal, reasonLimit),
	}
}

func buildPatchRequest(goal string) PatchRequest {
	content := "Auto Drive goal: " + truncateRunes(goal, goalNoteLimit) + "\n"
	return PatchRequest{
		CallID:  patchCallID,
		Changes: map[string]PatchChange{notesFileName: {Kind: "add", Content: content}},
		Reason:  truncateRunes(goal, reasonLimit),
	}
}

// truncateRunes limits s to n runes, appending an ellipsis when cut.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
