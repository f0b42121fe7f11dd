package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/autodrive"
	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

const (
	promptPlaceholder  = "(no prompt)"
	promptDisplayLimit = 200
	goalLimit          = 512
)

// SequenceStep records one fold step: the state after the operation, the
// encoded effects it produced, and a one-line summary.
type SequenceStep struct {
	State   autodrive.State  `json:"state"`
	Effects []map[string]any `json:"effects"`
	Summary string           `json:"summary"`
}

type SubmitResult struct {
	Status string         `json:"status"`
	Reason string         `json:"reason,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Steps  []SequenceStep `json:"steps,omitempty"`
}

func errorResult(reason string) SubmitResult {
	return SubmitResult{Status: StatusError, Reason: reason}
}

// SubmitTurn dispatches one submission against a session. Malformed
// payloads report invalid_submission; chat turns degrade to fallback events
// instead of failing.
func (e *Engine) SubmitTurn(ctx context.Context, sessionID uint64, raw []byte) SubmitResult {
	sess, ok := e.lookup(sessionID)
	if !ok {
		return errorResult(ReasonSessionNotFound)
	}

	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return errorResult(ReasonInvalidSubmission)
	}

	var result SubmitResult
	switch tag.Type {
	case "auto_drive_sequence":
		result = e.submitSequence(sess, raw)
	case "chat_turn":
		result = e.submitChatTurn(ctx, sess, raw)
	case "control":
		result = e.submitControl(sess, raw)
	default:
		result = errorResult(ReasonInvalidSubmission)
	}
	if e.logger.Enabled(logging.Debug) {
		e.logger.Debug("turn dispatched",
			logging.F("session_id", sess.id),
			logging.F("type", tag.Type),
			logging.F("status", result.Status))
	}
	return result
}

type sequenceEnvelope struct {
	InitialState autodrive.State   `json:"initial_state"`
	Operations   []json.RawMessage `json:"operations"`
}

func decodeSequence(raw []byte) (autodrive.State, []autodrive.Operation, error) {
	var env sequenceEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return autodrive.State{}, nil, err
	}
	// An absent initial_state decodes to a zero value.
	if env.InitialState.Phase.Kind == "" {
		return autodrive.State{}, nil, errors.New("missing initial_state")
	}
	ops, err := autodrive.DecodeOperations(env.Operations)
	if err != nil {
		return autodrive.State{}, nil, err
	}
	return env.InitialState, ops, nil
}

// submitSequence folds a caller-supplied sequence and replaces the live
// controller state with the result. The steps travel back in the reply; no
// events are appended.
func (e *Engine) submitSequence(sess *session, raw []byte) SubmitResult {
	initial, ops, err := decodeSequence(raw)
	if err != nil {
		e.logger.Warn("sequence decode failed",
			logging.F("session_id", sess.id), logging.F("error", err))
		return errorResult(ReasonInvalidSubmission)
	}

	steps := e.foldSequence(sess, initial, ops)
	e.persistSession(sess)
	return SubmitResult{Status: StatusOK, Kind: KindAutoDriveSequence, Steps: steps}
}

// ReplaySequence folds a sequence envelope with no session attached: the
// steps travel back inline and nothing is recorded anywhere.
func ReplaySequence(raw []byte) SubmitResult {
	initial, ops, err := decodeSequence(raw)
	if err != nil {
		return errorResult(ReasonInvalidSubmission)
	}
	_, steps := runSequence(initial, ops)
	return SubmitResult{Status: StatusOK, Kind: KindAutoDriveSequence, Steps: steps}
}

type chatTurnEnvelope struct {
	History   []history.Item `json:"history"`
	TurnInput []history.Item `json:"turn_input"`
}

// submitChatTurn runs the full chat pipeline: filter history, mine
// decisions, narrate the outcome into the event log, then demonstrate one
// fixed auto-drive round. It always reports ok; collaborator trouble
// surfaces as fallback events.
func (e *Engine) submitChatTurn(ctx context.Context, sess *session, raw []byte) SubmitResult {
	var env chatTurnEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errorResult(ReasonInvalidSubmission)
	}

	combined := make([]history.Item, 0, len(env.History)+len(env.TurnInput))
	combined = append(combined, env.History...)
	combined = append(combined, env.TurnInput...)
	filtered, removed := e.filter.Filter(combined)

	prompt := history.LatestUserText(env.TurnInput)
	if prompt == "" {
		prompt = history.LatestUserText(filtered)
	}

	if len(filtered) > 0 {
		e.runExtractor(ctx, sess, filtered, prompt)
	}

	display := prompt
	if display == "" {
		display = promptPlaceholder
	}
	summary := fmt.Sprintf("processed %d items (%d filtered); prompt: %s",
		len(combined), removed, truncateRunes(display, promptDisplayLimit))
	e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload(summary))

	steps := e.foldSequence(sess, chatSequenceInitialState(), chatSequenceOps(truncateRunes(display, goalLimit)))
	e.announceSteps(sess, steps)

	sess.mu.Lock()
	sess.turns++
	sess.mu.Unlock()
	e.persistSession(sess)
	return SubmitResult{Status: StatusOK}
}

func (e *Engine) runExtractor(ctx context.Context, sess *session, filtered []history.Item, prompt string) {
	extracted := decisions.Extract(ctx, e.runner, filtered, prompt)
	if !extracted.Usable {
		if extracted.FallbackReason != "" {
			e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload(extracted.FallbackReason))
		}
		subject := prompt
		if subject == "" {
			subject = promptPlaceholder
		}
		e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload("thinking about "+subject+"…"))
		e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload("answering "+subject+"…"))
		return
	}

	payload := map[string]any{"decisions": decisions.EncodeDecisions(extracted.Decisions)}
	if extracted.Metrics != nil {
		payload["metrics"] = decisions.EncodeMetrics(*extracted.Metrics)
	}
	e.appendEvent(sess, types.EventKindCoordinatorEvent, payload)

	for _, decision := range extracted.Decisions {
		switch d := decision.(type) {
		case decisions.RequestExecCommand:
			e.appendEvent(sess, types.EventKindAgentMessage,
				agentMessagePayload("coordinator pending exec: "+d.Preview))
		case decisions.RequestApplyPatch:
			e.appendEvent(sess, types.EventKindAgentMessage,
				agentMessagePayload("coordinator pending patch: "+d.Preview))
		}
	}

	if extracted.Metrics != nil {
		sess.mu.Lock()
		sess.usage.Add(extracted.Metrics.LastTurnUsage)
		sess.mu.Unlock()
	}
}

type controlEnvelope struct {
	Command string `json:"command"`
}

func (e *Engine) submitControl(sess *session, raw []byte) SubmitResult {
	var env controlEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errorResult(ReasonInvalidSubmission)
	}
	if env.Command != "stop" {
		return errorResult(ReasonInvalidSubmission)
	}
	e.appendEvent(sess, types.EventKindCoordinatorEvent, map[string]any{
		"decisions": decisions.EncodeDecisions([]decisions.Decision{decisions.StopAcknowledged{}}),
	})
	e.appendEvent(sess, types.EventKindAgentMessage,
		agentMessagePayload("coordinator stopped per user request"))
	e.persistSession(sess)
	return SubmitResult{Status: StatusOK}
}

// foldSequence runs the operations from initial and leaves the fold result
// as the session's live state.
func (e *Engine) foldSequence(sess *session, initial autodrive.State, ops []autodrive.Operation) []SequenceStep {
	final, steps := runSequence(initial, ops)
	sess.mu.Lock()
	sess.state = final
	sess.mu.Unlock()
	return steps
}

func runSequence(initial autodrive.State, ops []autodrive.Operation) (autodrive.State, []SequenceStep) {
	st := initial
	steps := make([]SequenceStep, 0, len(ops))
	for i, op := range ops {
		var effects []autodrive.Effect
		st, effects = autodrive.Apply(st, op)
		steps = append(steps, SequenceStep{
			State:   st,
			Effects: autodrive.EncodeEffects(effects),
			Summary: stepSummary(i+1, st, effects),
		})
	}
	return st, steps
}

func stepSummary(index int, st autodrive.State, effects []autodrive.Effect) string {
	names := "no effects"
	if len(effects) > 0 {
		names = strings.Join(autodrive.EffectTypeNames(effects), ", ")
	}
	return fmt.Sprintf("Step %d (%s): %s", index, st.Phase.Name(), names)
}

// announceSteps narrates a folded sequence into the event log: first one
// agent message per step, then a step/status event pair per step.
func (e *Engine) announceSteps(sess *session, steps []SequenceStep) {
	if len(steps) == 0 {
		e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload("no steps"))
		return
	}
	for _, step := range steps {
		e.appendEvent(sess, types.EventKindAgentMessage, agentMessagePayload(step.Summary))
	}
	total := len(steps)
	for i, step := range steps {
		e.appendEvent(sess, types.EventKindAutoDriveStep, map[string]any{
			"phase":             step.State.Phase,
			"continue_mode":     string(step.State.ContinueMode),
			"seconds_remaining": step.State.SecondsRemaining,
			"effects":           step.Effects,
			"summary":           step.Summary,
		})
		status := map[string]any{
			"status": step.State.Phase.Name(),
			"step":   i + 1,
			"total":  total,
		}
		if step.State.Goal != "" {
			status["goal"] = step.State.Goal
		}
		e.appendEvent(sess, types.EventKindAutoDriveStatus, status)
	}
}

// chatSequenceInitialState is the fresh state every chat turn demonstrates
// against. The run counts as decision round 1, matching the embedded tick.
func chatSequenceInitialState() autodrive.State {
	return autodrive.State{
		Phase:                autodrive.Phase{Kind: autodrive.PhaseAwaitingCoordinator, PromptReady: true},
		ContinueMode:         autodrive.ContinueManual,
		CountdownDecisionSeq: 1,
	}
}

func chatSequenceOps(goal string) []autodrive.Operation {
	return []autodrive.Operation{
		autodrive.UpdateContinueMode{Mode: autodrive.ContinueTenSeconds},
		autodrive.HandleCountdownTick{CountdownID: 1, DecisionSeq: 1, SecondsLeft: 0},
		autodrive.LaunchResult{Result: autodrive.LaunchSucceeded, Goal: goal},
		autodrive.StopRun{Message: "run complete"},
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
