package autodrive

import (
	"encoding/json"
	"fmt"
)

// Operation is the closed set of inputs the controller folds over. Decode
// with DecodeOperation; the type tag selects the variant.
type Operation interface {
	isOperation()
}

type UpdateContinueMode struct {
	Mode ContinueMode `json:"mode"`
}

type HandleCountdownTick struct {
	CountdownID uint64 `json:"countdown_id"`
	DecisionSeq uint64 `json:"decision_seq"`
	SecondsLeft int    `json:"seconds_left"`
}

type PauseForTransientFailure struct {
	Reason string `json:"reason"`
}

type StopRun struct {
	Message string `json:"message,omitempty"`
}

type LaunchOutcome string

const (
	LaunchSucceeded LaunchOutcome = "succeeded"
	LaunchFailed    LaunchOutcome = "failed"
)

type LaunchResult struct {
	Result LaunchOutcome `json:"result"`
	Goal   string        `json:"goal"`
	Error  string        `json:"error,omitempty"`
}

func (UpdateContinueMode) isOperation()       {}
func (HandleCountdownTick) isOperation()      {}
func (PauseForTransientFailure) isOperation() {}
func (StopRun) isOperation()                  {}
func (LaunchResult) isOperation()             {}

func DecodeOperation(data []byte) (Operation, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Type {
	case "update_continue_mode":
		var op UpdateContinueMode
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		if !op.Mode.Valid() {
			return nil, fmt.Errorf("unknown continue mode %q", op.Mode)
		}
		return op, nil
	case "handle_countdown_tick":
		var op HandleCountdownTick
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return op, nil
	case "pause_for_transient_failure":
		var op PauseForTransientFailure
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return op, nil
	case "stop_run":
		var op StopRun
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		return op, nil
	case "launch_result":
		var op LaunchResult
		if err := json.Unmarshal(data, &op); err != nil {
			return nil, err
		}
		if op.Result != LaunchSucceeded && op.Result != LaunchFailed {
			return nil, fmt.Errorf("unknown launch result %q", op.Result)
		}
		return op, nil
	default:
		return nil, fmt.Errorf("unknown operation type %q", tag.Type)
	}
}

func DecodeOperations(raw []json.RawMessage) ([]Operation, error) {
	ops := make([]Operation, 0, len(raw))
	for i, item := range raw {
		op, err := DecodeOperation(item)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}
