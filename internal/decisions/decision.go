// Package decisions turns raw collaborator turn output into the typed
// decision stream a coordinator consumes.
package decisions

// Decision is one typed item mined from a collaborator turn.
type Decision interface {
	DecisionType() string
}

// Thinking carries one reasoning summary entry. SummaryIndex is the entry's
// position in the original thinking list, before blank entries were dropped.
type Thinking struct {
	Text         string
	SummaryIndex int
}

func (Thinking) DecisionType() string { return "thinking" }

type FinalAnswer struct {
	Text string
}

func (FinalAnswer) DecisionType() string { return "final_answer" }

// RequestExecCommand proposes running a shell command. Command is the full
// fenced block body; Preview is its first non-blank line.
type RequestExecCommand struct {
	Command   string
	Preview   string
	Rationale string
}

func (RequestExecCommand) DecisionType() string { return "request_exec_command" }

// RequestApplyPatch proposes applying a diff. Patch is the full fenced block
// body; Preview is its first non-blank line.
type RequestApplyPatch struct {
	Patch     string
	Preview   string
	Rationale string
}

func (RequestApplyPatch) DecisionType() string { return "request_apply_patch" }

// StopAcknowledged confirms a user-initiated stop.
type StopAcknowledged struct{}

func (StopAcknowledged) DecisionType() string { return "stop_ack" }

// EncodeDecision renders a decision as a wire payload keyed by "type".
func EncodeDecision(d Decision) map[string]any {
	payload := map[string]any{"type": d.DecisionType()}
	switch dec := d.(type) {
	case Thinking:
		payload["text"] = dec.Text
		payload["summary_index"] = dec.SummaryIndex
	case FinalAnswer:
		payload["text"] = dec.Text
	case RequestExecCommand:
		payload["command"] = dec.Command
		payload["preview"] = dec.Preview
		if dec.Rationale != "" {
			payload["rationale"] = dec.Rationale
		}
	case RequestApplyPatch:
		payload["patch"] = dec.Patch
		payload["preview"] = dec.Preview
		if dec.Rationale != "" {
			payload["rationale"] = dec.Rationale
		}
	case StopAcknowledged:
	}
	return payload
}

func EncodeDecisions(list []Decision) []map[string]any {
	encoded := make([]map[string]any, 0, len(list))
	for _, d := range list {
		encoded = append(encoded, EncodeDecision(d))
	}
	return encoded
}
