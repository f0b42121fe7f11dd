package decisions

import (
	"context"
	"fmt"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

// StatusOK is the collaborator status that marks a turn as usable input.
const StatusOK = "ok"

// TurnOutput is the raw result of one collaborator turn.
type TurnOutput struct {
	Status   string
	Thinking []string
	Answer   string
	Usage    *types.UsageTotals
}

// Runner produces one collaborator turn for a prompt against prior history.
type Runner interface {
	RunTurn(ctx context.Context, items []history.Item, prompt string) (*TurnOutput, error)
}

// Metrics aggregates token accounting for an extracted turn.
type Metrics struct {
	TotalUsage     types.UsageTotals
	LastTurnUsage  types.UsageTotals
	TurnCount      int
	DuplicateItems int
	ReplayUpdates  int
}

func EncodeMetrics(m Metrics) map[string]any {
	return map[string]any{
		"total_usage":     m.TotalUsage,
		"last_turn_usage": m.LastTurnUsage,
		"turn_count":      m.TurnCount,
		"duplicate_items": m.DuplicateItems,
		"replay_updates":  m.ReplayUpdates,
	}
}

// ExtractedTurn is the outcome of mining one collaborator turn. When Usable
// is false, FallbackReason (possibly empty) explains the failure in display
// form.
type ExtractedTurn struct {
	Usable         bool
	Decisions      []Decision
	FallbackReason string
	Metrics        *Metrics
}

// Extract runs one collaborator turn and mines its output. Runner failures
// and non-ok statuses become unusable results rather than errors.
func Extract(ctx context.Context, runner Runner, items []history.Item, prompt string) ExtractedTurn {
	if runner == nil {
		return ExtractedTurn{FallbackReason: "no turn runner configured"}
	}
	output, err := runner.RunTurn(ctx, items, prompt)
	if err != nil {
		return ExtractedTurn{FallbackReason: fmt.Sprintf("turn runner failed: %v", err)}
	}
	if output == nil {
		return ExtractedTurn{FallbackReason: "turn runner returned no output"}
	}
	if output.Status != StatusOK {
		return ExtractedTurn{FallbackReason: fmt.Sprintf("turn runner status %q", output.Status)}
	}
	return FromOutput(output)
}

// FromOutput mines decisions from an ok-status turn. Thinking entries come
// first with their original indices, then the final answer, then any command
// or patch requests found in the answer's fenced blocks.
func FromOutput(output *TurnOutput) ExtractedTurn {
	var mined []Decision
	for i, entry := range output.Thinking {
		text := strings.TrimSpace(entry)
		if text == "" {
			continue
		}
		mined = append(mined, Thinking{Text: text, SummaryIndex: i})
	}
	if answer := strings.TrimSpace(output.Answer); answer != "" {
		mined = append(mined, FinalAnswer{Text: answer})
		mined = append(mined, mineAnswer(answer)...)
	}
	result := ExtractedTurn{Usable: len(mined) > 0, Decisions: mined}
	if output.Usage != nil {
		result.Metrics = &Metrics{
			TotalUsage:    *output.Usage,
			LastTurnUsage: *output.Usage,
			TurnCount:     1,
		}
	}
	return result
}

// mineAnswer extracts command and patch requests from fenced blocks. Blocks
// with an identical trimmed body are reported once, first occurrence wins;
// command and patch bodies deduplicate independently.
func mineAnswer(answer string) []Decision {
	var mined []Decision
	seenExec := make(map[string]struct{})
	seenPatch := make(map[string]struct{})
	for _, block := range scanFences(answer) {
		body := strings.TrimSpace(block.body)
		if body == "" {
			continue
		}
		switch classifyFence(block.info) {
		case fenceExec:
			if _, dup := seenExec[body]; dup {
				continue
			}
			seenExec[body] = struct{}{}
			mined = append(mined, RequestExecCommand{Command: body, Preview: previewLine(body)})
		case fencePatch:
			if _, dup := seenPatch[body]; dup {
				continue
			}
			seenPatch[body] = struct{}{}
			mined = append(mined, RequestApplyPatch{Patch: body, Preview: previewLine(body)})
		}
	}
	return mined
}
