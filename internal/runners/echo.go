package runners

import (
	"context"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

// Echo answers every turn with the prompt itself and synthesizes token
// counts from word counts, so usage accounting stays deterministic.
type Echo struct{}

func (Echo) RunTurn(_ context.Context, items []history.Item, prompt string) (*decisions.TurnOutput, error) {
	in := countWords(prompt)
	for _, item := range items {
		for _, block := range item.Content {
			in += countWords(block.Text)
		}
	}
	out := countWords(prompt)
	usage := types.UsageTotals{
		NonCachedInputTokens: in,
		OutputTokens:         out,
		TotalTokens:          in + out,
	}
	return &decisions.TurnOutput{
		Status:   decisions.StatusOK,
		Thinking: []string{"echoing the prompt"},
		Answer:   prompt,
		Usage:    &usage,
	}, nil
}

func countWords(s string) uint64 {
	return uint64(len(strings.Fields(s)))
}
