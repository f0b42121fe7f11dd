package runners

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

// Scripted replays turns from a JSON fixture file holding either a single
// turn object or an array of them. Turns are served in order and cycle when
// exhausted. The file is read on every turn, so a test can rewrite it
// between submissions.
type Scripted struct {
	Path string

	mu   sync.Mutex
	next int
}

type scriptedTurn struct {
	Status   string             `json:"status"`
	Thinking []string           `json:"thinking,omitempty"`
	Answer   string             `json:"answer,omitempty"`
	Usage    *types.UsageTotals `json:"usage,omitempty"`
}

func (s *Scripted) RunTurn(_ context.Context, _ []history.Item, _ string) (*decisions.TurnOutput, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	turns, err := decodeFixture(data)
	if err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", s.Path, err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("fixture %s holds no turns", s.Path)
	}

	s.mu.Lock()
	turn := turns[s.next%len(turns)]
	s.next++
	s.mu.Unlock()

	if turn.Status == "" {
		turn.Status = decisions.StatusOK
	}
	return &decisions.TurnOutput{
		Status:   turn.Status,
		Thinking: turn.Thinking,
		Answer:   turn.Answer,
		Usage:    turn.Usage,
	}, nil
}

func decodeFixture(data []byte) ([]scriptedTurn, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var turns []scriptedTurn
		if err := json.Unmarshal(trimmed, &turns); err != nil {
			return nil, err
		}
		return turns, nil
	}
	var turn scriptedTurn
	if err := json.Unmarshal(trimmed, &turn); err != nil {
		return nil, err
	}
	return []scriptedTurn{turn}, nil
}
