package tui

import (
	"fmt"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/types"
	"github.com/mattn/go-runewidth"
)

const (
	maxViewportLines = 2000
	decisionTextCap  = 72
)

// buildTranscript renders the event window into viewport content and
// reports the resulting line count. Content beyond maxViewportLines is
// dropped from the top so the tail stays visible.
func buildTranscript(events []types.EventRecord, width int) (string, int) {
	if len(events) == 0 {
		placeholder := metaStyle.Render("no events yet")
		return placeholder, 1
	}
	blocks := make([]string, 0, len(events))
	for _, ev := range events {
		block := renderEventBlock(ev, width)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	content := strings.Join(blocks, "\n")
	return capLines(content, maxViewportLines)
}

func renderEventBlock(ev types.EventRecord, width int) string {
	switch ev.Kind {
	case types.EventKindAgentMessage:
		text := strField(ev.Payload, "message")
		if text == "" {
			return ""
		}
		return renderMarkdown(text, width)
	case types.EventKindCoordinatorEvent:
		return renderCoordinatorBlock(ev.Payload, width)
	case types.EventKindAutoDriveStep:
		summary := strField(ev.Payload, "summary")
		if summary == "" {
			summary = "step"
		}
		if secs := numField(ev.Payload, "seconds_remaining"); secs > 0 {
			summary = fmt.Sprintf("%s [%ds left]", summary, secs)
		}
		return stepStyle.Render(truncateCell(summary, width))
	case types.EventKindAutoDriveStatus:
		line := fmt.Sprintf("%s %d/%d",
			strField(ev.Payload, "status"),
			numField(ev.Payload, "step"),
			numField(ev.Payload, "total"))
		if goal := strField(ev.Payload, "goal"); goal != "" {
			line += " goal: " + goal
		}
		return phaseStyle.Render(truncateCell(line, width))
	default:
		return metaStyle.Render(ev.Kind)
	}
}

func renderCoordinatorBlock(payload map[string]any, width int) string {
	decisionsRaw, ok := payload["decisions"]
	if !ok {
		return coordinatorStyle.Render("coordinator event")
	}
	decisionList := decodedList(decisionsRaw)
	lines := []string{coordinatorStyle.Render(fmt.Sprintf("coordinator: %d decision(s)", len(decisionList)))}
	for _, d := range decisionList {
		lines = append(lines, "  "+truncateCell(decisionLine(d), max(1, width-2)))
	}
	if metrics := mapField(payload, "metrics"); metrics != nil {
		if usage := mapField(metrics, "last_turn_usage"); usage != nil {
			lines = append(lines, metaStyle.Render(fmt.Sprintf("  tokens: in %d out %d total %d",
				numField(usage, "non_cached_input_tokens"),
				numField(usage, "output_tokens"),
				numField(usage, "total_tokens"))))
		}
	}
	return strings.Join(lines, "\n")
}

func decisionLine(d map[string]any) string {
	kind := strField(d, "type")
	detail := strField(d, "preview")
	if detail == "" {
		detail = strField(d, "text")
	}
	detail = strings.ReplaceAll(detail, "\n", " ")
	if detail == "" {
		return kind
	}
	return kind + " " + runewidth.Truncate(detail, decisionTextCap, "…")
}

// capLines keeps the last maxLines lines of content.
func capLines(content string, maxLines int) (string, int) {
	lines := strings.Count(content, "\n") + 1
	if lines <= maxLines {
		return content, lines
	}
	drop := lines - maxLines
	idx := 0
	for i := 0; i < drop; i++ {
		next := strings.IndexByte(content[idx:], '\n')
		if next < 0 {
			break
		}
		idx += next + 1
	}
	trimmed := content[idx:]
	return trimmed, strings.Count(trimmed, "\n") + 1
}

func truncateCell(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func strField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

// numField tolerates both native ints (events straight from the engine)
// and float64 (events decoded from the daemon's JSON).
func numField(payload map[string]any, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func mapField(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	m, _ := payload[key].(map[string]any)
	return m
}

// decodedList accepts the two shapes a decision list shows up in: []any
// after a JSON round trip, []map[string]any straight from the engine.
func decodedList(v any) []map[string]any {
	switch list := v.(type) {
	case []map[string]any:
		return list
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
