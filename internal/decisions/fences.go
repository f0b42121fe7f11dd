package decisions

import "strings"

type fenceClass int

const (
	fenceOther fenceClass = iota
	fenceExec
	fencePatch
)

type fencedBlock struct {
	info string
	body string
}

// scanFences finds triple-backtick blocks in answer text. A fence opens on a
// line whose trimmed form starts with ``` and closes on the next such line;
// an unclosed fence at end of input is discarded.
func scanFences(text string) []fencedBlock {
	var blocks []fencedBlock
	var body []string
	info := ""
	open := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if open {
				blocks = append(blocks, fencedBlock{info: info, body: strings.Join(body, "\n")})
				open = false
				info = ""
				body = nil
				continue
			}
			open = true
			info = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			continue
		}
		if open {
			body = append(body, line)
		}
	}
	return blocks
}

// classifyFence inspects the first word of a fence info string,
// case-insensitively.
func classifyFence(info string) fenceClass {
	lang := strings.ToLower(info)
	if i := strings.IndexAny(lang, " \t"); i >= 0 {
		lang = lang[:i]
	}
	switch lang {
	case "sh", "bash", "zsh", "shell":
		return fenceExec
	case "diff", "patch":
		return fencePatch
	default:
		return fenceOther
	}
}

// previewLine returns the first non-blank line of body, trimmed.
func previewLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return strings.TrimSpace(body)
}
