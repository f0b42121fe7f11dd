// Package history models the conversation items a chat turn carries and
// the stateless transforms applied to them before a turn runs.
package history

import "strings"

const (
	ItemTypeMessage = "message"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type Item struct {
	Type    string         `json:"type"`
	Role    string         `json:"role,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`
}

func UserMessage(text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		Role:    RoleUser,
		Content: []ContentBlock{{Type: "input_text", Text: text}},
	}
}

func AssistantMessage(text string) Item {
	return Item{
		Type:    ItemTypeMessage,
		Role:    RoleAssistant,
		Content: []ContentBlock{{Type: "output_text", Text: text}},
	}
}

// LatestUserText scans items newest-first and returns the last non-blank
// text block of the most recent user message carrying one.
func LatestUserText(items []Item) string {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.Type != ItemTypeMessage || item.Role != RoleUser {
			continue
		}
		for j := len(item.Content) - 1; j >= 0; j-- {
			if text := strings.TrimSpace(item.Content[j].Text); text != "" {
				return text
			}
		}
	}
	return ""
}
