package history

import (
	"reflect"
	"testing"
)

func TestDefaultFilter(t *testing.T) {
	tests := []struct {
		name        string
		items       []Item
		wantKept    []Item
		wantRemoved int
	}{
		{
			name:        "empty input",
			items:       nil,
			wantKept:    []Item{},
			wantRemoved: 0,
		},
		{
			name: "keeps user and assistant messages",
			items: []Item{
				UserMessage("hello"),
				AssistantMessage("hi there"),
			},
			wantKept: []Item{
				UserMessage("hello"),
				AssistantMessage("hi there"),
			},
			wantRemoved: 0,
		},
		{
			name: "drops system messages",
			items: []Item{
				{Type: ItemTypeMessage, Role: RoleSystem, Content: []ContentBlock{{Type: "input_text", Text: "be terse"}}},
				UserMessage("hello"),
			},
			wantKept:    []Item{UserMessage("hello")},
			wantRemoved: 1,
		},
		{
			name: "drops non-message items",
			items: []Item{
				{Type: "function_call", Role: RoleAssistant},
				UserMessage("hello"),
			},
			wantKept:    []Item{UserMessage("hello")},
			wantRemoved: 1,
		},
		{
			name: "drops messages with only blank text",
			items: []Item{
				{Type: ItemTypeMessage, Role: RoleUser, Content: []ContentBlock{{Type: "input_text", Text: "  \n\t"}}},
				{Type: ItemTypeMessage, Role: RoleUser},
				UserMessage("hello"),
			},
			wantKept:    []Item{UserMessage("hello")},
			wantRemoved: 2,
		},
		{
			name: "keeps message with one blank and one real block",
			items: []Item{
				{Type: ItemTypeMessage, Role: RoleUser, Content: []ContentBlock{
					{Type: "input_text", Text: "   "},
					{Type: "input_text", Text: "real"},
				}},
			},
			wantKept: []Item{
				{Type: ItemTypeMessage, Role: RoleUser, Content: []ContentBlock{
					{Type: "input_text", Text: "   "},
					{Type: "input_text", Text: "real"},
				}},
			},
			wantRemoved: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kept, removed := DefaultFilter{}.Filter(tt.items)
			if !reflect.DeepEqual(kept, tt.wantKept) {
				t.Fatalf("kept = %#v, want %#v", kept, tt.wantKept)
			}
			if removed != tt.wantRemoved {
				t.Fatalf("removed = %d, want %d", removed, tt.wantRemoved)
			}
		})
	}
}

func TestLatestUserText(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  string
	}{
		{
			name:  "empty",
			items: nil,
			want:  "",
		},
		{
			name: "single user message",
			items: []Item{
				UserMessage("ship it"),
			},
			want: "ship it",
		},
		{
			name: "most recent user message wins",
			items: []Item{
				UserMessage("first"),
				AssistantMessage("reply"),
				UserMessage("second"),
			},
			want: "second",
		},
		{
			name: "last text block of the message wins",
			items: []Item{
				{Type: ItemTypeMessage, Role: RoleUser, Content: []ContentBlock{
					{Type: "input_text", Text: "early"},
					{Type: "input_text", Text: "late"},
				}},
			},
			want: "late",
		},
		{
			name: "blank blocks are skipped",
			items: []Item{
				{Type: ItemTypeMessage, Role: RoleUser, Content: []ContentBlock{
					{Type: "input_text", Text: "kept"},
					{Type: "input_text", Text: "   "},
				}},
			},
			want: "kept",
		},
		{
			name: "assistant messages are ignored",
			items: []Item{
				UserMessage("goal"),
				AssistantMessage("noise"),
			},
			want: "goal",
		},
		{
			name: "falls back to an earlier user message when the last has no text",
			items: []Item{
				UserMessage("earlier"),
				{Type: ItemTypeMessage, Role: RoleUser},
			},
			want: "earlier",
		},
		{
			name: "whitespace is trimmed",
			items: []Item{
				UserMessage("  padded  "),
			},
			want: "padded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LatestUserText(tt.items); got != tt.want {
				t.Fatalf("LatestUserText = %q, want %q", got, tt.want)
			}
		})
	}
}
