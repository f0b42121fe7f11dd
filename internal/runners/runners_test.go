package runners

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
		wantOK bool
	}{
		{name: "echo", lookup: "echo", wantOK: true},
		{name: "scripted", lookup: "scripted", wantOK: true},
		{name: "case and space insensitive", lookup: "  Echo ", wantOK: true},
		{name: "unknown", lookup: "nope", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, ok := Lookup(tt.lookup)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.lookup, ok, tt.wantOK)
			}
			if ok && def.Name != Normalize(tt.lookup) {
				t.Fatalf("Lookup(%q) name = %q", tt.lookup, def.Name)
			}
		})
	}
}

func TestAllCopiesRegistry(t *testing.T) {
	defs := All()
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	defs[0].Name = "mutated"
	if fresh := All(); fresh[0].Name == "mutated" {
		t.Fatalf("All must return a copy")
	}
}

func TestForName(t *testing.T) {
	if _, err := ForName("", ""); err != nil {
		t.Fatalf("empty name should default to echo: %v", err)
	}
	if _, err := ForName("echo", ""); err != nil {
		t.Fatalf("echo: %v", err)
	}
	if _, err := ForName("scripted", ""); err == nil {
		t.Fatalf("scripted without fixture should fail")
	}
	if _, err := ForName("mystery", ""); err == nil {
		t.Fatalf("unknown runner should fail")
	}

	runner, err := ForName("scripted", "/tmp/fixture.json")
	if err != nil {
		t.Fatalf("scripted with path: %v", err)
	}
	if got := runner.(*Scripted).Path; got != "/tmp/fixture.json" {
		t.Fatalf("path = %q", got)
	}

	t.Setenv(FixtureEnv, "/tmp/override.json")
	runner, err = ForName("scripted", "/tmp/fixture.json")
	if err != nil {
		t.Fatalf("scripted with env: %v", err)
	}
	if got := runner.(*Scripted).Path; got != "/tmp/override.json" {
		t.Fatalf("env override path = %q", got)
	}
}

func TestEchoRunTurn(t *testing.T) {
	items := []history.Item{
		history.UserMessage("one two"),
		history.AssistantMessage("three"),
	}
	output, err := Echo{}.RunTurn(context.Background(), items, "say hi")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if output.Status != decisions.StatusOK {
		t.Fatalf("status = %q", output.Status)
	}
	if !reflect.DeepEqual(output.Thinking, []string{"echoing the prompt"}) {
		t.Fatalf("thinking = %#v", output.Thinking)
	}
	if output.Answer != "say hi" {
		t.Fatalf("answer = %q", output.Answer)
	}
	want := types.UsageTotals{NonCachedInputTokens: 5, OutputTokens: 2, TotalTokens: 7}
	if output.Usage == nil || *output.Usage != want {
		t.Fatalf("usage = %+v, want %+v", output.Usage, want)
	}
}

func TestScriptedRunTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turn.json")
	fixture := `{
  "status": "ok",
  "thinking": ["inspect the repo"],
  "answer": "` + "```" + `bash\necho hi\n` + "```" + `",
  "usage": {"non_cached_input_tokens": 3, "output_tokens": 2, "total_tokens": 5}
}`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	runner := &Scripted{Path: path}
	output, err := runner.RunTurn(context.Background(), nil, "ignored")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if output.Status != decisions.StatusOK {
		t.Fatalf("status = %q", output.Status)
	}
	if !reflect.DeepEqual(output.Thinking, []string{"inspect the repo"}) {
		t.Fatalf("thinking = %#v", output.Thinking)
	}
	if output.Answer != "```bash\necho hi\n```" {
		t.Fatalf("answer = %q", output.Answer)
	}
	if output.Usage == nil || output.Usage.TotalTokens != 5 {
		t.Fatalf("usage = %+v", output.Usage)
	}
}

func TestScriptedCyclesThroughTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.json")
	fixture := `[
  {"answer": "first"},
  {"answer": "second"}
]`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	runner := &Scripted{Path: path}
	want := []string{"first", "second", "first", "second"}
	for i, answer := range want {
		output, err := runner.RunTurn(context.Background(), nil, "")
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
		if output.Answer != answer {
			t.Fatalf("turn %d answer = %q, want %q", i, output.Answer, answer)
		}
	}
}

func TestScriptedDefaultsStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turn.json")
	if err := os.WriteFile(path, []byte(`{"answer":"done"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	output, err := (&Scripted{Path: path}).RunTurn(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if output.Status != decisions.StatusOK {
		t.Fatalf("status = %q", output.Status)
	}
}

func TestScriptedErrors(t *testing.T) {
	if _, err := (&Scripted{Path: filepath.Join(t.TempDir(), "missing.json")}).RunTurn(context.Background(), nil, ""); err == nil {
		t.Fatalf("missing fixture should fail")
	}

	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "not json"},
		{name: "empty array", content: "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write fixture: %v", err)
			}
			if _, err := (&Scripted{Path: path}).RunTurn(context.Background(), nil, ""); err == nil {
				t.Fatalf("fixture %q should fail", tt.content)
			}
		})
	}
}
