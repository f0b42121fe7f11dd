// Package runners hosts the built-in turn runner catalog and constructors.
package runners

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
)

// FixtureEnv overrides the scripted runner's fixture path when set.
const FixtureEnv = "LIGHTCODE_RUNNER_FIXTURE"

// DefaultName is the runner used when configuration names none.
const DefaultName = "echo"

type Definition struct {
	Name         string
	Label        string
	Description  string
	NeedsFixture bool
}

var registry = []Definition{
	{
		Name:        "echo",
		Label:       "echo",
		Description: "answers every turn by repeating the prompt",
	},
	{
		Name:         "scripted",
		Label:        "scripted",
		Description:  "replays turn output from a JSON fixture file",
		NeedsFixture: true,
	},
}

var registryByName = buildByName(registry)

func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func All() []Definition {
	out := make([]Definition, 0, len(registry))
	out = append(out, registry...)
	return out
}

func Lookup(name string) (Definition, bool) {
	def, ok := registryByName[Normalize(name)]
	if !ok {
		return Definition{}, false
	}
	return def, true
}

// ForName builds the named runner. The scripted runner resolves its fixture
// from FixtureEnv first, then the supplied path.
func ForName(name, fixturePath string) (decisions.Runner, error) {
	switch key := Normalize(name); key {
	case "", DefaultName:
		return Echo{}, nil
	case "scripted":
		path := strings.TrimSpace(os.Getenv(FixtureEnv))
		if path == "" {
			path = strings.TrimSpace(fixturePath)
		}
		if path == "" {
			return nil, errors.New("scripted runner requires a fixture path")
		}
		return &Scripted{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown runner %q", name)
	}
}

func buildByName(defs []Definition) map[string]Definition {
	out := make(map[string]Definition, len(defs))
	for _, def := range defs {
		name := Normalize(def.Name)
		if name == "" {
			continue
		}
		out[name] = def
	}
	return out
}
