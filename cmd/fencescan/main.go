// Fencescan reads answer text on stdin and prints the decisions mined from
// it as JSON lines, one decision per line. Useful for checking what the
// extractor would make of a collaborator reply.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
)

func main() {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fail(err)
	}

	extracted := decisions.FromOutput(&decisions.TurnOutput{Answer: string(raw)})
	out := json.NewEncoder(os.Stdout)
	for _, d := range extracted.Decisions {
		if err := out.Encode(decisions.EncodeDecision(d)); err != nil {
			fail(err)
		}
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "fencescan error: %v\n", err)
	os.Exit(1)
}
