// Drivemon is the standalone terminal observer for lightcode sessions. It
// needs a running daemon; `lightcode ui` starts one automatically.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/client"
	"github.com/MatthewUtzig/lightcode/internal/tui"
)

func main() {
	cli, err := client.New()
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := cli.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "drivemon: daemon not reachable: %v\n", err)
		fmt.Fprintln(os.Stderr, "start it with: lightcode daemon --background")
		os.Exit(1)
	}

	if err := tui.Run(cli); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "drivemon error: %v\n", err)
	os.Exit(1)
}
