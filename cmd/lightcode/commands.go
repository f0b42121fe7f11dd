package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/MatthewUtzig/lightcode/internal/client"
	"github.com/MatthewUtzig/lightcode/internal/config"
	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/tui"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

const followPollInterval = 500 * time.Millisecond

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	defaults := fs.Bool("defaults", false, "print built-in defaults instead of the effective config")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if !*defaults {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
	}
	return toml.NewEncoder(os.Stdout).Encode(cfg)
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}
	id, err := cli.CreateSession(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, id)
	return nil
}

func runPS(args []string) error {
	fs := flag.NewFlagSet("ps", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}
	sessions, err := cli.ListSessions(ctx)
	if err != nil {
		return err
	}

	printSessions(sessions)
	return nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	session := fs.Uint64("session", 0, "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *session == 0 {
		return errors.New("send requires --session")
	}

	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" || message == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		return errors.New("send requires a message")
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}

	result, err := cli.SubmitTurn(ctx, *session, map[string]any{
		"type":       "chat_turn",
		"history":    []history.Item{},
		"turn_input": []history.Item{history.UserMessage(message)},
	})
	if err != nil {
		return err
	}
	if result.Status != engine.StatusOK {
		return rejectedError(result.Reason)
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", "", "sequence file (default: stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var raw []byte
	var err error
	if *file == "" || *file == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*file)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}

	result, err := cli.ReplaySequence(ctx, json.RawMessage(raw))
	if err != nil {
		return err
	}
	if result.Status != engine.StatusOK {
		return rejectedError(result.Reason)
	}
	for _, step := range result.Steps {
		fmt.Fprintln(os.Stdout, step.Summary)
	}
	return nil
}

func runEvents(args []string) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cursor := fs.Uint64("cursor", 0, "start after this sequence number")
	follow := fs.Bool("follow", false, "keep polling for new events")
	local := fs.Bool("local", false, "read the store directly instead of the daemon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := sessionIDArg(fs, "events")
	if err != nil {
		return err
	}

	if *local {
		return printLocalEvents(id, *cursor)
	}

	ctx := context.Background()
	if *follow {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}

	out := json.NewEncoder(os.Stdout)
	next := *cursor
	for {
		events, advanced, err := cli.PollEvents(ctx, id, next)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := out.Encode(ev); err != nil {
				return err
			}
		}
		next = advanced
		if !*follow {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(followPollInterval):
		}
	}
}

// printLocalEvents bypasses the daemon and reads the event log straight
// from the configured store backend, for offline inspection.
func printLocalEvents(id, cursor uint64) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	events, err := repo.Events().List(context.Background(), id)
	if err != nil {
		return err
	}
	out := json.NewEncoder(os.Stdout)
	for _, ev := range events {
		if ev.Seq < cursor {
			continue
		}
		if err := out.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := sessionIDArg(fs, "stop")
	if err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}

	result, err := cli.SubmitTurn(ctx, id, map[string]any{
		"type":    "control",
		"command": "stop",
	})
	if err != nil {
		return err
	}
	if result.Status != engine.StatusOK {
		return rejectedError(result.Reason)
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runClose(args []string) error {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := sessionIDArg(fs, "close")
	if err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}
	if err := cli.CloseSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runUsage(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemon(ctx); err != nil {
		return err
	}
	report, err := cli.Usage(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "SESSION\tINPUT\tCACHED\tOUTPUT\tREASONING\tTOTAL")
	for _, s := range report.Sessions {
		printUsageRow(writer, strconv.FormatUint(s.SessionID, 10), s.Usage)
	}
	printUsageRow(writer, "total", report.Totals)
	_ = writer.Flush()
	return nil
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	restartDaemon := fs.Bool("restart-daemon", false, "restart daemon if version mismatch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.EnsureDaemonVersion(ctx, buildVersion(), *restartDaemon); err != nil {
		return err
	}
	return tui.Run(cli)
}

func printSessions(sessions []types.SessionSummary) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATE\tTURNS\tEVENTS\tCREATED\tGOAL")
	for _, s := range sessions {
		fmt.Fprintf(writer, "%d\t%s\t%d\t%d\t%s\t%s\n",
			s.ID, s.State, s.Turns, s.Events, s.CreatedAt.Format(time.RFC3339), s.Goal)
	}
	_ = writer.Flush()
}

func printUsageRow(w io.Writer, label string, usage types.UsageTotals) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
		label, usage.NonCachedInputTokens, usage.CachedInputTokens, usage.OutputTokens,
		usage.ReasoningOutputTokens, usage.TotalTokens)
}

func sessionIDArg(fs *flag.FlagSet, command string) (uint64, error) {
	if fs.NArg() < 1 {
		return 0, fmt.Errorf("%s requires a session id", command)
	}
	id, err := strconv.ParseUint(fs.Arg(0), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", fs.Arg(0))
	}
	return id, nil
}

func rejectedError(reason string) error {
	if reason == "" {
		reason = "unknown reason"
	}
	return fmt.Errorf("rejected: %s", reason)
}
