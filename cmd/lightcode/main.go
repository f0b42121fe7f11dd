package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/client"
	"github.com/MatthewUtzig/lightcode/internal/config"
	"github.com/MatthewUtzig/lightcode/internal/daemon"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/runners"
	"github.com/MatthewUtzig/lightcode/internal/store"
)

const usageText = `lightcode drives auto-drive sessions against the local daemon.

Usage:
  lightcode <command> [flags]

Commands:
  daemon   run the daemon (foreground by default)
  config   print the effective configuration
  new      create a session
  ps       list sessions
  send     submit a chat turn to a session
  replay   fold an auto-drive sequence file (sessionless)
  events   print a session's event log
  stop     send a control stop to a session
  close    close a session
  usage    print token usage totals
  ui       run the drivemon terminal observer
  help     show help

Flags:
  -h, --help   show help

Daemon flags:
  --background    run in background (logs to file)
  --force         stop any running daemon before starting
  --kill          stop any running daemon and exit

Examples:
  lightcode new
  lightcode send --session 1 fix the flaky store test
  lightcode events --follow 1
  lightcode replay --file sequence.json
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	case "daemon":
		exitOnErr("daemon", runDaemonCommand(args[1:]))
	case "config":
		exitOnErr("config", runConfig(args[1:]))
	case "new":
		exitOnErr("new", runNew(args[1:]))
	case "ps":
		exitOnErr("ps", runPS(args[1:]))
	case "send":
		exitOnErr("send", runSend(args[1:]))
	case "replay":
		exitOnErr("replay", runReplay(args[1:]))
	case "events":
		exitOnErr("events", runEvents(args[1:]))
	case "stop":
		exitOnErr("stop", runStop(args[1:]))
	case "close":
		exitOnErr("close", runClose(args[1:]))
	case "usage":
		exitOnErr("usage", runUsage(args[1:]))
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runDaemonCommand(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	background := fs.Bool("background", false, "run in background (logs to file)")
	kill := fs.Bool("kill", false, "stop any running daemon and exit")
	force := fs.Bool("force", false, "stop any running daemon before starting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kill {
		return killDaemon()
	}
	if *force {
		if err := killDaemon(); err != nil {
			return err
		}
	}
	return runDaemon(*background)
}

func runDaemon(background bool) error {
	if background {
		configureBackgroundLogging()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}

	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := daemon.LoadOrCreateToken(tokenPath)
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	fixture, err := cfg.RunnerFixture()
	if err != nil {
		return err
	}
	runner, err := runners.ForName(cfg.RunnerName(), fixture)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel()))
	eng := daemon.NewEngine(repo, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg.DaemonAddress(), token, buildVersion(), eng, logger)
	return d.Run(ctx)
}

func openRepository(cfg config.Config) (store.Repository, error) {
	sessionsPath, err := config.SessionsPath()
	if err != nil {
		return nil, err
	}
	eventsDir, err := config.EventsDir()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return nil, err
	}
	return store.OpenRepository(store.RepositoryPaths{
		SessionsPath: sessionsPath,
		EventsDir:    eventsDir,
		DBPath:       dbPath,
	}, cfg.StoreBackend())
}

func killDaemon() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cli, err := client.New()
	if err != nil {
		return err
	}
	if err := cli.ShutdownDaemon(ctx); err == nil {
		return nil
	} else {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		if isDaemonUnavailable(err) {
			return nil
		}
	}
	resp, err := cli.Health(ctx)
	if err != nil {
		if isDaemonUnavailable(err) {
			return nil
		}
		return err
	}
	if resp == nil || resp.PID <= 0 {
		return nil
	}
	return terminatePID(resp.PID)
}

func terminatePID(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

func isDaemonUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused") || strings.Contains(lower, "connect: connection refused")
}

func configureBackgroundLogging() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	dataDir, err := config.DataDir()
	if err != nil {
		return
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return
	}
	logPath := filepath.Join(dataDir, "daemon.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	log.SetOutput(file)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}

func exitOnErr(label string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}
