package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/store"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

type Daemon struct {
	addr    string
	token   string
	version string
	server  *http.Server
	engine  *engine.Engine
	logger  logging.Logger
}

// recordStore bridges the repository's context-based session store to the
// engine's synchronous persistence hook.
type recordStore struct {
	records store.SessionRecordStore
}

func (s recordStore) PutSession(record *types.SessionRecord) error {
	return s.records.Put(context.Background(), record)
}

// eventSink mirrors appended session events into the repository's event log.
type eventSink struct {
	events store.EventLogStore
}

func (s eventSink) WriteEvent(sessionID uint64, event types.EventRecord) error {
	return s.events.Append(context.Background(), sessionID, event)
}

// NewEngine builds a session engine wired to the repository and runner. The
// daemon command uses this; tests may build engines directly instead.
func NewEngine(repo store.Repository, runner decisions.Runner, logger logging.Logger) *engine.Engine {
	return engine.New(
		engine.WithTurnRunner(runner),
		engine.WithStore(recordStore{records: repo.Sessions()}),
		engine.WithEventSink(eventSink{events: repo.Events()}),
		engine.WithLogger(logger),
	)
}

func New(addr, token, version string, eng *engine.Engine, logger logging.Logger) *Daemon {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Daemon{
		addr:    addr,
		token:   token,
		version: version,
		engine:  eng,
		logger:  logger,
	}
}

func (d *Daemon) Run(ctx context.Context) error {
	api := &API{
		Version: d.version,
		Engine:  d.engine,
		Logger:  d.logger,
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := TokenAuthMiddleware(d.token, mux)
	d.server = &http.Server{
		Addr:    d.addr,
		Handler: handler,
	}
	api.Shutdown = d.server.Shutdown

	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon listening", logging.F("addr", "http://"+d.addr))
		errCh <- d.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
