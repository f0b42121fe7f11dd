// Package engine hosts live auto-drive sessions. It assigns session ids,
// folds controller sequences, runs chat turns through the decision
// extractor, and serves the per-session event logs that observers poll.
package engine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MatthewUtzig/lightcode/internal/autodrive"
	"github.com/MatthewUtzig/lightcode/internal/decisions"
	"github.com/MatthewUtzig/lightcode/internal/history"
	"github.com/MatthewUtzig/lightcode/internal/logging"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	StatusOK    = "ok"
	StatusError = "error"

	ReasonInvalidSubmission = "invalid_submission"
	ReasonInvalidSessionID  = "invalid_session_id"
	ReasonSessionNotFound   = "session_not_found"

	KindAutoDriveSequence = "auto_drive_sequence"
)

// Store persists session records as they change. Failures are logged and
// never interrupt a submission.
type Store interface {
	PutSession(record *types.SessionRecord) error
}

// EventSink mirrors every appended event, typically into an append-only log.
type EventSink interface {
	WriteEvent(sessionID uint64, event types.EventRecord) error
}

type Engine struct {
	mu       sync.Mutex
	sessions map[uint64]*session
	lastID   uint64

	runner decisions.Runner
	filter history.Filter
	logger logging.Logger
	now    func() time.Time
	store  Store
	sink   EventSink
}

// session state and its event log are guarded by the session's own mutex so
// polls never contend with submissions on other sessions.
type session struct {
	id        uint64
	createdAt time.Time

	mu      sync.Mutex
	state   autodrive.State
	events  []types.EventRecord
	nextSeq uint64
	turns   int
	usage   types.UsageTotals
}

type Option func(*Engine)

func WithTurnRunner(runner decisions.Runner) Option {
	return func(e *Engine) {
		e.runner = runner
	}
}

func WithHistoryFilter(filter history.Filter) Option {
	return func(e *Engine) {
		if filter != nil {
			e.filter = filter
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func WithStore(store Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		sessions: make(map[uint64]*session),
		filter:   history.DefaultFilter{},
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartSession registers a fresh session and returns its id. Ids are
// assigned from one monotonic counter and never reused.
func (e *Engine) StartSession() uint64 {
	e.mu.Lock()
	e.lastID++
	id := e.lastID
	sess := &session{id: id, createdAt: e.now(), state: autodrive.NewState()}
	e.sessions[id] = sess
	e.mu.Unlock()

	e.persistSession(sess)
	e.logger.Info("session started", logging.F("session_id", id))
	return id
}

// CloseSession removes the session from the live registry. Its persisted
// record, if a store is configured, is marked closed and kept.
func (e *Engine) CloseSession(id uint64) error {
	e.mu.Lock()
	sess, ok := e.sessions[id]
	if ok {
		delete(e.sessions, id)
	}
	e.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	if e.store != nil {
		record := e.snapshotRecord(sess)
		record.State = types.SessionStateClosed
		closedAt := record.UpdatedAt
		record.ClosedAt = &closedAt
		if err := e.store.PutSession(record); err != nil {
			e.logger.Warn("persist closed session failed",
				logging.F("session_id", id), logging.F("error", err))
		}
	}
	e.logger.Info("session closed", logging.F("session_id", id))
	return nil
}

// PollEvents returns every event with seq >= cursor in ascending order plus
// the cursor for the next poll. With no new events the cursor is returned
// unchanged, so polling is idempotent.
func (e *Engine) PollEvents(sessionID, cursor uint64) ([]types.EventRecord, uint64, error) {
	sess, ok := e.lookup(sessionID)
	if !ok {
		return nil, cursor, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]types.EventRecord, 0)
	next := cursor
	for _, event := range sess.events {
		if event.Seq < cursor {
			continue
		}
		out = append(out, event)
		if event.Seq+1 > next {
			next = event.Seq + 1
		}
	}
	return out, next, nil
}

func (e *Engine) ListSessions() []types.SessionSummary {
	out := make([]types.SessionSummary, 0)
	for _, sess := range e.liveSessions() {
		sess.mu.Lock()
		out = append(out, types.SessionSummary{
			ID:        sess.id,
			State:     types.SessionStateOpen,
			CreatedAt: sess.createdAt,
			Turns:     sess.turns,
			Events:    len(sess.events),
			Goal:      sess.state.Goal,
		})
		sess.mu.Unlock()
	}
	return out
}

type SessionUsage struct {
	SessionID uint64            `json:"session_id"`
	Usage     types.UsageTotals `json:"usage"`
}

type UsageReport struct {
	Totals   types.UsageTotals `json:"totals"`
	Sessions []SessionUsage    `json:"sessions"`
}

// Usage aggregates token accounting across all live sessions.
func (e *Engine) Usage() UsageReport {
	report := UsageReport{Sessions: make([]SessionUsage, 0)}
	for _, sess := range e.liveSessions() {
		sess.mu.Lock()
		usage := sess.usage
		sess.mu.Unlock()
		report.Totals.Add(usage)
		report.Sessions = append(report.Sessions, SessionUsage{SessionID: sess.id, Usage: usage})
	}
	return report
}

// State returns a copy of the session's live controller state.
func (e *Engine) State(sessionID uint64) (autodrive.State, error) {
	sess, ok := e.lookup(sessionID)
	if !ok {
		return autodrive.State{}, ErrSessionNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, nil
}

func (e *Engine) lookup(id uint64) (*session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[id]
	return sess, ok
}

func (e *Engine) liveSessions() []*session {
	e.mu.Lock()
	out := make([]*session, 0, len(e.sessions))
	for _, sess := range e.sessions {
		out = append(out, sess)
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (e *Engine) snapshotRecord(sess *session) *types.SessionRecord {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &types.SessionRecord{
		ID:        sess.id,
		State:     types.SessionStateOpen,
		CreatedAt: sess.createdAt,
		UpdatedAt: e.now(),
		Turns:     sess.turns,
		Events:    len(sess.events),
		Goal:      sess.state.Goal,
		Usage:     sess.usage,
	}
}

func (e *Engine) persistSession(sess *session) {
	if e.store == nil {
		return
	}
	if err := e.store.PutSession(e.snapshotRecord(sess)); err != nil {
		e.logger.Warn("persist session failed",
			logging.F("session_id", sess.id), logging.F("error", err))
	}
}

func (e *Engine) appendEvent(sess *session, kind string, payload map[string]any) {
	sess.mu.Lock()
	event := types.EventRecord{Seq: sess.nextSeq, Kind: kind, Payload: payload}
	sess.nextSeq++
	sess.events = append(sess.events, event)
	sess.mu.Unlock()

	if e.sink != nil {
		if err := e.sink.WriteEvent(sess.id, event); err != nil {
			e.logger.Warn("event sink write failed",
				logging.F("session_id", sess.id), logging.F("error", err))
		}
	}
}

func agentMessagePayload(text string) map[string]any {
	return map[string]any{"message": text}
}
