package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

type tickMsg time.Time

type sessionsMsg struct {
	sessions []types.SessionSummary
	err      error
}

type eventsMsg struct {
	sessionID uint64
	events    []types.EventRecord
	next      uint64
	err       error
}

type sessionCreatedMsg struct {
	id  uint64
	err error
}

type turnDoneMsg struct {
	sessionID uint64
	result    *engine.SubmitResult
	err       error
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSessionsCmd(api API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		sessions, err := api.ListSessions(ctx)
		return sessionsMsg{sessions: sessions, err: err}
	}
}

func pollEventsCmd(api API, sessionID, cursor uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		events, next, err := api.PollEvents(ctx, sessionID, cursor)
		return eventsMsg{sessionID: sessionID, events: events, next: next, err: err}
	}
}

func createSessionCmd(api API) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		id, err := api.CreateSession(ctx)
		return sessionCreatedMsg{id: id, err: err}
	}
}

func submitStopCmd(api API, sessionID uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
		defer cancel()
		result, err := api.SubmitTurn(ctx, sessionID, map[string]any{
			"type":    "control",
			"command": "stop",
		})
		return turnDoneMsg{sessionID: sessionID, result: result, err: err}
	}
}
