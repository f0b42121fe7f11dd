// Package tui is the drivemon terminal observer. It polls one session's
// event log through the daemon client and renders the transcript live,
// alongside a session list for switching the attachment.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/viewport"
	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/MatthewUtzig/lightcode/internal/engine"
	"github.com/MatthewUtzig/lightcode/internal/types"
)

const (
	tickInterval        = 100 * time.Millisecond
	sessionRefreshTicks = 20
	sessionListWidth    = 26
	statusLinePadding   = 2
	wheelScrollLines    = 3
	maxTranscriptEvents = 512

	helpText = "q quit  n new  enter attach  s stop  f follow  c copy"
)

// API is the slice of the daemon client the observer needs.
type API interface {
	ListSessions(ctx context.Context) ([]types.SessionSummary, error)
	CreateSession(ctx context.Context) (uint64, error)
	PollEvents(ctx context.Context, sessionID, cursor uint64) ([]types.EventRecord, uint64, error)
	SubmitTurn(ctx context.Context, sessionID uint64, submission any) (*engine.SubmitResult, error)
}

type Model struct {
	api API

	width  int
	height int

	viewport viewport.Model
	spin     spinner.Model

	sessions []types.SessionSummary
	selected int

	attached uint64
	cursor   uint64
	events   []types.EventRecord

	transcript      string
	transcriptLines int
	transcriptDirty bool

	follow   bool
	polling  bool
	ticks    int
	status   string
	quitting bool
}

func NewModel(api API) Model {
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(24))
	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	return Model{
		api:      api,
		viewport: vp,
		spin:     spin,
		selected: -1,
		follow:   true,
		status:   "connecting",
	}
}

// Run starts the observer program and blocks until it exits.
func Run(api API) error {
	model := NewModel(api)
	p := tea.NewProgram(&model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(fetchSessionsCmd(m.api), m.spin.Tick, tickCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseWheelMsg:
		m.handleWheel(msg)
		return m, nil
	case tea.MouseClickMsg:
		return m, m.handleClick(msg)
	case tickMsg:
		return m.handleTick()
	case sessionsMsg:
		m.handleSessions(msg)
		return m, nil
	case eventsMsg:
		m.handleEvents(msg)
		return m, nil
	case sessionCreatedMsg:
		return m.handleSessionCreated(msg)
	case turnDoneMsg:
		m.handleTurnDone(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "enter":
		if cmd := m.attachSelected(); cmd != nil {
			return m, cmd
		}
	case "n":
		m.status = "creating session"
		return m, createSessionCmd(m.api)
	case "s":
		if m.attached != 0 {
			m.status = "stopping"
			return m, submitStopCmd(m.api, m.attached)
		}
	case "f":
		m.follow = !m.follow
		if m.follow {
			m.gotoBottom()
		}
	case "c":
		m.copyTranscript()
	case "pgup":
		m.scrollLines(-pageStride(m.viewport.Height()))
	case "pgdown":
		m.scrollLines(pageStride(m.viewport.Height()))
	case "ctrl+u":
		m.scrollLines(-halfStride(m.viewport.Height()))
	case "ctrl+d":
		m.scrollLines(halfStride(m.viewport.Height()))
	case "home", "g":
		m.gotoTop()
	case "end", "G":
		m.gotoBottom()
	}
	return m, nil
}

func (m *Model) handleWheel(msg tea.MouseWheelMsg) {
	mouse := msg.Mouse()
	var delta int
	switch mouse.Button {
	case tea.MouseWheelUp:
		delta = -wheelScrollLines
	case tea.MouseWheelDown:
		delta = wheelScrollLines
	default:
		return
	}
	if mouse.X < sessionListWidth {
		if delta < 0 {
			m.moveSelection(-1)
		} else {
			m.moveSelection(1)
		}
		return
	}
	m.scrollLines(delta)
}

func (m *Model) handleClick(msg tea.MouseClickMsg) tea.Cmd {
	mouse := msg.Mouse()
	if mouse.Button != tea.MouseLeft || mouse.X >= sessionListWidth {
		return nil
	}
	// Row 0 is the header, row 1 the list title; sessions start at row 2.
	index := mouse.Y - 2
	if index < 0 || index >= len(m.sessions) {
		return nil
	}
	m.selected = index
	return m.attachSelected()
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	m.ticks++
	cmds := []tea.Cmd{tickCmd()}
	if m.attached != 0 && !m.polling {
		m.polling = true
		cmds = append(cmds, pollEventsCmd(m.api, m.attached, m.cursor))
	}
	if m.ticks%sessionRefreshTicks == 0 {
		cmds = append(cmds, fetchSessionsCmd(m.api))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleSessions(msg sessionsMsg) {
	if msg.err != nil {
		m.status = "list failed: " + msg.err.Error()
		return
	}
	m.sessions = msg.sessions
	if len(m.sessions) == 0 {
		m.selected = -1
		return
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.selected >= len(m.sessions) {
		m.selected = len(m.sessions) - 1
	}
	if m.status == "connecting" {
		m.status = fmt.Sprintf("%d session(s)", len(m.sessions))
	}
}

func (m *Model) handleEvents(msg eventsMsg) {
	m.polling = false
	if msg.sessionID != m.attached {
		return
	}
	if msg.err != nil {
		m.status = "poll failed: " + msg.err.Error()
		return
	}
	if len(msg.events) > 0 {
		m.events = append(m.events, msg.events...)
		if len(m.events) > maxTranscriptEvents {
			m.events = m.events[len(m.events)-maxTranscriptEvents:]
		}
		m.transcriptDirty = true
		m.status = fmt.Sprintf("session %d: %d events", m.attached, msg.next)
	}
	m.cursor = msg.next
}

func (m *Model) handleSessionCreated(msg sessionCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "create failed: " + msg.err.Error()
		return m, nil
	}
	m.attach(msg.id)
	m.status = fmt.Sprintf("session %d created", msg.id)
	m.polling = true
	return m, tea.Batch(fetchSessionsCmd(m.api), pollEventsCmd(m.api, m.attached, m.cursor))
}

func (m *Model) handleTurnDone(msg turnDoneMsg) {
	if msg.err != nil {
		m.status = "stop failed: " + msg.err.Error()
		return
	}
	if msg.result != nil && msg.result.Status != engine.StatusOK {
		m.status = "stop rejected: " + msg.result.Reason
		return
	}
	m.status = fmt.Sprintf("stop sent to session %d", msg.sessionID)
}

func (m *Model) moveSelection(delta int) {
	if len(m.sessions) == 0 {
		return
	}
	next := m.selected + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.sessions) {
		next = len(m.sessions) - 1
	}
	m.selected = next
}

// attachSelected points the observer at the highlighted session and starts
// a fresh poll from the beginning of its log.
func (m *Model) attachSelected() tea.Cmd {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return nil
	}
	id := m.sessions[m.selected].ID
	if id == m.attached {
		return nil
	}
	m.attach(id)
	m.status = fmt.Sprintf("attached to session %d", id)
	m.polling = true
	return pollEventsCmd(m.api, id, 0)
}

func (m *Model) attach(id uint64) {
	m.attached = id
	m.cursor = 0
	m.events = nil
	m.transcript = ""
	m.transcriptLines = 0
	m.transcriptDirty = true
	m.follow = true
}

func (m *Model) copyTranscript() {
	if m.transcript == "" {
		m.status = "nothing to copy"
		return
	}
	if _, err := copyTextToClipboard(xansi.Strip(m.transcript)); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "transcript copied"
}

func (m *Model) scrollLines(delta int) {
	if delta < 0 {
		m.viewport.ScrollUp(-delta)
		m.follow = false
		return
	}
	m.viewport.ScrollDown(delta)
	if m.atBottom() {
		m.follow = true
	}
}

func (m *Model) gotoTop() {
	m.viewport.SetYOffset(0)
	m.follow = false
}

func (m *Model) gotoBottom() {
	m.viewport.SetYOffset(maxOffset(m.transcriptLines, m.viewport.Height()))
	m.follow = true
}

func (m *Model) atBottom() bool {
	return m.viewport.YOffset() >= maxOffset(m.transcriptLines, m.viewport.Height())
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.SetWidth(max(1, width-sessionListWidth-1))
	m.viewport.SetHeight(max(1, height-2))
	// Markdown is wrapped to the viewport width, so a resize forces a
	// transcript rebuild.
	m.transcriptDirty = true
}

func (m *Model) transcriptWidth() int {
	w := m.viewport.Width()
	if w <= 0 {
		return 80
	}
	return w
}

func (m *Model) syncViewport() {
	if !m.transcriptDirty {
		return
	}
	m.transcriptDirty = false
	content, lines := buildTranscript(m.events, m.transcriptWidth())
	m.transcript = content
	m.transcriptLines = lines
	m.viewport.SetContent(content)
	if m.follow {
		m.viewport.SetYOffset(maxOffset(lines, m.viewport.Height()))
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	m.syncViewport()

	header := headerStyle.Render("drivemon")
	if m.attached != 0 {
		header += attachedStyle.Render(fmt.Sprintf("  session %d", m.attached))
	}
	if m.polling {
		header += " " + m.spin.View()
	}

	listView := m.renderSessionList()
	bodyHeight := lipgloss.Height(listView)
	if h := lipgloss.Height(m.viewport.View()); h > bodyHeight {
		bodyHeight = h
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	divider := strings.Repeat("│\n", bodyHeight-1) + "│"
	body := lipgloss.JoinHorizontal(lipgloss.Top, listView, dividerStyle.Render(divider), m.viewport.View())

	followChip := "follow: on"
	if !m.follow {
		followChip = "follow: paused"
	}
	right := statusStyle.Render(m.status + "  " + followChip)
	statusLine := renderStatusLine(m.width, helpStyle.Render(helpText), right)

	if m.width <= 0 || m.height <= 0 {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusLine)
}

func (m *Model) renderSessionList() string {
	height := max(1, m.height-2)
	lines := make([]string, 0, height)
	lines = append(lines, metaStyle.Render(padCell("sessions", sessionListWidth)))
	if len(m.sessions) == 0 {
		lines = append(lines, metaStyle.Render(padCell("  none (press n)", sessionListWidth)))
	}
	for i, s := range m.sessions {
		if len(lines) >= height {
			break
		}
		lines = append(lines, sessionLine(s, i == m.selected, s.ID == m.attached, sessionListWidth))
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", sessionListWidth))
	}
	return strings.Join(lines, "\n")
}

func sessionLine(s types.SessionSummary, selected, attached bool, width int) string {
	marker := "  "
	if attached {
		marker = "> "
	}
	label := fmt.Sprintf("%s#%d %s %dev", marker, s.ID, s.State, s.Events)
	if s.Goal != "" {
		label += " " + s.Goal
	}
	label = padCell(label, width)
	switch {
	case selected:
		return selectedStyle.Render(label)
	case attached:
		return attachedStyle.Render(label)
	case s.State == types.SessionStateClosed:
		return sessionClosedStyle.Render(label)
	default:
		return sessionStyle.Render(label)
	}
}

func padCell(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

func renderStatusLine(width int, help, status string) string {
	if width <= 0 {
		return help + " " + status
	}
	padding := width - lipgloss.Width(help) - lipgloss.Width(status)
	if padding < statusLinePadding {
		padding = statusLinePadding
	}
	return help + strings.Repeat(" ", padding) + status
}

func pageStride(height int) int {
	return max(1, height-1)
}

func halfStride(height int) int {
	return max(1, height/2)
}

func maxOffset(lines, height int) int {
	if lines <= height {
		return 0
	}
	return lines - height
}
