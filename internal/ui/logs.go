package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ferry/internal/logtail"
)

// logTail serialises reads of ferry's log file. Refresh commands run on
// their own goroutines and a Follower is not safe for concurrent use.
type logTail struct {
	mu       sync.Mutex
	follower *logtail.Follower
}

func (t *logTail) next() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.follower.Next()
}

// logState holds the log view state.
type logState struct {
	path     string
	follower *logTail
	lines    []string
	loaded   bool
	follow   bool
	dirty    bool
}

func newLogState(path string) logState {
	st := logState{path: path, follow: true}
	if path != "" {
		st.follower = &logTail{follower: logtail.NewFollower(path)}
	}
	return st
}

type logLinesMsg struct {
	lines []string
}

type logErrorMsg struct {
	err error
}

func refreshLogsCmd(tail *logTail) tea.Cmd {
	if tail == nil {
		return nil
	}
	return func() tea.Msg {
		lines, err := tail.next()
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logLinesMsg{lines: lines}
	}
}

// handleLogLines appends new lines. The first batch is the whole file, so
// only the most recent LogInitialLines of it are kept.
func (m *Model) handleLogLines(msg logLinesMsg) {
	lines := msg.lines
	if !m.logState.loaded {
		m.logState.loaded = true
		if len(lines) > LogInitialLines {
			lines = lines[len(lines)-LogInitialLines:]
		}
	}
	if len(lines) == 0 {
		return
	}
	m.logState.lines = append(m.logState.lines, lines...)
	if over := len(m.logState.lines) - LogBufferLimit; over > 0 {
		m.logState.lines = append([]string(nil), m.logState.lines[over:]...)
	}
	m.logState.dirty = true
	m.updateLogViewport()
}

// updateLogViewport sizes the viewport and re-renders content when it changed.
func (m *Model) updateLogViewport() {
	width := max(m.width-4, 1)
	height := max(m.height-4, 1) // header, cmdbar, box borders
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(width, height)
		m.logState.dirty = true
	}
	m.logViewport.Width = width
	m.logViewport.Height = height
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.dirty {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.dirty = false
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogContent colours each line by its level.
func (m Model) renderLogContent() string {
	if len(m.logState.lines) == 0 {
		return m.theme.Styles().WithBackground(m.theme.FocusBg).MutedText.Render("No log entries yet")
	}
	out := make([]string, 0, len(m.logState.lines))
	for _, line := range m.logState.lines {
		out = append(out, m.formatLogLine(line))
	}
	return strings.Join(out, "\n")
}

// formatLogLine renders one slog text line as "time LEVEL msg key=value...".
// Lines that do not parse are shown as they are.
func (m Model) formatLogLine(line string) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)

	entry := logtail.Parse(line)
	if !entry.Parsed() {
		return bg.Render(entry.Raw, styles.Text)
	}

	parts := make([]string, 0, 3+len(entry.Attrs))
	if ts := shortTime(entry.Time); ts != "" {
		parts = append(parts, bg.Render(ts, styles.FaintText))
	}
	parts = append(parts, bg.Render(fmt.Sprintf("%-5s", entry.Level), m.levelStyle(styles, entry.Level)))
	if entry.Message != "" {
		parts = append(parts, bg.Render(entry.Message, styles.Text))
	}
	for _, a := range entry.Attrs {
		parts = append(parts, bg.Render(a.Key+"=", styles.MutedText)+bg.Render(a.Value, styles.AccentText))
	}
	return strings.Join(parts, bg.Space())
}

func (m Model) levelStyle(styles Styles, level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.InfoText
	}
}

// shortTime trims an RFC 3339 timestamp down to its clock part.
func shortTime(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		return ts[i+1 : i+9]
	}
	return ts
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	contentHeight := m.height - 2
	title := "Ferry Log"
	if m.logState.path != "" {
		title += " · " + truncateMiddle(m.logState.path, max(m.width/2, 10))
	}
	if !m.logState.follow {
		title += " (paused)"
	}
	return m.renderTitledBox(title, m.logViewport.View(), m.width, contentHeight, true)
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, refreshLogsCmd(m.logState.follower)
		}
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
	}
	return m, nil
}
