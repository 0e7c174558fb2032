package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/five82/ferry/internal/config"
	"github.com/five82/ferry/internal/prefs"
	"github.com/five82/ferry/internal/state"
	"github.com/five82/ferry/internal/tracker"
)

// View represents the current active view.
type View int

const (
	ViewJobs View = iota
	ViewLogs
)

// Options configures the UI.
type Options struct {
	Context   context.Context
	Tracker   *tracker.Tracker
	Config    *config.Config
	PollTick  time.Duration
	ThemeName string
	LastDir   string
	PrefsPath string
	LogPath   string
	Logger    *slog.Logger

	// Files are queued at startup and uploaded once the program runs.
	Files []string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	tracker   *tracker.Tracker
	store     *state.Store
	config    *config.Config
	prefsPath string
	lastDir   string
	logPath   string
	logger    *slog.Logger
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selectedRow int
	busy        map[uuid.UUID]string

	upload uploadState

	logViewport viewport.Model
	logState    logState

	showHelp bool
	flash    flash

	startup []uuid.UUID
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var store *state.Store
	if opts.Tracker != nil {
		store = opts.Tracker.Store()
	}

	m := Model{
		ctx:         ctx,
		tracker:     opts.Tracker,
		store:       store,
		config:      opts.Config,
		prefsPath:   prefsPath,
		lastDir:     opts.LastDir,
		logPath:     opts.LogPath,
		logger:      logger,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewJobs,
		busy:        make(map[uuid.UUID]string),
		upload:      newUploadState(),
		logState:    newLogState(opts.LogPath),
	}

	if m.tracker != nil {
		for _, f := range opts.Files {
			path := expandUserPath(strings.TrimSpace(f))
			if path == "" {
				continue
			}
			if j, ok := m.tracker.Enqueue(path); ok {
				m.busy[j.ID] = "uploading"
				m.startup = append(m.startup, j.ID)
			}
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	for _, id := range m.startup {
		cmds = append(cmds, uploadCmd(m.ctx, m.tracker, id))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case submittedMsg:
		m.handleSubmitted(msg)
		return m, fetchSnapshotCmd(m.store)

	case checkedMsg:
		m.handleChecked(msg)
		return m, fetchSnapshotCmd(m.store)

	case downloadedMsg:
		m.handleDownloaded(msg)
		return m, fetchSnapshotCmd(m.store)

	case exportedMsg:
		m.handleExported(msg)
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case logErrorMsg:
		m.logger.Debug("log refresh failed", "error", msg.err)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.upload.active {
		return m.handleUploadKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.logState.dirty = true
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.ViewJobs), key.Matches(msg, m.keys.Escape):
		m.currentView = ViewJobs
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, refreshLogsCmd(m.logState.follower)

	case key.Matches(msg, m.keys.Upload):
		return m.openUpload()

	case key.Matches(msg, m.keys.Export):
		return m.startExport()
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleJobsKey(msg)
	}
}

// handleJobsKey processes keyboard input for the jobs view.
func (m Model) handleJobsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m.startCheck()
	case key.Matches(msg, m.keys.Download):
		return m.startDownload()
	}

	count := len(m.snapshot.Jobs)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	}
	return m, nil
}

// handleTick processes the refresh tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		cmds = append(cmds, refreshLogsCmd(m.logState.follower))
	}
	if m.flash.expired(time.Now()) {
		m.flash = flash{}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// applySnapshot swaps in a new job list and keeps the selection on the same job.
func (m *Model) applySnapshot(snap state.Snapshot) {
	var selected uuid.UUID
	if j, ok := m.selectedJob(); ok {
		selected = j.ID
	}

	m.snapshot = snap
	m.lastUpdated = time.Now()

	if selected != uuid.Nil {
		for i, j := range snap.Jobs {
			if j.ID == selected {
				m.selectedRow = i
				break
			}
		}
	}
	if m.selectedRow >= len(snap.Jobs) {
		m.selectedRow = len(snap.Jobs) - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastDir: m.lastDir}); err != nil {
		m.logger.Warn("save prefs failed", "error", err)
	}
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderJobs()
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
