package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/five82/ferry/internal/config"
	"github.com/five82/ferry/internal/export"
	"github.com/five82/ferry/internal/job"
	"github.com/five82/ferry/internal/processor"
	"github.com/five82/ferry/internal/tracker"
)

// flash is a short-lived message shown in the header.
type flash struct {
	text    string
	isError bool
	at      time.Time
}

func (f flash) expired(now time.Time) bool {
	return f.text != "" && now.Sub(f.at) > FlashDuration
}

func (m *Model) setFlash(text string) {
	m.flash = flash{text: text, at: time.Now()}
}

func (m *Model) setError(text string) {
	m.flash = flash{text: text, isError: true, at: time.Now()}
}

// Result messages

type submittedMsg struct {
	id  uuid.UUID
	job job.Job
	err error
}

type checkedMsg struct {
	id  uuid.UUID
	job job.Job
	err error
}

type downloadedMsg struct {
	id  uuid.UUID
	job job.Job
	err error
}

type exportedMsg struct {
	path  string
	count int
	err   error
}

// Commands

func uploadCmd(ctx context.Context, trk *tracker.Tracker, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		j, err := trk.Upload(ctx, id)
		return submittedMsg{id: id, job: j, err: err}
	}
}

func checkCmd(ctx context.Context, trk *tracker.Tracker, id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		j, err := trk.Check(ctx, id)
		return checkedMsg{id: id, job: j, err: err}
	}
}

func downloadCmd(ctx context.Context, trk *tracker.Tracker, id uuid.UUID, dir string) tea.Cmd {
	return func() tea.Msg {
		j, err := trk.Download(ctx, id, dir)
		return downloadedMsg{id: id, job: j, err: err}
	}
}

func exportCmd(path string, jobs []job.Job) tea.Cmd {
	return func() tea.Msg {
		err := export.WriteXLSX(path, jobs)
		return exportedMsg{path: path, count: len(jobs), err: err}
	}
}

// Starters

// startCheck refreshes the selected job's state from the service.
func (m Model) startCheck() (tea.Model, tea.Cmd) {
	j, ok := m.selectedJob()
	if !ok || m.tracker == nil {
		return m, nil
	}
	if _, busy := m.busy[j.ID]; busy {
		return m, nil
	}
	if j.DownloadURL == "" {
		m.setError(j.FileName + " has no download reference")
		return m, nil
	}
	m.busy[j.ID] = "checking"
	return m, checkCmd(m.ctx, m.tracker, j.ID)
}

// startDownload saves the selected job's processed file.
func (m Model) startDownload() (tea.Model, tea.Cmd) {
	j, ok := m.selectedJob()
	if !ok || m.tracker == nil {
		return m, nil
	}
	if _, busy := m.busy[j.ID]; busy {
		return m, nil
	}
	if !j.HasDownload() {
		m.setError(j.FileName + " is not completed yet")
		return m, nil
	}
	m.busy[j.ID] = "downloading"
	return m, downloadCmd(m.ctx, m.tracker, j.ID, m.downloadDir())
}

// startExport writes the session's jobs to a spreadsheet.
func (m Model) startExport() (tea.Model, tea.Cmd) {
	if len(m.snapshot.Jobs) == 0 {
		m.setError("Nothing to export")
		return m, nil
	}
	path := export.ReportPath(m.downloadDir(), time.Now())
	return m, exportCmd(path, m.snapshot.Jobs)
}

func (m Model) downloadDir() string {
	if m.config != nil && m.config.DownloadDir != "" {
		return m.config.DownloadDir
	}
	return config.Default().DownloadDir
}

// Result handlers

func (m *Model) handleSubmitted(msg submittedMsg) {
	delete(m.busy, msg.id)
	if msg.err != nil {
		m.setError(fmt.Sprintf("Upload failed: %s", msg.job.FileName))
		return
	}
	m.setFlash(fmt.Sprintf("%s: %s", msg.job.FileName, msg.job.Label()))
}

func (m *Model) handleChecked(msg checkedMsg) {
	delete(m.busy, msg.id)
	switch {
	case errors.Is(msg.err, tracker.ErrJobNotFound):
		m.setError("Upload no longer tracked")
	case errors.Is(msg.err, processor.ErrNoDownloadURL):
		m.setError("No download reference yet")
	case msg.err != nil:
		m.setError(fmt.Sprintf("Check failed: %v", msg.err))
	default:
		m.setFlash(fmt.Sprintf("%s: %s", msg.job.FileName, msg.job.Label()))
	}
}

func (m *Model) handleDownloaded(msg downloadedMsg) {
	delete(m.busy, msg.id)
	switch {
	case errors.Is(msg.err, tracker.ErrNotCompleted):
		m.setError("Upload is not completed yet")
	case msg.err != nil:
		m.setError(fmt.Sprintf("Download failed: %v", msg.err))
	default:
		m.setFlash("Saved " + msg.job.DownloadedTo)
	}
}

func (m *Model) handleExported(msg exportedMsg) {
	if msg.err != nil {
		m.setError(fmt.Sprintf("Export failed: %v", msg.err))
		return
	}
	m.setFlash(fmt.Sprintf("Exported %d uploads to %s", msg.count, msg.path))
}
