package ui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// uploadState holds the file path prompt.
type uploadState struct {
	active bool
	input  textinput.Model
}

func newUploadState() uploadState {
	ti := textinput.New()
	ti.Placeholder = "path/to/sales.csv"
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Width = 60
	return uploadState{input: ti}
}

// openUpload shows the path prompt, seeded with the last directory used.
func (m Model) openUpload() (tea.Model, tea.Cmd) {
	m.upload.active = true
	seed := ""
	if m.lastDir != "" {
		seed = strings.TrimSuffix(m.lastDir, string(os.PathSeparator)) + string(os.PathSeparator)
	}
	m.upload.input.SetValue(seed)
	m.upload.input.CursorEnd()
	m.upload.input.Focus()
	return m, textinput.Blink
}

func (m *Model) closeUpload() {
	m.upload.active = false
	m.upload.input.Blur()
	m.upload.input.SetValue("")
}

// handleUploadKey processes input while the prompt is open. Submitting with
// no file chosen closes the prompt and does nothing else.
func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.closeUpload()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		raw := m.upload.input.Value()
		m.closeUpload()
		return m.submitPath(raw)
	}

	var cmd tea.Cmd
	m.upload.input, cmd = m.upload.input.Update(msg)
	return m, cmd
}

// submitPath queues path and starts its upload in the background.
func (m Model) submitPath(raw string) (tea.Model, tea.Cmd) {
	path := expandUserPath(strings.TrimSpace(raw))
	if path == "" || m.tracker == nil {
		return m, nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		m.setError("Choose a file, not a directory")
		return m, nil
	}

	j, ok := m.tracker.Enqueue(path)
	if !ok {
		return m, nil
	}

	m.lastDir = filepath.Dir(j.LocalPath)
	m.savePrefs()
	m.busy[j.ID] = "uploading"
	m.selectedRow = 0
	m.setFlash("Uploading " + j.FileName)

	return m, tea.Batch(
		fetchSnapshotCmd(m.store),
		uploadCmd(m.ctx, m.tracker, j.ID),
	)
}

// expandUserPath expands a leading ~ and makes the path absolute.
func expandUserPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
