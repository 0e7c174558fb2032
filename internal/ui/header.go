package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ferry/internal/job"
)

// renderHeader renders the status bar with job counts, refresh time and any
// flash message.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	content := m.buildStatusContent(styles, bg)

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(content)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	counts := m.snapshot.Counts()

	var parts []string
	parts = append(parts, bg.Render("ferry", styles.Logo))

	if m.config != nil && !compact {
		parts = append(parts, bg.Render(truncateMiddle(m.config.ServerURL, 32), styles.FaintText))
	}

	parts = append(parts,
		bg.Render("Jobs:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.snapshot.Jobs)), styles.Text),
	)

	active := counts[job.StatusPending] + counts[job.StatusProcessing] + counts[job.StatusRetrying]
	if active > 0 {
		activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(job.StatusProcessing)))
		parts = append(parts,
			bg.Render("Active:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", active), activeStyle),
		)
	}

	doneLabel, failedLabel := "Done:", "Failed:"
	if compact {
		doneLabel, failedLabel = "D:", "F:"
	}
	doneStyle := styles.MutedText
	if counts[job.StatusCompleted] > 0 {
		doneStyle = styles.SuccessText
	}
	failedStyle := styles.MutedText
	if counts[job.StatusFailed] > 0 {
		failedStyle = styles.DangerText
	}
	sep := bg.Spaces(2)
	parts = append(parts,
		bg.Render(doneLabel, styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", counts[job.StatusCompleted]), doneStyle)+
			sep+bg.Render("•", styles.FaintText)+sep+
			bg.Render(failedLabel, styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", counts[job.StatusFailed]), failedStyle),
	)

	if timeStr := m.formatTimestamp(); timeStr != "" {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	if m.flash.text != "" {
		maxLen := 80
		if compact {
			maxLen = 40
		}
		style := styles.InfoText
		mark := "•"
		if m.flash.isError {
			style = styles.WarningText
			mark = "!"
		}
		parts = append(parts,
			bg.Render(mark, style.Bold(true))+bg.Space()+
				bg.Render(truncate(m.flash.text, maxLen), style),
		)
	}

	return bg.Join(parts, "  ")
}

// formatTimestamp formats the last refresh time with a relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	timeSince := time.Since(m.lastUpdated)
	timeStr := m.lastUpdated.Format("15:04:05")

	if timeSince < time.Minute {
		timeStr += " (now)"
	} else if timeSince < time.Hour {
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	}

	return timeStr
}

// renderCommandBar renders the command hints bar. While the upload prompt is
// open the bar hosts the path input instead.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if m.upload.active {
		return styles.Header.Width(m.width).Render(
			bg.Render("Upload", styles.AccentText.Bold(true)) + bg.Spaces(2) +
				m.upload.input.View() + bg.Spaces(2) +
				bg.Render("enter", styles.AccentText) + bg.Sep(":") + bg.Render("Submit", styles.MutedText) + bg.Spaces(2) +
				bg.Render("esc", styles.AccentText) + bg.Sep(":") + bg.Render("Cancel", styles.MutedText),
		)
	}

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"j/k", "Scroll"},
			{"q", "Jobs"},
			{"u", "Upload"},
			{"?", "More"},
		}
	default:
		commands = []cmd{{"u", "Upload"}}
		if j, ok := m.selectedJob(); ok {
			k, desc := actionHint(j)
			commands = append(commands, cmd{k, desc})
		}
		commands = append(commands,
			cmd{"j/k", "Navigate"},
			cmd{"x", "Export"},
			cmd{"l", "Log"},
			cmd{"?", "More"},
		)
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// actionHint returns the key and label of the action that applies to j.
// Completed jobs offer a download. Everything else offers a status check.
func actionHint(j job.Job) (string, string) {
	if j.Status == job.StatusCompleted {
		return "d", "Download"
	}
	return "r", "Refresh"
}
