package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/ferry/internal/job"
)

type detailField struct {
	label string
	value string
}

// detailFields lists what the detail pane shows for j. Progress counters the
// service has not reported stay blank.
func detailFields(j job.Job) []detailField {
	fields := []detailField{
		{"File", j.FileName},
		{"Path", j.LocalPath},
		{"Remote ID", j.RemoteJobID},
		{"Download", j.DownloadLink()},
		{"Lines", j.Progress.LinesText()},
		{"Departments", j.Progress.DepartmentsText()},
		{"Elapsed (s)", j.Progress.ElapsedText()},
		{"Submitted", formatClock(j.SubmittedAt)},
		{"Checked", checkedText(j)},
	}
	if j.DownloadedTo != "" {
		fields = append(fields, detailField{"Saved to", j.DownloadedTo})
	}
	if j.Status == job.StatusUnknown && j.Token != "" {
		fields = append(fields, detailField{"Token", j.Token})
	}
	return fields
}

// renderDetailContent renders the detail pane body for j.
func (m Model) renderDetailContent(j job.Job, width int, bgColor string) string {
	styles := m.theme.Styles().WithBackground(bgColor)
	bg := NewBgStyle(bgColor)

	var lines []string

	badge := styles.StatusBadge(j.Status).Render(j.Label())
	lines = append(lines, bg.Space()+badge)
	lines = append(lines, "")

	const labelWidth = 12
	valueWidth := max(width-labelWidth-2, 10)
	for _, f := range detailFields(j) {
		value := f.value
		switch f.label {
		case "Path", "Download", "Saved to":
			value = truncateMiddle(value, valueWidth)
		default:
			value = truncate(value, valueWidth)
		}
		lines = append(lines,
			bg.Space()+bg.Render(padRight(f.label, labelWidth), styles.MutedText)+
				bg.Space()+bg.Render(value, styles.Text))
	}

	lines = append(lines, "")
	k, desc := actionHint(j)
	hint := bg.Space() + bg.Render(k, styles.AccentText) + bg.Sep(":") + bg.Render(desc, styles.MutedText)
	if activity, busy := m.busy[j.ID]; busy {
		hint += bg.Spaces(2) + bg.Render(activity+"…", styles.InfoText)
	}
	lines = append(lines, hint)

	return strings.Join(lines, "\n")
}

func checkedText(j job.Job) string {
	if j.CheckedAt.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%d)", formatClock(j.CheckedAt), j.Checks)
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04:05")
}
