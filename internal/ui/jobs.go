package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/ferry/internal/job"
)

// selectedJob returns the job under the cursor.
func (m Model) selectedJob() (job.Job, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.snapshot.Jobs) {
		return job.Job{}, false
	}
	return m.snapshot.Jobs[m.selectedRow], true
}

// paneWidths splits the terminal between the job list and the detail pane.
// Extra wide terminals give the list 30%, everything else 40%.
func (m Model) paneWidths() (int, int) {
	listWidth := m.width * 40 / 100
	if m.width >= LayoutExtraWideWidth {
		listWidth = m.width * 30 / 100
	}
	return listWidth, m.width - listWidth
}

// renderJobs renders the jobs view with split layout (list + detail).
func (m Model) renderJobs() string {
	styles := m.theme.Styles()
	contentHeight := m.height - 2 // header + cmdbar

	if len(m.snapshot.Jobs) == 0 {
		emptyMsg := styles.MutedText.Render("No uploads yet. Press u to choose a CSV file.")
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	listWidth, detailWidth := m.paneWidths()

	listTitle := fmt.Sprintf("Uploads (%d)", len(m.snapshot.Jobs))
	listContent := m.renderJobList(listWidth-2, contentHeight-2, m.theme.FocusBg)
	listPane := m.renderTitledBox(listTitle, listContent, listWidth, contentHeight, true)

	var detailContent string
	if j, ok := m.selectedJob(); ok {
		detailContent = m.renderDetailContent(j, detailWidth-4, m.theme.SurfaceAlt)
	} else {
		detailContent = lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(m.theme.SurfaceAlt)).
			Render("Select an upload")
	}
	detailPane := m.renderTitledBox("Details", detailContent, detailWidth, contentHeight, false)

	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
}

// renderJobList renders the visible window of job rows, newest first.
func (m Model) renderJobList(width, height int, bgColor string) string {
	jobs := m.snapshot.Jobs
	if len(jobs) == 0 || height <= 0 {
		return ""
	}

	start := 0
	if m.selectedRow >= height {
		start = m.selectedRow - height + 1
	}
	end := min(start+height, len(jobs))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rowBg := bgColor
		selected := i == m.selectedRow
		if selected {
			rowBg = m.theme.SelectionBg
		}
		content := m.formatJobRow(jobs[i], width, rowBg, selected)
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(width).
			Render(content))
	}
	return strings.Join(lines, "\n")
}

// formatJobRow formats one row as "15:04:05 name.csv · Status".
// Selected rows use SelectionText throughout for contrast.
func (m Model) formatJobRow(j job.Job, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)

	statusStr := j.Label()
	if _, busy := m.busy[j.ID]; busy {
		statusStr += " …"
	}
	timeStr := j.SubmittedAt.Format("15:04:05")
	nameWidth := max(width-len(timeStr)-len([]rune(statusStr))-5, 8)

	var timeStyle, nameStyle, sepStyle, statusStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		timeStyle, nameStyle, sepStyle, statusStyle = selText, selText, selText, selText
	} else {
		styles := m.theme.Styles()
		timeStyle = styles.FaintText
		nameStyle = styles.Text
		sepStyle = styles.FaintText
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColor(j.Status)))
	}

	return bg.Render(timeStr, timeStyle) + bg.Space() +
		bg.Render(truncateMiddle(j.FileName, nameWidth), nameStyle) +
		bg.Render(" · ", sepStyle) +
		bg.Render(statusStr, statusStyle)
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐. Focused boxes use BorderFocus and FocusBg.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr, bgColorStr := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColorStr, bgColorStr = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := len([]rune(title))
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().
		Width(innerWidth).
		MaxWidth(innerWidth).
		Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	padded := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		padded = append(padded,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(padded, "\n") + "\n" + bottomBorder
}
