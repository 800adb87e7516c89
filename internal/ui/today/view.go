// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package today

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/habitrun/internal/coach"
	"github.com/jeranaias/habitrun/internal/tracker"
	"github.com/jeranaias/habitrun/internal/ui/styles"
	"github.com/jeranaias/habitrun/internal/util"
)

const progressBarWidth = 20

// View renders the view.
func (m Model) View() string {
	if m.state == StateLoading {
		return m.theme.Empty.Render("Loading " + m.date + "...")
	}

	width := m.theme.ContentWidth()
	var b strings.Builder

	b.WriteString(m.viewHeader(width))
	b.WriteString("\n")
	b.WriteString(m.viewChecklist(width))

	if m.state == StateAdding {
		b.WriteString("\n\n")
		b.WriteString(m.theme.Input.Width(width - 2).Render(m.input.View()))
	}
	if panel := m.viewCoach(width); panel != "" {
		b.WriteString("\n\n")
		b.WriteString(panel)
	}

	b.WriteString("\n\n")
	b.WriteString(m.viewStatus(width))
	b.WriteString("\n")
	if m.state == StateAdding {
		b.WriteString(m.help.View(inputKeys{Submit: m.keys.Submit, Cancel: m.keys.Cancel}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) viewHeader(width int) string {
	title := m.theme.HeaderTitle.Render("habitrun")
	subtitle := m.theme.HeaderSubtitle.Render(formatDay(m.date))
	line := title + "  " + subtitle
	if m.offline {
		line += "  " + m.theme.StatusOffline.Render("[OFFLINE]")
	}
	return m.theme.Header.Width(width - 2).Render(line)
}

func (m Model) viewChecklist(width int) string {
	var b strings.Builder
	routines, tasks := 0, 0
	for _, r := range m.rows {
		if r.kind == rowRoutine {
			routines++
		} else {
			tasks++
		}
	}

	b.WriteString(m.theme.Section.Render("Routines"))
	b.WriteString("\n")
	if routines == 0 {
		b.WriteString(m.theme.Empty.Render("  No active routines"))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		if r.kind == rowRoutine {
			b.WriteString(m.viewRow(i, r, width))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.theme.Section.Render("Tasks"))
	b.WriteString("\n")
	if tasks == 0 {
		b.WriteString(m.theme.Empty.Render("  No tasks yet, press a to add one"))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		if r.kind == rowTask {
			b.WriteString(m.viewRow(i, r, width))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewRow(i int, r row, width int) string {
	cursor := "  "
	if i == m.cursor && m.state != StateAdding {
		cursor = "> "
	}

	tag := ""
	if r.kind == rowTask && r.source != "" && r.source != tracker.SourceAdhoc {
		tag = " (" + r.source + ")"
	}
	labelWidth := width - util.StringWidth(cursor) - 4 - util.StringWidth(tag)
	label := util.TruncateWidth(r.label, labelWidth)

	style := m.theme.Item
	if r.done {
		style = m.theme.ItemDone
	}
	if i == m.cursor && m.state != StateAdding {
		style = m.theme.ItemSelected
	}
	return cursor + styles.Checkbox(r.done) + " " + style.Render(label) + m.theme.Source.Render(tag)
}

func (m Model) viewCoach(width int) string {
	if m.busy != "" {
		return m.spinner.View() + " " + m.theme.Empty.Render(busyText(m.busy))
	}
	if m.coachText == "" {
		return ""
	}

	title := "Motivation"
	if m.coachKind == CoachSuggestions {
		title = "Suggestions for today"
	}
	if m.coachFallback {
		title += " (offline)"
	}
	body := lipgloss.NewStyle().Width(width - 4).Render(coach.Clean(m.coachText))
	return m.theme.Panel.Width(width - 2).Render(m.theme.PanelTitle.Render(title) + "\n" + body)
}

func (m Model) viewStatus(width int) string {
	done, total := m.Progress()
	progress := m.theme.Progress.Render(progressBar(done, total, progressBarWidth)) +
		fmt.Sprintf(" %d/%d done", done, total)

	var msg string
	switch {
	case m.status == "":
	case m.statusErr:
		msg = styles.RenderError(m.status)
	default:
		msg = styles.RenderSuccess(m.status)
	}

	line := progress
	if msg != "" {
		line += "  " + msg
	}
	return m.theme.StatusBar.Width(width).Render(line)
}

// =============================================================================
// HELPERS
// =============================================================================

// progressBar draws done/total as a fixed-width ASCII bar.
func progressBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func formatDay(date string) string {
	t, err := tracker.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 2 January 2006")
}

func busyText(kind CoachKind) string {
	if kind == CoachSuggestions {
		return "Thinking about your day..."
	}
	return "Finding some encouragement..."
}
