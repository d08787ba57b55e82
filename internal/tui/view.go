package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/planner"
)

const (
	nameWidth = 22
	cellWidth = 7
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case stateSequenceForm, stateEventForm:
		content = m.viewForm()
	case stateConfirm:
		content = m.viewConfirm()
	default:
		content = m.viewWeek()
	}

	status := ""
	if m.status != "" {
		status = warningStyle.Render(m.status)
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		status,
		m.help.View(m),
	))
}

func (m Model) viewWeek() string {
	if m.loadErr != nil {
		return dangerStyle.Render("Failed to load week: " + m.loadErr.Error())
	}
	if !m.loaded {
		return mutedStyle.Render("Loading week...")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Week of " + m.view.Title))
	b.WriteString("\n\n")
	b.WriteString(m.viewGrid())
	b.WriteString("\n")
	b.WriteString(m.viewEvents())
	return b.String()
}

func (m Model) viewGrid() string {
	var b strings.Builder

	b.WriteString(pad("", nameWidth))
	for i, d := range m.view.Days {
		label := center(fmt.Sprintf("%s %d", d.Weekday, d.Date.Day()), cellWidth)
		switch {
		case d.Status == datestatus.Present:
			label = todayStyle.Render(label)
		case i == m.col:
			label = headerStyle.Underline(true).Render(label)
		default:
			label = headerStyle.Render(label)
		}
		b.WriteString(label)
	}
	b.WriteString(headerStyle.Render("  Done"))
	b.WriteString("\n")

	if len(m.view.Sequences) == 0 {
		b.WriteString(mutedStyle.Render("No sequences yet. Press a to add one."))
		b.WriteString("\n")
		return b.String()
	}

	for r, row := range m.view.Sequences {
		name := row.Sequence.Name
		if row.Sequence.Paused {
			name += " (paused)"
		}
		name = swatch(row.Sequence.Color) + " " + pad(truncate(name, nameWidth-3), nameWidth-2)
		if row.Sequence.Paused {
			name = pastStyle.Render(name)
		}
		b.WriteString(name)

		for c, cell := range row.Cells {
			mark := center(cellMark(cell), cellWidth)
			switch {
			case r == m.row && c == m.col:
				mark = cursorStyle.Render(mark)
			case cell.Completed:
				mark = completedStyle.Render(mark)
			case !cell.Active || cell.Status == datestatus.Past:
				mark = pastStyle.Render(mark)
			}
			b.WriteString(mark)
		}
		fmt.Fprintf(&b, "  %d/%d (%d%%)\n", row.Stats.Completed, row.Stats.Total, row.Stats.Percentage)
	}

	if row, ok := m.selected(); ok {
		b.WriteString(mutedStyle.Render(row.PatternLabel))
		if row.Sequence.Description != "" {
			b.WriteString(mutedStyle.Render(" · " + row.Sequence.Description))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewEvents() string {
	if m.view.CalendarError != "" {
		return warningStyle.Render("Calendar unavailable: " + m.view.CalendarError)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Events"))
	b.WriteString("\n")
	count := 0
	for _, d := range m.view.Days {
		if len(d.Events) == 0 {
			continue
		}
		day := fmt.Sprintf("%s %d", d.Weekday, d.Date.Day())
		if d.Status == datestatus.Present {
			day = todayStyle.Render(day)
		}
		b.WriteString(day)
		b.WriteString("\n")
		for _, e := range d.Events {
			line := fmt.Sprintf("  %-9s %s", e.TimeLabel, eventTitle(e))
			if e.Completed {
				line = pastStyle.Render(line + "  (completed)")
			}
			b.WriteString(line)
			b.WriteString("\n")
			count++
		}
	}
	if count == 0 {
		b.WriteString(mutedStyle.Render("No events this week."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewForm() string {
	title := "New sequence"
	switch {
	case m.state == stateEventForm:
		title = "New event"
	case m.editingID != "":
		title = "Edit sequence"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	if m.formError != "" {
		b.WriteString(dangerStyle.Render(m.formError))
		b.WriteString("\n\n")
	}
	if m.form != nil {
		b.WriteString(m.form.View())
	}
	return b.String()
}

func (m Model) viewConfirm() string {
	return fmt.Sprintf("%s\n\n%s",
		dangerStyle.Render(m.confirmPrompt),
		mutedStyle.Render("Press y to confirm, n or esc to cancel."))
}

func cellMark(c planner.Cell) string {
	switch {
	case !c.Active:
		return " "
	case c.Completed:
		return "✓"
	case c.Status == datestatus.Past:
		return "✗"
	default:
		return "·"
	}
}

func eventTitle(e planner.EventView) string {
	title := e.Summary
	if title == "" {
		title = "(no title)"
	}
	if e.Location != "" {
		title += " @ " + strings.TrimSpace(e.Location)
	}
	return title
}

func pad(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

func center(s string, width int) string {
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
