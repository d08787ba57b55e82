package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/validation"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if m.form != nil {
			h, _ := docStyle.GetFrameSize()
			m.form = m.form.WithWidth(msg.Width - h)
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case eventsLoadedMsg:
		m.setEvents(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case stateSequenceForm, stateEventForm:
		return m.updateForm(msg)
	case stateConfirm:
		return m.updateConfirm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleWeekKeys(msg)
	}
	return m, nil
}

func (m Model) handleWeekKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.view.Sequences)-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(msg, m.keys.Right):
		if m.col < constants.DaysInWeek-1 {
			m.col++
		}
	case key.Matches(msg, m.keys.PrevWeek):
		m.date = m.planner.ShiftWeek(m.date, -1)
		cmd := m.loadWeek()
		return m, cmd
	case key.Matches(msg, m.keys.NextWeek):
		m.date = m.planner.ShiftWeek(m.date, 1)
		cmd := m.loadWeek()
		return m, cmd
	case key.Matches(msg, m.keys.Today):
		today := m.planner.Today()
		m.date = m.planner.WeekStart(today)
		m.col = m.dayIndex(today)
		cmd := m.loadWeek()
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.loadWeek()
		return m, cmd
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleSelected()
	case key.Matches(msg, m.keys.Add):
		return m.openSequenceForm(nil)
	case key.Matches(msg, m.keys.Edit):
		if row, ok := m.selected(); ok {
			return m.openSequenceForm(&row.Sequence)
		}
	case key.Matches(msg, m.keys.Event):
		return m.openEventForm()
	case key.Matches(msg, m.keys.Pause):
		return m.togglePause()
	case key.Matches(msg, m.keys.Clear):
		if row, ok := m.selected(); ok {
			id := row.Sequence.ID
			return m.confirm(fmt.Sprintf("Clear all completed days of %q?", row.Sequence.Name), func(m *Model) tea.Cmd {
				return m.apply(id, "Cleared", m.planner.Clear)
			})
		}
	case key.Matches(msg, m.keys.Delete):
		if row, ok := m.selected(); ok {
			id, name := row.Sequence.ID, row.Sequence.Name
			return m.confirm(fmt.Sprintf("Delete %q and its history?", name), func(m *Model) tea.Cmd {
				if err := m.planner.Delete(id); err != nil {
					return statusCmd(err.Error())
				}
				return tea.Batch(statusCmd("Deleted "+name), m.loadWeek())
			})
		}
	}
	return m, nil
}

// statusMsg replaces the status line.
type statusMsg string

func statusCmd(s string) tea.Cmd {
	return func() tea.Msg { return statusMsg(s) }
}

func (m Model) toggleSelected() (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok {
		return m, nil
	}
	seq, err := m.planner.ToggleDay(row.Sequence.ID, m.selectedDate())
	switch {
	case errors.Is(err, planner.ErrSequencePaused):
		m.status = row.Sequence.Name + " is paused. Press p to resume."
		return m, nil
	case errors.Is(err, planner.ErrDayInactive):
		m.status = row.Sequence.Name + " is not tracked on this day."
		return m, nil
	case err != nil:
		m.status = err.Error()
		return m, nil
	}
	m.replaceSequence(seq)
	return m, nil
}

func (m Model) togglePause() (tea.Model, tea.Cmd) {
	row, ok := m.selected()
	if !ok {
		return m, nil
	}
	if row.Sequence.Paused {
		cmd := m.apply(row.Sequence.ID, "Resumed", m.planner.Resume)
		return m, cmd
	}
	cmd := m.apply(row.Sequence.ID, "Paused", m.planner.Pause)
	return m, cmd
}

// apply runs a sequence action and reloads the week.
func (m *Model) apply(id, verb string, fn func(string) (models.Sequence, error)) tea.Cmd {
	seq, err := fn(id)
	if err != nil {
		return statusCmd(err.Error())
	}
	return tea.Batch(statusCmd(verb+" "+seq.Name), m.loadWeek())
}

// replaceSequence swaps in the row for seq. The rows slice is copied first
// since earlier models may still share it.
func (m *Model) replaceSequence(seq models.Sequence) {
	for i, row := range m.view.Sequences {
		if row.Sequence.ID != seq.ID {
			continue
		}
		rows := slices.Clone(m.view.Sequences)
		cells := slices.Clone(row.Cells)
		for j := range cells {
			cells[j].Completed = seq.IsDayCompleted(cells[j].Date)
		}
		rows[i].Sequence = seq
		rows[i].Cells = cells
		rows[i].Stats = seq.Stats(m.view.Start)
		m.view.Sequences = rows
		return
	}
}

func (m Model) confirm(prompt string, action func(*Model) tea.Cmd) (tea.Model, tea.Cmd) {
	m.confirmPrompt = prompt
	m.pendingAction = action
	m.state = stateConfirm
	return m, nil
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		var cmd tea.Cmd
		if m.pendingAction != nil {
			cmd = m.pendingAction(&m)
		}
		m.pendingAction = nil
		m.confirmPrompt = ""
		m.state = stateWeek
		return m, cmd
	case "n", "N", "esc":
		m.pendingAction = nil
		m.confirmPrompt = ""
		m.state = stateWeek
	}
	return m, nil
}

func (m Model) openSequenceForm(seq *models.Sequence) (tea.Model, tea.Cmd) {
	if seq == nil {
		m.editingID = ""
		m.sequenceForm = &SequenceFormModel{
			Color:     constants.SequenceColors[len(m.view.Sequences)%len(constants.SequenceColors)],
			Pattern:   string(models.PatternFullWeek),
			Recurring: true,
		}
	} else {
		m.editingID = seq.ID
		m.sequenceForm = sequenceFormFrom(*seq)
	}
	m.formError = ""
	m.form = NewSequenceForm(m.sequenceForm)
	m.state = stateSequenceForm
	return m, m.form.Init()
}

func (m Model) openEventForm() (tea.Model, tea.Cmd) {
	m.eventForm = newEventFormModel(m.selectedDate())
	m.formError = ""
	m.form = NewEventForm(m.eventForm)
	m.state = stateEventForm
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.closeForm()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		var submit tea.Cmd
		if m.state == stateSequenceForm {
			m, submit = m.submitSequenceForm()
		} else {
			m, submit = m.submitEventForm()
		}
		return m, tea.Batch(cmd, submit)
	case huh.StateAborted:
		m.closeForm()
	}
	return m, cmd
}

func (m *Model) closeForm() {
	m.form = nil
	m.sequenceForm = nil
	m.eventForm = nil
	m.editingID = ""
	m.formError = ""
	m.state = stateWeek
}

// retry keeps the form open with err shown above it.
func (m *Model) retry(err error) {
	if fe, ok := validation.AsFieldErrors(err); ok {
		m.formError = fe.Error()
	} else {
		m.formError = err.Error()
	}
	if m.form != nil {
		m.form.State = huh.StateNormal
	}
}

func (m Model) submitSequenceForm() (Model, tea.Cmd) {
	start := m.planner.Today()
	if m.editingID != "" {
		if seq, err := m.planner.Sequence(m.editingID); err == nil {
			start = seq.StartDate
		}
	}
	in, err := m.sequenceForm.Input(start)
	if err != nil {
		m.retry(err)
		return m, nil
	}

	var seq models.Sequence
	verb := "Added"
	if m.editingID == "" {
		seq, err = m.planner.AddSequence(in)
	} else {
		verb = "Updated"
		seq, err = m.planner.EditSequence(m.editingID, in)
	}
	if err != nil {
		m.retry(err)
		return m, nil
	}
	m.closeForm()
	m.status = verb + " " + seq.Name
	cmd := m.loadWeek()
	return m, cmd
}

func (m Model) submitEventForm() (Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	e, err := m.planner.AddEvent(ctx, m.eventForm.Draft())
	if errors.Is(err, planner.ErrNoCalendar) {
		m.closeForm()
		m.status = "No calendar is configured."
		return m, nil
	}
	if err != nil {
		m.retry(err)
		return m, nil
	}
	m.closeForm()
	m.status = "Created event " + e.Summary
	cmd := m.loadWeek()
	return m, cmd
}
