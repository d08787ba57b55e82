// Package tui is the interactive week view: a grid of sequences against the
// days of one week, with the week's calendar events listed underneath.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/utils"
)

type sessionState int

const (
	stateWeek sessionState = iota
	stateSequenceForm
	stateEventForm
	stateConfirm
)

const loadTimeout = 30 * time.Second

type SequenceFormModel struct {
	Name        string
	Description string
	Color       string
	Pattern     string
	Days        string
	Recurring   bool
}

type EventFormModel struct {
	Summary     string
	Date        string
	AllDay      bool
	Start       string
	End         string
	Location    string
	Description string
	Remind      int
}

// eventsLoadedMsg carries the calendar days fetched for one load. start and
// load identify the request; anything older than the model's last load is
// dropped.
type eventsLoadedMsg struct {
	start time.Time
	load  uint64
	view  planner.WeekView
	err   error
}

type Model struct {
	planner *planner.Service
	state   sessionState
	keys    KeyMap
	help    help.Model

	date    time.Time
	view    planner.WeekView
	loaded  bool
	loadErr error
	loads   uint64
	row     int
	col     int

	form          *huh.Form
	sequenceForm  *SequenceFormModel
	eventForm     *EventFormModel
	editingID     string
	confirmPrompt string
	pendingAction func(*Model) tea.Cmd

	status    string
	formError string
	quitting  bool
	width     int
	height    int
}

func NewModel(svc *planner.Service) Model {
	today := svc.Today()
	m := Model{
		planner: svc,
		state:   stateWeek,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		date:    svc.WeekStart(today),
	}
	m.col = m.dayIndex(today)
	m.snapshot()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.fetchEvents()
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Toggle, m.keys.PrevWeek, m.keys.NextWeek, m.keys.Add, m.keys.Event, m.keys.Help, m.keys.Quit}
}

func (m Model) FullHelp() [][]key.Binding {
	navigation := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right, m.keys.PrevWeek, m.keys.NextWeek, m.keys.Today}
	sequences := []key.Binding{m.keys.Toggle, m.keys.Add, m.keys.Edit, m.keys.Pause, m.keys.Clear, m.keys.Delete}
	global := []key.Binding{m.keys.Event, m.keys.Refresh, m.keys.Help, m.keys.Quit}
	return [][]key.Binding{navigation, sequences, global}
}

// loadWeek rebuilds the grid for m.date from the store right away and
// returns a command that fetches the week's events.
func (m *Model) loadWeek() tea.Cmd {
	m.snapshot()
	return m.fetchEvents()
}

// snapshot rebuilds the sequence rows from the store. Events already shown
// for the same week are kept until the next fetch lands.
func (m *Model) snapshot() {
	m.loads++
	view := m.planner.Snapshot(m.date)
	if m.loaded && view.Start.Equal(m.view.Start) {
		view.Days = m.view.Days
		view.CalendarError = m.view.CalendarError
	}
	m.view = view
	m.loaded = true
	m.loadErr = nil
	if n := len(view.Sequences); m.row >= n {
		m.row = max(n-1, 0)
	}
}

// fetchEvents reads the calendar off the update loop, since it may be a
// remote feed. The command never touches the store.
func (m Model) fetchEvents() tea.Cmd {
	svc, view, load := m.planner, m.view, m.loads
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		withEvents, err := svc.WithEvents(ctx, view)
		return eventsLoadedMsg{start: view.Start, load: load, view: withEvents, err: err}
	}
}

// setEvents applies a fetch result if it is for the latest load.
func (m *Model) setEvents(msg eventsLoadedMsg) {
	if msg.load != m.loads || !msg.start.Equal(m.view.Start) {
		return
	}
	if msg.err != nil {
		m.loadErr = msg.err
		return
	}
	m.view.Days = msg.view.Days
	m.view.CalendarError = msg.view.CalendarError
}

// dayIndex is the column of date within the current week, or 0 when date
// falls outside it.
func (m Model) dayIndex(date time.Time) int {
	start := m.planner.WeekStart(m.date)
	if !m.planner.WeekStart(date).Equal(start) {
		return 0
	}
	want := utils.DateKey(date.In(start.Location()))
	for i := range constants.DaysInWeek {
		if utils.DateKey(start.AddDate(0, 0, i)) == want {
			return i
		}
	}
	return 0
}

// selected returns the sequence row under the cursor.
func (m Model) selected() (planner.SequenceRow, bool) {
	if m.row < 0 || m.row >= len(m.view.Sequences) {
		return planner.SequenceRow{}, false
	}
	return m.view.Sequences[m.row], true
}

// selectedDate is the day under the cursor.
func (m Model) selectedDate() time.Time {
	if m.col >= 0 && m.col < len(m.view.Days) {
		return m.view.Days[m.col].Date
	}
	return m.planner.WeekStart(m.date).AddDate(0, 0, m.col)
}
