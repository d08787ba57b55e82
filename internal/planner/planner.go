// Package planner is the session object behind every front end. It owns the
// sequence store and the calendar client and builds the week view.
package planner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/weekplan/internal/calendar"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/storage"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/validation"
)

var (
	ErrSequencePaused = errors.New("sequence is paused")
	ErrDayInactive    = errors.New("sequence is not tracked on this day")
	ErrNoCalendar     = errors.New("no calendar configured")
)

// Individual store reads and writes are safe from any goroutine, but
// check-then-act sequences (ToggleDay's paused and active checks) are not
// atomic; callers that share a Service across goroutines serialize them.
type Service struct {
	Store        *storage.SequenceStore
	Calendar     calendar.Client
	Classifier   *datestatus.Classifier
	WeekStartsOn time.Weekday
}

// New wires a Service. cal may be nil, in which case the week view has no
// events and event actions return ErrNoCalendar.
func New(store *storage.SequenceStore, cal calendar.Client, classifier *datestatus.Classifier, weekStartsOn time.Weekday) *Service {
	if classifier == nil {
		classifier = datestatus.New(nil, nil)
	}
	return &Service{
		Store:        store,
		Calendar:     cal,
		Classifier:   classifier,
		WeekStartsOn: weekStartsOn,
	}
}

func (s *Service) loc() *time.Location {
	return s.Classifier.Location()
}

// Today returns the current instant in the planner's location.
func (s *Service) Today() time.Time {
	return s.Classifier.Now()
}

// WeekStart returns midnight of the first day of the week containing date.
func (s *Service) WeekStart(date time.Time) time.Time {
	return utils.StartOfWeek(date.In(s.loc()), s.WeekStartsOn)
}

// ShiftWeek moves date by n whole weeks and returns the start of that week.
func (s *Service) ShiftWeek(date time.Time, n int) time.Time {
	return s.WeekStart(date).AddDate(0, 0, n*constants.DaysInWeek)
}

// Week builds the seven-day view containing date. A failing calendar leaves
// the days without events and records the failure in CalendarError; the
// sequence rows are always built.
func (s *Service) Week(ctx context.Context, date time.Time) (WeekView, error) {
	return s.WithEvents(ctx, s.Snapshot(date))
}

// Snapshot builds the week containing date from the current collection,
// without calendar events. It reads the store and must run on the caller's
// goroutine.
func (s *Service) Snapshot(date time.Time) WeekView {
	start := s.WeekStart(date)
	end := start.AddDate(0, 0, constants.DaysInWeek)

	view := WeekView{
		Start: start,
		End:   end.AddDate(0, 0, -1),
		Title: fmt.Sprintf("%s - %s", start.Format(constants.DisplayDate), end.AddDate(0, 0, -1).Format(constants.FullDate)),
	}

	days := utils.WeekDays(start)
	for _, d := range days {
		view.Days = append(view.Days, DayView{
			Date:    d,
			Key:     utils.DateKey(d),
			Weekday: d.Format(constants.ShortDay),
			Status:  s.Classifier.DateStatus(d),
			Events:  []EventView{},
		})
	}

	for _, seq := range s.Store.Sequences() {
		view.Sequences = append(view.Sequences, s.sequenceRow(seq, days, start))
	}
	if view.Sequences == nil {
		view.Sequences = []SequenceRow{}
	}
	return view
}

// WithEvents returns view with its days filled from the calendar. It only
// touches the calendar client, never the store, so it may run off the
// goroutine that owns the Service. view.Days is copied, not modified.
func (s *Service) WithEvents(ctx context.Context, view WeekView) (WeekView, error) {
	days := make([]DayView, len(view.Days))
	byKey := make(map[string]int, len(view.Days))
	for i, d := range view.Days {
		d.Events = []EventView{}
		days[i] = d
		byKey[d.Key] = i
	}
	view.Days = days
	view.err = nil
	view.CalendarError = ""

	if s.Calendar == nil {
		return view, nil
	}
	events, err := s.Calendar.ListEvents(ctx, view.Start, view.Start.AddDate(0, 0, constants.DaysInWeek))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WeekView{}, ctxErr
		}
		logger.Warn("Failed to load calendar events", "week", utils.DateKey(view.Start), "error", err)
		view.err = err
		view.CalendarError = err.Error()
	}
	for _, e := range events {
		at, ok := e.StartTime(s.loc())
		if !ok {
			continue
		}
		i, ok := byKey[utils.DateKey(at.In(s.loc()))]
		if !ok {
			continue
		}
		days[i].Events = append(days[i].Events, s.eventView(e))
	}
	for i := range days {
		slices.SortStableFunc(days[i].Events, func(a, b EventView) int {
			return a.start.Compare(b.start)
		})
	}
	return view, nil
}

func (s *Service) eventView(e models.Event) EventView {
	at, _ := e.StartTime(s.loc())
	status := s.Classifier.EventStatus(e)
	return EventView{
		Event:     e,
		Status:    status,
		ClassName: status.ClassName(),
		Completed: status == datestatus.Past,
		TimeLabel: eventTimeLabel(e, at),
		start:     at,
	}
}

func eventTimeLabel(e models.Event, at time.Time) string {
	if e.IsAllDay() {
		return "All day"
	}
	return at.Format(constants.Time12H)
}

func (s *Service) sequenceRow(seq models.Sequence, days []time.Time, weekStart time.Time) SequenceRow {
	row := SequenceRow{
		Sequence:     seq,
		PatternLabel: seq.DayPattern.Label(),
		Stats:        seq.Stats(weekStart),
	}
	for _, d := range days {
		active := seq.IsActiveOn(d)
		row.Cells = append(row.Cells, Cell{
			Date:       d,
			Key:        utils.DateKey(d),
			Letter:     constants.WeekdayLetters[d.Weekday()],
			Active:     active,
			Completed:  seq.IsDayCompleted(d),
			Toggleable: active,
			Status:     s.Classifier.DateStatus(d),
		})
	}
	return row
}

// Sequences returns the active collection in insertion order.
func (s *Service) Sequences() []models.Sequence {
	return s.Store.Sequences()
}

// Archived returns single-cycle sequences removed by earlier rollovers.
func (s *Service) Archived() []models.Sequence {
	return s.Store.Archived()
}

func (s *Service) Sequence(id string) (models.Sequence, error) {
	seq, ok := s.Store.Get(id)
	if !ok {
		return models.Sequence{}, fmt.Errorf("sequence %s: %w", id, storage.ErrNotFound)
	}
	return seq, nil
}

// AddSequence validates in and appends a new sequence. Validation failures
// are returned as validation.FieldErrors.
func (s *Service) AddSequence(in models.SequenceInput) (models.Sequence, error) {
	if errs := validation.ValidateSequenceInput(in); errs.HasErrors() {
		return models.Sequence{}, errs
	}
	seq := models.NewSequence(in, s.Today())
	if err := s.Store.Add(seq); err != nil {
		return models.Sequence{}, err
	}
	logger.Info("Added sequence", "id", seq.ID, "name", seq.Name)
	return seq, nil
}

// EditSequence replaces the editable fields of a sequence with in. Completion
// history and the paused flag are kept.
func (s *Service) EditSequence(id string, in models.SequenceInput) (models.Sequence, error) {
	if errs := validation.ValidateSequenceInput(in); errs.HasErrors() {
		return models.Sequence{}, errs
	}

	pattern := cmp.Or(in.DayPattern, models.PatternFullWeek)
	color := cmp.Or(in.Color, constants.SequenceColors[0])
	update := models.SequenceUpdate{
		Name:        &in.Name,
		Description: &in.Description,
		Color:       &color,
		DayPattern:  &pattern,
		Days:        models.DaysForPattern(pattern, in.CustomDays),
		Recurring:   in.Recurring,
	}
	return s.Store.Apply(id, func(seq models.Sequence) models.Sequence {
		return seq.Update(update)
	})
}

// ToggleDay flips completion of date. Paused sequences and days outside the
// pattern are refused.
func (s *Service) ToggleDay(id string, date time.Time) (models.Sequence, error) {
	seq, err := s.Sequence(id)
	if err != nil {
		return models.Sequence{}, err
	}
	if seq.Paused {
		return models.Sequence{}, fmt.Errorf("%s: %w", seq.Name, ErrSequencePaused)
	}
	date = date.In(s.loc())
	if !seq.IsActiveOn(date) {
		return models.Sequence{}, fmt.Errorf("%s on %s: %w", seq.Name, date.Format(constants.ShortDay), ErrDayInactive)
	}
	return s.Store.Apply(id, func(seq models.Sequence) models.Sequence {
		return seq.ToggleDay(date)
	})
}

func (s *Service) Pause(id string) (models.Sequence, error) {
	return s.Store.Apply(id, models.Sequence.Pause)
}

func (s *Service) Resume(id string) (models.Sequence, error) {
	return s.Store.Apply(id, models.Sequence.Resume)
}

// Clear empties the completion history.
func (s *Service) Clear(id string) (models.Sequence, error) {
	return s.Store.Apply(id, models.Sequence.ClearCompletedDays)
}

func (s *Service) Delete(id string) error {
	if err := s.Store.Delete(id); err != nil {
		return err
	}
	logger.Info("Deleted sequence", "id", id)
	return nil
}

// Stats reports completion for the week containing date.
func (s *Service) Stats(id string, date time.Time) (models.SequenceStats, error) {
	seq, err := s.Sequence(id)
	if err != nil {
		return models.SequenceStats{}, err
	}
	return seq.Stats(s.WeekStart(date)), nil
}

// Rollover starts the week containing date. Single-cycle sequences are
// archived, never deleted.
func (s *Service) Rollover(date time.Time) storage.RolloverResult {
	return s.Store.Rollover(s.WeekStart(date))
}

func (s *Service) Restore(id string) (models.Sequence, error) {
	return s.Store.Restore(id)
}

// ListEvents returns the events overlapping [start, end).
func (s *Service) ListEvents(ctx context.Context, start, end time.Time) ([]EventView, error) {
	if s.Calendar == nil {
		return nil, ErrNoCalendar
	}
	events, err := s.Calendar.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, s.eventView(e))
	}
	return out, nil
}

// AddEvent validates draft and creates the event. Events starting on a past
// day are tagged as completed.
func (s *Service) AddEvent(ctx context.Context, draft models.EventDraft) (models.Event, error) {
	if s.Calendar == nil {
		return models.Event{}, ErrNoCalendar
	}
	if err := validation.ValidateEventDraft(draft, s.loc()); err != nil {
		return models.Event{}, err
	}

	e, err := s.BuildEvent(draft)
	if err != nil {
		return models.Event{}, err
	}
	created, err := s.Calendar.CreateEvent(ctx, e)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	return created, nil
}

// IsPastDraft reports whether draft starts on a day before today.
func (s *Service) IsPastDraft(draft models.EventDraft) bool {
	day, err := utils.ParseDateInLocation(draft.StartDate, s.loc())
	if err != nil {
		return false
	}
	return s.Classifier.IsPast(day)
}

// BuildEvent converts a validated draft to the event sent to the calendar.
func (s *Service) BuildEvent(draft models.EventDraft) (models.Event, error) {
	draft = draft.Normalized()
	start, end, err := draft.Bounds(s.loc())
	if err != nil {
		return models.Event{}, err
	}

	e := models.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Location:    draft.Location,
	}

	if draft.AllDay {
		e.Start = &models.EventTime{Date: utils.DateKey(start)}
		e.End = &models.EventTime{Date: utils.DateKey(end)}
	} else {
		tz := s.loc().String()
		e.Start = &models.EventTime{DateTime: start.Format(time.RFC3339), TimeZone: tz}
		e.End = &models.EventTime{DateTime: end.Format(time.RFC3339), TimeZone: tz}
		if draft.NotificationMinutes != nil {
			e.Reminders = &models.Reminders{Overrides: []models.ReminderOverride{
				{Method: "popup", Minutes: *draft.NotificationMinutes},
			}}
		}
	}

	if s.IsPastDraft(draft) {
		if e.Description != "" {
			e.Description = constants.PastEventTag + " " + e.Description
		} else {
			e.Description = constants.PastEventTag + " " + constants.PastEventPlaceholder
		}
	}
	return e, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if s.Calendar == nil {
		return ErrNoCalendar
	}
	if err := s.Calendar.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}
	return nil
}
