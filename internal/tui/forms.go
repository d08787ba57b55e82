package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/utils"
)

var patterns = []models.DayPattern{
	models.PatternFullWeek,
	models.PatternWeekdays,
	models.PatternWeekend,
	models.PatternCustom,
}

// NewSequenceForm creates the add/edit form for a sequence.
func NewSequenceForm(fm *SequenceFormModel) *huh.Form {
	colors := make([]huh.Option[string], 0, len(constants.SequenceColors))
	for _, c := range constants.SequenceColors {
		colors = append(colors, huh.NewOption(swatch(c)+" "+c, c))
	}
	patternOpts := make([]huh.Option[string], 0, len(patterns))
	for _, p := range patterns {
		patternOpts = append(patternOpts, huh.NewOption(p.Label(), string(p)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Description").
				Value(&fm.Description),
			huh.NewSelect[string]().
				Title("Color").
				Options(colors...).
				Value(&fm.Color),
			huh.NewSelect[string]().
				Title("Days").
				Options(patternOpts...).
				Value(&fm.Pattern),
			huh.NewInput().
				Title("Custom days").
				Description("Comma-separated, e.g. mon,wed,fri. Only used for Custom.").
				Value(&fm.Days).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := cli.ParseWeekdays(s)
					return err
				}),
			huh.NewConfirm().
				Title("Repeat every week?").
				Value(&fm.Recurring),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewEventForm creates the form for a new calendar event.
func NewEventForm(fm *EventFormModel) *huh.Form {
	reminders := []huh.Option[int]{huh.NewOption("None", -1)}
	for _, n := range constants.NotificationOptions {
		reminders = append(reminders, huh.NewOption(reminderLabel(n), n))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&fm.Summary).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&fm.Date).
				Validate(validLayout(constants.DateFormat, false)),
			huh.NewConfirm().
				Title("All day?").
				Value(&fm.AllDay),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Start (HH:MM)").
				Value(&fm.Start).
				Validate(validLayout(constants.TimeFormat, true)),
			huh.NewInput().
				Title("End (HH:MM)").
				Value(&fm.End).
				Validate(validLayout(constants.TimeFormat, true)),
			huh.NewSelect[int]().
				Title("Reminder").
				Options(reminders...).
				Value(&fm.Remind),
		).WithHideFunc(func() bool { return fm.AllDay }),
		huh.NewGroup(
			huh.NewInput().
				Title("Location").
				Value(&fm.Location),
			huh.NewText().
				Title("Description").
				Value(&fm.Description),
		),
	).WithTheme(huh.ThemeDracula())
}

func validLayout(layout string, optional bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" && optional {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil {
			return fmt.Errorf("expected %s", layout)
		}
		return nil
	}
}

func reminderLabel(minutes int) string {
	switch {
	case minutes == 0:
		return "At start"
	case minutes%1440 == 0:
		return strconv.Itoa(minutes/1440) + " day(s) before"
	case minutes%60 == 0:
		return strconv.Itoa(minutes/60) + " hour(s) before"
	default:
		return strconv.Itoa(minutes) + " minutes before"
	}
}

func sequenceFormFrom(seq models.Sequence) *SequenceFormModel {
	fm := &SequenceFormModel{
		Name:        seq.Name,
		Description: seq.Description,
		Color:       seq.Color,
		Pattern:     string(seq.DayPattern),
		Recurring:   seq.Recurring,
	}
	if seq.DayPattern == models.PatternCustom {
		fm.Days = strings.ToLower(strings.Join(weekdayNames(seq.Days), ","))
	}
	return fm
}

func weekdayNames(days []time.Weekday) []string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, d.String()[:3])
	}
	return names
}

// Input converts the form into a sequence input. start is kept on edits.
func (fm *SequenceFormModel) Input(start time.Time) (models.SequenceInput, error) {
	recurring := fm.Recurring
	in := models.SequenceInput{
		Name:        strings.TrimSpace(fm.Name),
		Description: strings.TrimSpace(fm.Description),
		Color:       fm.Color,
		DayPattern:  models.DayPattern(fm.Pattern),
		Recurring:   &recurring,
		StartDate:   start,
	}
	if in.DayPattern == models.PatternCustom && strings.TrimSpace(fm.Days) != "" {
		days, err := cli.ParseWeekdays(fm.Days)
		if err != nil {
			return in, err
		}
		in.CustomDays = days
	}
	return in, nil
}

// Draft converts the form into an event draft.
func (fm *EventFormModel) Draft() models.EventDraft {
	draft := models.EventDraft{
		Summary:     strings.TrimSpace(fm.Summary),
		Description: strings.TrimSpace(fm.Description),
		Location:    strings.TrimSpace(fm.Location),
		StartDate:   strings.TrimSpace(fm.Date),
		AllDay:      fm.AllDay,
	}
	if !fm.AllDay {
		draft.StartTime = strings.TrimSpace(fm.Start)
		draft.EndTime = strings.TrimSpace(fm.End)
		if fm.Remind >= 0 {
			minutes := fm.Remind
			draft.NotificationMinutes = &minutes
		}
	}
	return draft
}

func newEventFormModel(date time.Time) *EventFormModel {
	return &EventFormModel{
		Date:   utils.DateKey(date),
		Start:  "09:00",
		End:    "10:00",
		Remind: -1,
	}
}
