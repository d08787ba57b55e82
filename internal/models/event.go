package models

import (
	"cmp"
	"strings"
	"time"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/utils"
)

// EventTime is either an all-day Date (YYYY-MM-DD) or a DateTime (RFC3339).
type EventTime struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Value returns DateTime when set, falling back to Date.
func (t *EventTime) Value() string {
	if t == nil {
		return ""
	}
	return cmp.Or(t.DateTime, t.Date)
}

type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"`
}

type ReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

type Reminders struct {
	UseDefault bool               `json:"useDefault"`
	Overrides  []ReminderOverride `json:"overrides,omitempty"`
}

// Event is a calendar entry as returned by a calendar client.
type Event struct {
	ID               string     `json:"id"`
	Summary          string     `json:"summary"`
	Description      string     `json:"description,omitempty"`
	Location         string     `json:"location,omitempty"`
	Start            *EventTime `json:"start,omitempty"`
	End              *EventTime `json:"end,omitempty"`
	Attendees        []Attendee `json:"attendees,omitempty"`
	HTMLLink         string     `json:"htmlLink,omitempty"`
	Reminders        *Reminders `json:"reminders,omitempty"`
	RecurringEventID string     `json:"recurringEventId,omitempty"`
}

// IsAllDay reports whether the event starts on a date rather than a time.
func (e Event) IsAllDay() bool {
	return e.Start != nil && e.Start.DateTime == "" && e.Start.Date != ""
}

// StartTime parses the effective start in loc. ok is false when the event has
// no start or the start cannot be parsed.
func (e Event) StartTime(loc *time.Location) (t time.Time, ok bool) {
	v := e.Start.Value()
	if v == "" {
		return time.Time{}, false
	}
	t, err := utils.ParseISO(v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EndTime parses the effective end in loc.
func (e Event) EndTime(loc *time.Location) (t time.Time, ok bool) {
	v := e.End.Value()
	if v == "" {
		return time.Time{}, false
	}
	t, err := utils.ParseISO(v, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventDraft is the user input for a new event. Dates use YYYY-MM-DD and
// times use HH:MM. A nil NotificationMinutes means no reminder override.
// Cross-field rules live in validation.ValidateEventDraft.
type EventDraft struct {
	Summary             string `json:"summary" validate:"required,max=254"`
	Description         string `json:"description,omitempty" validate:"max=8000"`
	Location            string `json:"location,omitempty" validate:"max=1024"`
	StartDate           string `json:"startDate" validate:"required,datetime=2006-01-02"`
	StartTime           string `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	EndDate             string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndTime             string `json:"endTime,omitempty" validate:"omitempty,datetime=15:04"`
	AllDay              bool   `json:"allDay"`
	NotificationMinutes *int   `json:"notificationMinutes,omitempty" validate:"omitempty,gte=0,lte=40320"`
}

// Normalized trims text fields and fills omitted end date and times with
// the defaults used by the event form.
func (d EventDraft) Normalized() EventDraft {
	d.Summary = strings.TrimSpace(d.Summary)
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	if d.EndDate == "" {
		d.EndDate = d.StartDate
	}
	if !d.AllDay {
		d.StartTime = cmp.Or(d.StartTime, constants.DefaultEventStartTime)
		d.EndTime = cmp.Or(d.EndTime, constants.DefaultEventEndTime)
	}
	return d
}

// Bounds resolves the draft to start and end instants in loc. All-day events
// span whole days with an exclusive end.
func (d EventDraft) Bounds(loc *time.Location) (start, end time.Time, err error) {
	d = d.Normalized()
	if d.AllDay {
		start, err = utils.ParseDateInLocation(d.StartDate, loc)
		if err != nil {
			return start, end, err
		}
		end, err = utils.ParseDateInLocation(d.EndDate, loc)
		if err != nil {
			return start, end, err
		}
		return start, end.AddDate(0, 0, 1), nil
	}

	start, err = utils.CombineDateAndTime(d.StartDate, d.StartTime, loc)
	if err != nil {
		return start, end, err
	}
	end, err = utils.CombineDateAndTime(d.EndDate, d.EndTime, loc)
	return start, end, err
}
