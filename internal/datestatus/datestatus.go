// Package datestatus classifies dates and events as past, present or future
// relative to an injected clock.
package datestatus

import (
	"time"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/utils"
)

// Status is the position of a date relative to today.
type Status string

const (
	Past    Status = "past"
	Present Status = "present"
	Future  Status = "future"
	Unknown Status = "unknown"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Classifier compares dates against the clock's current day in loc.
type Classifier struct {
	clock Clock
	loc   *time.Location
}

// New returns a Classifier. A nil clock uses SystemClock and a nil location
// uses time.Local.
func New(clock Clock, loc *time.Location) *Classifier {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Classifier{clock: clock, loc: loc}
}

// Location returns the zone used for day comparisons.
func (c *Classifier) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the classifier's location.
func (c *Classifier) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// TodayStart returns midnight of the current day.
func (c *Classifier) TodayStart() time.Time {
	return utils.StartOfDay(c.Now())
}

// TodayEnd returns the last instant of the current day.
func (c *Classifier) TodayEnd() time.Time {
	return utils.EndOfDay(c.Now())
}

// DateStatus classifies date. The same-day check runs first, so any instant
// on today's date is Present even if it has already passed.
func (c *Classifier) DateStatus(date time.Time) Status {
	if date.IsZero() {
		return Unknown
	}
	now := c.Now()
	if utils.SameDay(date, now, c.loc) {
		return Present
	}
	if utils.StartOfDay(date.In(c.loc)).Before(utils.StartOfDay(now)) {
		return Past
	}
	return Future
}

// StatusOf classifies an ISO date or date-time string. Unparseable input is Unknown.
func (c *Classifier) StatusOf(value string) Status {
	t, err := utils.ParseISO(value, c.loc)
	if err != nil {
		return Unknown
	}
	return c.DateStatus(t)
}

// EventStatus classifies an event by its start, preferring the date-time
// over the all-day date.
func (c *Classifier) EventStatus(e models.Event) Status {
	t, ok := e.StartTime(c.loc)
	if !ok {
		return Unknown
	}
	return c.DateStatus(t)
}

func (c *Classifier) IsPast(date time.Time) bool   { return c.DateStatus(date) == Past }
func (c *Classifier) IsToday(date time.Time) bool  { return c.DateStatus(date) == Present }
func (c *Classifier) IsFuture(date time.Time) bool { return c.DateStatus(date) == Future }

func (c *Classifier) IsEventPast(e models.Event) bool   { return c.EventStatus(e) == Past }
func (c *Classifier) IsEventToday(e models.Event) bool  { return c.EventStatus(e) == Present }
func (c *Classifier) IsEventFuture(e models.Event) bool { return c.EventStatus(e) == Future }

// Label is the display text for s.
func (s Status) Label() string {
	switch s {
	case Past:
		return "Past Event"
	case Present:
		return "Today"
	case Future:
		return "Upcoming"
	default:
		return ""
	}
}

// ClassName is the styling hook for s, e.g. "status-past".
func (s Status) ClassName() string {
	return "status-" + string(s)
}

// StatusLabel returns the display text for the status of date.
func (c *Classifier) StatusLabel(date time.Time) string {
	return c.DateStatus(date).Label()
}

// StatusClassName returns the styling hook for the status of date.
func (c *Classifier) StatusClassName(date time.Time) string {
	return c.DateStatus(date).ClassName()
}
