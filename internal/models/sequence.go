package models

import (
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/weekplan/internal/constants"
)

// DayPattern selects which weekdays a sequence is tracked on.
type DayPattern string

const (
	PatternFullWeek DayPattern = "FULL_WEEK"
	PatternWeekdays DayPattern = "WEEKDAYS"
	PatternWeekend  DayPattern = "WEEKEND"
	PatternCustom   DayPattern = "CUSTOM"
)

// DayPatterns lists the patterns in display order.
var DayPatterns = []DayPattern{PatternFullWeek, PatternWeekdays, PatternWeekend, PatternCustom}

var patternDays = map[DayPattern][]time.Weekday{
	PatternFullWeek: {time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
	PatternWeekdays: {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	PatternWeekend:  {time.Sunday, time.Saturday},
	PatternCustom:   {},
}

var patternLabels = map[DayPattern]string{
	PatternFullWeek: "Full Week (7 days)",
	PatternWeekdays: "Weekdays (Mon-Fri)",
	PatternWeekend:  "Weekend (Sat-Sun)",
	PatternCustom:   "Custom Days",
}

// IsValid reports whether p is one of the known patterns.
func (p DayPattern) IsValid() bool {
	_, ok := patternDays[p]
	return ok
}

// Label returns the human-readable name of the pattern.
func (p DayPattern) Label() string {
	return patternLabels[p]
}

// DaysForPattern returns the weekdays for p. customDays is only consulted for
// PatternCustom. The result never aliases either input.
func DaysForPattern(p DayPattern, customDays []time.Weekday) []time.Weekday {
	if p == PatternCustom {
		return slices.Clone(customDays)
	}
	return slices.Clone(patternDays[p])
}

// Palette returns a copy of the sequence colors.
func Palette() []string {
	return slices.Clone(constants.SequenceColors)
}

// IsValidColor reports whether c is part of the sequence palette.
func IsValidColor(c string) bool {
	return slices.Contains(constants.SequenceColors, c)
}

// newID is swapped in tests that need deterministic identifiers.
var newID = uuid.NewString

// Sequence is a weekly habit tracker. Values are treated as immutable: every
// operation returns a new Sequence and leaves the receiver untouched.
type Sequence struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Color         string          `json:"color"`
	DayPattern    DayPattern      `json:"dayPattern"`
	Days          []time.Weekday  `json:"days"` // 0=Sunday..6=Saturday
	Recurring     bool            `json:"recurring"`
	Paused        bool            `json:"paused"`
	StartDate     time.Time       `json:"startDate"`
	CompletedDays map[string]bool `json:"completedDays"` // YYYY-MM-DD -> true
	CreatedAt     time.Time       `json:"createdAt"`
}

// SequenceInput carries the fields a user supplies when creating a sequence.
// Zero values fall back to the documented defaults.
type SequenceInput struct {
	Name        string
	Description string
	Color       string
	DayPattern  DayPattern
	CustomDays  []time.Weekday
	Recurring   *bool // nil means true
	StartDate   time.Time
}

// SequenceStats summarizes completion for one week.
type SequenceStats struct {
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// NewSequence builds a sequence from validated input. Validation is the
// caller's job; see validation.ValidateSequenceInput.
func NewSequence(in SequenceInput, now time.Time) Sequence {
	color := in.Color
	if color == "" {
		color = constants.SequenceColors[0]
	}
	pattern := in.DayPattern
	if pattern == "" {
		pattern = PatternFullWeek
	}
	recurring := true
	if in.Recurring != nil {
		recurring = *in.Recurring
	}
	start := in.StartDate
	if start.IsZero() {
		start = now
	}

	return Sequence{
		ID:            newID(),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Color:         color,
		DayPattern:    pattern,
		Days:          DaysForPattern(pattern, in.CustomDays),
		Recurring:     recurring,
		Paused:        false,
		StartDate:     start,
		CompletedDays: map[string]bool{},
		CreatedAt:     now,
	}
}

// IsActiveOn reports whether the sequence expects a completion on date.
// Paused sequences are never active.
func (s Sequence) IsActiveOn(date time.Time) bool {
	if s.Paused {
		return false
	}
	return slices.Contains(s.Days, date.Weekday())
}

// IsDayCompleted reports whether date carries a completion marker.
func (s Sequence) IsDayCompleted(date time.Time) bool {
	return s.CompletedDays[date.Format(constants.DateFormat)]
}

// ToggleDay adds the completion marker for date if absent, and removes it otherwise.
func (s Sequence) ToggleDay(date time.Time) Sequence {
	key := date.Format(constants.DateFormat)
	completed := maps.Clone(s.CompletedDays)
	if completed == nil {
		completed = map[string]bool{}
	}
	if completed[key] {
		delete(completed, key)
	} else {
		completed[key] = true
	}
	s.CompletedDays = completed
	return s
}

// Pause stops the sequence from accepting completions.
func (s Sequence) Pause() Sequence {
	s.Paused = true
	return s
}

// Resume re-enables completions.
func (s Sequence) Resume() Sequence {
	s.Paused = false
	return s
}

// ClearCompletedDays drops every completion marker.
func (s Sequence) ClearCompletedDays() Sequence {
	s.CompletedDays = map[string]bool{}
	return s
}

// DaysForWeek returns, in the order of s.Days, the date inside the seven-day
// window starting at weekStart that falls on each tracked weekday. With a
// Sunday weekStart this is weekStart plus the weekday index.
//
// With any other weekStart the mapping is by weekday, not by index: a
// weekdays sequence in a Monday-start week yields Monday through Friday,
// where weekStart plus the index would give Tuesday through Saturday.
func (s Sequence) DaysForWeek(weekStart time.Time) []time.Time {
	dates := make([]time.Time, 0, len(s.Days))
	for _, wd := range s.Days {
		offset := (int(wd) - int(weekStart.Weekday()) + constants.DaysInWeek) % constants.DaysInWeek
		dates = append(dates, weekStart.AddDate(0, 0, offset))
	}
	return dates
}

// Stats counts completed tracked days in the week starting at weekStart.
func (s Sequence) Stats(weekStart time.Time) SequenceStats {
	days := s.DaysForWeek(weekStart)
	completed := 0
	for _, d := range days {
		if s.IsDayCompleted(d) {
			completed++
		}
	}

	stats := SequenceStats{Completed: completed, Total: len(days)}
	if stats.Total > 0 {
		stats.Percentage = int(math.Round(float64(completed) / float64(stats.Total) * 100))
	}
	return stats
}

// SequenceUpdate is a partial record. Nil fields are left unchanged.
type SequenceUpdate struct {
	Name          *string
	Description   *string
	Color         *string
	DayPattern    *DayPattern
	Days          []time.Weekday
	Recurring     *bool
	Paused        *bool
	CompletedDays map[string]bool
}

// Input returns the editable fields of s, for prefilling an edit.
func (s Sequence) Input() SequenceInput {
	recurring := s.Recurring
	return SequenceInput{
		Name:        s.Name,
		Description: s.Description,
		Color:       s.Color,
		DayPattern:  s.DayPattern,
		CustomDays:  s.Days,
		Recurring:   &recurring,
		StartDate:   s.StartDate,
	}
}

// Update shallow-merges u onto the sequence. The ID and CreatedAt never change.
func (s Sequence) Update(u SequenceUpdate) Sequence {
	if u.Name != nil {
		s.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Color != nil {
		s.Color = *u.Color
	}
	if u.DayPattern != nil {
		s.DayPattern = *u.DayPattern
	}
	if u.Days != nil {
		s.Days = slices.Clone(u.Days)
	}
	if u.Recurring != nil {
		s.Recurring = *u.Recurring
	}
	if u.Paused != nil {
		s.Paused = *u.Paused
	}
	if u.CompletedDays != nil {
		s.CompletedDays = maps.Clone(u.CompletedDays)
	}
	return s
}

// Rollover carries the sequence into the week starting at newWeekStart.
// Single-cycle sequences report false and should leave the active collection.
// Completion history is kept; clearing it is always an explicit user action.
func (s Sequence) Rollover(newWeekStart time.Time) (Sequence, bool) {
	if !s.Recurring {
		return Sequence{}, false
	}
	return s, true
}

// Equal compares two sequences field by field. Timestamps are compared as
// instants and nil/empty completion maps are equivalent.
func (s Sequence) Equal(o Sequence) bool {
	return s.ID == o.ID &&
		s.Name == o.Name &&
		s.Description == o.Description &&
		s.Color == o.Color &&
		s.DayPattern == o.DayPattern &&
		slices.Equal(s.Days, o.Days) &&
		s.Recurring == o.Recurring &&
		s.Paused == o.Paused &&
		s.StartDate.Equal(o.StartDate) &&
		s.CreatedAt.Equal(o.CreatedAt) &&
		maps.Equal(s.CompletedDays, o.CompletedDays)
}

// CompletedDates returns the completion keys in ascending order.
func (s Sequence) CompletedDates() []string {
	return slices.Sorted(maps.Keys(s.CompletedDays))
}
