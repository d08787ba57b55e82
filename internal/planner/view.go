package planner

import (
	"time"

	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/models"
)

type WeekView struct {
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Title         string        `json:"title"`
	Days          []DayView     `json:"days"`
	Sequences     []SequenceRow `json:"sequences"`
	CalendarError string        `json:"calendarError,omitempty"`

	err error
}

// Err returns the calendar failure behind CalendarError, if any.
func (w WeekView) Err() error {
	return w.err
}

type DayView struct {
	Date    time.Time         `json:"date"`
	Key     string            `json:"key"`
	Weekday string            `json:"weekday"`
	Status  datestatus.Status `json:"status"`
	Events  []EventView       `json:"events"`
}

// EventView is an event annotated for display.
type EventView struct {
	models.Event
	Status    datestatus.Status `json:"status"`
	ClassName string            `json:"className"`
	Completed bool              `json:"completed"`
	TimeLabel string            `json:"timeLabel"`

	start time.Time
}

type SequenceRow struct {
	Sequence     models.Sequence      `json:"sequence"`
	PatternLabel string               `json:"patternLabel"`
	Cells        []Cell               `json:"cells"`
	Stats        models.SequenceStats `json:"stats"`
}

// Cell is one day of a sequence row.
type Cell struct {
	Date       time.Time         `json:"date"`
	Key        string            `json:"key"`
	Letter     string            `json:"letter"`
	Active     bool              `json:"active"`
	Completed  bool              `json:"completed"`
	Toggleable bool              `json:"toggleable"`
	Status     datestatus.Status `json:"status"`
}
