// Package calendar lists, creates and deletes events in an iCalendar source.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/weekplan/internal/models"
)

var (
	// ErrReadOnly is returned by clients that cannot modify their source.
	ErrReadOnly = errors.New("calendar is read-only")
	// ErrNotFound is returned when no event has the requested ID.
	ErrNotFound = errors.New("event not found")
)

// Client is the calendar collaborator used by the planner.
type Client interface {
	// ListEvents returns the event instances overlapping [start, end),
	// recurrences expanded, ordered by start time.
	ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error)
	// CreateEvent stores e and returns it with its assigned ID.
	CreateEvent(ctx context.Context, e models.Event) (models.Event, error)
	// DeleteEvent removes an event, or a single instance of a recurring one.
	DeleteEvent(ctx context.Context, id string) error
}
