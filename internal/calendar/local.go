package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
)

// LocalClient keeps events in an .ics file on disk.
type LocalClient struct {
	mu         sync.Mutex
	path       string
	loc        *time.Location
	maxResults int
	now        func() time.Time
}

// NewLocalClient returns a client backed by the calendar file at path. Dates
// without a zone are read in loc.
func NewLocalClient(path string, loc *time.Location) *LocalClient {
	if loc == nil {
		loc = time.Local
	}
	return &LocalClient{
		path:       path,
		loc:        loc,
		maxResults: constants.DefaultMaxResults,
		now:        time.Now,
	}
}

// SetMaxResults caps how many events ListEvents returns. Values below 1
// keep the current cap.
func (c *LocalClient) SetMaxResults(n int) {
	if n > 0 {
		c.maxResults = n
	}
}

// Path returns the calendar file location.
func (c *LocalClient) Path() string {
	return c.path
}

func (c *LocalClient) read() (*ical.Calendar, []byte, error) {
	body, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newCalendar(), nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read calendar file: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return newCalendar(), nil, nil
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse calendar file: %w", err)
	}
	return cal, body, nil
}

func (c *LocalClient) write(cal *ical.Calendar) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create calendar directory: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(cal.Serialize()), 0o600); err != nil {
		return fmt.Errorf("failed to write calendar file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace calendar file: %w", err)
	}
	return nil
}

func (c *LocalClient) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	_, body, err := c.read()
	if err != nil {
		return nil, err
	}
	parsed, err := parseICS(body, c.loc)
	if err != nil {
		return nil, err
	}

	events := expand(parsed, start, end, c.loc)
	if len(events) > c.maxResults {
		events = events[:c.maxResults]
	}
	logger.Debug("Listed calendar events", "path", c.path, "count", len(events))
	return events, nil
}

func (c *LocalClient) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	if err := ctx.Err(); err != nil {
		return models.Event{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cal, _, err := c.read()
	if err != nil {
		return models.Event{}, err
	}

	e.ID = uuid.NewString()
	if err := encodeVEvent(cal, e, c.now().UTC(), c.loc); err != nil {
		return models.Event{}, err
	}
	if err := c.write(cal); err != nil {
		return models.Event{}, err
	}

	logger.Info("Created calendar event", "id", e.ID, "summary", e.Summary)
	return e, nil
}

// DeleteEvent removes the event with the given UID. An instance ID of a
// recurring event excludes only that occurrence.
func (c *LocalClient) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cal, _, err := c.read()
	if err != nil {
		return err
	}

	if removeByUID(cal, id) {
		logger.Info("Deleted calendar event", "id", id)
		return c.write(cal)
	}

	uid, instance, ok := splitInstanceID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	base := findBase(cal, uid)
	if base == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(instance) == len(icsDate) {
		base.AddExdate(instance, ical.WithValue(string(ical.ValueDataTypeDate)))
	} else {
		base.AddExdate(instance)
	}

	logger.Info("Deleted calendar event instance", "uid", uid, "instance", instance)
	return c.write(cal)
}

// removeByUID drops every VEVENT with uid, overrides included.
func removeByUID(cal *ical.Calendar, uid string) bool {
	kept := cal.Components[:0]
	removed := false
	for _, comp := range cal.Components {
		if ve, ok := comp.(*ical.VEvent); ok && ve.Id() == uid {
			removed = true
			continue
		}
		kept = append(kept, comp)
	}
	cal.Components = kept
	return removed
}

func findBase(cal *ical.Calendar, uid string) *ical.VEvent {
	for _, ve := range cal.Events() {
		if ve.Id() == uid && ve.GetProperty(ical.ComponentPropertyRecurrenceId) == nil {
			return ve
		}
	}
	return nil
}
