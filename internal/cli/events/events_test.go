package events

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/planner"
)

// Wednesday.
var now = time.Date(2024, 6, 12, 14, 0, 0, 0, time.UTC)

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Timezone = "UTC"
	cfg.WeekStartsOn = "monday"
	cfg.Calendar.ICSPath = filepath.Join(dir, "calendar.ics")

	var out bytes.Buffer
	ctx := &cli.Context{
		Config:     cfg,
		ConfigPath: filepath.Join(dir, "config.yaml"),
		Target:     filepath.Join(dir, "sequences.json"),
		Clock:      datestatus.FixedClock{T: now},
		Out:        &out,
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx, &out
}

func weekEvents(t *testing.T, ctx *cli.Context) []planner.EventView {
	t.Helper()
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	events, err := ctx.Planner.ListEvents(context.Background(), start, start.AddDate(0, 0, constants.DaysInWeek))
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	return events
}

func TestEventAddPastIsTaggedCompleted(t *testing.T) {
	ctx, out := setupTestContext(t)

	add := &EventAddCmd{Summary: "Standup", Date: "2024-06-10", Start: "09:00", End: "09:30", Remind: -1}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !strings.Contains(out.String(), "marked as completed") {
		t.Errorf("add output = %q", out.String())
	}

	events := weekEvents(t, ctx)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !strings.HasPrefix(events[0].Description, constants.PastEventTag) {
		t.Errorf("Description = %q, want the %s tag", events[0].Description, constants.PastEventTag)
	}
	if !events[0].Completed {
		t.Error("past event not shown as completed")
	}
}

func TestEventAddReminder(t *testing.T) {
	tests := []struct {
		name   string
		cmd    EventAddCmd
		want   int
		wantOK bool
	}{
		{"timed with reminder", EventAddCmd{Summary: "Dentist", Date: "2024-06-14", Start: "15:00", End: "16:00", Remind: 30}, 30, true},
		{"timed without reminder", EventAddCmd{Summary: "Dentist", Date: "2024-06-14", Start: "15:00", End: "16:00", Remind: -1}, 0, false},
		{"all day ignores reminder", EventAddCmd{Summary: "Holiday", Date: "2024-06-14", AllDay: true, Remind: 30}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := setupTestContext(t)
			if err := tt.cmd.Run(ctx); err != nil {
				t.Fatalf("add failed: %v", err)
			}
			if strings.Contains(out.String(), "marked as completed") {
				t.Error("future event reported as completed")
			}

			events := weekEvents(t, ctx)
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			r := events[0].Reminders
			gotOK := r != nil && len(r.Overrides) == 1
			if gotOK != tt.wantOK {
				t.Fatalf("Reminders = %+v, want override %v", r, tt.wantOK)
			}
			if gotOK && r.Overrides[0].Minutes != tt.want {
				t.Errorf("reminder minutes = %d, want %d", r.Overrides[0].Minutes, tt.want)
			}
		})
	}
}

func TestEventAddErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  EventAddCmd
		want string
	}{
		{"empty title", EventAddCmd{Summary: " ", Start: "09:00", End: "10:00", Remind: -1}, "Event title is required"},
		{"end before start", EventAddCmd{Summary: "Gym", Start: "10:00", End: "09:00", Remind: -1}, "End time must be after start time"},
		{"bad date", EventAddCmd{Summary: "Gym", Date: "14/06/2024", Start: "09:00", End: "10:00", Remind: -1}, "invalid event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestContext(t)
			err := tt.cmd.Run(ctx)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Run() error = %v, want it to contain %q", err, tt.want)
			}
			if n := len(weekEvents(t, ctx)); n != 0 {
				t.Errorf("%d events stored after a failed add", n)
			}
		})
	}
}

func TestEventListAndDelete(t *testing.T) {
	ctx, out := setupTestContext(t)
	if err := (&EventAddCmd{Summary: "Review", Date: "2024-06-13", Start: "11:00", End: "12:00", Remind: -1}).Run(ctx); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	out.Reset()
	if err := (&EventListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Review") || !strings.Contains(out.String(), "Thu Jun 13") {
		t.Errorf("list output:\n%s", out.String())
	}

	if err := (&EventListCmd{From: "2024-06-13", To: "2024-06-12"}).Run(ctx); err == nil {
		t.Error("expected an error for a reversed range")
	}

	id := weekEvents(t, ctx)[0].ID
	ctx.In = strings.NewReader("n\n")
	out.Reset()
	if err := (&EventDeleteCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out.String(), "Cancelled.") || len(weekEvents(t, ctx)) != 1 {
		t.Fatal("declined delete removed the event")
	}

	if err := (&EventDeleteCmd{ID: id, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("delete --yes failed: %v", err)
	}
	if n := len(weekEvents(t, ctx)); n != 0 {
		t.Errorf("%d events left after delete", n)
	}
}
