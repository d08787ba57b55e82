package events

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/utils"
	"github.com/julianstephens/weekplan/internal/validation"
)

type EventCmd struct {
	Add    EventAddCmd    `cmd:"" help:"Add a calendar event."`
	List   EventListCmd   `cmd:"" help:"List calendar events."`
	Delete EventDeleteCmd `cmd:"" help:"Delete a calendar event or one occurrence of a recurring event."`
}

type EventAddCmd struct {
	Summary     string `arg:"" help:"Event title."`
	Date        string `help:"Start date YYYY-MM-DD (default: today)." default:""`
	Start       string `help:"Start time HH:MM." default:"09:00"`
	End         string `help:"End time HH:MM." default:"10:00"`
	EndDate     string `help:"End date YYYY-MM-DD (default: start date)." name:"end-date" default:""`
	AllDay      bool   `help:"Create an all-day event." name:"all-day"`
	Description string `help:"Event description." default:""`
	Location    string `help:"Event location." default:""`
	Remind      int    `help:"Popup reminder N minutes before a timed event; -1 for none." default:"-1"`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	date := c.Date
	if date == "" {
		date = utils.DateKey(ctx.Today())
	}
	draft := models.EventDraft{
		Summary:     c.Summary,
		Description: c.Description,
		Location:    c.Location,
		StartDate:   date,
		EndDate:     c.EndDate,
		AllDay:      c.AllDay,
	}
	if !c.AllDay {
		draft.StartTime = c.Start
		draft.EndTime = c.End
		if c.Remind >= 0 {
			minutes := c.Remind
			draft.NotificationMinutes = &minutes
		}
	}

	e, err := ctx.Planner.AddEvent(ctx.RunContext(), draft)
	if err != nil {
		if fe, ok := validation.AsFieldErrors(err); ok {
			return fmt.Errorf("invalid event: %s", fe.Error())
		}
		return err
	}
	ctx.Printf("Created event: %s (%s)\n", e.Summary, e.ID)
	if strings.HasPrefix(e.Description, constants.PastEventTag) {
		ctx.Println("The event is in the past and was marked as completed.")
	}
	return nil
}

type EventListCmd struct {
	From string `help:"First day YYYY-MM-DD (default: start of this week)." default:""`
	To   string `help:"Last day YYYY-MM-DD (default: six days after --from)." default:""`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	from, err := ctx.ParseDate(c.From)
	if err != nil {
		return err
	}
	if c.From == "" {
		from = ctx.Planner.WeekStart(from)
	}
	to := from.AddDate(0, 0, constants.DaysInWeek-1)
	if c.To != "" {
		if to, err = ctx.ParseDate(c.To); err != nil {
			return err
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--to (%s) is before --from (%s)", utils.DateKey(to), utils.DateKey(from))
	}

	events, err := ctx.Planner.ListEvents(ctx.RunContext(), from, to.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		ctx.Printf("No events between %s and %s.\n", from.Format(constants.DisplayDate), to.Format(constants.DisplayDate))
		return nil
	}

	loc := ctx.Planner.Classifier.Location()
	tw := ctx.Table()
	tw.AppendHeader(table.Row{"Date", "Time", "Event", "Status", "ID"})
	for _, e := range events {
		day := ""
		if at, ok := e.StartTime(loc); ok {
			day = at.In(loc).Format("Mon Jan 2")
		}
		status := e.Status.Label()
		if e.Completed {
			status = "Completed"
		}
		tw.AppendRow(table.Row{day, e.TimeLabel, e.Summary, status, e.ID})
	}
	tw.Render()
	return nil
}

type EventDeleteCmd struct {
	ID  string `arg:"" help:"Event ID as shown by 'event list'."`
	Yes bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *EventDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete event %s?", c.ID))
		if err != nil || !ok {
			ctx.Println("Cancelled.")
			return err
		}
	}
	if err := ctx.Planner.DeleteEvent(ctx.RunContext(), c.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted event: %s\n", c.ID)
	return nil
}
