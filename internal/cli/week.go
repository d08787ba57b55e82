package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/julianstephens/weekplan/internal/datestatus"
	"github.com/julianstephens/weekplan/internal/planner"
)

type WeekCmd struct {
	Date   string `help:"Any date in the week, YYYY-MM-DD (default: today)." default:""`
	Offset int    `help:"Weeks to move from date, e.g. -1 for the previous week." default:"0"`
	IDs    bool   `help:"Show sequence IDs." name:"show-ids"`
}

func (c *WeekCmd) Run(ctx *Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	date, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}
	if c.Offset != 0 {
		date = ctx.Planner.ShiftWeek(date, c.Offset)
	}

	view, err := ctx.Planner.Week(ctx.RunContext(), date)
	if err != nil {
		return err
	}
	RenderWeek(ctx, view, c.IDs)
	return nil
}

// RenderWeek prints the sequence grid followed by each day's events.
func RenderWeek(ctx *Context, view planner.WeekView, showIDs bool) {
	ctx.Printf("Week of %s\n\n", view.Title)

	if len(view.Sequences) == 0 {
		ctx.Println("No sequences yet. Add one with 'weekplan seq add NAME'.")
	} else {
		tw := ctx.Table()
		header := table.Row{"Sequence"}
		for _, d := range view.Days {
			label := fmt.Sprintf("%s %d", d.Weekday, d.Date.Day())
			if d.Status == datestatus.Present {
				label = "*" + label
			}
			header = append(header, label)
		}
		header = append(header, "Done")
		tw.AppendHeader(header)

		for _, row := range view.Sequences {
			name := row.Sequence.Name
			if row.Sequence.Paused {
				name += " (paused)"
			}
			if showIDs {
				name = fmt.Sprintf("%s\n%s", name, row.Sequence.ID)
			}
			r := table.Row{name}
			for _, cell := range row.Cells {
				r = append(r, cellMark(cell))
			}
			r = append(r, fmt.Sprintf("%d/%d (%d%%)", row.Stats.Completed, row.Stats.Total, row.Stats.Percentage))
			tw.AppendRow(r)
		}
		cols := []table.ColumnConfig{}
		for i := 2; i <= len(view.Days)+1; i++ {
			cols = append(cols, table.ColumnConfig{Number: i, Align: text.AlignCenter, AlignHeader: text.AlignCenter})
		}
		tw.SetColumnConfigs(cols)
		tw.Render()
	}

	ctx.Println()
	if view.CalendarError != "" {
		ctx.Printf("Calendar unavailable: %s\n", view.CalendarError)
		return
	}

	tw := ctx.Table()
	tw.AppendHeader(table.Row{"Day", "Time", "Event", ""})
	count := 0
	for _, d := range view.Days {
		for i, e := range d.Events {
			day := ""
			if i == 0 {
				day = fmt.Sprintf("%s %d", d.Weekday, d.Date.Day())
			}
			badge := ""
			if e.Completed {
				badge = "Completed"
			}
			tw.AppendRow(table.Row{day, e.TimeLabel, eventTitle(e), badge})
			count++
		}
	}
	if count == 0 {
		ctx.Println("No events this week.")
		return
	}
	tw.Render()
}

func cellMark(c planner.Cell) string {
	switch {
	case !c.Active:
		return ""
	case c.Completed:
		return "✓"
	case c.Status == datestatus.Past:
		return "✗"
	default:
		return "·"
	}
}

func eventTitle(e planner.EventView) string {
	title := e.Summary
	if title == "" {
		title = "(no title)"
	}
	if e.Location != "" {
		title += " @ " + strings.TrimSpace(e.Location)
	}
	return title
}
