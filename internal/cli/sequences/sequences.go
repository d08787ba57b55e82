package sequences

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/planner"
	"github.com/julianstephens/weekplan/internal/validation"
)

type SeqCmd struct {
	Add      SeqAddCmd      `cmd:"" help:"Add a new sequence."`
	List     SeqListCmd     `cmd:"" help:"List sequences."`
	Edit     SeqEditCmd     `cmd:"" help:"Edit a sequence. Completion history is kept."`
	Toggle   SeqToggleCmd   `cmd:"" help:"Toggle completion of a day."`
	Pause    SeqPauseCmd    `cmd:"" help:"Pause a sequence."`
	Resume   SeqResumeCmd   `cmd:"" help:"Resume a paused sequence."`
	Clear    SeqClearCmd    `cmd:"" help:"Clear all completed days."`
	Delete   SeqDeleteCmd   `cmd:"" help:"Delete a sequence."`
	Stats    SeqStatsCmd    `cmd:"" help:"Show completion for a week."`
	Rollover SeqRolloverCmd `cmd:"" help:"Start a new week; single-cycle sequences are archived."`
	Restore  SeqRestoreCmd  `cmd:"" help:"Restore an archived sequence."`
}

// formatFieldErrors renders validation failures one per line.
func formatFieldErrors(err error) error {
	fe, ok := validation.AsFieldErrors(err)
	if !ok {
		return err
	}
	var b strings.Builder
	b.WriteString("invalid sequence:")
	for _, field := range []string{
		validation.FieldName,
		validation.FieldDescription,
		validation.FieldColor,
		validation.FieldDayPattern,
		validation.FieldCustomDays,
	} {
		if msg := fe.Get(field); msg != "" {
			fmt.Fprintf(&b, "\n  %s: %s", field, msg)
		}
	}
	return errors.New(b.String())
}

type SeqAddCmd struct {
	Name        string `arg:"" help:"Sequence name."`
	Description string `help:"Optional description." default:""`
	Color       string `help:"Hex color from the palette (default: first palette color)." default:""`
	Pattern     string `help:"Day pattern: full-week, weekdays, weekend or custom." default:"full-week"`
	Days        string `help:"Comma-separated weekdays for the custom pattern (e.g. mon,wed,fri)." default:""`
	Once        bool   `help:"Track for a single week; rollover archives it."`
	Start       string `help:"Start date YYYY-MM-DD (default: today)." default:""`
}

func (c *SeqAddCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	in, err := sequenceInput(c.Name, c.Description, c.Color, c.Pattern, c.Days)
	if err != nil {
		return err
	}
	if c.Once {
		recurring := false
		in.Recurring = &recurring
	}
	if c.Start != "" {
		if in.StartDate, err = ctx.ParseDate(c.Start); err != nil {
			return err
		}
	}

	seq, err := ctx.Planner.AddSequence(in)
	if err != nil {
		return formatFieldErrors(err)
	}
	ctx.Printf("Added sequence: %s (%s)\n", seq.Name, seq.ID)
	return nil
}

func sequenceInput(name, desc, color, pattern, days string) (models.SequenceInput, error) {
	p, err := cli.ParsePattern(pattern)
	if err != nil {
		return models.SequenceInput{}, err
	}
	in := models.SequenceInput{
		Name:        name,
		Description: desc,
		Color:       color,
		DayPattern:  p,
	}
	if days != "" {
		if p != models.PatternCustom {
			return in, errors.New("--days only applies to the custom pattern")
		}
		if in.CustomDays, err = cli.ParseWeekdays(days); err != nil {
			return in, err
		}
	}
	return in, nil
}

type SeqListCmd struct {
	Archived bool `help:"List archived single-cycle sequences instead."`
	ShowIDs  bool `help:"Show full sequence IDs." name:"show-ids"`
}

func (c *SeqListCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	seqs := ctx.Planner.Sequences()
	if c.Archived {
		seqs = ctx.Planner.Archived()
	}
	if len(seqs) == 0 {
		if c.Archived {
			ctx.Println("No archived sequences.")
		} else {
			ctx.Println("No sequences found.")
		}
		return nil
	}

	weekStart := ctx.Planner.WeekStart(ctx.Today())
	tw := ctx.Table()
	tw.AppendHeader(table.Row{"ID", "Name", "Pattern", "Days", "Status", "This week"})
	for _, seq := range seqs {
		id := seq.ID
		if !c.ShowIDs && len(id) > 8 {
			id = id[:8]
		}
		status := "active"
		if seq.Paused {
			status = "paused"
		}
		if !seq.Recurring {
			status += ", once"
		}
		stats := seq.Stats(weekStart)
		tw.AppendRow(table.Row{
			id,
			seq.Name,
			seq.DayPattern.Label(),
			cli.FormatWeekdays(seq.Days),
			status,
			fmt.Sprintf("%d/%d (%d%%)", stats.Completed, stats.Total, stats.Percentage),
		})
	}
	tw.Render()
	return nil
}

type SeqEditCmd struct {
	Sequence    string `arg:"" help:"Sequence ID, ID prefix or name."`
	Name        string `help:"New name." default:""`
	Description string `help:"New description." default:""`
	Color       string `help:"New color." default:""`
	Pattern     string `help:"New day pattern." default:""`
	Days        string `help:"New custom weekdays (e.g. mon,wed,fri)." default:""`
	Once        bool   `help:"Make the sequence single-cycle." xor:"cycle"`
	Recurring   bool   `help:"Make the sequence recurring." xor:"cycle"`
}

func (c *SeqEditCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(c.Sequence)
	if err != nil {
		return err
	}

	in := seq.Input()
	if c.Name != "" {
		in.Name = c.Name
	}
	if c.Description != "" {
		in.Description = c.Description
	}
	if c.Color != "" {
		in.Color = c.Color
	}
	if c.Pattern != "" {
		if in.DayPattern, err = cli.ParsePattern(c.Pattern); err != nil {
			return err
		}
		in.CustomDays = nil
	}
	if c.Days != "" {
		if in.CustomDays, err = cli.ParseWeekdays(c.Days); err != nil {
			return err
		}
	}
	if c.Once || c.Recurring {
		recurring := c.Recurring
		in.Recurring = &recurring
	}

	updated, err := ctx.Planner.EditSequence(seq.ID, in)
	if err != nil {
		return formatFieldErrors(err)
	}
	ctx.Printf("Updated sequence: %s\n", updated.Name)
	return nil
}

type SeqToggleCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
	Date     string `help:"Date in YYYY-MM-DD format (default: today)." default:""`
}

func (c *SeqToggleCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(c.Sequence)
	if err != nil {
		return err
	}
	date, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}

	updated, err := ctx.Planner.ToggleDay(seq.ID, date)
	if err != nil {
		return err
	}
	verb := "Unmarked"
	if updated.IsDayCompleted(date) {
		verb = "Marked"
	}
	ctx.Printf("%s %s for %s\n", verb, updated.Name, date.Format("Mon Jan 2"))
	return nil
}

type SeqPauseCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
}

func (c *SeqPauseCmd) Run(ctx *cli.Context) error {
	return apply(ctx, c.Sequence, "Paused", (*planner.Service).Pause)
}

type SeqResumeCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
}

func (c *SeqResumeCmd) Run(ctx *cli.Context) error {
	return apply(ctx, c.Sequence, "Resumed", (*planner.Service).Resume)
}

type SeqClearCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
	Yes      bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *SeqClearCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(c.Sequence)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Clear all %d completed days of %q?", len(seq.CompletedDays), seq.Name))
		if err != nil || !ok {
			ctx.Println("Cancelled.")
			return err
		}
	}
	if _, err := ctx.Planner.Clear(seq.ID); err != nil {
		return err
	}
	ctx.Printf("Cleared %s\n", seq.Name)
	return nil
}

// apply runs a planner action that takes only a sequence ID.
func apply(ctx *cli.Context, ref, verb string, fn func(*planner.Service, string) (models.Sequence, error)) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(ref)
	if err != nil {
		return err
	}
	if _, err := fn(ctx.Planner, seq.ID); err != nil {
		return err
	}
	ctx.Printf("%s %s\n", verb, seq.Name)
	return nil
}

type SeqDeleteCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
	Yes      bool   `help:"Skip the confirmation prompt." short:"y"`
}

func (c *SeqDeleteCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(c.Sequence)
	if err != nil {
		return err
	}
	if !c.Yes {
		ok, err := ctx.Confirm(fmt.Sprintf("Delete %q and its history?", seq.Name))
		if err != nil || !ok {
			ctx.Println("Cancelled.")
			return err
		}
	}
	if err := ctx.Planner.Delete(seq.ID); err != nil {
		return err
	}
	ctx.Printf("Deleted sequence: %s\n", seq.Name)
	return nil
}

type SeqStatsCmd struct {
	Sequence string `arg:"" help:"Sequence ID, ID prefix or name."`
	Date     string `help:"Any date in the week, YYYY-MM-DD (default: today)." default:""`
}

func (c *SeqStatsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveSequence(c.Sequence)
	if err != nil {
		return err
	}
	date, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}

	stats, err := ctx.Planner.Stats(seq.ID, date)
	if err != nil {
		return err
	}
	weekStart := ctx.Planner.WeekStart(date)
	ctx.Printf("%s, week of %s\n", seq.Name, weekStart.Format("Jan 2, 2006"))
	ctx.Printf("  %d of %d days completed (%d%%)\n", stats.Completed, stats.Total, stats.Percentage)
	return nil
}

type SeqRolloverCmd struct {
	Date string `help:"Any date in the new week, YYYY-MM-DD (default: today)." default:""`
}

func (c *SeqRolloverCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	date, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}

	res := ctx.Planner.Rollover(date)
	ctx.Printf("Rolled over to the week of %s: %d kept, %d archived\n",
		ctx.Planner.WeekStart(date).Format("Jan 2, 2006"), len(res.Kept), len(res.Archived))
	for _, seq := range res.Archived {
		ctx.Printf("  archived %s (%s)\n", seq.Name, seq.ID)
	}
	return nil
}

type SeqRestoreCmd struct {
	Sequence string `arg:"" help:"Archived sequence ID, ID prefix or name."`
}

func (c *SeqRestoreCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}
	seq, err := ctx.ResolveArchived(c.Sequence)
	if err != nil {
		return err
	}
	if _, err := ctx.Planner.Restore(seq.ID); err != nil {
		return err
	}
	ctx.Printf("Restored sequence: %s\n", seq.Name)
	return nil
}
