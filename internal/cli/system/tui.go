package system

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	// Automatic backup on startup, after a successful load.
	ctx.PerformAutomaticBackup()

	p := tea.NewProgram(tui.NewModel(ctx.Planner), tea.WithAltScreen(), tea.WithContext(ctx.RunContext()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI exited with an error: %w", err)
	}
	return nil
}
