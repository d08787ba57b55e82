package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/weekplan/internal/auth"
	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/cli/backups"
	"github.com/julianstephens/weekplan/internal/cli/events"
	"github.com/julianstephens/weekplan/internal/cli/sequences"
	"github.com/julianstephens/weekplan/internal/cli/system"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/errors"
	"github.com/julianstephens/weekplan/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config}"`
	Store   string `help:"Store path, PostgreSQL URL, or 'keyring' to read the connection string from the OS keyring. Credentials must NOT be embedded in the URL. Overrides the config." default:"" env:"WEEKPLAN_STORE"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init    system.InitCmd    `cmd:"" help:"Write the config and initialize storage."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive week view." default:"1"`
	Week    cli.WeekCmd       `cmd:"" help:"Print the week grid and events."`
	Seq     sequences.SeqCmd  `cmd:"" help:"Manage sequences."`
	Event   events.EventCmd   `cmd:"" help:"Manage calendar events."`
	Auth    system.AuthCmd    `cmd:"" help:"Sign in to the calendar provider."`
	Keyring system.KeyringCmd `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup  backups.BackupCmd `cmd:"" help:"Manage store backups."`
	Serve   system.ServeCmd   `cmd:"" help:"Serve the HTTP API and run the scheduled rollover."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Weekly habit sequences next to your calendar"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": constants.Version,
			"config":  constants.DefaultConfigPath,
		},
	)

	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: filepath.Dir(config.ExpandPath(CLI.Config)),
		Stderr:    ctx.Command() == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	target := cfg.Store
	if CLI.Store != "" {
		target = CLI.Store
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	appCtx := &cli.Context{
		Config:     cfg,
		ConfigPath: CLI.Config,
		Target:     target,
		Auth:       auth.NewKeyringProvider(),
		Ctx:        runCtx,
	}

	err = ctx.Run(appCtx)
	if cerr := appCtx.Close(); cerr != nil {
		logger.Warn("Failed to close store", "error", cerr)
	}
	stop()
	errors.Fatal(err)
}
