package system

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/storage"
)

type InitCmd struct {
	WeekStartsOn string `help:"First day of the week: sunday or monday." name:"week-starts-on" default:""`
	Timezone     string `help:"IANA time zone, or Local." default:""`
	Store        string `help:"Store path or PostgreSQL URL to record in the config." default:""`
	FeedURL      string `help:"Subscribe to a read-only ICS feed instead of the local calendar file." name:"feed-url" default:""`
	Force        bool   `help:"Back up and reset an existing file store to an empty collection."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	if c.WeekStartsOn != "" {
		cfg.WeekStartsOn = c.WeekStartsOn
	}
	if c.Timezone != "" {
		cfg.Timezone = c.Timezone
	}
	if c.Store != "" {
		cfg.Store = c.Store
		ctx.Target = c.Store
	}
	if c.FeedURL != "" {
		cfg.Calendar.FeedURL = c.FeedURL
	}
	cfg.Normalize()

	res := cfg.Validate()
	for _, w := range res.Warnings {
		ctx.Printf("⚠️  %s\n", w)
	}
	if !res.Valid() {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(res.Errors, "\n  "))
	}
	if err := config.Save(ctx.ConfigPath, cfg); err != nil {
		return err
	}
	ctx.Printf("Wrote config: %s\n", config.ExpandPath(ctx.ConfigPath))

	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	slot, err := ctx.OpenSlot()
	if err != nil {
		return err
	}
	store := storage.NewSequenceStore(slot)
	store.Save(store.Load())
	ctx.Printf("Initialized weekplan storage at: %s\n", slot.Location())
	return nil
}

// reset backs up the current file store and removes it.
func (c *InitCmd) reset(ctx *cli.Context) error {
	mgr, err := ctx.BackupManager()
	if err != nil {
		return fmt.Errorf("--force only applies to file stores: %w", err)
	}
	target, err := cli.ResolveTarget(ctx.Target)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to access existing store: %w", err)
	}

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		return fmt.Errorf("failed to back up existing store: %w", err)
	}
	if err := os.Remove(target); err != nil {
		return fmt.Errorf("failed to delete existing store: %w", err)
	}
	ctx.Printf("Reset existing store (backup: %s)\n", backupPath)
	return nil
}
