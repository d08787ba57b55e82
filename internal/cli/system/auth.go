package system

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/auth"
	"github.com/julianstephens/weekplan/internal/cli"
)

type AuthCmd struct {
	Login  AuthLoginCmd  `cmd:"" help:"Store the access token for the calendar feed."`
	Logout AuthLogoutCmd `cmd:"" help:"Revoke the stored calendar token."`
	Status AuthStatusCmd `cmd:"" help:"Show calendar sign-in status."`
}

func provider(ctx *cli.Context) auth.Provider {
	if ctx.Auth == nil {
		return auth.NewKeyringProvider()
	}
	return ctx.Auth
}

type AuthLoginCmd struct {
	Token string `help:"Access token. Prompted for when omitted." env:"WEEKPLAN_CALENDAR_TOKEN" default:""`
}

func (c *AuthLoginCmd) Run(ctx *cli.Context) error {
	token := c.Token
	if token == "" {
		err := huh.NewInput().
			Title("Calendar access token").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if s == "" {
					return errors.New("token cannot be empty")
				}
				return nil
			}).
			Value(&token).
			Run()
		if err != nil {
			return fmt.Errorf("sign-in cancelled: %w", err)
		}
	}

	if err := provider(ctx).SignIn(token); err != nil {
		return err
	}
	ctx.Println("✓ Signed in; the token is stored in the OS keyring")
	if ctx.Config != nil && ctx.Config.Calendar.FeedURL == "" {
		ctx.Println("  No feed_url is configured, so the local calendar file is still used.")
	}
	return nil
}

type AuthLogoutCmd struct{}

func (c *AuthLogoutCmd) Run(ctx *cli.Context) error {
	if err := provider(ctx).SignOut(); err != nil {
		return err
	}
	ctx.Println("✓ Signed out")
	return nil
}

type AuthStatusCmd struct{}

func (c *AuthStatusCmd) Run(ctx *cli.Context) error {
	if ctx.Config != nil {
		if feed := ctx.Config.Calendar.FeedURL; feed != "" {
			ctx.Println("Calendar: subscribed feed (read-only)")
		} else {
			ctx.Printf("Calendar: local file %s\n", ctx.Config.Calendar.ICSPath)
		}
	}
	if provider(ctx).SignedIn() {
		ctx.Println("✓ Signed in")
	} else {
		ctx.Println("ℹ Not signed in")
	}
	return nil
}
