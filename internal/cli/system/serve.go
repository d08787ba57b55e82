package system

import (
	"github.com/julianstephens/weekplan/internal/cli"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/server"
)

type ServeCmd struct {
	Listen     string `help:"Address to listen on (default: listen from the config)." default:""`
	NoRollover bool   `help:"Disable the scheduled weekly rollover." name:"no-rollover"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	if err := ctx.Load(); err != nil {
		return err
	}

	listen := ctx.Config.Listen
	if c.Listen != "" {
		listen = c.Listen
	}
	schedule := ctx.Config.RolloverCron
	if c.NoRollover {
		schedule = ""
	}

	srv, err := server.New(server.Config{
		Planner:      ctx.Planner,
		Listen:       listen,
		RolloverCron: schedule,
	})
	if err != nil {
		return err
	}
	logger.Info("Starting server", "listen", listen, "rollover", schedule, "store", ctx.Slot.Location())
	ctx.Printf("Serving weekplan API on http://%s\n", listen)
	return srv.Run(ctx.RunContext())
}
