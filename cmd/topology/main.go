package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arrdem/bbdb/internal/healthcheck"
	"github.com/arrdem/bbdb/internal/runner"
	"github.com/arrdem/bbdb/internal/targets"
	"github.com/arrdem/bbdb/pkg/config/provider"
	"github.com/arrdem/bbdb/pkg/logs"
	"github.com/arrdem/bbdb/pkg/registry"
	"github.com/arrdem/bbdb/pkg/topology"
)

func main() {
	app := &cli.App{
		Name:  "topology",
		Usage: "run every worker of a configured topology in one process",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "topology.yaml",
				Usage:   "path to the topology configuration",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logs.Logger.Fatalf("topology failed: %s", err.Error())
	}
}

func run(c *cli.Context) error {
	cfg, err := provider.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	level := c.String("log-level")
	if level == "" {
		level = cfg.String("log-level", "INFO")
	}
	if err = logs.InitLogger(level); err != nil {
		return err
	}

	topo, err := topology.Load(cfg)
	if err != nil {
		return err
	}

	reg := registry.New()
	targets.RegisterBuiltins(reg)

	r, err := runner.New(topo, reg, runner.Options{
		PollTimeout:     cfg.Duration("poll-timeout", 0),
		MaxRetryElapsed: cfg.Duration("max-retry-elapsed", 0),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Contains("healthcheck.port") {
		hc, err := healthcheck.NewService(cfg.Uint16("healthcheck.port", 9290))
		if err != nil {
			return err
		}
		go hc.Listen(ctx)
	}

	logs.Logger.Infof("Running %d worker instances", len(topo.Order))
	return r.Run(ctx)
}
