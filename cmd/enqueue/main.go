package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/arrdem/bbdb/internal/runner"
	"github.com/arrdem/bbdb/pkg/config/provider"
	"github.com/arrdem/bbdb/pkg/logs"
	"github.com/arrdem/bbdb/pkg/topology"
)

// Pushes items onto a declared queue, one per line from stdin or from the
// command line. Handy for seeding a topology or replaying dropped items.
func main() {
	app := &cli.App{
		Name:      "enqueue",
		Usage:     "push items onto a declared queue",
		ArgsUsage: "[item ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "topology.yaml",
				Usage:   "path to the topology configuration",
			},
			&cli.StringFlag{
				Name:     "queue",
				Aliases:  []string{"q"},
				Usage:    "name of the queue to push onto",
				Required: true,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		logs.Logger.Fatalf("enqueue failed: %s", err.Error())
	}
}

func run(c *cli.Context) error {
	cfg, err := provider.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if err = logs.InitLogger(cfg.String("log-level", "INFO")); err != nil {
		return err
	}

	topo, err := topology.Load(cfg)
	if err != nil {
		return err
	}

	name := c.String("queue")
	decl, ok := topo.Queues[name]
	if !ok {
		return fmt.Errorf("queue %q is not declared", name)
	}

	q, closeAll, err := runner.OpenQueue(topo, decl)
	if err != nil {
		return err
	}
	defer closeAll()

	ctx := context.Background()
	var items [][]byte

	if c.Args().Len() > 0 {
		for _, arg := range c.Args().Slice() {
			items = append(items, []byte(arg))
		}
	} else if items, err = readItems(os.Stdin); err != nil {
		return err
	}

	for _, item := range items {
		if err = q.Enqueue(ctx, item); err != nil {
			return err
		}
	}

	logs.Logger.Infof("Pushed %d items onto %s", len(items), decl.Key)
	return nil
}

// readItems collects one item per line. Lines are copied out of the
// scanner's buffer, which is reused between reads.
func readItems(r io.Reader) ([][]byte, error) {
	var items [][]byte
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		items = append(items, append([]byte(nil), scanner.Bytes()...))
	}
	return items, scanner.Err()
}
