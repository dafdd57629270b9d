package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/internal/symgraph"
	"github.com/samcharles93/cisa/pkg/cisa"
)

func graphCmd() *cli.Command {
	var out string

	return &cli.Command{
		Name:      "graph",
		Usage:     "Render the kernel/function linkage graph as DOT",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "write DOT to this file instead of stdout",
				Destination: &out,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("graph: expected one file, got %d", cmd.Args().Len())
			}
			path := cmd.Args().First()
			c, err := cisa.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			g := symgraph.Build(c.Header())
			for _, r := range g.Unresolved {
				log.Warn("unresolved relocation", "from", r.From, "symbolic", r.Symbolic, "resolved", r.Resolved, "variable", r.Variable)
			}
			dot := g.DOT(filepath.Base(path))
			if out == "" {
				_, err := fmt.Print(dot)
				return err
			}
			if err := os.WriteFile(out, []byte(dot), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.Info("wrote graph", "path", out, "nodes", len(g.Nodes), "edges", len(g.Edges))
			return nil
		},
	}
}
