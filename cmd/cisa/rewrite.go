package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/pkg/cisa"
)

var errRewriteDiffers = errors.New("rewritten container differs from input")

func rewriteCmd() *cli.Command {
	var check bool

	return &cli.Command{
		Name:      "rewrite",
		Usage:     "Parse every record and serialise the container again",
		ArgsUsage: "<in> [out]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "fail unless the output is byte-identical to the input",
				Destination: &check,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			args := cmd.Args().Slice()
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("rewrite: expected <in> [out]")
			}
			in, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := rewriteBytes(in, check)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if len(args) == 2 {
				if err := os.WriteFile(args[1], out, 0o644); err != nil {
					return err
				}
			}
			log.Info("rewrite ok", "in", args[0], "bytes", len(out), "identical", bytes.Equal(in, out))
			return nil
		},
	}
}

func rewriteBytes(in []byte, check bool) ([]byte, error) {
	c, err := cisa.Parse(in)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, err
	}
	if check && !bytes.Equal(buf.Bytes(), in) {
		return nil, errRewriteDiffers
	}
	return buf.Bytes(), nil
}
