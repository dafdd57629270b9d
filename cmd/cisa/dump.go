package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/api"
	"github.com/samcharles93/cisa/pkg/cisa"
)

type dumpOutput struct {
	api.ContainerView
	KernelBodies   map[string]api.BodyView `json:"kernel_bodies,omitempty"`
	FunctionBodies map[string]api.BodyView `json:"function_bodies,omitempty"`
}

func dumpCmd() *cli.Command {
	var (
		raw    bool
		indent bool
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Dump a container as JSON",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "emit the generic record tree instead of the typed view",
				Destination: &raw,
			},
			&cli.BoolFlag{
				Name:        "indent",
				Aliases:     []string{"i"},
				Usage:       "indent output",
				Value:       true,
				Destination: &indent,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("dump: expected one file, got %d", cmd.Args().Len())
			}
			path := cmd.Args().First()
			c, err := cisa.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return writeDump(os.Stdout, c, raw, indent)
		},
	}
}

func writeDump(w io.Writer, c *cisa.Container, raw, indent bool) error {
	var v any
	if raw {
		tree := map[string]any{"header": api.RecordTree(c.Header().Record())}
		var bodies []map[string]any
		for _, k := range c.Kernels() {
			kb, err := c.KernelBody(k)
			if err != nil {
				return fmt.Errorf("kernel %s: %w", k.Name(), err)
			}
			bodies = append(bodies, api.RecordTree(kb.Record()))
		}
		for _, f := range c.Functions() {
			fb, err := c.FunctionBody(f)
			if err != nil {
				return fmt.Errorf("function %s: %w", f.Name(), err)
			}
			bodies = append(bodies, api.RecordTree(fb.Record()))
		}
		tree["bodies"] = bodies
		v = tree
	} else {
		out := dumpOutput{
			ContainerView:  api.NewContainerView(c),
			KernelBodies:   map[string]api.BodyView{},
			FunctionBodies: map[string]api.BodyView{},
		}
		for _, k := range c.Kernels() {
			kb, err := c.KernelBody(k)
			if err != nil {
				return fmt.Errorf("kernel %s: %w", k.Name(), err)
			}
			out.KernelBodies[k.Name()] = api.NewKernelBodyView(kb)
		}
		for _, f := range c.Functions() {
			fb, err := c.FunctionBody(f)
			if err != nil {
				return fmt.Errorf("function %s: %w", f.Name(), err)
			}
			out.FunctionBodies[f.Name()] = api.NewFunctionBodyView(fb)
		}
		v = out
	}

	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
