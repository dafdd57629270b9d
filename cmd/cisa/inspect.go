package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/pkg/cisa"
)

func inspectCmd() *cli.Command {
	var (
		showBodies bool
		kernel     string
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header and optionally every body of one or more containers",
		ArgsUsage: "<file|dir>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "bodies",
				Aliases:     []string{"b"},
				Usage:       "parse and summarise kernel and function bodies",
				Destination: &showBodies,
			},
			&cli.StringFlag{
				Name:        "kernel",
				Aliases:     []string{"k"},
				Usage:       "only show the named kernel",
				Destination: &kernel,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			files, err := expandInputs(cmd.Args().Slice())
			if err != nil {
				return err
			}
			failed := 0
			for i, path := range files {
				if i > 0 {
					fmt.Println()
				}
				c, err := cisa.Open(path)
				if err != nil {
					log.Error("open failed", "path", path, "error", err)
					failed++
					continue
				}
				if err := printSummary(os.Stdout, path, c, showBodies, kernel); err != nil {
					log.Warn("body errors", "path", path, "error", err)
					failed++
				}
				_ = c.Close()
			}
			if failed > 0 {
				return fmt.Errorf("inspect: %d of %d files had errors", failed, len(files))
			}
			return nil
		},
	}
}

// printSummary writes a human-readable description of c. Body failures are
// reported inline and the last one is returned.
func printSummary(w io.Writer, path string, c *cisa.Container, bodies bool, only string) error {
	var lastErr error

	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  version:     %s\n", c.Version())
	fmt.Fprintf(w, "  header:      %d bytes\n", c.HeaderSize())
	fmt.Fprintf(w, "  kernels:     %d\n", len(c.Kernels()))
	fmt.Fprintf(w, "  functions:   %d\n", len(c.Functions()))
	fmt.Fprintf(w, "  globals:     %d\n", len(c.GlobalVariables()))

	for _, k := range c.Kernels() {
		if only != "" && k.Name() != only {
			continue
		}
		fmt.Fprintf(w, "  kernel %-20s offset=%-8d size=%-8d input_offset=%d relocs=%d/%d\n",
			k.Name(), k.Offset(), k.Size(), k.InputOffset(), len(k.VariableRelocs()), len(k.FunctionRelocs()))
		for _, g := range k.GenBinaries() {
			fmt.Fprintf(w, "    gen platform=%d offset=%d size=%d\n", g.Platform(), g.BinaryOffset(), g.BinarySize())
		}
		if !bodies {
			continue
		}
		kb, err := c.KernelBody(k)
		if err != nil {
			fmt.Fprintf(w, "    body error: %v\n", err)
			lastErr = err
			continue
		}
		printBody(w, kb.Strings(), len(kb.Variables()), len(kb.Labels()), len(kb.Surfaces()), len(kb.Instructions()))
		for _, in := range kb.Inputs() {
			fmt.Fprintf(w, "    input kind=%d id=%d offset=%d size=%d\n", in.InputKind(), in.ID(), in.Offset(), in.Size())
		}
	}
	if only != "" {
		return lastErr
	}

	for _, f := range c.Functions() {
		fmt.Fprintf(w, "  function %-18s offset=%-8d size=%-8d linkage=%d\n", f.Name(), f.Offset(), f.Size(), f.Linkage())
		if !bodies {
			continue
		}
		fb, err := c.FunctionBody(f)
		if err != nil {
			fmt.Fprintf(w, "    body error: %v\n", err)
			lastErr = err
			continue
		}
		printBody(w, fb.Strings(), len(fb.Variables()), len(fb.Labels()), len(fb.Surfaces()), len(fb.Instructions()))
	}
	for _, g := range c.GlobalVariables() {
		fmt.Fprintf(w, "  global %-20s linkage=%d elements=%d\n", g.Name(), g.Linkage(), g.NumElements())
	}
	return lastErr
}

func printBody(w io.Writer, strs []string, vars, labels, surfaces, code int) {
	fmt.Fprintf(w, "    strings=%d variables=%d labels=%d surfaces=%d instructions=%d bytes\n",
		len(strs), vars, labels, surfaces, code)
	if len(strs) > 0 {
		fmt.Fprintf(w, "    pool: %s\n", strings.Join(strs, ", "))
	}
}
