package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/kernelstore"
	"github.com/samcharles93/cisa/internal/logger"
)

func extractCmd() *cli.Command {
	var (
		outDir     string
		withBinary bool
	)

	return &cli.Command{
		Name:      "extract",
		Usage:     "Write each kernel's instruction stream (and gen binaries) to files",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output directory (default $CISA_OUT_DIR/<name> or ./out/<name>)",
				Destination: &outDir,
			},
			&cli.BoolFlag{
				Name:        "gen",
				Usage:       "also write precompiled gen binaries",
				Value:       true,
				Destination: &withBinary,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("extract: expected one file, got %d", cmd.Args().Len())
			}
			path := cmd.Args().First()
			dir, defaulted, err := resolveOutDir(path, outDir)
			if err != nil {
				return err
			}
			if defaulted {
				log.Info("using default output directory", "dir", dir)
			}

			s, err := kernelstore.Open(path, log)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			written, err := extractAll(s, dir, withBinary)
			if err != nil {
				return err
			}
			log.Info("extracted", "files", written, "dir", dir)
			return nil
		},
	}
}

// extractAll writes <kernel>.bin and <kernel>.gen<platform>.bin for every
// kernel in s and returns the number of files written.
func extractAll(s *kernelstore.Store, dir string, withBinary bool) (int, error) {
	written := 0
	for _, name := range s.Names() {
		code, err := s.Instructions(name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(filepath.Join(dir, safeName(name)+".bin"), code, 0o644); err != nil {
			return written, err
		}
		written++

		if !withBinary {
			continue
		}
		info, err := s.Kernel(name)
		if err != nil {
			return written, err
		}
		for _, p := range info.Platforms {
			data, err := s.GenBinary(name, p)
			if err != nil {
				return written, err
			}
			file := fmt.Sprintf("%s.gen%d.bin", safeName(name), p)
			if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
