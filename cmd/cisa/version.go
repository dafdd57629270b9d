package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/version"
)

func versionCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:  "version",
		Usage: "Print version information and the supported container versions",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return printVersion(os.Stdout, version.Resolve(), asJSON)
		},
	}
}

func printVersion(w io.Writer, info version.Info, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(info)
	}
	fmt.Fprintf(w, "version:    %s\n", info.Version)
	if info.Commit != "" {
		fmt.Fprintf(w, "commit:     %s\n", info.Commit)
	}
	if info.BuildTime != "" {
		fmt.Fprintf(w, "build time: %s\n", info.BuildTime)
	}
	fmt.Fprintf(w, "formats:    %s\n", info.Formats)
	return nil
}
