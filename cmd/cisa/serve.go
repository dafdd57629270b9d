package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/cisa/internal/api"
	"github.com/samcharles93/cisa/internal/logger"
	"github.com/samcharles93/cisa/internal/registry"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		registryDir string
		maxUpload   int64
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the container inspector HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "registry-dir",
				Usage:       "directory of the container registry (default $CISA_REGISTRY_DIR or the user cache dir)",
				Destination: &registryDir,
			},
			&cli.Int64Flag{
				Name:        "max-upload",
				Usage:       "maximum upload size in bytes",
				Value:       api.DefaultMaxUpload,
				Destination: &maxUpload,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, LoadConfig(), &addr, &registryDir, &maxUpload)
			if registryDir == "" {
				registryDir = defaultRegistryDir()
			}

			reg, err := registry.Open(registryDir, log)
			if err != nil {
				return err
			}
			defer func() { _ = reg.Close() }()

			server := api.NewServer(reg, log, maxUpload)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "registry", registryDir)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
