package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ezpbars/internal/server"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the local development server until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Serve
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		cfg.Port = port
	}

	dropEvery := cmd.Int("drop-every")
	if dropEvery < 0 {
		return fmt.Errorf("%w: --drop-every must not be negative", shared.ErrInvalidFlag)
	}

	registry := tasks.NewRegistry(tasks.WithRegistryLogger(r.logger))
	handler := server.NewHandler(registry, r.logger, server.Options{
		APIKey:    r.config.Credentials.APIKey,
		DropEvery: dropEvery,
	})

	r.logger.Info("starting development server", "addr", cfg.Addr(), "sub", registry.Sub(), "drop_every", dropEvery)
	r.writePlain("Point clients here with server.domain = %q, server.ssl = false, api.base_url = \"http://%s\"\n",
		cfg.Addr(), cfg.Addr())
	return server.New(cfg.Addr(), handler, r.logger).Run(ctx)
}
