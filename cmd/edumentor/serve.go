package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/agent"
	"github.com/edumentor-ai/edumentor/pkg/observability"
	"github.com/edumentor-ai/edumentor/pkg/server"
)

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch the config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, loader, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	if c.Watch && loader != nil {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("config watch error", "error", err)
			}
		}()
	}

	if cfg.Observability != nil {
		obs := observability.NewManager(*cfg.Observability)
		if err := obs.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize observability: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			obs.Shutdown(shutdownCtx)
		}()
	}

	orch, err := agent.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize agents: %w", err)
	}
	defer orch.Close()

	srv := server.New(cfg.Server, cfg.Observability, orch)
	fmt.Printf("EduMentor API listening on http://%s\n", cfg.Server.Address())
	fmt.Printf("  Health:   http://%s/healthz\n", cfg.Server.Address())
	fmt.Printf("  Sessions: http://%s/v1/sessions\n", cfg.Server.Address())

	return srv.Start(ctx)
}
