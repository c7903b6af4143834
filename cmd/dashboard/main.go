package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/letsur-product-team/product-team-dashboard/adapter/cli"
	"github.com/letsur-product-team/product-team-dashboard/internal/app"
	"github.com/letsur-product-team/product-team-dashboard/pkg/config"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development", LogLevel: "info"}
	}
	if cfg.Version != "" {
		cli.Version = cfg.Version
	}

	logger := observability.LoggerForEnv(cfg.AppEnv, cfg.LogLevel, cli.Version)
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Error("failed to initialize container", "error", err)
			os.Exit(1)
		}
		logger.Warn("failed to initialize container, only `version` is available", "error", err)
	} else {
		defer container.Close()
		cli.SetApp(&cli.App{
			Refresh:        container.RefreshHandler,
			Board:          container.BoardHandler,
			Summary:        container.SummaryHandler,
			Members:        container.MembersHandler,
			Health:         container.Health,
			Metrics:        container.Metrics,
			HTTPAddr:       cfg.HTTPAddr,
			RefreshTimeout: cfg.FetchTimeout * 2,
		})
	}

	cli.Execute(ctx)
}
