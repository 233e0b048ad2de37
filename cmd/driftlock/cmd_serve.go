// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/services/editor/api"
	"github.com/driftlock/driftlock/services/editor/apply"
	"github.com/driftlock/driftlock/services/editor/config"
	"github.com/driftlock/driftlock/services/editor/conflict"
	"github.com/driftlock/driftlock/services/editor/registry"
	"github.com/driftlock/driftlock/services/editor/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the change-review HTTP service",
	Long: `Starts the HTTP API that agents post tool results to and editors use
to review, accept, reject, and roll back changes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.DefaultConfig()
	telCfg.TraceExporter = cfg.Telemetry.TraceExporter
	telCfg.MetricExporter = cfg.Telemetry.MetricExporter
	shutdown, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()
	apply.SetMetricsEnabled(cfg.Telemetry.MetricsEnabled)

	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	reg.Start(ctx)
	defer reg.Close()

	handlers := api.NewHandlers(reg, logger)
	router := api.NewRouter(handlers)
	server := api.NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ShutdownTimeout, logger)

	logger.Info("driftlock serving",
		"addr", cfg.HTTP.Addr,
		"workspace", cfg.WorkspaceRoot,
		"watch", cfg.Review.WatchEnabled,
	)
	return server.Run(ctx)
}

// buildRegistry wires the detector, apply engine, and registry from config.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	detector, err := conflict.NewDetector(cfg.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("workspace detector: %w", err)
	}

	applyOpts := apply.DefaultOptions()
	applyOpts.MetricsEnabled = cfg.Telemetry.MetricsEnabled
	applyOpts.TracingEnabled = cfg.Telemetry.TracingEnabled
	engine, err := apply.NewEngine(detector, applyOpts)
	if err != nil {
		return nil, fmt.Errorf("apply engine: %w", err)
	}

	regOpts := registry.DefaultOptions()
	regOpts.DiffLimit = cfg.Review.DiffLimit
	regOpts.WatchEnabled = cfg.Review.WatchEnabled
	regOpts.ApplyConcurrency = cfg.Review.ApplyConcurrency
	regOpts.Logger = logger
	reg, err := registry.NewRegistry(detector, engine, regOpts)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return reg, nil
}
