// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the service configuration.
//
// Precedence, lowest to highest: built-in defaults, a YAML config file,
// .env files, then DRIFTLOCK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the change-review service.
type Config struct {
	// WorkspaceRoot is the directory all change paths resolve under.
	WorkspaceRoot string `yaml:"workspace_root" envconfig:"WORKSPACE_ROOT" validate:"required"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	Review    ReviewConfig    `yaml:"review" envconfig:"REVIEW"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// HTTPConfig controls the HTTP command surface.
type HTTPConfig struct {
	// Addr is the listen address for the API server.
	Addr string `yaml:"addr" envconfig:"ADDR" validate:"required"`

	// ShutdownTimeout bounds graceful shutdown on exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// ReviewConfig tunes the change-set registry.
type ReviewConfig struct {
	// DiffLimit caps rendered diff report size in bytes.
	DiffLimit int `yaml:"diff_limit" envconfig:"DIFF_LIMIT" validate:"gt=0"`

	// WatchEnabled turns on filesystem drift watching for pending changes.
	WatchEnabled bool `yaml:"watch_enabled" envconfig:"WATCH_ENABLED"`

	// ApplyConcurrency bounds parallel writes during bulk accept.
	ApplyConcurrency int `yaml:"apply_concurrency" envconfig:"APPLY_CONCURRENCY" validate:"gt=0"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	// MetricsEnabled turns on OpenTelemetry metric recording.
	MetricsEnabled bool `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`

	// TracingEnabled turns on span creation for apply and rollback.
	TracingEnabled bool `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`

	// TraceExporter selects the trace exporter: "otlp", "stdout", or "none".
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=otlp stdout none"`

	// MetricExporter selects the metric exporter: "prometheus", "stdout", or "none".
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=prometheus stdout none"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		WorkspaceRoot: cwd,
		LogLevel:      "info",
		HTTP: HTTPConfig{
			Addr:            ":8390",
			ShutdownTimeout: 10 * time.Second,
		},
		Review: ReviewConfig{
			DiffLimit:        50_000,
			WatchEnabled:     true,
			ApplyConcurrency: 8,
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled: true,
			TracingEnabled: false,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}

// Load builds the configuration from the given YAML path.
//
// Description:
//
//	Starts from Default(), overlays the YAML file when path is non-empty
//	(or when driftlock.yaml exists in the working directory), loads .env
//	files, applies DRIFTLOCK_* environment variables, then validates.
//
// Inputs:
//
//	path - Config file path. Empty means auto-discover driftlock.yaml.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil on read, parse, or validation failure.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	if path == "" {
		local := "driftlock.yaml"
		if _, err := os.Stat(local); err == nil {
			path = local
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("DRIFTLOCK", cfg); err != nil {
		return nil, fmt.Errorf("process env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and resolves WorkspaceRoot to an
// absolute path to an existing directory.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	abs, err := filepath.Abs(c.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workspace root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace root %s is not a directory", abs)
	}
	c.WorkspaceRoot = abs
	return nil
}
