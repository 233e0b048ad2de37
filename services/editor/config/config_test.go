// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	cfg.WorkspaceRoot = t.TempDir()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Review.DiffLimit <= 0 {
		t.Error("default diff limit must be positive")
	}
	if cfg.HTTP.Addr == "" {
		t.Error("default http addr must be set")
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "driftlock.yaml")
	content := "workspace_root: " + dir + "\n" +
		"log_level: debug\n" +
		"review:\n" +
		"  diff_limit: 1024\n" +
		"  watch_enabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Review.DiffLimit != 1024 {
		t.Errorf("DiffLimit = %d, want 1024", cfg.Review.DiffLimit)
	}
	if cfg.Review.WatchEnabled {
		t.Error("WatchEnabled should be false from file")
	}
	if cfg.Review.ApplyConcurrency != 8 {
		t.Errorf("unset field should keep default, got %d", cfg.Review.ApplyConcurrency)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "driftlock.yaml")
	content := "workspace_root: " + dir + "\nreview:\n  diff_limit: 1024\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DRIFTLOCK_REVIEW_DIFF_LIMIT", "2048")
	t.Setenv("DRIFTLOCK_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Review.DiffLimit != 2048 {
		t.Errorf("DiffLimit = %d, want env override 2048", cfg.Review.DiffLimit)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestValidate_Rejections(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_log_level", func(c *Config) { c.LogLevel = "verbose" }},
		{"zero_diff_limit", func(c *Config) { c.Review.DiffLimit = 0 }},
		{"zero_concurrency", func(c *Config) { c.Review.ApplyConcurrency = 0 }},
		{"missing_workspace", func(c *Config) { c.WorkspaceRoot = filepath.Join(dir, "absent") }},
		{"bad_exporter", func(c *Config) { c.Telemetry.TraceExporter = "carrier-pigeon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.WorkspaceRoot = dir
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ResolvesWorkspaceRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.WorkspaceRoot = dir

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !filepath.IsAbs(cfg.WorkspaceRoot) {
		t.Errorf("workspace root should be absolute, got %q", cfg.WorkspaceRoot)
	}
}
