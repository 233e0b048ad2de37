// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/driftlock/driftlock/services/editor/config"
	"github.com/driftlock/driftlock/services/editor/telemetry"
)

var (
	reviewTurn      string
	reviewAcceptAll bool
	reviewForce     bool

	reviewCmd = &cobra.Command{
		Use:   "review [results.json]",
		Short: "Review a batch of tool results from a file or stdin",
		Long: `Reads a JSON array of file-editing tool results, registers them
against the workspace, and prints a per-file review report with conflict
status. With --accept-all the batch is applied after the report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReview,
	}
)

func init() {
	reviewCmd.Flags().StringVar(&reviewTurn, "turn", "", "change-set id (default: random)")
	reviewCmd.Flags().BoolVar(&reviewAcceptAll, "accept-all", false, "apply every clean change after the report")
	reviewCmd.Flags().BoolVar(&reviewForce, "force", false, "apply even conflicted changes")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)

	var input io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open results: %w", err)
		}
		defer f.Close()
		input = f
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	var results []json.RawMessage
	if err := json.Unmarshal(data, &results); err != nil {
		return fmt.Errorf("parse results: expected a JSON array: %w", err)
	}

	// Drift watching is pointless for a one-shot run.
	cfg.Review.WatchEnabled = false
	reg, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer reg.Close()

	turn := reviewTurn
	if turn == "" {
		turn = uuid.NewString()
	}

	ctx := context.Background()
	raws := make([][]byte, len(results))
	for i, r := range results {
		raws[i] = []byte(r)
	}
	registered, dropped := reg.Ingest(ctx, turn, raws)

	for _, err := range dropped {
		fmt.Fprintf(os.Stderr, "dropped: %v\n", err)
		exitCode = 1
	}

	for _, ch := range registered {
		report, err := reg.Report(turn, ch.Path)
		if err != nil {
			return fmt.Errorf("report %s: %w", ch.Path, err)
		}
		fmt.Printf("%s [%s, %s]\n", ch.Path, ch.Kind, ch.Conflict)
		fmt.Println(report.Text)
	}

	if !reviewAcceptAll {
		return nil
	}

	result, err := reg.AcceptAll(ctx, turn, reviewForce)
	if err != nil {
		return fmt.Errorf("accept all: %w", err)
	}
	for _, receipt := range result.Applied {
		fmt.Printf("applied %s (%d bytes)\n", receipt.Path, receipt.BytesWritten)
	}
	for _, failure := range result.Failed {
		fmt.Fprintf(os.Stderr, "failed %s: %s\n", failure.Path, failure.Reason)
		if failure.Conflicted {
			fmt.Fprintf(os.Stderr, "  re-run with --force to overwrite the live file\n")
		}
		exitCode = 1
	}

	return nil
}
