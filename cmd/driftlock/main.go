// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "driftlock",
		Short: "Review, apply, and roll back agent-proposed file changes",
		Long: `Driftlock tracks the file changes an AI coding agent proposes during a
turn, detects drift against the live workspace, and applies or reverts
them atomically under user control.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
	os.Exit(exitCode)
}

// exitCode lets subcommands report partial failure without an abrupt
// log.Fatal that would skip deferred cleanup.
var exitCode int

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to driftlock.yaml (default: auto-discover)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reviewCmd)
}
