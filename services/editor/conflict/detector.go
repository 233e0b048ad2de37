// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conflict classifies proposed changes against the live filesystem.
//
// # Description
//
// The detector answers one question: has the file diverged from the baseline
// the agent read when it proposed the edit? Classification is fingerprint
// based so large files are compared cheaply. Detection is deliberately lazy
// and repeatable - it runs at review time and again inside the apply
// critical section, because the filesystem can change in the window between
// review and commit.
//
// # Thread Safety
//
// Detector is safe for concurrent use. The optional Watcher serializes its
// event handling on a single goroutine.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/driftlock/driftlock/services/editor/change"
)

// Sentinel errors for conflict detection.
var (
	// ErrPathEscapesRoot is returned when a change's path resolves outside
	// the workspace root. This is a security error, not a conflict.
	ErrPathEscapesRoot = errors.New("path escapes workspace root")
)

// Detector classifies changes against on-disk content.
type Detector struct {
	root string
}

// NewDetector creates a detector rooted at the given workspace directory.
//
// # Inputs
//
//   - root: Workspace root. Must be an absolute path to an existing
//     directory; all change paths resolve relative to it.
//
// # Outputs
//
//   - *Detector: Ready-to-use detector.
//   - error: Non-nil if root is invalid.
func NewDetector(root string) (*Detector, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("workspace root must be absolute: %s", root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", root)
	}
	return &Detector{root: root}, nil
}

// Root returns the workspace root the detector is bound to.
func (d *Detector) Root() string {
	return d.root
}

// Resolve turns a project-relative change path into a validated absolute
// path inside the workspace root.
func (d *Detector) Resolve(relPath string) (string, error) {
	full := relPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(d.root, relPath)
	}

	rel, err := filepath.Rel(filepath.Clean(d.root), filepath.Clean(full))
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, relPath)
	}
	return full, nil
}

// Detect classifies one change against the file's current on-disk content
// and records the result on the change.
//
// # Description
//
// Classification rules:
//
//   - Added + file absent: clean.
//   - Added + file present: conflicted (created externally since proposal).
//   - Modified + live fingerprint equals baseline fingerprint: clean.
//   - Anything else (changed or deleted since baseline): conflicted.
//
// The result is advisory. Apply re-runs detection inside its critical
// section rather than trusting a cached classification.
//
// # Outputs
//
//   - change.ConflictState: The classification, also stored on ch.
//   - error: Non-nil on path escape or an unreadable file; ch.Conflict is
//     left unchanged in that case.
func (d *Detector) Detect(ctx context.Context, ch *change.FileChange) (change.ConflictState, error) {
	live, err := d.ReadLive(ctx, ch.Path)
	if err != nil {
		return ch.Conflict, err
	}

	state := Classify(ch, live)
	ch.Conflict = state
	return state, nil
}

// ReadLive reads the current on-disk state of a change path.
//
// A missing file is not an error; it is reported as a nonexistent Snapshot.
func (d *Detector) ReadLive(ctx context.Context, relPath string) (change.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return change.Snapshot{}, err
	}

	full, err := d.Resolve(relPath)
	if err != nil {
		return change.Snapshot{}, err
	}

	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return change.Snapshot{}, nil
		}
		return change.Snapshot{}, fmt.Errorf("reading live content of %s: %w", relPath, err)
	}
	return change.Snapshot{Content: string(content), Exists: true}, nil
}

// Classify applies the classification rules to a change and a live snapshot.
//
// Split out from Detect so the apply engine can reuse the rules against a
// snapshot it already read inside its critical section.
func Classify(ch *change.FileChange, live change.Snapshot) change.ConflictState {
	if ch.Kind == change.KindAdded {
		if !live.Exists {
			return change.ConflictClean
		}
		return change.ConflictDiverged
	}

	if !live.Exists {
		// Deleted since the baseline was captured.
		return change.ConflictDiverged
	}
	if change.SumString(live.Content).Equal(change.SumString(ch.Baseline)) {
		return change.ConflictClean
	}
	return change.ConflictDiverged
}
