// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/driftlock/driftlock/services/editor/change"
)

// Rollback restores an applied change to its pre-apply snapshot.
//
// # Description
//
// Writes the snapshot captured during apply back to the path with the same
// all-or-nothing discipline as Apply. When the snapshot records that the
// file did not exist before apply, the file is removed instead; parent
// directories created during apply are left in place, since directories are
// not part of change identity. On success the change returns to Pending and
// re-enters review so the user can decide again. On failure the status is
// unchanged.
//
// # Inputs
//
//   - ctx: Context for cancellation, checked before any I/O.
//   - ch: The change to revert. Must be Applied with a captured snapshot.
//
// # Outputs
//
//   - error: ErrNotApplied, ErrBaselineMissing, or *WriteError.
func (e *Engine) Rollback(ctx context.Context, ch *change.FileChange) error {
	start := time.Now()
	ctx, span := e.tracer.StartRollback(ctx, ch.Path)

	err := e.rollbackLocked(ctx, ch)
	e.tracer.EndRollback(span, err)
	recordRollback(ctx, time.Since(start), err)

	return err
}

func (e *Engine) rollbackLocked(ctx context.Context, ch *change.FileChange) error {
	if ch.Status != change.StatusApplied {
		return fmt.Errorf("rollback %s: %w", ch.Path, ErrNotApplied)
	}
	if ch.AppliedSnapshot == nil {
		// Unreachable through the registry's transitions; surfacing it
		// means a defect upstream.
		return fmt.Errorf("rollback %s: %w", ch.Path, ErrBaselineMissing)
	}

	fullPath, err := e.detector.Resolve(ch.Path)
	if err != nil {
		return err
	}

	lock := e.pathLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := *ch.AppliedSnapshot
	if snapshot.Exists {
		if err := atomicWriteFile(fullPath, []byte(snapshot.Content), e.options.FileMode); err != nil {
			ch.FailureReason = err.Error()
			return &WriteError{Path: ch.Path, Err: err}
		}
	} else {
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			ch.FailureReason = err.Error()
			return &WriteError{Path: ch.Path, Err: err}
		}
	}

	ch.Status = change.StatusPending
	ch.Conflict = change.ConflictUnknown
	ch.AppliedSnapshot = nil
	ch.FailureReason = ""

	e.logger.InfoContext(ctx, "change rolled back",
		slog.String("path", ch.Path),
		slog.Bool("restored", snapshot.Exists),
	)

	return nil
}
