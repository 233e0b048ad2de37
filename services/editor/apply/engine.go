// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package apply commits accepted changes to disk and reverts applied ones.
//
// # Description
//
// Each file write is transactional: either the file holds the full proposed
// content afterward, or it is left byte-for-byte as it was. The engine
// re-runs conflict detection inside its per-path critical section, so a
// change that was clean at review time is still caught if the file drifted
// in the window before commit. The snapshot captured at apply time records
// exactly what the write destroyed, which keeps rollback correct even when
// the user forced past a conflict.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Operations on the same path are
// serialized by a per-path mutex; operations on different paths run
// concurrently.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/driftlock/driftlock/services/editor/change"
	"github.com/driftlock/driftlock/services/editor/conflict"
)

// Options configures the apply engine.
type Options struct {
	// FileMode is the mode for written files (default: 0644).
	FileMode os.FileMode

	// DirMode is the mode for created parent directories (default: 0755).
	DirMode os.FileMode

	// MetricsEnabled controls whether OTel metrics are recorded.
	MetricsEnabled bool

	// TracingEnabled controls whether OTel spans are created.
	TracingEnabled bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		FileMode:       0644,
		DirMode:        0755,
		MetricsEnabled: true,
		TracingEnabled: true,
	}
}

// Receipt is the result of a successful apply.
type Receipt struct {
	// Path is the change path that was written.
	Path string `json:"path"`

	// BytesWritten is the size of the written content.
	BytesWritten int64 `json:"bytes_written"`
}

// Engine applies and rolls back proposed changes.
type Engine struct {
	detector *conflict.Detector
	options  Options
	logger   *slog.Logger
	tracer   *Tracer

	// pathLocks serializes detect-then-write per path.
	pathLocks   map[string]*sync.Mutex
	pathLocksMu sync.Mutex
}

// NewEngine creates an apply engine over the detector's workspace root.
//
// # Inputs
//
//   - detector: Conflict detector bound to the workspace. Must not be nil.
//   - options: Engine options. Use DefaultOptions() for defaults.
//
// # Outputs
//
//   - *Engine: Ready-to-use engine.
//   - error: Non-nil if detector is nil.
func NewEngine(detector *conflict.Detector, options Options) (*Engine, error) {
	if detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if options.FileMode == 0 {
		options.FileMode = 0644
	}
	if options.DirMode == 0 {
		options.DirMode = 0755
	}

	logger := slog.Default().With("component", "apply.Engine")
	SetMetricsEnabled(options.MetricsEnabled)

	return &Engine{
		detector:  detector,
		options:   options,
		logger:    logger,
		tracer:    NewTracer(logger, options.TracingEnabled),
		pathLocks: make(map[string]*sync.Mutex),
	}, nil
}

// Apply commits one change to disk.
//
// # Description
//
// Inside the per-path critical section: re-runs conflict detection, fails
// with *ConflictError when the file diverged and force is false, captures
// the pre-write snapshot, creates parent directories for new files, and
// writes the proposed content atomically. The status transition to Applied
// happens only after the write completed. On a write failure the file is
// untouched and the change stays Pending with the failure reason attached,
// so the reviewer can retry.
//
// # Inputs
//
//   - ctx: Context for cancellation, checked before any I/O.
//   - ch: The change to apply. Must be Pending.
//   - force: Apply even when the live file diverged from the baseline.
//
// # Outputs
//
//   - *Receipt: Path and bytes written, nil on error.
//   - error: *ConflictError, *WriteError, or a state/path validation error.
func (e *Engine) Apply(ctx context.Context, ch *change.FileChange, force bool) (*Receipt, error) {
	start := time.Now()
	ctx, span := e.tracer.StartApply(ctx, ch.Path, force)

	receipt, err := e.applyLocked(ctx, ch, force)
	e.tracer.EndApply(span, receipt, err)
	recordApply(ctx, time.Since(start), receipt, err)

	return receipt, err
}

func (e *Engine) applyLocked(ctx context.Context, ch *change.FileChange, force bool) (*Receipt, error) {
	if ch.Status != change.StatusPending {
		return nil, fmt.Errorf("apply %s: status is %s, want %s", ch.Path, ch.Status, change.StatusPending)
	}

	fullPath, err := e.detector.Resolve(ch.Path)
	if err != nil {
		return nil, err
	}

	lock := e.pathLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Re-detect inside the critical section; a review-time classification
	// may be stale by now.
	live, err := e.detector.ReadLive(ctx, ch.Path)
	if err != nil {
		ch.FailureReason = err.Error()
		return nil, &WriteError{Path: ch.Path, Err: err}
	}
	ch.Conflict = conflict.Classify(ch, live)

	if ch.Conflict == change.ConflictDiverged && !force {
		ch.FailureReason = ErrConflict.Error()
		e.logger.InfoContext(ctx, "apply blocked by conflict",
			slog.String("path", ch.Path),
			slog.String("kind", ch.Kind.String()),
		)
		return nil, &ConflictError{Path: ch.Path}
	}

	// The snapshot is whatever the write is about to destroy. Under a
	// forced override this differs from the proposal-time baseline, and
	// rollback must restore it, not the baseline.
	snapshot := live

	if !live.Exists {
		if err := os.MkdirAll(filepath.Dir(fullPath), e.options.DirMode); err != nil {
			ch.FailureReason = err.Error()
			return nil, &WriteError{Path: ch.Path, Err: fmt.Errorf("creating parent directories: %w", err)}
		}
	}

	if err := atomicWriteFile(fullPath, []byte(ch.Proposed), e.options.FileMode); err != nil {
		ch.FailureReason = err.Error()
		e.logger.WarnContext(ctx, "apply write failed",
			slog.String("path", ch.Path),
			slog.String("error", err.Error()),
		)
		return nil, &WriteError{Path: ch.Path, Err: err}
	}

	ch.AppliedSnapshot = &snapshot
	ch.Status = change.StatusApplied
	ch.FailureReason = ""

	e.logger.InfoContext(ctx, "change applied",
		slog.String("path", ch.Path),
		slog.String("kind", ch.Kind.String()),
		slog.Int("bytes", len(ch.Proposed)),
	)

	return &Receipt{Path: ch.Path, BytesWritten: int64(len(ch.Proposed))}, nil
}

// pathLock returns the mutex serializing operations on one resolved path.
func (e *Engine) pathLock(fullPath string) *sync.Mutex {
	e.pathLocksMu.Lock()
	defer e.pathLocksMu.Unlock()

	if lock, ok := e.pathLocks[fullPath]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	e.pathLocks[fullPath] = lock
	return lock
}
