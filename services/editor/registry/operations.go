// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/driftlock/driftlock/services/editor/apply"
	"github.com/driftlock/driftlock/services/editor/change"
)

// Failure is one per-file error from a bulk operation.
type Failure struct {
	// Path is the change path that failed.
	Path string `json:"path"`

	// Reason is the error message.
	Reason string `json:"reason"`

	// Conflicted is true when the failure was a conflict rather than an
	// I/O error, so the caller can offer a force re-prompt.
	Conflicted bool `json:"conflicted"`
}

// BatchResult aggregates a bulk operation over one change-set.
//
// Per-file failures never abort the batch: every member is attempted, the
// succeeded stay succeeded, and the failed stay pending with their reason
// attached for individual retry or discard.
type BatchResult struct {
	// Applied lists receipts for members that reached applied.
	Applied []apply.Receipt `json:"applied"`

	// Rejected lists paths that were rejected.
	Rejected []string `json:"rejected"`

	// Failed lists per-file failures.
	Failed []Failure `json:"failed"`
}

// AcceptOne applies one pending entry and transitions it to applied.
//
// # Description
//
// The apply engine re-runs conflict detection inside its critical section;
// a conflicted entry fails with apply.ErrConflict unless force is set. On
// failure the entry stays pending with the reason attached.
//
// # Outputs
//
//   - *apply.Receipt: Non-nil on success.
//   - error: ErrSetNotFound, ErrChangeNotFound, ErrNotPending, or an
//     apply error.
func (r *Registry) AcceptOne(ctx context.Context, turnID, path string, force bool) (*apply.Receipt, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return nil, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.entries[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrChangeNotFound)
	}
	if ch.Status != change.StatusPending {
		return nil, fmt.Errorf("%s is %s: %w", path, ch.Status, ErrNotPending)
	}

	receipt, err := r.engine.Apply(ctx, ch, force)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// RejectOne marks one pending entry rejected. Terminal: the path must be
// re-proposed to re-enter the set.
func (r *Registry) RejectOne(ctx context.Context, turnID, path string) error {
	cs := r.set(turnID, false)
	if cs == nil {
		return fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.entries[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrChangeNotFound)
	}
	if ch.Status != change.StatusPending {
		return fmt.Errorf("%s is %s: %w", path, ch.Status, ErrNotPending)
	}

	ch.Status = change.StatusRejected
	if r.watcher != nil {
		r.watcher.Untrack(path)
	}

	r.logger.InfoContext(ctx, "change rejected",
		slog.String("turn", turnID),
		slog.String("path", path),
	)
	return nil
}

// AcceptAll applies every pending member of the set.
//
// # Description
//
// Per-file writes fan out in parallel, bounded by ApplyConcurrency; the
// apply engine's per-path locking keeps each detect-then-write atomic.
// Batch-level atomicity is deliberately not provided: one file's failure
// neither aborts nor rolls back its siblings. Members already applied or
// rejected are skipped.
//
// # Outputs
//
//   - *BatchResult: Receipts for the applied and reasons for the failed.
//   - error: ErrSetNotFound; per-file errors are in the result instead.
func (r *Registry) AcceptAll(ctx context.Context, turnID string, force bool) (*BatchResult, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return nil, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	var pending []*change.FileChange
	for _, path := range cs.order {
		if ch := cs.entries[path]; ch.Status == change.StatusPending {
			pending = append(pending, ch)
		}
	}

	result := &BatchResult{}
	var resultMu sync.Mutex

	g := &errgroup.Group{}
	g.SetLimit(r.options.ApplyConcurrency)
	for _, ch := range pending {
		g.Go(func() error {
			receipt, err := r.engine.Apply(ctx, ch, force)

			resultMu.Lock()
			defer resultMu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, Failure{
					Path:       ch.Path,
					Reason:     err.Error(),
					Conflicted: errors.Is(err, apply.ErrConflict),
				})
				return nil
			}
			result.Applied = append(result.Applied, *receipt)
			return nil
		})
	}
	g.Wait()

	sortBatchResult(result)

	r.logger.InfoContext(ctx, "bulk accept finished",
		slog.String("turn", turnID),
		slog.Int("applied", len(result.Applied)),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// RejectAll rejects every pending member of the set. Applied members keep
// their status; rejecting a batch never reverts files already on disk.
func (r *Registry) RejectAll(ctx context.Context, turnID string) (*BatchResult, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return nil, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	result := &BatchResult{}
	for _, path := range cs.order {
		ch := cs.entries[path]
		if ch.Status != change.StatusPending {
			continue
		}
		ch.Status = change.StatusRejected
		if r.watcher != nil {
			r.watcher.Untrack(path)
		}
		result.Rejected = append(result.Rejected, path)
	}

	r.logger.InfoContext(ctx, "bulk reject finished",
		slog.String("turn", turnID),
		slog.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// Rollback reverts one applied entry to its pre-apply snapshot and returns
// it to pending for re-review. Valid independent of whether the batch is
// otherwise resolved.
func (r *Registry) Rollback(ctx context.Context, turnID, path string) error {
	cs := r.set(turnID, false)
	if cs == nil {
		return fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.entries[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrChangeNotFound)
	}

	if err := r.engine.Rollback(ctx, ch); err != nil {
		return err
	}

	// Back under review: detection must run again before the entry is
	// reviewable.
	if _, err := r.detector.Detect(ctx, ch); err != nil {
		r.logger.WarnContext(ctx, "re-detection after rollback failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// sortBatchResult orders bulk results by path for stable output.
func sortBatchResult(result *BatchResult) {
	sort.Slice(result.Applied, func(i, j int) bool {
		return result.Applied[i].Path < result.Applied[j].Path
	})
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Path < result.Failed[j].Path
	})
	sort.Strings(result.Rejected)
}
