// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package registry holds the in-flight change-sets under review.
//
// # Description
//
// A ChangeSet is the batch of proposed edits attached to one agent turn,
// keyed by path. The registry is the single owner of all lifecycle
// transitions: registration (with mandatory conflict detection before a
// record becomes reviewable), accept and reject decisions, bulk operations,
// and rollback. Change-sets live in process memory only; an abandoned batch
// is simply lost, since agent proposals are not a durable record.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Operations on one change-set
// are serialized against each other; bulk accept fans its per-file writes
// out in parallel internally. Operations on different change-sets are
// independent.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/driftlock/driftlock/services/editor/apply"
	"github.com/driftlock/driftlock/services/editor/change"
	"github.com/driftlock/driftlock/services/editor/conflict"
	"github.com/driftlock/driftlock/services/editor/diff"
)

// Options configures the registry.
type Options struct {
	// DiffLimit bounds rendered diff reports in bytes.
	// Default: diff.DefaultLimit.
	DiffLimit int

	// WatchEnabled turns on the fsnotify drift watcher, which flags
	// pending entries as conflicted when their files change externally.
	WatchEnabled bool

	// ApplyConcurrency bounds parallel per-file writes during bulk
	// accept. Default: 8.
	ApplyConcurrency int

	// Logger for structured logging. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		DiffLimit:        diff.DefaultLimit,
		WatchEnabled:     false,
		ApplyConcurrency: 8,
	}
}

// ChangeSet is the reviewable batch for one agent turn.
//
// The mutex serializes every operation touching the batch, including the
// file I/O of accept and rollback, so no two writers ever target the same
// path through one set.
type ChangeSet struct {
	// ID is the agent turn (message) identifier the batch belongs to.
	ID string

	mu      sync.Mutex
	entries map[string]*change.FileChange
	order   []string
}

// Registry owns all open change-sets.
type Registry struct {
	detector *conflict.Detector
	engine   *apply.Engine
	options  Options
	logger   *slog.Logger
	watcher  *conflict.Watcher

	mu   sync.RWMutex
	sets map[string]*ChangeSet
}

// NewRegistry creates a registry over the given detector and apply engine.
//
// # Inputs
//
//   - detector: Conflict detector for the workspace. Must not be nil.
//   - engine: Apply engine for the same workspace. Must not be nil.
//   - options: Registry options. Use DefaultOptions() for defaults.
//
// # Outputs
//
//   - *Registry: Ready-to-use registry. Call Start to enable the drift
//     watcher when WatchEnabled is set, and Close when done.
//   - error: Non-nil if a collaborator is missing or the watcher could
//     not be created.
func NewRegistry(detector *conflict.Detector, engine *apply.Engine, options Options) (*Registry, error) {
	if detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if options.DiffLimit <= 0 {
		options.DiffLimit = diff.DefaultLimit
	}
	if options.ApplyConcurrency <= 0 {
		options.ApplyConcurrency = 8
	}
	if options.Logger == nil {
		options.Logger = slog.Default().With("component", "registry.Registry")
	}

	r := &Registry{
		detector: detector,
		engine:   engine,
		options:  options,
		logger:   options.Logger,
		sets:     make(map[string]*ChangeSet),
	}

	if options.WatchEnabled {
		watcher, err := conflict.NewWatcher(detector, r.markDrifted, nil)
		if err != nil {
			return nil, fmt.Errorf("creating drift watcher: %w", err)
		}
		r.watcher = watcher
	}

	return r, nil
}

// Start begins background drift watching, when enabled. Idempotent.
func (r *Registry) Start(ctx context.Context) {
	if r.watcher != nil {
		r.watcher.Start(ctx)
	}
}

// Close releases the drift watcher. Open change-sets are left in place.
func (r *Registry) Close() {
	if r.watcher != nil {
		r.watcher.Stop()
	}
}

// Register inserts a normalized change into the turn's set, creating the
// set on first use.
//
// # Description
//
// Conflict detection runs before the entry becomes visible for review; a
// record is never reviewable with an unknown conflict state. A later
// proposal for the same path replaces the earlier pending one
// (last-write-wins within a batch), but an already-applied record is never
// silently replaced - the caller gets ErrAlreadyApplied and must roll back
// first. A previously rejected entry is replaced: re-proposing is the only
// way a rejected path re-enters review.
//
// # Outputs
//
//   - error: ErrAlreadyApplied, a path validation error, or a detection
//     I/O error. The change is not inserted on error.
func (r *Registry) Register(ctx context.Context, turnID string, ch *change.FileChange) error {
	if ch == nil {
		return fmt.Errorf("change is required")
	}

	cs := r.set(turnID, true)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if existing, ok := cs.entries[ch.Path]; ok && existing.Status == change.StatusApplied {
		return fmt.Errorf("register %s: %w", ch.Path, ErrAlreadyApplied)
	}

	if _, err := r.detector.Detect(ctx, ch); err != nil {
		return fmt.Errorf("detecting %s: %w", ch.Path, err)
	}

	if _, ok := cs.entries[ch.Path]; !ok {
		cs.order = append(cs.order, ch.Path)
	}
	cs.entries[ch.Path] = ch

	if r.watcher != nil {
		if err := r.watcher.Track(ch.Path); err != nil {
			r.logger.Warn("drift watch unavailable for path",
				slog.String("path", ch.Path),
				slog.String("error", err.Error()),
			)
		}
	}

	r.logger.Info("change registered",
		slog.String("turn", turnID),
		slog.String("path", ch.Path),
		slog.String("kind", ch.Kind.String()),
		slog.String("conflict", ch.Conflict.String()),
	)
	return nil
}

// Ingest normalizes and registers a batch of raw tool-call results.
//
// Malformed records are dropped and reported; they never abort the rest of
// the batch.
//
// # Outputs
//
//   - []*change.FileChange: The registered records, in input order.
//   - []error: One error per dropped record.
func (r *Registry) Ingest(ctx context.Context, turnID string, raws [][]byte) ([]*change.FileChange, []error) {
	var registered []*change.FileChange
	var dropped []error

	for _, raw := range raws {
		ch, err := change.Normalize(raw)
		if err != nil {
			dropped = append(dropped, err)
			continue
		}
		if err := r.Register(ctx, turnID, ch); err != nil {
			dropped = append(dropped, err)
			continue
		}
		registered = append(registered, ch)
	}

	if len(dropped) > 0 {
		r.logger.Warn("records dropped during ingest",
			slog.String("turn", turnID),
			slog.Int("dropped", len(dropped)),
			slog.Int("registered", len(registered)),
		)
	}
	return registered, dropped
}

// Get returns a copy of one entry.
func (r *Registry) Get(turnID, path string) (change.FileChange, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return change.FileChange{}, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	ch, ok := cs.entries[path]
	if !ok {
		return change.FileChange{}, fmt.Errorf("%s: %w", path, ErrChangeNotFound)
	}
	return *ch, nil
}

// List returns copies of all entries in registration order.
func (r *Registry) List(turnID string) ([]change.FileChange, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return nil, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	out := make([]change.FileChange, 0, len(cs.order))
	for _, path := range cs.order {
		out = append(out, *cs.entries[path])
	}
	return out, nil
}

// Resolved reports whether every member has left the pending state, which
// makes the set eligible for panel auto-dismiss. A set with any pending
// member stays open so applied changes can be reviewed alongside pending
// ones.
func (r *Registry) Resolved(turnID string) (bool, error) {
	cs := r.set(turnID, false)
	if cs == nil {
		return false, fmt.Errorf("turn %s: %w", turnID, ErrSetNotFound)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, ch := range cs.entries {
		if ch.Status == change.StatusPending {
			return false, nil
		}
	}
	return true, nil
}

// Discard drops a change-set from review. Applied files stay applied;
// nothing on disk is touched.
func (r *Registry) Discard(turnID string) {
	r.mu.Lock()
	cs, ok := r.sets[turnID]
	delete(r.sets, turnID)
	r.mu.Unlock()

	if !ok {
		return
	}

	if r.watcher != nil {
		cs.mu.Lock()
		for _, path := range cs.order {
			r.watcher.Untrack(path)
		}
		cs.mu.Unlock()
	}

	r.logger.Info("change-set discarded", slog.String("turn", turnID))
}

// Turns returns the ids of all open change-sets.
func (r *Registry) Turns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.sets))
	for id := range r.sets {
		out = append(out, id)
	}
	return out
}

// Report summarizes one entry's (baseline, proposed) pair for display and
// for the tool-result text fed back to the agent.
func (r *Registry) Report(turnID, path string) (*diff.Report, error) {
	ch, err := r.Get(turnID, path)
	if err != nil {
		return nil, err
	}
	return diff.Summarize(ch.Baseline, ch.Proposed, r.options.DiffLimit), nil
}

// set returns the change-set for a turn, optionally creating it.
func (r *Registry) set(turnID string, create bool) *ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs, ok := r.sets[turnID]
	if !ok && create {
		cs = &ChangeSet{
			ID:      turnID,
			entries: make(map[string]*change.FileChange),
		}
		r.sets[turnID] = cs
	}
	return cs
}

// markDrifted flags pending entries whose files changed externally. The
// classification is advisory; apply re-detects inside its critical section
// regardless.
func (r *Registry) markDrifted(paths []string) {
	drifted := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drifted[p] = struct{}{}
	}

	r.mu.RLock()
	sets := make([]*ChangeSet, 0, len(r.sets))
	for _, cs := range r.sets {
		sets = append(sets, cs)
	}
	r.mu.RUnlock()

	for _, cs := range sets {
		cs.mu.Lock()
		for path, ch := range cs.entries {
			if _, ok := drifted[path]; !ok {
				continue
			}
			if ch.Status != change.StatusPending {
				continue
			}
			if ch.Conflict != change.ConflictDiverged {
				ch.Conflict = change.ConflictDiverged
				r.logger.Info("pending change drifted on disk",
					slog.String("turn", cs.ID),
					slog.String("path", path),
				)
			}
		}
		cs.mu.Unlock()
	}
}
