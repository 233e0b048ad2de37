// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package change defines the canonical data model for agent-proposed file
// edits.
//
// # Description
//
// A FileChange is one whole-file replacement proposed by the agent for one
// path. Changes are normalized from raw tool-call results (which arrive with
// inconsistent field naming across the serialization boundary), fingerprinted
// for cheap content comparison, and carried through the review lifecycle:
// conflict detection, accept/reject, apply, and rollback.
//
// # Thread Safety
//
// FileChange values are not safe for concurrent modification. The registry
// package serializes all mutations; consumers outside the registry must treat
// records as read-only.
package change

import "fmt"

// =============================================================================
// Enumerations
// =============================================================================

// Kind describes how a proposed change relates to the file's prior existence.
type Kind string

const (
	// KindAdded indicates the file did not exist when the edit was proposed.
	KindAdded Kind = "added"

	// KindModified indicates the file existed and is being replaced.
	KindModified Kind = "modified"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// ConflictState classifies a change against the file's current on-disk
// content.
type ConflictState string

const (
	// ConflictUnknown means detection has not run for this record yet.
	// It is the zero value, so a freshly built FileChange always starts
	// undetected.
	ConflictUnknown ConflictState = ""

	// ConflictClean means the live file still matches the captured baseline.
	ConflictClean ConflictState = "clean"

	// ConflictDiverged means the live file no longer matches the baseline
	// (modified, created, or deleted externally since proposal).
	ConflictDiverged ConflictState = "conflicted"
)

// String returns the string representation of the conflict state.
func (s ConflictState) String() string {
	if s == ConflictUnknown {
		return "unknown"
	}
	return string(s)
}

// Status is the review lifecycle state of a change.
type Status string

const (
	// StatusPending means the change awaits a user decision.
	StatusPending Status = "pending"

	// StatusApplied means the change has been written to disk.
	StatusApplied Status = "applied"

	// StatusRejected means the user declined the change. Terminal; a
	// rejected change must be re-proposed to re-enter review.
	StatusRejected Status = "rejected"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// =============================================================================
// Snapshot
// =============================================================================

// Snapshot records a file's exact on-disk state at a point in time,
// including whether the file existed at all.
//
// The zero value means "file did not exist", which is distinct from an
// existing empty file.
type Snapshot struct {
	// Content is the file's bytes. Meaningful only when Exists is true.
	Content string `json:"content"`

	// Exists reports whether the file was present on disk.
	Exists bool `json:"exists"`
}

// =============================================================================
// FileChange
// =============================================================================

// FileChange is one proposed whole-file edit awaiting review.
//
// # Description
//
// Path is the unique key within a ChangeSet. Baseline is the content the
// agent read at proposal time (empty string sentinel when the file did not
// exist, per the tool-result wire format). Proposed is the full replacement
// content. AppliedSnapshot is captured at the moment of a successful apply
// and is the exact state rollback restores; it can differ from Baseline when
// the user forced past a conflict.
type FileChange struct {
	// Path is the project-relative file path.
	Path string `json:"path"`

	// Baseline is the file content as read when the edit was proposed.
	// The empty string doubles as the "file did not exist" sentinel.
	Baseline string `json:"baseline"`

	// Proposed is the full new content to write.
	Proposed string `json:"proposed"`

	// Kind is derived at normalization: KindAdded iff Baseline is the
	// empty sentinel.
	Kind Kind `json:"kind"`

	// Conflict is advisory review state, set by the conflict detector.
	Conflict ConflictState `json:"conflict"`

	// Status is the review lifecycle state.
	Status Status `json:"status"`

	// AppliedSnapshot is the pre-write file state captured during apply.
	// Nil until the change has been applied at least once.
	AppliedSnapshot *Snapshot `json:"appliedSnapshot,omitempty"`

	// FailureReason is the last per-file error from a failed apply or
	// rollback attempt, kept so the reviewer can retry or discard.
	FailureReason string `json:"failureReason,omitempty"`
}

// BaselineSnapshot returns the proposal-time state as a Snapshot, mapping
// the empty-string sentinel to nonexistence.
func (c *FileChange) BaselineSnapshot() Snapshot {
	if c.Kind == KindAdded {
		return Snapshot{}
	}
	return Snapshot{Content: c.Baseline, Exists: true}
}

// Detected reports whether conflict detection has run at least once.
func (c *FileChange) Detected() bool {
	return c.Conflict != ConflictUnknown
}

// String returns a short human-readable summary of the change.
func (c *FileChange) String() string {
	return fmt.Sprintf("%s (%s, %s, %s)", c.Path, c.Kind, c.Status, c.Conflict)
}
