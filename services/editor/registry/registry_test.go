// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlock/driftlock/services/editor/apply"
	"github.com/driftlock/driftlock/services/editor/change"
	"github.com/driftlock/driftlock/services/editor/conflict"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	root := t.TempDir()

	detector, err := conflict.NewDetector(root)
	require.NoError(t, err)

	opts := apply.DefaultOptions()
	opts.MetricsEnabled = false
	opts.TracingEnabled = false
	engine, err := apply.NewEngine(detector, opts)
	require.NoError(t, err)

	reg, err := NewRegistry(detector, engine, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	return reg, root
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func modified(path, baseline, proposed string) *change.FileChange {
	return &change.FileChange{
		Path:     path,
		Baseline: baseline,
		Proposed: proposed,
		Kind:     change.KindModified,
		Conflict: change.ConflictUnknown,
		Status:   change.StatusPending,
	}
}

func added(path, proposed string) *change.FileChange {
	return &change.FileChange{
		Path:     path,
		Proposed: proposed,
		Kind:     change.KindAdded,
		Conflict: change.ConflictUnknown,
		Status:   change.StatusPending,
	}
}

func TestRegister_RunsDetectionBeforeVisibility(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "baseline\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "update\n")))

	got, err := reg.Get("turn-1", "a.go")
	require.NoError(t, err)
	assert.Equal(t, change.ConflictClean, got.Conflict, "record visible without detection having run")
}

func TestRegister_LastWriteWinsWithinBatch(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "baseline\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "first proposal\n")))
	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "second proposal\n")))

	list, err := reg.List("turn-1")
	require.NoError(t, err)
	require.Len(t, list, 1, "same path must hold exactly one entry")

	// Only the second proposal is visible to accept.
	receipt, err := reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)
	assert.Equal(t, int64(len("second proposal\n")), receipt.BytesWritten)

	content, err := os.ReadFile(filepath.Join(root, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "second proposal\n", string(content))
}

func TestRegister_NeverSilentlyReplacesApplied(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "baseline\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "applied\n")))
	_, err := reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)

	err = reg.Register(ctx, "turn-1", modified("a.go", "applied\n", "another\n"))
	assert.ErrorIs(t, err, ErrAlreadyApplied)
}

func TestRegister_RejectedPathReentersViaReproposal(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "baseline\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "v1\n")))
	require.NoError(t, reg.RejectOne(ctx, "turn-1", "a.go"))

	// No direct rejected -> applied transition.
	_, err := reg.AcceptOne(ctx, "turn-1", "a.go", false)
	assert.ErrorIs(t, err, ErrNotPending)

	// Re-proposal replaces the rejected entry and is acceptable again.
	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "baseline\n", "v2\n")))
	_, err = reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)
}

func TestAcceptAll_PartialBatchIndependence(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()

	writeFile(t, root, "ok1.go", "one\n")
	writeFile(t, root, "conflicted.go", "two\n")
	writeFile(t, root, "ok2.go", "three\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("ok1.go", "one\n", "ONE\n")))
	require.NoError(t, reg.Register(ctx, "turn-1", modified("conflicted.go", "two\n", "TWO\n")))
	require.NoError(t, reg.Register(ctx, "turn-1", modified("ok2.go", "three\n", "THREE\n")))

	// External edit after registration forces the middle file to fail.
	writeFile(t, root, "conflicted.go", "drifted\n")

	result, err := reg.AcceptAll(ctx, "turn-1", false)
	require.NoError(t, err)

	require.Len(t, result.Applied, 2, "siblings of a failed file must still apply")
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "conflicted.go", result.Failed[0].Path)
	assert.True(t, result.Failed[0].Conflicted)

	// Failed member stays pending with its reason; siblings keep applied.
	entry, err := reg.Get("turn-1", "conflicted.go")
	require.NoError(t, err)
	assert.Equal(t, change.StatusPending, entry.Status)
	assert.NotEmpty(t, entry.FailureReason)

	for _, path := range []string{"ok1.go", "ok2.go"} {
		entry, err := reg.Get("turn-1", path)
		require.NoError(t, err)
		assert.Equal(t, change.StatusApplied, entry.Status, path)
	}

	resolved, err := reg.Resolved("turn-1")
	require.NoError(t, err)
	assert.False(t, resolved, "set with a pending member stays open")
}

func TestRejectAll_SkipsAppliedMembers(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()

	writeFile(t, root, "keep.go", "a\n")
	writeFile(t, root, "drop.go", "b\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("keep.go", "a\n", "A\n")))
	require.NoError(t, reg.Register(ctx, "turn-1", modified("drop.go", "b\n", "B\n")))

	_, err := reg.AcceptOne(ctx, "turn-1", "keep.go", false)
	require.NoError(t, err)

	result, err := reg.RejectAll(ctx, "turn-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"drop.go"}, result.Rejected)

	applied, err := reg.Get("turn-1", "keep.go")
	require.NoError(t, err)
	assert.Equal(t, change.StatusApplied, applied.Status, "reject all must not revert applied files")

	resolved, err := reg.Resolved("turn-1")
	require.NoError(t, err)
	assert.True(t, resolved)
}

func TestRollback_ReentersReview(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "original\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "original\n", "applied\n")))
	_, err := reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)

	require.NoError(t, reg.Rollback(ctx, "turn-1", "a.go"))

	content, err := os.ReadFile(filepath.Join(root, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "original\n", string(content))

	entry, err := reg.Get("turn-1", "a.go")
	require.NoError(t, err)
	assert.Equal(t, change.StatusPending, entry.Status)
	assert.True(t, entry.Detected(), "detection must re-run after rollback")

	// The user can decide again.
	_, err = reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)
}

func TestIngest_DropsMalformedAndContinues(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "good.go", "old\n")

	raws := [][]byte{
		[]byte(`{"filePath": "good.go", "originalContent": "old\n", "newContent": "new\n"}`),
		[]byte(`{"newContent": "no path"}`),
		[]byte(`{"file_path": "snake.go", "new_content": "fresh\n"}`),
	}

	registered, dropped := reg.Ingest(ctx, "turn-1", raws)
	assert.Len(t, registered, 2)
	require.Len(t, dropped, 1)
	assert.ErrorIs(t, dropped[0], change.ErrInvalidRecord)

	list, err := reg.List("turn-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReport_SummarizesEntry(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "a\nb\nc")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "a\nb\nc", "a\nX\nc")))

	report, err := reg.Report("turn-1", "a.go")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Removed)
	assert.Contains(t, report.Text, "-2: b")
	assert.Contains(t, report.Text, "+2: X")
}

func TestDiscard_DropsSetWithoutTouchingDisk(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()
	writeFile(t, root, "a.go", "original\n")

	require.NoError(t, reg.Register(ctx, "turn-1", modified("a.go", "original\n", "applied\n")))
	_, err := reg.AcceptOne(ctx, "turn-1", "a.go", false)
	require.NoError(t, err)

	reg.Discard("turn-1")

	_, err = reg.Get("turn-1", "a.go")
	assert.ErrorIs(t, err, ErrSetNotFound)

	content, err := os.ReadFile(filepath.Join(root, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "applied\n", string(content), "discard must not revert applied files")
	assert.Empty(t, reg.Turns())
}

func TestSetsAreIndependentAcrossTurns(t *testing.T) {
	reg, root := newTestRegistry(t)
	ctx := context.Background()

	writeFile(t, root, "shared.go", "base\n")
	require.NoError(t, reg.Register(ctx, "turn-1", modified("shared.go", "base\n", "one\n")))
	require.NoError(t, reg.Register(ctx, "turn-2", added("other.go", "two\n")))

	list1, err := reg.List("turn-1")
	require.NoError(t, err)
	list2, err := reg.List("turn-2")
	require.NoError(t, err)

	assert.Len(t, list1, 1)
	assert.Len(t, list2, 1)
	assert.NotEqual(t, list1[0].Path, list2[0].Path)
}
