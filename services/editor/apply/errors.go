// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apply

import (
	"errors"
	"fmt"
)

// Sentinel errors for apply and rollback operations.
var (
	// ErrConflict is returned when the live file diverged from the
	// baseline and force was not set. Recoverable: the user re-reviews
	// or applies with force.
	ErrConflict = errors.New("live content conflicts with baseline")

	// ErrWriteFailed is returned on an I/O failure during apply or
	// rollback. The target file is left untouched and the operation can
	// be retried.
	ErrWriteFailed = errors.New("write failed")

	// ErrNotApplied is returned when rollback is requested for a change
	// that is not in the applied state.
	ErrNotApplied = errors.New("change is not applied")

	// ErrBaselineMissing is returned when an applied change has no
	// captured snapshot to restore. The state machine makes this
	// unreachable; if it surfaces, it is a defect, not a retryable
	// condition.
	ErrBaselineMissing = errors.New("no baseline snapshot captured")
)

// ConflictError reports a conflict that blocked an apply.
type ConflictError struct {
	// Path is the change path that conflicted.
	Path string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Path, ErrConflict)
}

// Unwrap returns ErrConflict for errors.Is support.
func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// WriteError reports an I/O failure during apply or rollback. The target
// file's pre-operation content is intact.
type WriteError struct {
	// Path is the change path whose write failed.
	Path string

	// Err is the underlying I/O error.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports ErrWriteFailed so callers can classify without inspecting the
// underlying cause.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}
