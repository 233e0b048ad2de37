// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import "errors"

// Sentinel errors for change-set operations.
var (
	// ErrSetNotFound is returned when no change-set exists for a turn id.
	ErrSetNotFound = errors.New("change-set not found")

	// ErrChangeNotFound is returned when a path has no entry in the set.
	ErrChangeNotFound = errors.New("change not found in set")

	// ErrNotPending is returned when accept or reject is requested for an
	// entry that already left the pending state.
	ErrNotPending = errors.New("change is not pending")

	// ErrAlreadyApplied is returned when a new proposal arrives for a
	// path whose current entry was already applied. Applied records are
	// never silently replaced; the caller must roll back first.
	ErrAlreadyApplied = errors.New("applied change cannot be replaced")
)
