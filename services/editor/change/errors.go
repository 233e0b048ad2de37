// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package change

import (
	"errors"
	"fmt"
)

// Sentinel errors for change normalization.
var (
	// ErrInvalidRecord is returned when a raw tool result cannot be
	// normalized into a FileChange. The record is dropped; batch
	// ingestion continues with the remaining records.
	ErrInvalidRecord = errors.New("invalid change record")
)

// InvalidRecordError describes why a raw tool result was rejected.
//
// It wraps ErrInvalidRecord so callers can test with errors.Is while still
// surfacing the offending path (when one was present) and a reason.
type InvalidRecordError struct {
	// Path is the file path from the record, if any could be extracted.
	Path string

	// Reason describes the malformation.
	Reason string
}

// Error implements the error interface.
func (e *InvalidRecordError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid change record: %s", e.Reason)
	}
	return fmt.Sprintf("invalid change record for %s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidRecord for errors.Is support.
func (e *InvalidRecordError) Unwrap() error {
	return ErrInvalidRecord
}
