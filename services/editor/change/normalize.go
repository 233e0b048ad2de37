// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package change

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// rawToolResult mirrors the wire shape of a completed file-write tool call.
//
// The same semantic field can arrive under either naming convention
// depending on which side of the process boundary serialized it, and the two
// forms appear interchangeably within one session. Fields are kept as raw
// JSON so one malformed field rejects only this record, not the whole batch.
type rawToolResult struct {
	Success *bool `json:"success"`

	FilePath    json.RawMessage `json:"filePath"`
	FilePathAlt json.RawMessage `json:"file_path"`

	OriginalContent    json.RawMessage `json:"originalContent"`
	OriginalContentAlt json.RawMessage `json:"original_content"`

	NewContent    json.RawMessage `json:"newContent"`
	NewContentAlt json.RawMessage `json:"new_content"`
}

// Normalize converts one raw tool-call result into a canonical FileChange.
//
// # Description
//
// Accepts both field-naming conventions ("filePath" vs "file_path" and so
// on), preferring the camelCase form when both are present and non-null.
// The empty original-content string is the "file did not exist" sentinel and
// yields KindAdded. The returned record starts Pending with conflict state
// Unknown; detection must run before the record becomes reviewable.
//
// # Inputs
//
//   - raw: JSON bytes of one tool result.
//
// # Outputs
//
//   - *FileChange: Canonical record, nil on error.
//   - error: *InvalidRecordError (wrapping ErrInvalidRecord) when the
//     record is malformed: unparseable JSON, missing path, non-string
//     content, or a tool call that reported failure. Callers ingesting a
//     batch drop the record and continue.
func Normalize(raw []byte) (*FileChange, error) {
	var r rawToolResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &InvalidRecordError{Reason: fmt.Sprintf("unparseable tool result: %v", err)}
	}

	path, ok, err := pickString(r.FilePath, r.FilePathAlt)
	if err != nil {
		return nil, &InvalidRecordError{Reason: fmt.Sprintf("path: %v", err)}
	}
	if !ok || path == "" {
		return nil, &InvalidRecordError{Reason: "missing file path"}
	}

	if r.Success != nil && !*r.Success {
		return nil, &InvalidRecordError{Path: path, Reason: "tool call reported failure"}
	}

	original, ok, err := pickString(r.OriginalContent, r.OriginalContentAlt)
	if err != nil {
		return nil, &InvalidRecordError{Path: path, Reason: fmt.Sprintf("original content: %v", err)}
	}
	if !ok {
		// Absent original content means the tool created a new file.
		original = ""
	}

	updated, ok, err := pickString(r.NewContent, r.NewContentAlt)
	if err != nil {
		return nil, &InvalidRecordError{Path: path, Reason: fmt.Sprintf("new content: %v", err)}
	}
	if !ok {
		return nil, &InvalidRecordError{Path: path, Reason: "missing new content"}
	}

	kind := KindModified
	if original == "" {
		kind = KindAdded
	}

	return &FileChange{
		Path:     path,
		Baseline: original,
		Proposed: updated,
		Kind:     kind,
		Conflict: ConflictUnknown,
		Status:   StatusPending,
	}, nil
}

var jsonNull = []byte("null")

// pickString resolves a dual-named string field.
//
// The primary (camelCase) form wins when present and non-null; otherwise the
// fallback (snake_case) form is used. A present field that is not a JSON
// string is an error. ok is false when neither form carries a value.
func pickString(primary, fallback json.RawMessage) (value string, ok bool, err error) {
	for _, raw := range []json.RawMessage{primary, fallback} {
		if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, fmt.Errorf("expected string, got %s", snippet(raw))
		}
		return s, true, nil
	}
	return "", false, nil
}

// snippet truncates raw JSON for error messages.
func snippet(raw json.RawMessage) string {
	const max = 32
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
