// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package diff derives line-oriented change reports for review and for the
// text fed back into the agent transcript.
//
// # Description
//
// Reports are computed from (baseline, updated) content pairs, not from
// patches: changes in this system are whole-file replacements, so the diff
// is purely derived presentation. Unchanged lines are omitted from the
// delta; total line counts for both sides are always recorded. Oversized
// reports are truncated with an explicit omission marker - a consumer must
// never receive a payload that looks complete but was silently cut.
//
// # Thread Safety
//
// Reports are immutable after creation and safe for concurrent reads.
package diff

import (
	"fmt"
	"strings"
)

// DefaultLimit is the default report size bound in bytes. Tunable via
// configuration; not a hard contract.
const DefaultLimit = 50_000

// LineKind marks a delta line as added or removed.
type LineKind string

const (
	// LineAdded marks a line present only in the updated content.
	LineAdded LineKind = "+"

	// LineRemoved marks a line present only in the baseline content.
	LineRemoved LineKind = "-"
)

// Line is one delta line in a report.
type Line struct {
	// Kind is added or removed.
	Kind LineKind `json:"kind"`

	// Number is the 1-based line number in the side the line belongs to:
	// the baseline for removed lines, the updated content for added ones.
	Number int `json:"number"`

	// Text is the line content without a trailing newline.
	Text string `json:"text"`
}

// String returns the rendered form of the line.
func (l Line) String() string {
	return fmt.Sprintf("%s%d: %s", l.Kind, l.Number, l.Text)
}

// Report is a line-oriented summary of one whole-file change.
type Report struct {
	// BaselineLines is the total line count of the baseline content.
	BaselineLines int `json:"baselineLines"`

	// UpdatedLines is the total line count of the updated content.
	UpdatedLines int `json:"updatedLines"`

	// Added is the number of added lines.
	Added int `json:"added"`

	// Removed is the number of removed lines.
	Removed int `json:"removed"`

	// Entries are the delta lines, in document order. Unchanged lines are
	// omitted.
	Entries []Line `json:"entries"`

	// Truncated reports whether the rendered text was size-bounded.
	Truncated bool `json:"truncated"`

	// OmittedBytes is the number of rendered bytes dropped by truncation.
	OmittedBytes int `json:"omittedBytes,omitempty"`

	// Text is the rendered report, including the omission marker when
	// truncated.
	Text string `json:"text"`
}

// countLines counts newline-delimited lines; empty content has zero lines.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
