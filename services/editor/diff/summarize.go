// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summarize builds a line-oriented report for a (baseline, updated) pair.
//
// # Description
//
// The diff runs in line mode so large files stay cheap and the delta reads
// as whole lines. When the rendered report exceeds limit bytes, it is cut
// at a line boundary and annotated with an explicit "…N bytes omitted…"
// marker. limit <= 0 uses DefaultLimit.
//
// # Inputs
//
//   - baseline: Content at proposal time ("" for a new file).
//   - updated: Proposed content.
//   - limit: Byte bound for the rendered report.
//
// # Outputs
//
//   - *Report: Delta lines, line counts, and rendered text.
func Summarize(baseline, updated string, limit int) *Report {
	if limit <= 0 {
		limit = DefaultLimit
	}

	report := &Report{
		BaselineLines: countLines(baseline),
		UpdatedLines:  countLines(updated),
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(baseline, updated)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	oldLine, newLine := 1, 1
	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffDelete:
			for _, text := range lines {
				report.Entries = append(report.Entries, Line{Kind: LineRemoved, Number: oldLine, Text: text})
				report.Removed++
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			for _, text := range lines {
				report.Entries = append(report.Entries, Line{Kind: LineAdded, Number: newLine, Text: text})
				report.Added++
				newLine++
			}
		}
	}

	report.Text = render(report)

	if len(report.Text) > limit {
		report.Text, report.OmittedBytes = truncate(report.Text, limit)
		report.Truncated = true
	}

	return report
}

// render produces the full textual report.
func render(r *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- baseline (%d lines)\n", r.BaselineLines)
	fmt.Fprintf(&b, "+++ updated (%d lines, +%d -%d)\n", r.UpdatedLines, r.Added, r.Removed)
	for _, line := range r.Entries {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// truncate cuts rendered text at a line boundary within limit bytes and
// appends the omission marker.
func truncate(text string, limit int) (string, int) {
	cut := limit
	if idx := strings.LastIndexByte(text[:limit], '\n'); idx > 0 {
		cut = idx + 1
	}
	omitted := len(text) - cut
	return text[:cut] + fmt.Sprintf("…%d bytes omitted…\n", omitted), omitted
}

// splitLines splits diff chunk text into lines without trailing newlines.
func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
