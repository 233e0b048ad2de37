// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package change

import (
	"strings"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	content := "package main\n\nfunc main() {}\n"
	if !SumString(content).Equal(SumString(content)) {
		t.Error("same content produced different fingerprints")
	}
	if SumString(content) != Sum([]byte(content)) {
		t.Error("Sum and SumString disagree for identical content")
	}
}

func TestFingerprint_DistinguishesContent(t *testing.T) {
	cases := [][2]string{
		{"", "\n"},
		{"a", "b"},
		{"hello\nworld", "hello\nworld\n"},
		{strings.Repeat("x", 1<<16), strings.Repeat("x", 1<<16) + "y"},
	}
	for _, pair := range cases {
		if SumString(pair[0]).Equal(SumString(pair[1])) {
			t.Errorf("distinct contents %q-prefix collided", pair[0][:min(8, len(pair[0]))])
		}
	}
}

func TestFingerprint_String(t *testing.T) {
	s := SumString("abc").String()
	if len(s) != 32 {
		t.Errorf("hex fingerprint length = %d, want 32", len(s))
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Errorf("fingerprint %q contains non-hex rune %q", s, r)
		}
	}
}
