// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package change

import (
	"errors"
	"testing"
)

func TestNormalize_FieldNamingCompatibility(t *testing.T) {
	camel := []byte(`{
		"success": true,
		"filePath": "src/main.go",
		"originalContent": "old\n",
		"newContent": "new\n"
	}`)
	snake := []byte(`{
		"success": true,
		"file_path": "src/main.go",
		"original_content": "old\n",
		"new_content": "new\n"
	}`)

	a, err := Normalize(camel)
	if err != nil {
		t.Fatalf("Normalize(camel) error = %v", err)
	}
	b, err := Normalize(snake)
	if err != nil {
		t.Fatalf("Normalize(snake) error = %v", err)
	}

	if *a != *b {
		t.Errorf("camelCase and snake_case inputs normalized differently:\n%+v\n%+v", a, b)
	}
}

func TestNormalize_PrefersCamelCaseWhenBothPresent(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"filePath": "a.txt",
		"file_path": "b.txt",
		"originalContent": "camel",
		"original_content": "snake",
		"newContent": "x",
		"new_content": "y"
	}`)

	ch, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ch.Path != "a.txt" {
		t.Errorf("Path = %q, want camelCase value %q", ch.Path, "a.txt")
	}
	if ch.Baseline != "camel" {
		t.Errorf("Baseline = %q, want %q", ch.Baseline, "camel")
	}
	if ch.Proposed != "x" {
		t.Errorf("Proposed = %q, want %q", ch.Proposed, "x")
	}
}

func TestNormalize_NullCamelFallsBackToSnake(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"filePath": null,
		"file_path": "fallback.txt",
		"newContent": "content"
	}`)

	ch, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ch.Path != "fallback.txt" {
		t.Errorf("Path = %q, want %q", ch.Path, "fallback.txt")
	}
}

func TestNormalize_KindDerivation(t *testing.T) {
	t.Run("empty_original_is_added", func(t *testing.T) {
		ch, err := Normalize([]byte(`{"filePath": "new.go", "originalContent": "", "newContent": "x"}`))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if ch.Kind != KindAdded {
			t.Errorf("Kind = %v, want %v", ch.Kind, KindAdded)
		}
	})

	t.Run("absent_original_is_added", func(t *testing.T) {
		ch, err := Normalize([]byte(`{"filePath": "new.go", "newContent": "x"}`))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if ch.Kind != KindAdded {
			t.Errorf("Kind = %v, want %v", ch.Kind, KindAdded)
		}
	})

	t.Run("nonempty_original_is_modified", func(t *testing.T) {
		ch, err := Normalize([]byte(`{"filePath": "old.go", "originalContent": "y", "newContent": "x"}`))
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if ch.Kind != KindModified {
			t.Errorf("Kind = %v, want %v", ch.Kind, KindModified)
		}
	})
}

func TestNormalize_InitialLifecycleState(t *testing.T) {
	ch, err := Normalize([]byte(`{"filePath": "f.go", "originalContent": "a", "newContent": "b"}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ch.Status != StatusPending {
		t.Errorf("Status = %v, want %v", ch.Status, StatusPending)
	}
	if ch.Conflict != ConflictUnknown {
		t.Errorf("Conflict = %v, want %v", ch.Conflict, ConflictUnknown)
	}
	if ch.AppliedSnapshot != nil {
		t.Error("AppliedSnapshot should be nil before any apply")
	}
}

func TestNormalize_Malformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing_path", `{"success": true, "newContent": "x"}`},
		{"empty_path", `{"filePath": "", "newContent": "x"}`},
		{"non_string_path", `{"filePath": 42, "newContent": "x"}`},
		{"non_string_new_content", `{"filePath": "f.go", "newContent": 7}`},
		{"non_string_original_content", `{"filePath": "f.go", "originalContent": ["x"], "newContent": "y"}`},
		{"missing_new_content", `{"filePath": "f.go", "originalContent": "x"}`},
		{"failed_tool_call", `{"success": false, "filePath": "f.go", "newContent": "x"}`},
		{"not_json", `not json at all`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error for malformed record")
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("error %v does not wrap ErrInvalidRecord", err)
			}
			var ire *InvalidRecordError
			if !errors.As(err, &ire) {
				t.Errorf("error %v is not an *InvalidRecordError", err)
			}
		})
	}
}

func TestBaselineSnapshot(t *testing.T) {
	added := &FileChange{Path: "a", Kind: KindAdded}
	if snap := added.BaselineSnapshot(); snap.Exists {
		t.Error("added change baseline should not exist")
	}

	modified := &FileChange{Path: "b", Kind: KindModified, Baseline: "content"}
	snap := modified.BaselineSnapshot()
	if !snap.Exists || snap.Content != "content" {
		t.Errorf("modified baseline snapshot = %+v, want existing content", snap)
	}
}
