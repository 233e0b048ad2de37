// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"encoding/json"

	"github.com/driftlock/driftlock/services/editor/change"
	"github.com/driftlock/driftlock/services/editor/registry"
)

// RegisterRequest carries raw tool-call results for one agent turn.
type RegisterRequest struct {
	// Results are the raw JSON objects produced by file-editing tool calls.
	Results []json.RawMessage `json:"results" binding:"required"`
}

// RegisterResponse reports the outcome of a batch registration.
type RegisterResponse struct {
	// Turn is the change-set identifier the batch was registered under.
	Turn string `json:"turn"`

	// Registered lists the changes now pending review.
	Registered []ChangeView `json:"registered"`

	// Dropped lists per-record errors for results that could not be
	// normalized. Dropped records never abort the rest of the batch.
	Dropped []string `json:"dropped,omitempty"`
}

// ChangeView is the wire representation of a tracked change.
type ChangeView struct {
	Path          string `json:"path"`
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Conflict      string `json:"conflict"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// viewOf converts a registry value copy to its wire form.
func viewOf(ch change.FileChange) ChangeView {
	return ChangeView{
		Path:          ch.Path,
		Kind:          ch.Kind.String(),
		Status:        ch.Status.String(),
		Conflict:      ch.Conflict.String(),
		FailureReason: ch.FailureReason,
	}
}

// SetResponse describes one change-set.
type SetResponse struct {
	Turn     string       `json:"turn"`
	Resolved bool         `json:"resolved"`
	Changes  []ChangeView `json:"changes"`
}

// TurnsResponse lists the open change-sets.
type TurnsResponse struct {
	Turns []string `json:"turns"`
}

// DecisionRequest selects a single path or, when Path is empty, the
// whole pending set.
type DecisionRequest struct {
	// Path is the workspace-relative file to act on. Empty means all
	// pending members of the set.
	Path string `json:"path"`

	// Force applies a change even when it conflicts with the live file.
	Force bool `json:"force"`
}

// AcceptResponse reports an accept outcome. For a single path only
// Applied is populated; for bulk accepts all fields may be set.
type AcceptResponse struct {
	Turn   string               `json:"turn"`
	Result registry.BatchResult `json:"result"`
}

// RejectResponse reports a reject outcome.
type RejectResponse struct {
	Turn     string   `json:"turn"`
	Rejected []string `json:"rejected"`
}

// RollbackRequest selects an applied change to revert.
type RollbackRequest struct {
	Path string `json:"path" binding:"required"`
}

// DiffResponse is a rendered review report for one change.
type DiffResponse struct {
	Path         string `json:"path"`
	Added        int    `json:"added"`
	Removed      int    `json:"removed"`
	Truncated    bool   `json:"truncated"`
	OmittedBytes int    `json:"omitted_bytes,omitempty"`
	Text         string `json:"text"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status string `json:"status"`
	Turns  int    `json:"turns"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
