// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/driftlock/driftlock/services/editor/apply"
	"github.com/driftlock/driftlock/services/editor/conflict"
	"github.com/driftlock/driftlock/services/editor/registry"
	"github.com/driftlock/driftlock/services/editor/telemetry"
)

// Handlers contains the HTTP handlers for the change-review API.
//
// Thread Safety: Handlers is safe for concurrent use.
type Handlers struct {
	reg    *registry.Registry
	logger *slog.Logger
}

// NewHandlers creates handlers wrapping the given registry.
//
// Inputs:
//
//	reg - The change-set registry. Must not be nil.
//	logger - Base logger. Nil falls back to slog.Default().
//
// Outputs:
//
//	*Handlers - The configured handlers.
func NewHandlers(reg *registry.Registry, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		reg:    reg,
		logger: logger.With("component", "api"),
	}
}

// HandleRegister handles POST /v1/changes/:turn/register.
//
// Description:
//
//	Normalizes a batch of raw tool-call results and registers them for
//	review under the turn. Malformed records are dropped and reported;
//	they never abort the rest of the batch.
//
// Response:
//
//	200 OK: RegisterResponse
//	400 Bad Request: Invalid request body
func (h *Handlers) HandleRegister(c *gin.Context) {
	turn := c.Param("turn")
	logger := telemetry.LoggerWithTurn(c.Request.Context(), h.logger, turn).
		With("request_id", getOrCreateRequestID(c))

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	raws := make([][]byte, len(req.Results))
	for i, r := range req.Results {
		raws[i] = []byte(r)
	}

	registered, dropped := h.reg.Ingest(c.Request.Context(), turn, raws)

	resp := RegisterResponse{Turn: turn}
	for _, ch := range registered {
		resp.Registered = append(resp.Registered, viewOf(*ch))
	}
	for _, err := range dropped {
		resp.Dropped = append(resp.Dropped, err.Error())
	}

	logger.Info("batch registered",
		"registered", len(resp.Registered),
		"dropped", len(resp.Dropped))
	c.JSON(http.StatusOK, resp)
}

// HandleTurns handles GET /v1/changes.
func (h *Handlers) HandleTurns(c *gin.Context) {
	c.JSON(http.StatusOK, TurnsResponse{Turns: h.reg.Turns()})
}

// HandleSet handles GET /v1/changes/:turn.
//
// Response:
//
//	200 OK: SetResponse
//	404 Not Found: Unknown turn
func (h *Handlers) HandleSet(c *gin.Context) {
	turn := c.Param("turn")

	changes, err := h.reg.List(turn)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}
	resolved, err := h.reg.Resolved(turn)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}

	resp := SetResponse{Turn: turn, Resolved: resolved}
	for _, ch := range changes {
		resp.Changes = append(resp.Changes, viewOf(ch))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDiff handles GET /v1/changes/:turn/diff.
//
// Query Parameters:
//
//	path: Workspace-relative file to report on (required).
//
// Response:
//
//	200 OK: DiffResponse
//	400 Bad Request: Missing path
//	404 Not Found: Unknown turn or path
func (h *Handlers) HandleDiff(c *gin.Context) {
	turn := c.Param("turn")
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "path query parameter is required",
			Code:  "MISSING_PATH",
		})
		return
	}

	report, err := h.reg.Report(turn, path)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}

	c.JSON(http.StatusOK, DiffResponse{
		Path:         path,
		Added:        report.Added,
		Removed:      report.Removed,
		Truncated:    report.Truncated,
		OmittedBytes: report.OmittedBytes,
		Text:         report.Text,
	})
}

// HandleAccept handles POST /v1/changes/:turn/accept.
//
// Description:
//
//	Applies one pending change when the body names a path, or every
//	pending member of the set when it does not. Per-file failures are
//	reported in the result, never as a request failure.
//
// Response:
//
//	200 OK: AcceptResponse
//	404 Not Found: Unknown turn or path
//	409 Conflict: Single-path accept blocked by a conflict or state
func (h *Handlers) HandleAccept(c *gin.Context) {
	turn := c.Param("turn")
	logger := telemetry.LoggerWithTurn(c.Request.Context(), h.logger, turn).
		With("request_id", getOrCreateRequestID(c))

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if req.Path != "" {
		receipt, err := h.reg.AcceptOne(c.Request.Context(), turn, req.Path, req.Force)
		if err != nil {
			h.writeError(c, turn, err)
			return
		}
		c.JSON(http.StatusOK, AcceptResponse{
			Turn:   turn,
			Result: registry.BatchResult{Applied: []apply.Receipt{*receipt}},
		})
		return
	}

	result, err := h.reg.AcceptAll(c.Request.Context(), turn, req.Force)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}
	c.JSON(http.StatusOK, AcceptResponse{Turn: turn, Result: *result})
}

// HandleReject handles POST /v1/changes/:turn/reject.
//
// Response:
//
//	200 OK: RejectResponse
//	404 Not Found: Unknown turn or path
//	409 Conflict: Entry is not pending
func (h *Handlers) HandleReject(c *gin.Context) {
	turn := c.Param("turn")

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if req.Path != "" {
		if err := h.reg.RejectOne(c.Request.Context(), turn, req.Path); err != nil {
			h.writeError(c, turn, err)
			return
		}
		c.JSON(http.StatusOK, RejectResponse{Turn: turn, Rejected: []string{req.Path}})
		return
	}

	result, err := h.reg.RejectAll(c.Request.Context(), turn)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}
	c.JSON(http.StatusOK, RejectResponse{Turn: turn, Rejected: result.Rejected})
}

// HandleRollback handles POST /v1/changes/:turn/rollback.
//
// Description:
//
//	Reverts an applied change to its pre-apply snapshot and returns it
//	to pending review with freshly run conflict detection.
//
// Response:
//
//	200 OK: ChangeView of the reverted entry
//	404 Not Found: Unknown turn or path
//	409 Conflict: Entry is not applied
func (h *Handlers) HandleRollback(c *gin.Context) {
	turn := c.Param("turn")
	logger := telemetry.LoggerWithTurn(c.Request.Context(), h.logger, turn).
		With("request_id", getOrCreateRequestID(c))

	var req RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	if err := h.reg.Rollback(c.Request.Context(), turn, req.Path); err != nil {
		h.writeError(c, turn, err)
		return
	}

	ch, err := h.reg.Get(turn, req.Path)
	if err != nil {
		h.writeError(c, turn, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(ch))
}

// HandleDiscard handles DELETE /v1/changes/:turn.
//
// Discarding drops the set from review without touching the filesystem;
// applied members stay applied.
func (h *Handlers) HandleDiscard(c *gin.Context) {
	turn := c.Param("turn")
	h.reg.Discard(turn)
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Turns:  len(h.reg.Turns()),
	})
}

// writeError maps domain errors to HTTP responses.
func (h *Handlers) writeError(c *gin.Context, turn string, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	switch {
	case errors.Is(err, registry.ErrSetNotFound):
		status, code = http.StatusNotFound, "SET_NOT_FOUND"
	case errors.Is(err, registry.ErrChangeNotFound):
		status, code = http.StatusNotFound, "CHANGE_NOT_FOUND"
	case errors.Is(err, apply.ErrConflict):
		status, code = http.StatusConflict, "CONFLICT"
	case errors.Is(err, registry.ErrNotPending):
		status, code = http.StatusConflict, "NOT_PENDING"
	case errors.Is(err, registry.ErrAlreadyApplied):
		status, code = http.StatusConflict, "ALREADY_APPLIED"
	case errors.Is(err, apply.ErrNotApplied):
		status, code = http.StatusConflict, "NOT_APPLIED"
	case errors.Is(err, conflict.ErrPathEscapesRoot):
		status, code = http.StatusBadRequest, "PATH_ESCAPES_ROOT"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "turn", turn, "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
