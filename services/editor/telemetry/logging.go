// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds a JSON slog logger at the given level.
//
// Description:
//
//	Level is parsed case-insensitively from "debug", "info", "warn",
//	"error"; unknown values fall back to info. The logger is not
//	installed as the process default; callers do that explicitly.
//
// Inputs:
//
//	w - Destination writer (typically os.Stdout).
//	level - Minimum log level name.
//
// Outputs:
//
//	*slog.Logger - Configured logger.
//
// Thread Safety: Safe for concurrent use.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// LoggerWithTrace returns a logger with trace context injected.
//
// Description:
//
//	Extracts trace_id and span_id from the context and adds them as
//	structured log fields. This enables log correlation in Grafana/Loki
//	with traces in Jaeger.
//
// Inputs:
//
//	ctx - Context containing span context. May be nil or have no active span.
//	logger - Base logger to enhance. Must not be nil.
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id and span_id fields added if available.
//	              Returns the original logger if no valid span context.
//
// Thread Safety: Safe for concurrent use.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// LoggerWithTurn returns a logger with trace context and the agent turn id.
//
// Description:
//
//	Combines LoggerWithTrace with the turn identifier so every log line
//	produced while handling a change-set can be grouped by turn.
//
// Inputs:
//
//	ctx - Context containing span context.
//	logger - Base logger to enhance.
//	turnID - Identifier of the agent turn being processed.
//
// Outputs:
//
//	*slog.Logger - Logger with trace_id, span_id, and turn fields.
//
// Thread Safety: Safe for concurrent use.
func LoggerWithTurn(ctx context.Context, logger *slog.Logger, turnID string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(
		slog.String("turn", turnID),
	)
}
