// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apply

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const applyTracerName = "driftlock.apply"

// Tracer provides OpenTelemetry tracing for apply-engine operations.
//
// # Description
//
// Wraps the OpenTelemetry tracer with engine-specific span creation and
// attribute management. When disabled, returns noop spans for zero overhead.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Tracer struct {
	tracer  trace.Tracer
	logger  *slog.Logger
	enabled bool
}

// NewTracer creates a new apply-engine tracer.
//
// # Inputs
//
//   - logger: Logger for structured logging. Uses slog.Default() if nil.
//   - enabled: Whether tracing is enabled. When false, uses noop spans.
func NewTracer(logger *slog.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{
		tracer:  otel.Tracer(applyTracerName),
		logger:  logger,
		enabled: enabled,
	}
}

// StartApply starts a span for an apply operation.
func (t *Tracer) StartApply(ctx context.Context, path string, force bool) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "apply.commit",
		trace.WithAttributes(
			attribute.String("change.path", path),
			attribute.Bool("change.force", force),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.DebugContext(ctx, "applying change",
		slog.String("path", path),
		slog.Bool("force", force),
	)

	return ctx, span
}

// EndApply completes an apply span.
func (t *Tracer) EndApply(span trace.Span, receipt *Receipt, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetStatus(codes.Ok, "")
	if receipt != nil {
		span.SetAttributes(attribute.Int64("change.bytes_written", receipt.BytesWritten))
	}
}

// StartRollback starts a span for a rollback operation.
func (t *Tracer) StartRollback(ctx context.Context, path string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}

	ctx, span := t.tracer.Start(ctx, "apply.rollback",
		trace.WithAttributes(attribute.String("change.path", path)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.logger.DebugContext(ctx, "rolling back change", slog.String("path", path))

	return ctx, span
}

// EndRollback completes a rollback span.
func (t *Tracer) EndRollback(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
