// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apply

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for apply-engine metrics.
var meter = otel.Meter("driftlock.apply")

// Metric instruments for apply and rollback operations.
var (
	applyTotal       metric.Int64Counter
	rollbackTotal    metric.Int64Counter
	applyDuration    metric.Float64Histogram
	rollbackDuration metric.Float64Histogram
	bytesWritten     metric.Int64Histogram
	conflictsTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// metricsEnabled controls whether metrics are recorded.
// Set by the Engine on initialization.
//
// Thread Safety: Uses atomic operations for safe concurrent access.
var metricsEnabled atomic.Bool

func init() {
	metricsEnabled.Store(true)
}

// SetMetricsEnabled controls whether metrics are recorded.
//
// Thread Safety: Safe for concurrent use.
func SetMetricsEnabled(enabled bool) {
	metricsEnabled.Store(enabled)
}

// initMetrics initializes all metric instruments.
// Safe to call multiple times; uses sync.Once internally.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		applyTotal, err = meter.Int64Counter(
			"apply_total",
			metric.WithDescription("Total number of apply operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rollbackTotal, err = meter.Int64Counter(
			"apply_rollback_total",
			metric.WithDescription("Total number of rollback operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		applyDuration, err = meter.Float64Histogram(
			"apply_duration_seconds",
			metric.WithDescription("Duration of apply operations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rollbackDuration, err = meter.Float64Histogram(
			"rollback_duration_seconds",
			metric.WithDescription("Duration of rollback operations in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		bytesWritten, err = meter.Int64Histogram(
			"apply_bytes_written",
			metric.WithDescription("Bytes written per successful apply"),
			metric.WithUnit("By"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		conflictsTotal, err = meter.Int64Counter(
			"apply_conflicts_total",
			metric.WithDescription("Total number of applies blocked by a conflict"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordApply records one apply attempt.
func recordApply(ctx context.Context, duration time.Duration, receipt *Receipt, opErr error) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}

	status := "success"
	switch {
	case errors.Is(opErr, ErrConflict):
		status = "conflict"
		conflictsTotal.Add(ctx, 1)
	case opErr != nil:
		status = "error"
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	applyTotal.Add(ctx, 1, attrs)
	applyDuration.Record(ctx, duration.Seconds(), attrs)
	if receipt != nil {
		bytesWritten.Record(ctx, receipt.BytesWritten)
	}
}

// recordRollback records one rollback attempt.
func recordRollback(ctx context.Context, duration time.Duration, opErr error) {
	if !metricsEnabled.Load() {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}

	status := "success"
	if opErr != nil {
		status = "error"
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	rollbackTotal.Add(ctx, 1, attrs)
	rollbackDuration.Record(ctx, duration.Seconds(), attrs)
}
