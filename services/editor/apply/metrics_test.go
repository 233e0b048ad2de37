// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package apply

import (
	"context"
	"testing"
	"time"
)

func TestInitMetrics(t *testing.T) {
	if err := initMetrics(); err != nil {
		t.Fatalf("initMetrics() error = %v", err)
	}

	// Verify all instruments are created
	if applyTotal == nil {
		t.Error("applyTotal is nil")
	}
	if rollbackTotal == nil {
		t.Error("rollbackTotal is nil")
	}
	if applyDuration == nil {
		t.Error("applyDuration is nil")
	}
	if rollbackDuration == nil {
		t.Error("rollbackDuration is nil")
	}
	if bytesWritten == nil {
		t.Error("bytesWritten is nil")
	}
	if conflictsTotal == nil {
		t.Error("conflictsTotal is nil")
	}

	// Apply and rollback latency land in separate histograms
	if applyDuration == rollbackDuration {
		t.Error("applyDuration and rollbackDuration share an instrument")
	}
}

func TestRecordRollback(t *testing.T) {
	prev := metricsEnabled.Load()
	defer metricsEnabled.Store(prev)
	SetMetricsEnabled(true)

	t.Run("success", func(t *testing.T) {
		recordRollback(context.Background(), 5*time.Millisecond, nil)
	})

	t.Run("error", func(t *testing.T) {
		recordRollback(context.Background(), 5*time.Millisecond, ErrNotApplied)
	})

	t.Run("disabled", func(t *testing.T) {
		SetMetricsEnabled(false)
		defer SetMetricsEnabled(true)
		recordRollback(context.Background(), 5*time.Millisecond, nil)
	})
}
