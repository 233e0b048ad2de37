// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conflict

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collectDrift gathers handler callbacks for assertion.
type collectDrift struct {
	mu    sync.Mutex
	paths map[string]int
}

func (c *collectDrift) handler(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		c.paths[p]++
	}
}

func (c *collectDrift) seen(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paths[path] > 0
}

func TestWatcher_ReportsTrackedDrift(t *testing.T) {
	d, root := newTestDetector(t)
	writeFile(t, root, "watched.go", "original\n")
	writeFile(t, root, "ignored.go", "original\n")

	sink := &collectDrift{paths: make(map[string]int)}
	w, err := NewWatcher(d, sink.handler, &WatcherOptions{
		DebounceWindow: 20 * time.Millisecond,
		BufferSize:     16,
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := w.Track("watched.go"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "watched.go"), []byte("drifted\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "ignored.go"), []byte("drifted\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !sink.seen("watched.go") {
		if time.Now().After(deadline) {
			t.Fatal("watched path drift never reported")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if sink.seen("ignored.go") {
		t.Error("untracked path was reported")
	}
}

func TestWatcher_UntrackStopsReporting(t *testing.T) {
	d, root := newTestDetector(t)
	writeFile(t, root, "brief.go", "original\n")

	sink := &collectDrift{paths: make(map[string]int)}
	w, err := NewWatcher(d, sink.handler, &WatcherOptions{
		DebounceWindow: 20 * time.Millisecond,
		BufferSize:     16,
	})
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := w.Track("brief.go"); err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	w.Untrack("brief.go")

	if err := os.WriteFile(filepath.Join(root, "brief.go"), []byte("drifted\n"), 0644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(150 * time.Millisecond)
	if sink.seen("brief.go") {
		t.Error("untracked path was still reported")
	}
}

func TestWatcher_TrackRejectsEscapingPath(t *testing.T) {
	d, _ := newTestDetector(t)
	w, err := NewWatcher(d, func([]string) {}, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Track("../outside.go"); err == nil {
		t.Fatal("expected error tracking path outside root")
	}
}
