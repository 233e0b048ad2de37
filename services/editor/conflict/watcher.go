// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conflict

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DriftHandler is called with the batch of registered paths whose on-disk
// content changed externally since they entered review.
type DriftHandler func(paths []string)

// Watcher flags registered change paths as soon as they drift on disk.
//
// # Description
//
// While a change-set is open for review, the files it touches can still be
// edited outside the editor. The watcher observes the parent directories of
// registered paths via fsnotify, debounces the event stream so an external
// editor's save dance does not fire the handler per syscall, and reports the
// drifted paths in batches. The report is advisory: the apply engine always
// re-runs detection inside its critical section regardless.
//
// # Thread Safety
//
// Safe for concurrent use. The handler is called from a single goroutine.
type Watcher struct {
	detector *Detector
	watcher  *fsnotify.Watcher
	handler  DriftHandler
	debounce time.Duration
	logger   *slog.Logger

	events   chan string
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	tracked map[string]string // absolute path -> registered relative path
	dirs    map[string]int    // watched directory -> tracked path count
	running bool
}

// WatcherOptions configures the Watcher.
type WatcherOptions struct {
	// DebounceWindow is how long to wait for more events before reporting.
	// Default: 100ms.
	DebounceWindow time.Duration

	// BufferSize is the size of the internal event channel. Default: 256.
	BufferSize int

	// Logger for structured logging. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultWatcherOptions returns sensible defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{
		DebounceWindow: 100 * time.Millisecond,
		BufferSize:     256,
	}
}

// NewWatcher creates a drift watcher over the detector's workspace root.
func NewWatcher(detector *Detector, handler DriftHandler, opts *WatcherOptions) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "conflict.Watcher")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		detector: detector,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		logger:   opts.Logger,
		events:   make(chan string, opts.BufferSize),
		done:     make(chan struct{}),
		tracked:  make(map[string]string),
		dirs:     make(map[string]int),
	}, nil
}

// Start begins observing tracked paths. Idempotent.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
}

// Stop stops the watcher and releases the fsnotify handle.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	})
}

// Track starts observing one registered change path.
//
// fsnotify watches directories, not files, so the parent directory is
// watched and events are filtered against the tracked set. Tracking a path
// whose parent directory does not exist yet (an Added change in a new
// directory) is a no-op until Track is called again after apply.
func (w *Watcher) Track(relPath string) error {
	full, err := w.detector.Resolve(relPath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tracked[full]; ok {
		return nil
	}

	dir := filepath.Dir(full)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.tracked[full] = relPath
	return nil
}

// Untrack stops observing a path, dropping the directory watch when it was
// the last tracked path in that directory.
func (w *Watcher) Untrack(relPath string) {
	full, err := w.detector.Resolve(relPath)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tracked[full]; !ok {
		return
	}
	delete(w.tracked, full)

	dir := filepath.Dir(full)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		w.watcher.Remove(dir)
	}
}

// processEvents filters fsnotify events down to tracked paths.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.RLock()
			relPath, tracked := w.tracked[event.Name]
			w.mu.RUnlock()
			if !tracked {
				continue
			}

			select {
			case w.events <- relPath:
			default:
				// Buffer full; the debounced batch already covers the path.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// debounceLoop batches drifted paths and invokes the handler once the
// stream goes quiet for the debounce window.
func (w *Watcher) debounceLoop(ctx context.Context) {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]struct{})
		w.handler(paths)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case relPath := <-w.events:
			pending[relPath] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			flush()
		}
	}
}
