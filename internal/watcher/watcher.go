package watcher

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Event represents a change to a watched trace file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors trace files for changes using OS-level notifications.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	paths  []string
	logger *slog.Logger
}

// New creates a Watcher for the given glob patterns.
// Patterns are expanded once at startup; unmatched patterns are logged.
func New(patterns []string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		logger: logger,
	}

	for _, pattern := range patterns {
		matches, err := expandGlob(pattern)
		if err != nil {
			logger.Warn("failed to expand pattern", "pattern", pattern, "err", err)
			continue
		}
		for _, m := range matches {
			abs, _ := filepath.Abs(m)
			if err := fsw.Add(abs); err != nil {
				logger.Warn("cannot watch trace file", "path", abs, "err", err)
				continue
			}
			w.paths = append(w.paths, abs)
		}
	}

	return w, nil
}

// Start forwards file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// Paths returns the trace files being watched.
func (w *Watcher) Paths() []string {
	return w.paths
}

// Close releases the watcher without starting it.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// ReWatch adds a path back to the watcher after the tracer recreates it.
func (w *Watcher) ReWatch(path string) error {
	return w.fsw.Add(path)
}

// expandGlob resolves a glob pattern to matching file paths.
// Supports recursive patterns like /tmp/traces/**/*.strace via doublestar.
func expandGlob(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
