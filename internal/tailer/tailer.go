package tailer

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/devgoel186/tracemon/internal/model"
	"github.com/devgoel186/tracemon/internal/watcher"
)

const (
	saveInterval     = 5 * time.Second
	reconnectRetries = 5
)

// Options tune how a Tailer starts reading.
type Options struct {
	// FromStart reads existing content of files with no checkpoint.
	// Otherwise such files are followed from their current end.
	FromStart bool
}

// Tailer reads lines appended to watched trace files and emits RawLine values.
type Tailer struct {
	mu        sync.Mutex
	files     map[string]*trackedFile
	out       chan model.RawLine
	ckpt      *Checkpoint
	events    <-chan watcher.Event
	watch     *watcher.Watcher
	logger    *slog.Logger
	fromStart bool
}

type trackedFile struct {
	path    string
	file    *os.File
	reader  *bufio.Reader
	pos     Position
	partial string // bytes read past the last newline
}

// New creates a Tailer that reads events from the given Watcher.
func New(w *watcher.Watcher, ckpt *Checkpoint, opts Options, logger *slog.Logger) *Tailer {
	return &Tailer{
		files:     make(map[string]*trackedFile),
		out:       make(chan model.RawLine, 512),
		ckpt:      ckpt,
		events:    w.Events,
		watch:     w,
		logger:    logger,
		fromStart: opts.FromStart,
	}
}

// Lines returns the channel where trace lines are sent.
func (t *Tailer) Lines() <-chan model.RawLine {
	return t.out
}

// Start processes watcher events. It blocks until ctx is cancelled or the
// watcher stops, and closes the Lines channel on return.
func (t *Tailer) Start(ctx context.Context) {
	defer close(t.out)

	for _, p := range t.watch.Paths() {
		if t.openFile(p, t.fromStart) {
			t.readNewLines(ctx, p)
		}
	}

	saveTicker := time.NewTicker(saveInterval)
	defer saveTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.saveCheckpoint()
			t.closeAll()
			return

		case ev, ok := <-t.events:
			if !ok {
				t.saveCheckpoint()
				t.closeAll()
				return
			}
			t.handleEvent(ctx, ev)

		case <-saveTicker.C:
			t.saveCheckpoint()
		}
	}
}

func (t *Tailer) handleEvent(ctx context.Context, ev watcher.Event) {
	switch {
	case ev.Op&fsnotify.Write != 0:
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Create != 0:
		t.openFile(ev.Path, true)
		t.readNewLines(ctx, ev.Path)

	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		// A new trace run replaced the file; its old position is meaningless.
		t.closeFile(ev.Path)
		t.ckpt.Delete(ev.Path)
		go t.reconnect(ctx, ev.Path)
	}
}

// openFile opens a trace file, resuming from its checkpointed position.
// Without a checkpoint it starts at the beginning when fromStart is set and
// at the current end otherwise. It reports whether the file is tracked.
func (t *Tailer) openFile(path string, fromStart bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.files[path]; exists {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		t.logger.Warn("cannot open trace file", "path", path, "err", err)
		return false
	}

	var pos Position
	if saved, ok := t.ckpt.Get(path); ok {
		pos = saved
	} else if !fromStart {
		pos.Offset, _ = f.Seek(0, io.SeekEnd)
	}
	if _, err := f.Seek(pos.Offset, io.SeekStart); err != nil {
		t.logger.Warn("cannot seek trace file", "path", path, "offset", pos.Offset, "err", err)
		f.Close()
		return false
	}

	t.files[path] = &trackedFile{
		path:   path,
		file:   f,
		reader: bufio.NewReader(f),
		pos:    pos,
	}
	return true
}

// readNewLines reads to EOF and emits every complete line. A trailing
// fragment without a newline is held until the rest of it is written.
func (t *Tailer) readNewLines(ctx context.Context, path string) {
	t.mu.Lock()
	tf, ok := t.files[path]
	t.mu.Unlock()
	if !ok {
		return
	}

	for {
		chunk, err := tf.reader.ReadString('\n')
		if err != nil {
			tf.partial += chunk
			if !errors.Is(err, io.EOF) {
				t.logger.Error("read error", "path", path, "err", err)
			}
			break
		}

		tf.pos.Offset += int64(len(tf.partial) + len(chunk))
		tf.pos.Line++
		text := strings.TrimSuffix(strings.TrimSuffix(tf.partial+chunk, "\n"), "\r")
		tf.partial = ""

		select {
		case t.out <- model.RawLine{Text: text, Source: path, Number: tf.pos.Line}:
		case <-ctx.Done():
			return
		}
	}

	t.ckpt.Set(path, tf.pos)
}

func (t *Tailer) closeFile(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tf, ok := t.files[path]; ok {
		tf.file.Close()
		delete(t.files, path)
	}
}

// reconnect polls for a trace file to reappear after it was replaced.
func (t *Tailer) reconnect(ctx context.Context, path string) {
	for i := 0; i < reconnectRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
		if _, err := os.Stat(path); err == nil {
			t.logger.Info("reconnected to replaced trace file", "path", path)
			_ = t.watch.ReWatch(path)
			t.openFile(path, true)
			return
		}
	}
	t.logger.Warn("gave up reconnecting to trace file", "path", path, "retries", reconnectRetries)
}

func (t *Tailer) saveCheckpoint() {
	if err := t.ckpt.Save(); err != nil {
		t.logger.Error("checkpoint save failed", "err", err)
	}
}

func (t *Tailer) closeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, tf := range t.files {
		tf.file.Close()
		delete(t.files, path)
	}
}
