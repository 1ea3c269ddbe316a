package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpandsRecursiveGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0755))
	for _, p := range []string{"top.strace", "a/one.strace", "a/b/two.strace", "a/b/skip.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, p), nil, 0644))
	}

	w, err := New([]string{filepath.Join(dir, "**", "*.strace")}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Close()

	var names []string
	for _, p := range w.Paths() {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"top.strace", "one.strace", "two.strace"}, names)
}

func TestNewNoMatches(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "*.log")}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Close()

	assert.Empty(t, w.Paths())
}
