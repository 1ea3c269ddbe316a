package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devgoel186/tracemon/internal/model"
)

func TestEmptyFilterAcceptsAll(t *testing.T) {
	f, err := Compile("")
	require.NoError(t, err)
	assert.Nil(t, f)

	ok, err := f.Match(model.Event{Kind: model.KindRead})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", f.String())
}

func TestFilterByKindAndPath(t *testing.T) {
	f, err := Compile(`kind == "read" && path startsWith "/etc"`)
	require.NoError(t, err)

	tests := []struct {
		ev   model.Event
		want bool
	}{
		{model.Event{Kind: model.KindRead, Path: "/etc/passwd"}, true},
		{model.Event{Kind: model.KindRead, Path: "/home/x"}, false},
		{model.Event{Kind: model.KindWrite, Path: "/etc/passwd"}, false},
	}
	for _, tt := range tests {
		got, err := f.Match(tt.ev)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "event %+v", tt.ev)
	}
}

func TestFilterLineAndTarget(t *testing.T) {
	f, err := Compile(`line > 10 || target != ""`)
	require.NoError(t, err)

	ok, err := f.Match(model.Event{Line: 11})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match(model.Event{Line: 2, Target: "/dst"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.Match(model.Event{Line: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(`kind ==`)
	assert.Error(t, err)

	// Non-boolean result.
	_, err = Compile(`path`)
	assert.Error(t, err)

	// Unknown identifier.
	_, err = Compile(`pid == 1`)
	assert.Error(t, err)
}
