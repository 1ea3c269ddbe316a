package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devgoel186/tracemon/internal/filter"
	"github.com/devgoel186/tracemon/internal/model"
	"github.com/devgoel186/tracemon/internal/parser"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHubBroadcast(t *testing.T) {
	input := make(chan model.RawLine, 10)
	h := New(input, parser.NewDefault(), nil, discard)

	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	input <- model.RawLine{Text: `rmdir("/tmp/foo") = 0`, Source: "trace.log", Number: 1}

	for i, sub := range []<-chan model.Event{sub1, sub2} {
		select {
		case ev := <-sub:
			assert.Equal(t, "Removed directory: /tmp/foo", ev.Message, "sub%d", i+1)
			assert.Equal(t, "trace.log", ev.Source)
		case <-time.After(time.Second):
			t.Fatalf("sub%d: timed out", i+1)
		}
	}
}

func TestHubSkipsUnmatchedAndFiltered(t *testing.T) {
	f, err := filter.Compile(`kind != "chdir"`)
	require.NoError(t, err)

	input := make(chan model.RawLine, 10)
	h := New(input, parser.NewDefault(), f, discard)
	sub := h.Subscribe()

	input <- model.RawLine{Text: "close(3) = 0"}
	input <- model.RawLine{Text: `chdir("/x") = 0`}
	input <- model.RawLine{Text: `openat(AT_FDCWD, "/a", O_RDONLY) = 3`}
	close(input)

	h.Start(context.Background())

	var got []string
	for ev := range sub {
		got = append(got, ev.Message)
	}
	assert.Equal(t, []string{"Reading file: /a"}, got)
	assert.Equal(t, int64(3), h.Lines())
}

func TestHubSlowConsumer(t *testing.T) {
	input := make(chan model.RawLine, 10)
	h := New(input, parser.NewDefault(), nil, discard)

	// Subscribe but never read.
	_ = h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Start(ctx)

	for i := 0; i < subscriberBuffer+100; i++ {
		input <- model.RawLine{Text: `unlinkat(AT_FDCWD, "f", 0) = 0`}
	}

	assert.Eventually(t, func() bool { return h.Dropped() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubSinkNeverDrops(t *testing.T) {
	const total = subscriberBuffer + 500

	input := make(chan model.RawLine, 64)
	h := New(input, parser.NewDefault(), nil, discard)

	var got int
	h.SetSink(func(ev model.Event) error {
		if got%100 == 0 {
			time.Sleep(time.Millisecond)
		}
		got++
		return nil
	})
	// An unread subscriber still drops, without affecting the sink.
	_ = h.Subscribe()

	go func() {
		for i := 0; i < total; i++ {
			input <- model.RawLine{Text: `rmdir("/tmp/x") = 0`, Number: i + 1}
		}
		close(input)
	}()
	h.Start(context.Background())

	assert.Equal(t, total, got)
	assert.Equal(t, int64(total-subscriberBuffer), h.Dropped())
}

func TestHubSinkErrorKeepsRunning(t *testing.T) {
	input := make(chan model.RawLine, 2)
	h := New(input, parser.NewDefault(), nil, discard)

	calls := 0
	h.SetSink(func(model.Event) error {
		calls++
		return assert.AnError
	})
	input <- model.RawLine{Text: `chdir("/a") = 0`}
	input <- model.RawLine{Text: `chdir("/b") = 0`}
	close(input)

	h.Start(context.Background())
	assert.Equal(t, 2, calls)
}

func TestHubUnsubscribe(t *testing.T) {
	const total = subscriberBuffer + 100

	input := make(chan model.RawLine, 64)
	h := New(input, parser.NewDefault(), nil, discard)

	gone := h.Subscribe()
	live := h.Subscribe()
	h.Unsubscribe(gone)
	h.Unsubscribe(gone)

	_, open := <-gone
	assert.False(t, open, "unsubscribed channel must be closed")

	received := make(chan int)
	go func() {
		n := 0
		for range live {
			n++
		}
		received <- n
	}()
	go func() {
		for i := 0; i < total; i++ {
			input <- model.RawLine{Text: `unlinkat(AT_FDCWD, "f", 0) = 0`}
		}
		close(input)
	}()
	h.Start(context.Background())

	assert.Equal(t, total, <-received)
	assert.Equal(t, int64(0), h.Dropped())
}
