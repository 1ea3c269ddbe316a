package hub

import (
	"context"
	"testing"

	"github.com/devgoel186/tracemon/internal/model"
	"github.com/devgoel186/tracemon/internal/parser"
)

// BenchmarkHubBroadcast measures classify + fan-out to two subscribers.
func BenchmarkHubBroadcast(b *testing.B) {
	input := make(chan model.RawLine, 1024)
	h := New(input, parser.NewDefault(), nil, discard)
	sub1 := h.Subscribe()
	sub2 := h.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Start(ctx)

	done := make(chan struct{})
	go func() {
		for range sub1 {
		}
		close(done)
	}()
	go func() {
		for range sub2 {
		}
	}()

	line := model.RawLine{Text: `openat(AT_FDCWD, "/a/b", O_RDONLY) = 3`}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		input <- line
	}
	close(input)
	<-done
}
