package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/devgoel186/tracemon/internal/model"
)

func TestEPSCalculation(t *testing.T) {
	ch := make(chan model.Event, 100)
	agg := New(ch, func() int64 { return 0 }, func() int { return 2 })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go agg.Start(ctx)

	for i := 0; i < 10; i++ {
		ch <- model.Event{Kind: model.KindRead, Path: "f"}
	}

	assert.Eventually(t, func() bool {
		return agg.Snapshot().TotalEvents == 10
	}, time.Second, 10*time.Millisecond)

	stats := agg.Snapshot()
	assert.Greater(t, stats.EPS, 0.0)
	assert.Equal(t, 2, stats.FilesTraced)
}

func TestKindCounts(t *testing.T) {
	agg := New(nil, nil, nil)

	agg.Record(model.Event{Kind: model.KindRead})
	agg.Record(model.Event{Kind: model.KindRead})
	agg.Record(model.Event{Kind: model.KindMakeDir})
	agg.Record(model.Event{Kind: model.KindHardlink})
	agg.RecordLine()
	agg.RecordLine()

	stats := agg.Snapshot()
	assert.Equal(t, int64(2), stats.KindCounts["read"])
	assert.Equal(t, int64(1), stats.KindCounts["mkdir"])
	assert.Equal(t, int64(1), stats.KindCounts["hardlink"])
	assert.Equal(t, int64(4), stats.TotalEvents)
	assert.Equal(t, int64(2), stats.TotalLines)
	assert.Equal(t, int64(0), stats.DroppedEvents)
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := New(nil, nil, nil)
	agg.Record(model.Event{Kind: model.KindUnlink})

	stats := agg.Snapshot()
	stats.KindCounts["unlink"] = 99

	assert.Equal(t, int64(1), agg.Snapshot().KindCounts["unlink"])
}

func TestStartStopsOnClosedChannel(t *testing.T) {
	ch := make(chan model.Event)
	agg := New(ch, nil, nil)

	done := make(chan struct{})
	go func() {
		agg.Start(context.Background())
		close(done)
	}()
	close(ch)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after channel close")
	}
}

func TestRecordKeepsWindowBounded(t *testing.T) {
	agg := New(nil, nil, nil)

	clock := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return clock }

	// One event per millisecond for 60 seconds, without Start.
	for i := 0; i < 60000; i++ {
		agg.Record(model.Event{Kind: model.KindRead})
		clock = clock.Add(time.Millisecond)
	}

	agg.mu.RLock()
	size := len(agg.window)
	agg.mu.RUnlock()

	assert.LessOrEqual(t, size, int(epsWindow/time.Millisecond)+1)
	stats := agg.Snapshot()
	assert.Equal(t, int64(60000), stats.TotalEvents)
	assert.InDelta(t, 1000.0, stats.EPS, 1.0)
}
