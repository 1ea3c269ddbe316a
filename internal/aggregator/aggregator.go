package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/devgoel186/tracemon/internal/model"
)

const epsWindow = 5 * time.Second

// Stats holds a point-in-time snapshot of aggregated counts.
type Stats struct {
	Uptime        string           `json:"uptime"`
	TotalLines    int64            `json:"total_lines"`
	TotalEvents   int64            `json:"total_events"`
	EPS           float64          `json:"eps"`
	KindCounts    map[string]int64 `json:"kind_counts"`
	DroppedEvents int64            `json:"dropped_events"`
	FilesTraced   int              `json:"files_traced"`
}

// Aggregator counts trace lines and events. Record and RecordLine may be
// called directly, or Start can consume a hub subscription.
type Aggregator struct {
	mu          sync.RWMutex
	startTime   time.Time
	totalLines  int64
	totalEvents int64
	kindCounts  map[string]int64
	window      []time.Time // event timestamps for EPS calculation, oldest first
	now         func() time.Time
	dropped     func() int64
	fileCount   func() int
	events      <-chan model.Event
}

// New creates an Aggregator. events may be nil when only Record is used;
// droppedFn and fileCountFn may be nil and then report zero.
func New(events <-chan model.Event, droppedFn func() int64, fileCountFn func() int) *Aggregator {
	if droppedFn == nil {
		droppedFn = func() int64 { return 0 }
	}
	if fileCountFn == nil {
		fileCountFn = func() int { return 0 }
	}
	return &Aggregator{
		startTime:  time.Now(),
		kindCounts: make(map[string]int64),
		now:        time.Now,
		dropped:    droppedFn,
		fileCount:  fileCountFn,
		events:     events,
	}
}

// Snapshot returns the current counts.
func (a *Aggregator) Snapshot() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	counts := make(map[string]int64, len(a.kindCounts))
	for k, v := range a.kindCounts {
		counts[k] = v
	}

	cutoff := a.now().Add(-epsWindow)
	var recent int
	for _, t := range a.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Stats{
		Uptime:        time.Since(a.startTime).Truncate(time.Second).String(),
		TotalLines:    a.totalLines,
		TotalEvents:   a.totalEvents,
		EPS:           float64(recent) / epsWindow.Seconds(),
		KindCounts:    counts,
		DroppedEvents: a.dropped(),
		FilesTraced:   a.fileCount(),
	}
}

// Start consumes events until the channel closes or ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.events:
			if !ok {
				return
			}
			a.Record(ev)
		case <-ticker.C:
			a.prune()
		}
	}
}

// RecordLine counts one scanned trace line.
func (a *Aggregator) RecordLine() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalLines++
}

// Record counts one event. Timestamps older than epsWindow are trimmed as
// they age out, so the window stays bounded without Start running.
func (a *Aggregator) Record(ev model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalEvents++
	a.kindCounts[string(ev.Kind)]++

	now := a.now()
	a.window = append(a.window, now)
	if a.window[0].Before(now.Add(-epsWindow)) {
		a.trimLocked(now)
	}
}

// prune drops window timestamps older than epsWindow.
func (a *Aggregator) prune() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.trimLocked(a.now())
}

func (a *Aggregator) trimLocked(now time.Time) {
	cutoff := now.Add(-epsWindow)
	i := sort.Search(len(a.window), func(i int) bool { return a.window[i].After(cutoff) })
	a.window = a.window[i:]
}
