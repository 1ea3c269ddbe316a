package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/devgoel186/tracemon/internal/filter"
	"github.com/devgoel186/tracemon/internal/model"
)

const subscriberBuffer = 1024

// Classifier turns a trace line into zero or more events.
type Classifier interface {
	Classify(line model.RawLine) []model.Event
}

// Hub classifies raw trace lines and broadcasts the resulting events to all
// subscribers.
type Hub struct {
	classifier  Classifier
	filter      *filter.Filter
	input       <-chan model.RawLine
	logger      *slog.Logger
	mu          sync.RWMutex
	subscribers []chan model.Event
	sink        func(model.Event) error
	lines       int64
	dropped     int64
}

// New creates a Hub reading from input. A nil filter accepts every event.
func New(input <-chan model.RawLine, c Classifier, f *filter.Filter, logger *slog.Logger) *Hub {
	return &Hub{
		classifier: c,
		filter:     f,
		input:      input,
		logger:     logger,
	}
}

// Subscribe returns a buffered channel that receives every event broadcast
// after the call. The channel is closed when Start returns.
func (h *Hub) Subscribe() <-chan model.Event {
	ch := make(chan model.Event, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// SetSink registers fn to receive every event, in order, before the
// fan-out to subscribers. fn blocks the hub, so no event is ever dropped for
// it; a sink error is logged and does not stop the hub. Call before Start.
func (h *Hub) SetSink(fn func(model.Event) error) {
	h.mu.Lock()
	h.sink = fn
	h.mu.Unlock()
}

// Unsubscribe removes and closes a channel returned by Subscribe.
// Unknown or already removed channels are ignored.
func (h *Hub) Unsubscribe(sub <-chan model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ch := range h.subscribers {
		if ch == sub {
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Dropped returns the number of events dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Lines returns the number of trace lines classified so far.
func (h *Hub) Lines() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lines
}

// Start reads, classifies and broadcasts until ctx is cancelled or the
// input channel is closed. Subscriber channels are closed on return.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	h.mu.RLock()
	sink := h.sink
	h.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-h.input:
			if !ok {
				return
			}
			h.mu.Lock()
			h.lines++
			h.mu.Unlock()

			for _, ev := range h.classifier.Classify(raw) {
				ok, err := h.filter.Match(ev)
				if err != nil {
					h.logger.Warn("filter evaluation failed", "source", raw.Source, "line", raw.Number, "err", err)
				}
				if !ok {
					continue
				}
				if sink != nil {
					if err := sink(ev); err != nil {
						h.logger.Error("sink failed", "source", raw.Source, "line", raw.Number, "err", err)
					}
				}
				h.broadcast(ev)
			}
		}
	}
}

// broadcast sends an event to all subscribers. A full subscriber channel
// drops the event for that subscriber only; the sink never drops.
func (h *Hub) broadcast(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.Debug("hub dropped event for slow consumer", "total_dropped", h.dropped)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
