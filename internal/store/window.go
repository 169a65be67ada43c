// Package store provides the bounded in-memory stores the pipeline writes
// to: the event window, the alert feed and the incident store. All stores
// are explicit injectable values with capacity-bounded insert semantics;
// there are no package-level singletons, so tests can instantiate isolated
// stores per case.
package store

import (
	"sync"
	"sync/atomic"

	"lattice-siem/internal/schema"
)

// EventWindow holds the most recent N normalized events in a circular
// buffer. Inserting past capacity silently evicts the oldest event; it
// never blocks or fails. Events are immutable after insertion.
type EventWindow struct {
	buffer []*schema.NormalizedEvent
	size   int
	head   int
	count  int
	mu     sync.Mutex

	totalAppended uint64
	totalEvicted  uint64
}

// DefaultWindowCapacity matches the correlation window sizing the rules
// were tuned against.
const DefaultWindowCapacity = 5000

// NewEventWindow creates an EventWindow with the given capacity.
func NewEventWindow(size int) *EventWindow {
	if size <= 0 {
		size = DefaultWindowCapacity
	}
	return &EventWindow{
		buffer: make([]*schema.NormalizedEvent, size),
		size:   size,
	}
}

// Append inserts an event, evicting the oldest one when at capacity.
func (w *EventWindow) Append(event *schema.NormalizedEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	tail := (w.head + w.count) % w.size
	if w.count == w.size {
		// Overwrite the oldest slot.
		w.head = (w.head + 1) % w.size
		atomic.AddUint64(&w.totalEvicted, 1)
	} else {
		w.count++
	}
	w.buffer[tail] = event
	atomic.AddUint64(&w.totalAppended, 1)
}

// Snapshot returns all held events in insertion order (oldest first) for
// a correlation scan.
func (w *EventWindow) Snapshot() []*schema.NormalizedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*schema.NormalizedEvent, 0, w.count)
	for i := 0; i < w.count; i++ {
		out = append(out, w.buffer[(w.head+i)%w.size])
	}
	return out
}

// List returns up to limit events, newest first, for the query boundary.
func (w *EventWindow) List(limit int) []*schema.NormalizedEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if limit <= 0 || limit > w.count {
		limit = w.count
	}
	out := make([]*schema.NormalizedEvent, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, w.buffer[(w.head+w.count-1-i+w.size)%w.size])
	}
	return out
}

// Len returns the number of events currently held.
func (w *EventWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Cap returns the window capacity.
func (w *EventWindow) Cap() int {
	return w.size
}

// WindowMetrics holds insert/evict counters for the window.
type WindowMetrics struct {
	Appended uint64 `json:"appended"`
	Evicted  uint64 `json:"evicted"`
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
}

// Metrics returns window statistics.
func (w *EventWindow) Metrics() WindowMetrics {
	return WindowMetrics{
		Appended: atomic.LoadUint64(&w.totalAppended),
		Evicted:  atomic.LoadUint64(&w.totalEvicted),
		Depth:    w.Len(),
		Capacity: w.size,
	}
}
