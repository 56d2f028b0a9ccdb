// control/events.go
// Author: momentics <momentics@gmail.com>
//
// Buffered lifecycle event bus. Publishers enqueue; subscribers run later,
// on Flush, with no registry lock held.

package control

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// EventKind enumerates owner lifecycle events.
type EventKind int

const (
	OwnerCreated EventKind = iota + 1
	OwnerDestroyed
	SweepCompleted
)

func (k EventKind) String() string {
	switch k {
	case OwnerCreated:
		return "owner_created"
	case OwnerDestroyed:
		return "owner_destroyed"
	case SweepCompleted:
		return "sweep_completed"
	default:
		return "unknown"
	}
}

// Event describes one lifecycle transition.
type Event struct {
	Kind    EventKind
	Owner   string // empty for SweepCompleted
	Evicted int    // expired entries removed
	Removed int    // entries dropped by owner teardown
	At      time.Time
}

// DefaultEventLimit bounds the pending queue when no limit is given.
const DefaultEventLimit = 4096

// EventBus buffers events in FIFO order until Flush delivers them.
type EventBus struct {
	mu       sync.Mutex
	pending  *queue.Queue
	limit    int
	dropped  uint64
	handlers []func(Event)

	flushMu sync.Mutex // one delivering goroutine at a time, FIFO order
}

// NewEventBus creates a bus holding at most limit undelivered events.
// Events published past the limit are dropped and counted.
func NewEventBus(limit int) *EventBus {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	return &EventBus{pending: queue.New(), limit: limit}
}

// Subscribe registers a handler for every subsequently flushed event.
func (b *EventBus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Publish enqueues ev. With no subscribers the event is discarded at once.
// Returns false when the queue is full.
func (b *EventBus) Publish(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.handlers) == 0 {
		return true
	}
	if b.pending.Length() >= b.limit {
		b.dropped++
		return false
	}
	b.pending.Add(ev)
	return true
}

// Flush delivers every pending event to all handlers and returns how many
// events this call delivered. Events published by handlers are delivered
// before Flush returns. A Flush that finds another delivery in progress,
// including one called from a handler, returns 0 at once and the running
// delivery picks up its events.
func (b *EventBus) Flush() int {
	delivered := 0
	for {
		if !b.flushMu.TryLock() {
			return delivered
		}
		delivered += b.deliver()
		b.flushMu.Unlock()
		if b.Pending() == 0 {
			return delivered
		}
	}
}

// deliver drains the queue once. Caller holds flushMu.
func (b *EventBus) deliver() int {
	b.mu.Lock()
	batch := make([]Event, 0, b.pending.Length())
	for b.pending.Length() > 0 {
		batch = append(batch, b.pending.Remove().(Event))
	}
	handlers := append([]func(Event){}, b.handlers...)
	b.mu.Unlock()

	for _, ev := range batch {
		for _, fn := range handlers {
			fn(ev)
		}
	}
	return len(batch)
}

// Pending reports undelivered events.
func (b *EventBus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Length()
}

// Dropped reports events rejected because the queue was full.
func (b *EventBus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
