// Package trace pkg/trace/bus.go
//
// The trace bus is the single append point for status transitions. Every
// loop funnels its events through Emit, which serializes writes into a
// bounded ring buffer and fans out to subscribers without ever blocking
// the producer.
package trace

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
)

const (
	// DefaultBufferSize is the number of recent events retained.
	DefaultBufferSize = 500

	// subscriberBuffer caps the backlog of one subscriber. A subscriber
	// whose buffer is full is dropped rather than allowed to stall Emit.
	subscriberBuffer = 100
)

// Bus is an append-only in-memory store of TraceEvents with live fan-out.
type Bus struct {
	mu     sync.Mutex
	ring   []models.TraceEvent
	pos    int
	filled bool
	subs   map[*Subscription]struct{}
	log    zerolog.Logger
}

// Subscription receives events in arrival order.
type Subscription struct {
	ch  chan models.TraceEvent
	bus *Bus
}

// Events is the receive side of the subscription. The channel is closed
// when the subscriber is dropped or unsubscribes.
func (s *Subscription) Events() <-chan models.TraceEvent {
	return s.ch
}

// NewBus creates a bus retaining the most recent size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &Bus{
		ring: make([]models.TraceEvent, size),
		subs: make(map[*Subscription]struct{}),
		log:  logger.Component("trace"),
	}
}

// Emit appends an event and notifies subscribers. Events are immutable
// once stored. Never blocks: slow subscribers are dropped.
func (b *Bus) Emit(event models.TraceEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ring[b.pos] = event
	b.pos = (b.pos + 1) % len(b.ring)

	if b.pos == 0 {
		b.filled = true
	}

	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			delete(b.subs, sub)
			close(sub.ch)

			b.log.Warn().
				Int64("node_id", event.NodeID).
				Msg("dropping slow trace subscriber")
		}
	}
}

// Recent returns up to limit of the most recent events, oldest first.
func (b *Bus) Recent(limit int) []models.TraceEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.recentLocked(limit)
}

func (b *Bus) recentLocked(limit int) []models.TraceEvent {
	size := len(b.ring)
	count := b.pos

	if b.filled {
		count = size
	}

	if limit <= 0 || limit > count {
		limit = count
	}

	events := make([]models.TraceEvent, 0, limit)

	// Walk backwards from the newest slot, then reverse into order.
	start := (b.pos - limit + size) % size
	for i := 0; i < limit; i++ {
		events = append(events, b.ring[(start+i)%size])
	}

	return events
}

// Subscribe attaches a new subscriber. It receives only events emitted
// after attachment; use Recent for history.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan models.TraceEvent, subscriberBuffer),
		bus: b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// SubscribeWithReplay atomically snapshots up to limit recent events
// and attaches a subscriber. Snapshot and attachment happen under one
// lock, so every event lands either in the snapshot or on the live
// channel - never both, never neither.
func (b *Bus) SubscribeWithReplay(limit int) (*Subscription, []models.TraceEvent) {
	sub := &Subscription{
		ch:  make(chan models.TraceEvent, subscriberBuffer),
		bus: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.subs[sub] = struct{}{}

	return sub, b.recentLocked(limit)
}

// Unsubscribe detaches a subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// SubscriberCount reports attached subscribers, for diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
