package trace

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamstate/beamstate/pkg/models"
)

func event(i int) models.TraceEvent {
	return models.TraceEvent{
		NodeID:   int64(i),
		NodeName: fmt.Sprintf("node-%d", i),
		Reason:   fmt.Sprintf("event %d", i),
	}
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	bus := NewBus(10)

	for i := 0; i < 5; i++ {
		bus.Emit(event(i))
	}

	events := bus.Recent(10)
	require.Len(t, events, 5)

	for i, e := range events {
		assert.Equal(t, int64(i), e.NodeID)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	bus := NewBus(10)

	for i := 0; i < 8; i++ {
		bus.Emit(event(i))
	}

	events := bus.Recent(3)
	require.Len(t, events, 3)

	// The limit keeps the newest events.
	assert.Equal(t, int64(5), events[0].NodeID)
	assert.Equal(t, int64(7), events[2].NodeID)
}

func TestRingCapsUnderBurst(t *testing.T) {
	bus := NewBus(500)

	for i := 0; i < 10000; i++ {
		bus.Emit(event(i))
	}

	events := bus.Recent(10000)
	require.Len(t, events, 500)

	// Only the newest 500 survive, still in order.
	assert.Equal(t, int64(9500), events[0].NodeID)
	assert.Equal(t, int64(9999), events[499].NodeID)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	defer bus.Unsubscribe(sub)

	bus.Emit(event(1))
	bus.Emit(event(2))

	first := <-sub.Events()
	second := <-sub.Events()

	assert.Equal(t, int64(1), first.NodeID)
	assert.Equal(t, int64(2), second.NodeID)
}

func TestSubscribeWithReplayHandsOffWithoutGaps(t *testing.T) {
	bus := NewBus(10)

	for i := 0; i < 3; i++ {
		bus.Emit(event(i))
	}

	sub, history := bus.SubscribeWithReplay(10)

	defer bus.Unsubscribe(sub)

	// History is complete and oldest-first.
	require.Len(t, history, 3)
	assert.Equal(t, int64(0), history[0].NodeID)
	assert.Equal(t, int64(2), history[2].NodeID)

	// Nothing emitted before attachment is duplicated on the channel.
	select {
	case e := <-sub.Events():
		t.Fatalf("history event %d delivered live", e.NodeID)
	default:
	}

	bus.Emit(event(3))

	live := <-sub.Events()
	assert.Equal(t, int64(3), live.NodeID)
}

func TestSubscribeWithReplayHonorsLimit(t *testing.T) {
	bus := NewBus(10)

	for i := 0; i < 8; i++ {
		bus.Emit(event(i))
	}

	sub, history := bus.SubscribeWithReplay(2)

	defer bus.Unsubscribe(sub)

	require.Len(t, history, 2)
	assert.Equal(t, int64(6), history[0].NodeID)
	assert.Equal(t, int64(7), history[1].NodeID)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	// Never reading: once the subscriber buffer fills, the bus must
	// drop the subscription instead of blocking emitters.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Emit(event(i))
	}

	assert.Equal(t, 0, bus.SubscriberCount())

	// The channel is closed so a consumer loop terminates.
	for range sub.Events() {
		continue
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(10)
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Emit(event(1))

	_, open := <-sub.Events()
	assert.False(t, open)
}
