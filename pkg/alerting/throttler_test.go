package alerting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/beamstate/beamstate/pkg/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func downEvent(id int64, name string) models.TraceEvent {
	return models.TraceEvent{
		NodeID:    id,
		NodeName:  name,
		IP:        fmt.Sprintf("10.0.0.%d", id),
		OldStatus: models.StatusPending,
		NewStatus: models.StatusDown,
		Reason:    "3 consecutive failures",
	}
}

func recoveryEvent(id int64, name string) models.TraceEvent {
	return models.TraceEvent{
		NodeID:    id,
		NodeName:  name,
		IP:        fmt.Sprintf("10.0.0.%d", id),
		OldStatus: models.StatusDown,
		NewStatus: models.StatusUp,
		Reason:    "responded after outage",
	}
}

// fakeClock drives the throttler's time for deterministic window math.
type fakeClock struct {
	at time.Time
}

func (c *fakeClock) now() time.Time          { return c.at }
func (c *fakeClock) advance(d time.Duration) { c.at = c.at.Add(d) }

func newTestThrottler(t *testing.T, opts Options) (*Throttler, *MockNotifier, *fakeClock) {
	t.Helper()

	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)

	th := NewThrottler(notifier, opts)
	clock := &fakeClock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	th.now = clock.now

	return th, notifier, clock
}

func TestIndividualDownAlert(t *testing.T) {
	th, notifier, _ := newTestThrottler(t, Options{Threshold: 3})
	ctx := context.Background()

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "DOWN: core-switch", gomock.Any()).
		Return(nil)

	th.HandleEvent(ctx, downEvent(1, "core-switch"))
	assert.False(t, th.InStorm())
}

func TestStormCollapsesBurstIntoOneAlert(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		Window:    60 * time.Second,
		Threshold: 3,
	})
	ctx := context.Background()

	// The two failures before the threshold alert individually.
	notifier.EXPECT().
		Notify(gomock.Any(), 0, "DOWN: node-a", gomock.Any()).
		Return(nil)
	notifier.EXPECT().
		Notify(gomock.Any(), 0, "DOWN: node-b", gomock.Any()).
		Return(nil)

	// The third triggers exactly one aggregate with the sorted names.
	var aggregateBody string

	notifier.EXPECT().
		Notify(gomock.Any(), 1, "Global Alert: multiple nodes down", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int, _, body string) error {
			aggregateBody = body
			return nil
		})

	th.HandleEvent(ctx, downEvent(1, "node-a"))
	clock.advance(5 * time.Second)
	th.HandleEvent(ctx, downEvent(2, "node-b"))
	clock.advance(5 * time.Second)
	th.HandleEvent(ctx, downEvent(3, "node-c"))

	require.True(t, th.InStorm())
	assert.Contains(t, aggregateBody, "node-a, node-b, node-c")

	// Further failures during the storm are folded in silently.
	clock.advance(5 * time.Second)
	th.HandleEvent(ctx, downEvent(4, "node-d"))
	clock.advance(5 * time.Second)
	th.HandleEvent(ctx, downEvent(5, "node-e"))

	assert.True(t, th.InStorm())
}

func TestStormSuppressesRecoveries(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		Window:    60 * time.Second,
		Threshold: 2,
	})
	ctx := context.Background()

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "DOWN: node-a", gomock.Any()).
		Return(nil)
	notifier.EXPECT().
		Notify(gomock.Any(), 1, "Global Alert: multiple nodes down", gomock.Any()).
		Return(nil)

	th.HandleEvent(ctx, downEvent(1, "node-a"))
	th.HandleEvent(ctx, downEvent(2, "node-b"))
	require.True(t, th.InStorm())

	// Recovery during the storm: no notification.
	clock.advance(10 * time.Second)
	th.HandleEvent(ctx, recoveryEvent(1, "node-a"))
}

func TestStormExitsAfterQuietPeriod(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		Window:        60 * time.Second,
		Threshold:     2,
		StormCooldown: 60 * time.Second,
	})
	ctx := context.Background()

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "DOWN: node-a", gomock.Any()).
		Return(nil)
	notifier.EXPECT().
		Notify(gomock.Any(), 1, "Global Alert: multiple nodes down", gomock.Any()).
		Return(nil)

	th.HandleEvent(ctx, downEvent(1, "node-a"))
	th.HandleEvent(ctx, downEvent(2, "node-b"))
	require.True(t, th.InStorm())

	// Two minutes of quiet: the window empties and the cooldown elapses,
	// so the next recovery alerts normally again.
	clock.advance(2 * time.Minute)

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "RECOVERED: node-a", gomock.Any()).
		Return(nil)

	th.HandleEvent(ctx, recoveryEvent(1, "node-a"))
	assert.False(t, th.InStorm())
}

func TestMaintenanceSuppressesDelivery(t *testing.T) {
	th, _, _ := newTestThrottler(t, Options{Threshold: 3, Maintenance: true})
	ctx := context.Background()

	// No notifier expectations: any delivery fails the test.
	th.HandleEvent(ctx, downEvent(1, "node-a"))
	th.HandleEvent(ctx, recoveryEvent(1, "node-a"))

	th.HandleMetricBreach(ctx, MetricBreach{
		ConfigID:   1,
		NodeName:   "node-a",
		MetricName: "cpu_load",
		Value:      99,
		Level:      LevelCritical,
		CriticalAt: floatPtr(95),
	})
}

func TestNodePriorityOverride(t *testing.T) {
	priorities := map[int64]*int{1: intPtr(2)}

	th, notifier, _ := newTestThrottler(t, Options{
		Threshold: 5,
		Priorities: func(nodeID int64) *int {
			return priorities[nodeID]
		},
	})
	ctx := context.Background()

	notifier.EXPECT().
		Notify(gomock.Any(), 2, "DOWN: pbx", gomock.Any()).
		Return(nil)

	th.HandleEvent(ctx, downEvent(1, "pbx"))
}

func TestMetricBreachLifecycle(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		MetricCooldown: 60 * time.Second,
	})
	ctx := context.Background()

	breach := func(level BreachLevel, value float64) MetricBreach {
		return MetricBreach{
			ConfigID:   7,
			NodeID:     1,
			NodeName:   "core-switch",
			MetricName: "cpu_load",
			Unit:       "percent",
			Value:      value,
			Level:      level,
			Condition:  models.ConditionGreaterThan,
			WarningAt:  floatPtr(80),
			CriticalAt: floatPtr(95),
		}
	}

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "WARNING: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, breach(LevelWarning, 85))

	// Same level again: deduplicated, no second send.
	th.HandleMetricBreach(ctx, breach(LevelWarning, 86))

	// Escalation to critical forces priority to at least 1, but the
	// per-metric cooldown is still in effect.
	th.HandleMetricBreach(ctx, breach(LevelCritical, 99))

	clock.advance(2 * time.Minute)

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "RESOLVED: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, breach(LevelNone, 50))
}

func TestMetricBreachHysteresisHoldsLevel(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		MetricCooldown: time.Second,
	})
	ctx := context.Background()

	breach := func(level BreachLevel, value float64) MetricBreach {
		return MetricBreach{
			ConfigID:   7,
			NodeName:   "core-switch",
			MetricName: "cpu_load",
			Unit:       "percent",
			Value:      value,
			Level:      level,
			Condition:  models.ConditionGreaterThan,
			WarningAt:  floatPtr(80),
		}
	}

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "WARNING: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, breach(LevelWarning, 85))
	clock.advance(time.Minute)

	// 78 is within 5% of the 80 threshold: the warning holds, nothing
	// is sent.
	th.HandleMetricBreach(ctx, breach(LevelNone, 78))
	clock.advance(time.Minute)

	// 70 clears the hysteresis band: resolved.
	notifier.EXPECT().
		Notify(gomock.Any(), 0, "RESOLVED: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, breach(LevelNone, 70))
}

func TestPausedNodeClearsBreachState(t *testing.T) {
	th, notifier, clock := newTestThrottler(t, Options{
		MetricCooldown: time.Second,
	})
	ctx := context.Background()

	notifier.EXPECT().
		Notify(gomock.Any(), 0, "WARNING: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, MetricBreach{
		ConfigID:   7,
		NodeName:   "core-switch",
		MetricName: "cpu_load",
		Unit:       "percent",
		Value:      85,
		Level:      LevelWarning,
		WarningAt:  floatPtr(80),
	})

	// Pausing the node clears tracked state without a RESOLVED alert.
	th.HandleMetricBreach(ctx, MetricBreach{
		ConfigID:   7,
		NodeName:   "core-switch",
		MetricName: "cpu_load",
		Level:      LevelNone,
		NodePaused: true,
	})

	clock.advance(time.Minute)

	// After resume, the same warning is fresh and alerts again.
	notifier.EXPECT().
		Notify(gomock.Any(), 0, "WARNING: core-switch - cpu_load", gomock.Any()).
		Return(nil)

	th.HandleMetricBreach(ctx, MetricBreach{
		ConfigID:   7,
		NodeName:   "core-switch",
		MetricName: "cpu_load",
		Unit:       "percent",
		Value:      85,
		Level:      LevelWarning,
		WarningAt:  floatPtr(80),
	})
}
