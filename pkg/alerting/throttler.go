// Package alerting pkg/alerting/throttler.go
//
// The throttler sits between the trace bus and the notifier. It decides,
// per status transition, whether to notify individually, stay quiet, or
// collapse a burst of failures into one aggregated storm alert.
package alerting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/trace"
)

const (
	defaultWindow         = 60 * time.Second
	defaultThreshold      = 5
	defaultStormCooldown  = 60 * time.Second
	defaultMetricCooldown = 60 * time.Second

	// stormPriority is used for aggregate alerts regardless of any
	// per-node override.
	stormPriority = 1
)

// PriorityResolver returns a node's notification priority override, or
// nil when the deployment default applies.
type PriorityResolver func(nodeID int64) *int

// Options configures a Throttler.
type Options struct {
	Window          time.Duration
	Threshold       int
	StormCooldown   time.Duration
	MetricCooldown  time.Duration
	DefaultPriority int
	Maintenance     bool
	Priorities      PriorityResolver
}

type downCandidate struct {
	at       time.Time
	nodeID   int64
	nodeName string
}

// Throttler consumes trace events and metric breach reports and drives
// the notifier. The sliding window and storm state are shared across all
// nodes, so access is serialized.
type Throttler struct {
	opts     Options
	notifier Notifier
	log      zerolog.Logger

	mu          sync.Mutex
	window      []downCandidate
	storm       bool
	stormNodes  map[int64]string
	lastDown    time.Time
	maintenance bool

	breachLevels map[int64]BreachLevel
	breachSent   map[int64]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewThrottler creates a throttler delivering through notifier.
func NewThrottler(notifier Notifier, opts Options) *Throttler {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}

	if opts.Threshold <= 0 {
		opts.Threshold = defaultThreshold
	}

	if opts.StormCooldown <= 0 {
		opts.StormCooldown = defaultStormCooldown
	}

	if opts.MetricCooldown <= 0 {
		opts.MetricCooldown = defaultMetricCooldown
	}

	return &Throttler{
		opts:         opts,
		notifier:     notifier,
		log:          logger.Component("alerting"),
		stormNodes:   make(map[int64]string),
		breachLevels: make(map[int64]BreachLevel),
		breachSent:   make(map[int64]time.Time),
		maintenance:  opts.Maintenance,
		now:          time.Now,
	}
}

// Run consumes events from sub until ctx is canceled or the subscription
// channel closes.
func (t *Throttler) Run(ctx context.Context, sub *trace.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}

			t.HandleEvent(ctx, event)
		}
	}
}

// SetMaintenance toggles maintenance mode. While active, nothing is
// delivered; status computation and tracing are unaffected.
func (t *Throttler) SetMaintenance(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.maintenance = on
}

// Maintenance reports whether maintenance mode is active.
func (t *Throttler) Maintenance() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.maintenance
}

// InStorm reports whether storm mode is active, for diagnostics.
func (t *Throttler) InStorm() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.storm
}

// HandleEvent processes one status transition. Only DOWN transitions and
// DOWN->UP recoveries are notification candidates; everything else just
// advances storm bookkeeping.
func (t *Throttler) HandleEvent(ctx context.Context, event models.TraceEvent) {
	switch {
	case event.NewStatus == models.StatusDown:
		t.handleDown(ctx, event)
	case event.OldStatus == models.StatusDown && event.NewStatus == models.StatusUp:
		t.handleRecovery(ctx, event)
	default:
		t.mu.Lock()
		t.pruneAndMaybeExitStorm()
		t.mu.Unlock()
	}
}

func (t *Throttler) handleDown(ctx context.Context, event models.TraceEvent) {
	t.mu.Lock()

	now := t.now()
	t.lastDown = now
	t.window = append(t.window, downCandidate{at: now, nodeID: event.NodeID, nodeName: event.NodeName})
	t.prune(now)

	if !t.storm && len(t.window) >= t.opts.Threshold {
		// Storm onset: one aggregate alert for the whole burst.
		t.storm = true
		t.stormNodes = make(map[int64]string, len(t.window))

		for _, c := range t.window {
			t.stormNodes[c.nodeID] = c.nodeName
		}

		names := t.stormNodeNames()
		suppress := t.maintenance

		t.mu.Unlock()

		t.log.Warn().Int("down_count", len(names)).Msg("alert storm detected")

		if !suppress {
			t.send(ctx, stormPriority,
				"Global Alert: multiple nodes down",
				fmt.Sprintf("%d nodes went down within %s: %s",
					len(names), t.opts.Window, strings.Join(names, ", ")))
		}

		return
	}

	if t.storm {
		// Subsequent failures during a storm are folded into the
		// aggregate already sent.
		t.stormNodes[event.NodeID] = event.NodeName
		t.mu.Unlock()

		return
	}

	priority := t.nodePriority(event.NodeID)
	suppress := t.maintenance

	t.mu.Unlock()

	if suppress {
		return
	}

	t.send(ctx, priority,
		fmt.Sprintf("DOWN: %s", event.NodeName),
		fmt.Sprintf("%s (%s) is down: %s", event.NodeName, event.IP, event.Reason))
}

func (t *Throttler) handleRecovery(ctx context.Context, event models.TraceEvent) {
	t.mu.Lock()

	t.pruneAndMaybeExitStorm()

	suppress := t.maintenance || t.storm
	priority := t.nodePriority(event.NodeID)

	t.mu.Unlock()

	if suppress {
		return
	}

	t.send(ctx, priority,
		fmt.Sprintf("RECOVERED: %s", event.NodeName),
		fmt.Sprintf("%s (%s) is back up: %s", event.NodeName, event.IP, event.Reason))
}

// prune drops window entries older than the window.
func (t *Throttler) prune(now time.Time) {
	cutoff := now.Add(-t.opts.Window)

	i := 0
	for ; i < len(t.window); i++ {
		if t.window[i].at.After(cutoff) {
			break
		}
	}

	t.window = t.window[i:]
}

// pruneAndMaybeExitStorm exits storm mode once the windowed rate is back
// under the threshold and the cool-down since the last DOWN candidate
// has elapsed. Callers hold t.mu.
func (t *Throttler) pruneAndMaybeExitStorm() {
	now := t.now()
	t.prune(now)

	if !t.storm {
		return
	}

	if len(t.window) < t.opts.Threshold && now.Sub(t.lastDown) >= t.opts.StormCooldown {
		t.storm = false
		t.stormNodes = make(map[int64]string)

		t.log.Info().Msg("alert storm over, resuming individual alerts")
	}
}

func (t *Throttler) stormNodeNames() []string {
	names := make([]string, 0, len(t.stormNodes))
	for _, name := range t.stormNodes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func (t *Throttler) nodePriority(nodeID int64) int {
	if t.opts.Priorities != nil {
		if p := t.opts.Priorities(nodeID); p != nil {
			return *p
		}
	}

	return t.opts.DefaultPriority
}

// HandleMetricBreach processes a threshold evaluation from the metric
// collector: deduplicates unchanged levels, applies per-metric cooldown,
// and sends WARNING/CRITICAL/RESOLVED notifications on level changes.
func (t *Throttler) HandleMetricBreach(ctx context.Context, breach MetricBreach) {
	t.mu.Lock()

	prev := t.breachLevels[breach.ConfigID]

	if breach.NodePaused {
		// Clear the state so a stale level cannot stick across a pause.
		delete(t.breachLevels, breach.ConfigID)
		t.mu.Unlock()

		return
	}

	level := t.applyHysteresis(prev, breach)

	if level == prev {
		t.mu.Unlock()
		return
	}

	t.breachLevels[breach.ConfigID] = level

	now := t.now()
	if last, ok := t.breachSent[breach.ConfigID]; ok && now.Sub(last) < t.opts.MetricCooldown {
		t.mu.Unlock()
		return
	}

	t.breachSent[breach.ConfigID] = now

	suppress := t.maintenance
	priority := t.opts.DefaultPriority

	if breach.NodePriority != nil {
		priority = *breach.NodePriority
	}

	if level == LevelCritical && priority < 1 {
		priority = 1
	}

	t.mu.Unlock()

	if suppress {
		return
	}

	condSymbol := ">="
	if breach.Condition == models.ConditionLessThan {
		condSymbol = "<="
	}

	switch level {
	case LevelWarning, LevelCritical:
		threshold := breach.WarningAt
		if level == LevelCritical {
			threshold = breach.CriticalAt
		}

		t.send(ctx, priority,
			fmt.Sprintf("%s: %s - %s", level, breach.NodeName, breach.MetricName),
			fmt.Sprintf("%s is %.2f %s (%s %.2f)",
				breach.MetricName, breach.Value, breach.Unit, condSymbol, *threshold))
	case LevelNone:
		t.send(ctx, t.opts.DefaultPriority,
			fmt.Sprintf("RESOLVED: %s - %s", breach.NodeName, breach.MetricName),
			fmt.Sprintf("%s returned to normal (%.2f %s)",
				breach.MetricName, breach.Value, breach.Unit))
	}
}

// hysteresisFactor keeps a level held until the value clears the
// threshold by 5%, preventing flapping around the boundary.
const hysteresisFactor = 0.05

func (t *Throttler) applyHysteresis(prev BreachLevel, breach MetricBreach) BreachLevel {
	level := breach.Level

	gt := breach.Condition != models.ConditionLessThan

	if prev == LevelCritical && level != LevelCritical && breach.CriticalAt != nil {
		if held(gt, breach.Value, *breach.CriticalAt) {
			return LevelCritical
		}
	}

	if prev == LevelWarning && level == LevelNone && breach.WarningAt != nil {
		if held(gt, breach.Value, *breach.WarningAt) {
			return LevelWarning
		}
	}

	return level
}

func held(gt bool, value, threshold float64) bool {
	if gt {
		return value > threshold*(1.0-hysteresisFactor)
	}

	return value < threshold*(1.0+hysteresisFactor)
}

func (t *Throttler) send(ctx context.Context, priority int, title, body string) {
	if err := t.notifier.Notify(ctx, priority, title, body); err != nil {
		t.log.Error().Err(err).Str("title", title).Msg("notification delivery failed")
	}
}
