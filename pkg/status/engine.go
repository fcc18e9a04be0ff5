// Package status pkg/status/engine.go
//
// The status engine turns probe outcomes into the node lifecycle
// WAITING -> UP/PENDING -> DOWN -> UP, with PAUSED overriding whenever
// the node or its group is disabled. Each node's record has a single
// writer (that node's scheduler loop); readers get snapshot copies.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/trace"
)

// NodeMeta identifies a node in trace events.
type NodeMeta struct {
	NodeID    int64
	NodeName  string
	IP        string
	GroupName string
}

// CheckResult is the aggregated outcome of one scheduled check.
type CheckResult struct {
	Success    bool
	LatencyMs  *float64
	PacketLoss float64
	// Reason describes the failure in human terms, e.g. "ping timeout".
	Reason      string
	MonitorPing bool
	MonitorSNMP bool
}

type sample struct {
	value     float64
	timestamp time.Time
}

// record is one node's mutable monitoring state. Guarded per entry,
// never by a lock shared across nodes.
type record struct {
	mu           sync.RWMutex
	meta         NodeMeta
	status       models.NodeStatus
	failureCount int
	latencyMs    *float64
	packetLoss   float64
	lastCheck    time.Time
	monitorPing  bool
	monitorSNMP  bool
	lastSamples  map[string]sample
}

// Engine owns the per-node records and emits trace events on every
// externally visible transition.
type Engine struct {
	records sync.Map // node id -> *record
	bus     *trace.Bus
	log     zerolog.Logger
}

// NewEngine creates a status engine publishing transitions to bus.
func NewEngine(bus *trace.Bus) *Engine {
	return &Engine{
		bus: bus,
		log: logger.Component("status"),
	}
}

func (e *Engine) record(meta NodeMeta) *record {
	if r, ok := e.records.Load(meta.NodeID); ok {
		rec := r.(*record)

		rec.mu.Lock()
		rec.meta = meta
		rec.mu.Unlock()

		return rec
	}

	rec := &record{
		meta:        meta,
		status:      models.StatusWaiting,
		lastSamples: make(map[string]sample),
	}

	actual, _ := e.records.LoadOrStore(meta.NodeID, rec)

	return actual.(*record)
}

// Apply feeds one check result through the state machine. maxRetries is
// the node's effective retry limit. Returns the resulting status.
func (e *Engine) Apply(meta NodeMeta, result CheckResult, maxRetries int) models.NodeStatus {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	rec := e.record(meta)

	rec.mu.Lock()

	old := rec.status

	// PAUSED is authoritative: a probe that was already in flight when
	// the node was disabled has its result discarded.
	if old == models.StatusPaused {
		rec.mu.Unlock()
		return old
	}

	next := old

	if result.Success {
		rec.failureCount = 0
		next = models.StatusUp
	} else {
		rec.failureCount++

		if rec.failureCount >= maxRetries {
			next = models.StatusDown
		} else {
			next = models.StatusPending
		}

		// DOWN is terminal for failures; stay there.
		if old == models.StatusDown {
			next = models.StatusDown
		}
	}

	rec.status = next
	rec.latencyMs = result.LatencyMs
	rec.packetLoss = result.PacketLoss
	rec.lastCheck = time.Now()
	rec.monitorPing = result.MonitorPing
	rec.monitorSNMP = result.MonitorSNMP
	failures := rec.failureCount

	rec.mu.Unlock()

	if next != old {
		e.emit(meta, old, next, transitionReason(old, next, failures, result.Reason))
	}

	return next
}

// Pause marks the node PAUSED immediately, independent of probe results,
// and resets its failure counter. Idempotent.
func (e *Engine) Pause(meta NodeMeta) {
	rec := e.record(meta)

	rec.mu.Lock()

	old := rec.status
	if old == models.StatusPaused {
		rec.mu.Unlock()
		return
	}

	rec.status = models.StatusPaused
	rec.failureCount = 0
	rec.lastCheck = time.Now()

	rec.mu.Unlock()

	e.emit(meta, old, models.StatusPaused, "paused by user")
}

// Resume returns a paused node to WAITING so its next check starts fresh.
func (e *Engine) Resume(meta NodeMeta) {
	rec := e.record(meta)

	rec.mu.Lock()

	if rec.status != models.StatusPaused {
		rec.mu.Unlock()
		return
	}

	rec.status = models.StatusWaiting
	rec.failureCount = 0

	rec.mu.Unlock()

	e.emit(meta, models.StatusPaused, models.StatusWaiting, "resumed by user")
}

// Remove drops a node's record, e.g. when the node is deleted.
func (e *Engine) Remove(nodeID int64) {
	e.records.Delete(nodeID)
}

// Snapshot returns a copy of one node's record.
func (e *Engine) Snapshot(nodeID int64) (models.StatusSnapshot, bool) {
	r, ok := e.records.Load(nodeID)
	if !ok {
		return models.StatusSnapshot{}, false
	}

	return r.(*record).snapshot(), true
}

// Snapshots returns copies of every node's record.
func (e *Engine) Snapshots() []models.StatusSnapshot {
	var snaps []models.StatusSnapshot

	e.records.Range(func(_, v interface{}) bool {
		snaps = append(snaps, v.(*record).snapshot())
		return true
	})

	return snaps
}

// LastSample returns the previous raw sample stored under key for rate
// derivation, if any.
func (e *Engine) LastSample(nodeID int64, key string) (float64, time.Time, bool) {
	r, ok := e.records.Load(nodeID)
	if !ok {
		return 0, time.Time{}, false
	}

	rec := r.(*record)

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	s, ok := rec.lastSamples[key]

	return s.value, s.timestamp, ok
}

// SetLastSample records the raw value of a successful collection so the
// next tick can compute a delta.
func (e *Engine) SetLastSample(meta NodeMeta, key string, value float64, ts time.Time) {
	rec := e.record(meta)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.lastSamples[key] = sample{value: value, timestamp: ts}
}

func (e *Engine) emit(meta NodeMeta, old, next models.NodeStatus, reason string) {
	event := models.TraceEvent{
		Timestamp: time.Now(),
		NodeID:    meta.NodeID,
		NodeName:  meta.NodeName,
		IP:        meta.IP,
		GroupName: meta.GroupName,
		OldStatus: old,
		NewStatus: next,
		Reason:    reason,
	}

	e.log.Info().
		Str("node", meta.NodeName).
		Str("old", string(old)).
		Str("new", string(next)).
		Str("reason", reason).
		Msg("status transition")

	e.bus.Emit(event)
}

func (r *record) snapshot() models.StatusSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := models.StatusSnapshot{
		NodeID:       r.meta.NodeID,
		NodeName:     r.meta.NodeName,
		IP:           r.meta.IP,
		GroupName:    r.meta.GroupName,
		Status:       r.status,
		FailureCount: r.failureCount,
		PacketLoss:   r.packetLoss,
		LastCheck:    r.lastCheck,
		MonitorPing:  r.monitorPing,
		MonitorSNMP:  r.monitorSNMP,
	}

	if r.latencyMs != nil {
		v := *r.latencyMs
		snap.LatencyMs = &v
	}

	return snap
}

func transitionReason(old, next models.NodeStatus, failures int, detail string) string {
	switch {
	case next == models.StatusUp && old == models.StatusWaiting:
		return "first check passed"
	case next == models.StatusUp:
		return "responded after outage"
	case next == models.StatusDown:
		if detail != "" {
			return fmt.Sprintf("%d consecutive failures (%s)", failures, detail)
		}

		return fmt.Sprintf("%d consecutive failures", failures)
	case next == models.StatusPending:
		if detail != "" {
			return fmt.Sprintf("check failed (%s), retrying", detail)
		}

		return "check failed, retrying"
	default:
		return detail
	}
}
