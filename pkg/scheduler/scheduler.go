// Package scheduler pkg/scheduler/scheduler.go
//
// The scheduler owns one goroutine per monitored node (the status loop)
// and one per enabled metric binding (the metric loop). Loops tick
// independently at their own effective intervals; a periodic sync
// reconciles the running loops against the configuration source.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/collector"
	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/probe"
	"github.com/beamstate/beamstate/pkg/status"
)

const (
	defaultSyncInterval = 30 * time.Second

	// A node in PENDING retries faster than its normal cadence so an
	// outage is confirmed or cleared quickly.
	pendingRetryDivisor = 3
	minRetryInterval    = time.Second
)

// Options configures a Scheduler.
type Options struct {
	Source       ConfigSource
	Pinger       probe.Pinger
	Getter       probe.Getter
	Engine       *status.Engine
	Collector    *collector.Collector
	ProbeTimeout time.Duration
	SyncInterval time.Duration
}

// Scheduler reconciles monitoring loops against the config source.
type Scheduler struct {
	source       ConfigSource
	pinger       probe.Pinger
	getter       probe.Getter
	engine       *status.Engine
	collector    *collector.Collector
	probeTimeout time.Duration
	syncInterval time.Duration
	log          zerolog.Logger

	mu          sync.Mutex
	nodeLoops   map[int64]*nodeLoop
	metricLoops map[int64]*metricLoop

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a scheduler. Run must be called to start it.
func New(opts Options) *Scheduler {
	syncInterval := opts.SyncInterval
	if syncInterval <= 0 {
		syncInterval = defaultSyncInterval
	}

	return &Scheduler{
		source:       opts.Source,
		pinger:       opts.Pinger,
		getter:       opts.Getter,
		engine:       opts.Engine,
		collector:    opts.Collector,
		probeTimeout: opts.ProbeTimeout,
		syncInterval: syncInterval,
		log:          logger.Component("scheduler"),
		nodeLoops:    make(map[int64]*nodeLoop),
		metricLoops:  make(map[int64]*metricLoop),
		done:         make(chan struct{}),
	}
}

// Run performs an initial sync and then reconciles periodically until
// ctx is cancelled or Stop is called. Blocks.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Sync(ctx); err != nil {
		return fmt.Errorf("initial configuration sync failed: %w", err)
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.log.Error().Err(err).Msg("configuration sync failed")
			}
		}
	}
}

// Stop tears down every loop and waits for them to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		for _, nl := range s.nodeLoops {
			nl.cancel()
		}

		for _, ml := range s.metricLoops {
			ml.cancel()
		}
		s.mu.Unlock()
	})

	s.wg.Wait()
}

// Sync reconciles running loops with the current configuration: new
// nodes get loops, deleted nodes lose them, and loops whose effective
// interval changed are recreated. Safe to call from API handlers.
func (s *Scheduler) Sync(ctx context.Context) error {
	groups, err := s.source.Groups(ctx)
	if err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}

	nodes, err := s.source.Nodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load nodes: %w", err)
	}

	defs, err := s.source.MetricDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metric definitions: %w", err)
	}

	configs, err := s.source.NodeMetricConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metric configs: %w", err)
	}

	groupsByID := make(map[int64]models.Group, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	defsByID := make(map[int64]models.MetricDefinition, len(defs))
	for _, d := range defs {
		defsByID[d.ID] = d
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
	}

	s.reconcileNodes(nodes, groupsByID)
	s.reconcileMetrics(configs, defsByID)

	return nil
}

func (s *Scheduler) reconcileNodes(nodes []models.Node, groupsByID map[int64]models.Group) {
	seen := make(map[int64]struct{}, len(nodes))

	for i := range nodes {
		node := nodes[i]

		group, ok := groupsByID[node.GroupID]
		if !ok {
			s.log.Warn().
				Int64("node_id", node.ID).
				Int64("group_id", node.GroupID).
				Msg("node references unknown group, skipping")

			continue
		}

		seen[node.ID] = struct{}{}
		interval := node.Resolve(&group).Interval

		if nl, exists := s.nodeLoops[node.ID]; exists {
			if nl.interval == interval {
				nl.update(node, group)
				continue
			}

			// Interval changed: the ticker cadence is fixed at loop
			// creation, so recreate the loop.
			nl.cancel()
			delete(s.nodeLoops, node.ID)
		}

		s.startNodeLoop(node, group, interval)
	}

	for id, nl := range s.nodeLoops {
		if _, ok := seen[id]; ok {
			continue
		}

		nl.cancel()
		delete(s.nodeLoops, id)
		s.engine.Remove(id)
		s.log.Info().Int64("node_id", id).Msg("node removed, loop stopped")
	}
}

func (s *Scheduler) reconcileMetrics(configs []models.NodeMetricConfig, defsByID map[int64]models.MetricDefinition) {
	seen := make(map[int64]struct{}, len(configs))

	for i := range configs {
		cfg := configs[i]
		if !cfg.Enabled {
			continue
		}

		nl, ok := s.nodeLoops[cfg.NodeID]
		if !ok {
			continue
		}

		def, ok := defsByID[cfg.MetricID]
		if !ok {
			s.log.Warn().
				Int64("config_id", cfg.ID).
				Int64("metric_id", cfg.MetricID).
				Msg("metric config references unknown definition, skipping")

			continue
		}

		seen[cfg.ID] = struct{}{}

		interval := cfg.Interval
		if interval <= 0 {
			interval = nl.settings().Interval
		}

		if ml, exists := s.metricLoops[cfg.ID]; exists {
			if ml.interval == interval {
				ml.update(cfg, def)
				continue
			}

			ml.cancel()
			delete(s.metricLoops, cfg.ID)
		}

		s.startMetricLoop(nl, cfg, def, interval)
	}

	for id, ml := range s.metricLoops {
		if _, ok := seen[id]; ok {
			continue
		}

		ml.cancel()
		delete(s.metricLoops, id)
	}
}

func (s *Scheduler) startNodeLoop(node models.Node, group models.Group, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())

	nl := &nodeLoop{
		node:     node,
		group:    group,
		interval: interval,
		cancel:   cancel,
	}

	s.nodeLoops[node.ID] = nl

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.runNodeLoop(ctx, nl)
	}()

	s.log.Debug().
		Str("node", node.Name).
		Dur("interval", interval).
		Msg("status loop started")
}

func (s *Scheduler) startMetricLoop(nl *nodeLoop, cfg models.NodeMetricConfig, def models.MetricDefinition, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())

	ml := &metricLoop{
		owner:    nl,
		config:   cfg,
		def:      def,
		interval: interval,
		cancel:   cancel,
	}

	s.metricLoops[cfg.ID] = ml

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.runMetricLoop(ctx, ml)
	}()
}

// runNodeLoop drives one node's status checks. Settings are re-resolved
// every tick so edits short of an interval change apply immediately.
func (s *Scheduler) runNodeLoop(ctx context.Context, nl *nodeLoop) {
	ticker := time.NewTicker(nl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			next := s.checkNode(ctx, nl)

			if next == models.StatusPending {
				ticker.Reset(retryInterval(nl.interval))
			} else {
				ticker.Reset(nl.interval)
			}
		}
	}
}

func (s *Scheduler) runMetricLoop(ctx context.Context, ml *metricLoop) {
	ticker := time.NewTicker(ml.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collectMetric(ctx, ml)
		}
	}
}

// checkNode runs every enabled probe for the node and feeds the
// aggregated outcome through the status engine. The node is UP only when
// all of its enabled protocols respond.
func (s *Scheduler) checkNode(ctx context.Context, nl *nodeLoop) models.NodeStatus {
	node, group := nl.current()
	settings := node.Resolve(&group)
	meta := nodeMeta(&node, &group)

	if !settings.Enabled {
		s.engine.Pause(meta)
		return models.StatusPaused
	}

	s.engine.Resume(meta)

	if !settings.MonitorPing && !settings.MonitorSNMP {
		s.log.Debug().Str("node", node.Name).Msg("no monitoring protocols enabled")
		return models.StatusWaiting
	}

	result := status.CheckResult{
		Success:     true,
		MonitorPing: settings.MonitorPing,
		MonitorSNMP: settings.MonitorSNMP,
	}

	var (
		latencies []float64
		reasons   []string
	)

	if settings.MonitorPing {
		ping, err := s.pinger.Ping(ctx, node.IP, s.probeTimeout, settings.PacketCount)

		switch {
		case err != nil:
			result.Success = false
			result.PacketLoss = 100

			reasons = append(reasons, fmt.Sprintf("ping error: %v", err))
		case !ping.Available:
			result.Success = false
			result.PacketLoss = ping.PacketLoss

			reasons = append(reasons, "ping timeout")
		default:
			result.PacketLoss = ping.PacketLoss
			latencies = append(latencies, ping.LatencyMs)
		}
	}

	if settings.MonitorSNMP {
		target := probe.Target{
			IP:        node.IP,
			Port:      settings.SNMPPort,
			Community: settings.SNMPCommunity,
			Timeout:   s.probeTimeout,
		}

		info, err := s.getter.SysInfo(ctx, target)
		if err != nil {
			result.Success = false

			reasons = append(reasons, fmt.Sprintf("snmp: %v", err))
		} else {
			latencies = append(latencies, info.LatencyMs)
		}
	}

	if len(latencies) > 0 {
		mean := meanOf(latencies)
		result.LatencyMs = &mean
	}

	result.Reason = strings.Join(reasons, "; ")

	return s.engine.Apply(meta, result, settings.MaxRetries)
}

func (s *Scheduler) collectMetric(ctx context.Context, ml *metricLoop) {
	node, group := ml.owner.current()
	settings := node.Resolve(&group)

	// Paused nodes collect nothing; the binding stays configured and
	// resumes with the node.
	if !settings.Enabled {
		return
	}

	cfg, def := ml.current()

	s.collector.Collect(ctx, &collector.Binding{
		Node:     &node,
		Settings: settings,
		Def:      &def,
		Config:   &cfg,
		Meta:     nodeMeta(&node, &group),
	})
}

// nodeLoop holds one node's live configuration. The sync pass updates
// it in place; the loop goroutine snapshots it every tick.
type nodeLoop struct {
	mu       sync.RWMutex
	node     models.Node
	group    models.Group
	interval time.Duration
	cancel   context.CancelFunc
}

func (nl *nodeLoop) update(node models.Node, group models.Group) {
	nl.mu.Lock()
	defer nl.mu.Unlock()

	nl.node = node
	nl.group = group
}

func (nl *nodeLoop) current() (models.Node, models.Group) {
	nl.mu.RLock()
	defer nl.mu.RUnlock()

	return nl.node, nl.group
}

func (nl *nodeLoop) settings() models.EffectiveSettings {
	node, group := nl.current()
	return node.Resolve(&group)
}

type metricLoop struct {
	mu       sync.RWMutex
	owner    *nodeLoop
	config   models.NodeMetricConfig
	def      models.MetricDefinition
	interval time.Duration
	cancel   context.CancelFunc
}

func (ml *metricLoop) update(cfg models.NodeMetricConfig, def models.MetricDefinition) {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	ml.config = cfg
	ml.def = def
}

func (ml *metricLoop) current() (models.NodeMetricConfig, models.MetricDefinition) {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	return ml.config, ml.def
}

func nodeMeta(node *models.Node, group *models.Group) status.NodeMeta {
	return status.NodeMeta{
		NodeID:    node.ID,
		NodeName:  node.Name,
		IP:        node.IP,
		GroupName: group.Name,
	}
}

func retryInterval(interval time.Duration) time.Duration {
	retry := interval / pendingRetryDivisor
	if retry < minRetryInterval {
		retry = minRetryInterval
	}

	return retry
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
