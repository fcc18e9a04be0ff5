package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/beamstate/beamstate/pkg/collector"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/probe"
	"github.com/beamstate/beamstate/pkg/status"
	"github.com/beamstate/beamstate/pkg/trace"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func testGroup() models.Group {
	return models.Group{
		ID:            1,
		Name:          "infra",
		Interval:      30 * time.Second,
		PacketCount:   3,
		MaxRetries:    3,
		SNMPCommunity: "public",
		SNMPPort:      161,
		MonitorPing:   true,
		Enabled:       true,
	}
}

func testNode() models.Node {
	return models.Node{
		ID:      10,
		Name:    "core-switch",
		IP:      "10.0.0.2",
		GroupID: 1,
		Enabled: true,
	}
}

type fixture struct {
	sched  *Scheduler
	source *MockConfigSource
	pinger *probe.MockPinger
	getter *probe.MockGetter
	engine *status.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	source := NewMockConfigSource(ctrl)
	pinger := probe.NewMockPinger(ctrl)
	getter := probe.NewMockGetter(ctrl)

	engine := status.NewEngine(trace.NewBus(100))
	coll := collector.New(getter, engine, collector.NewMockMetricSink(ctrl),
		collector.NewMockBreachReporter(ctrl), time.Second)

	sched := New(Options{
		Source:       source,
		Pinger:       pinger,
		Getter:       getter,
		Engine:       engine,
		Collector:    coll,
		ProbeTimeout: time.Second,
	})

	return &fixture{sched: sched, source: source, pinger: pinger, getter: getter, engine: engine}
}

func (f *fixture) expectConfig(groups []models.Group, nodes []models.Node,
	defs []models.MetricDefinition, configs []models.NodeMetricConfig) {
	f.source.EXPECT().Groups(gomock.Any()).Return(groups, nil)
	f.source.EXPECT().Nodes(gomock.Any()).Return(nodes, nil)
	f.source.EXPECT().MetricDefinitions(gomock.Any()).Return(defs, nil)
	f.source.EXPECT().NodeMetricConfigs(gomock.Any()).Return(configs, nil)
}

func (f *fixture) nodeLoop(id int64) (*nodeLoop, bool) {
	f.sched.mu.Lock()
	defer f.sched.mu.Unlock()

	nl, ok := f.sched.nodeLoops[id]

	return nl, ok
}

func TestSyncStartsAndRemovesLoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defer f.sched.Stop()

	f.expectConfig([]models.Group{testGroup()}, []models.Node{testNode()}, nil, nil)
	require.NoError(t, f.sched.Sync(ctx))

	_, ok := f.nodeLoop(10)
	assert.True(t, ok)

	// The node disappears from the source: its loop and record go away.
	f.expectConfig([]models.Group{testGroup()}, nil, nil, nil)
	require.NoError(t, f.sched.Sync(ctx))

	_, ok = f.nodeLoop(10)
	assert.False(t, ok)

	_, found := f.engine.Snapshot(10)
	assert.False(t, found)
}

func TestSyncRecreatesLoopOnIntervalChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defer f.sched.Stop()

	f.expectConfig([]models.Group{testGroup()}, []models.Node{testNode()}, nil, nil)
	require.NoError(t, f.sched.Sync(ctx))

	before, ok := f.nodeLoop(10)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, before.interval)

	// A node-level override changes the effective interval; the loop must
	// be recreated at the new cadence.
	node := testNode()
	node.Interval = durationPtr(10 * time.Second)

	f.expectConfig([]models.Group{testGroup()}, []models.Node{node}, nil, nil)
	require.NoError(t, f.sched.Sync(ctx))

	after, ok := f.nodeLoop(10)
	require.True(t, ok)
	assert.NotSame(t, before, after)
	assert.Equal(t, 10*time.Second, after.interval)
}

func TestSyncSkipsNodeWithUnknownGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defer f.sched.Stop()

	node := testNode()
	node.GroupID = 99

	f.expectConfig([]models.Group{testGroup()}, []models.Node{node}, nil, nil)
	require.NoError(t, f.sched.Sync(ctx))

	_, ok := f.nodeLoop(10)
	assert.False(t, ok)
}

func TestSyncManagesMetricLoops(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	defer f.sched.Stop()

	def := models.MetricDefinition{
		ID:          1,
		Name:        "if_in_octets",
		OIDTemplate: "1.3.6.1.2.1.2.2.1.10.{index}",
		MetricType:  models.TypeCounter,
		Unit:        "bytes",
	}
	index := 3
	cfg := models.NodeMetricConfig{
		ID:             100,
		NodeID:         10,
		MetricID:       1,
		InterfaceIndex: &index,
		Interval:       time.Minute,
		Enabled:        true,
	}

	f.expectConfig([]models.Group{testGroup()}, []models.Node{testNode()},
		[]models.MetricDefinition{def}, []models.NodeMetricConfig{cfg})
	require.NoError(t, f.sched.Sync(ctx))

	f.sched.mu.Lock()
	_, ok := f.sched.metricLoops[100]
	f.sched.mu.Unlock()
	assert.True(t, ok)

	// Disabling the binding tears its loop down.
	cfg.Enabled = false

	f.expectConfig([]models.Group{testGroup()}, []models.Node{testNode()},
		[]models.MetricDefinition{def}, []models.NodeMetricConfig{cfg})
	require.NoError(t, f.sched.Sync(ctx))

	f.sched.mu.Lock()
	_, ok = f.sched.metricLoops[100]
	f.sched.mu.Unlock()
	assert.False(t, ok)
}

func TestCheckNodeAllProtocolsMustSucceed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group := testGroup()
	group.MonitorSNMP = true

	nl := &nodeLoop{node: testNode(), group: group, interval: group.Interval}

	// Ping succeeds but SNMP times out: the check fails as a whole.
	f.pinger.EXPECT().
		Ping(gomock.Any(), "10.0.0.2", time.Second, 3).
		Return(&probe.PingResult{LatencyMs: 2, Available: true}, nil)
	f.getter.EXPECT().
		SysInfo(gomock.Any(), gomock.Any()).
		Return(nil, probe.ErrTimeout)

	got := f.sched.checkNode(ctx, nl)
	assert.Equal(t, models.StatusPending, got)

	snap, found := f.engine.Snapshot(10)
	require.True(t, found)
	assert.Equal(t, 1, snap.FailureCount)
}

func TestCheckNodeMeansLatencies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	group := testGroup()
	group.MonitorSNMP = true

	nl := &nodeLoop{node: testNode(), group: group, interval: group.Interval}

	f.pinger.EXPECT().
		Ping(gomock.Any(), "10.0.0.2", time.Second, 3).
		Return(&probe.PingResult{LatencyMs: 2, Available: true}, nil)
	f.getter.EXPECT().
		SysInfo(gomock.Any(), gomock.Any()).
		Return(&probe.SystemInfo{Description: "linux", LatencyMs: 4}, nil)

	got := f.sched.checkNode(ctx, nl)
	assert.Equal(t, models.StatusUp, got)

	snap, found := f.engine.Snapshot(10)
	require.True(t, found)
	require.NotNil(t, snap.LatencyMs)
	assert.InDelta(t, 3.0, *snap.LatencyMs, 0.001)
}

func TestCheckNodeDisabledPauses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	node := testNode()
	node.Enabled = false

	nl := &nodeLoop{node: node, group: testGroup(), interval: 30 * time.Second}

	// No probe expectations: a paused node is never probed.
	got := f.sched.checkNode(ctx, nl)
	assert.Equal(t, models.StatusPaused, got)

	snap, found := f.engine.Snapshot(10)
	require.True(t, found)
	assert.Equal(t, models.StatusPaused, snap.Status)
}

func TestCheckNodeResumesAfterEnable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	node := testNode()
	node.Enabled = false

	nl := &nodeLoop{node: node, group: testGroup(), interval: 30 * time.Second}

	f.sched.checkNode(ctx, nl)

	node.Enabled = true
	nl.update(node, testGroup())

	f.pinger.EXPECT().
		Ping(gomock.Any(), "10.0.0.2", time.Second, 3).
		Return(&probe.PingResult{LatencyMs: 2, Available: true}, nil)

	got := f.sched.checkNode(ctx, nl)
	assert.Equal(t, models.StatusUp, got)
}

func TestRetryInterval(t *testing.T) {
	assert.Equal(t, 10*time.Second, retryInterval(30*time.Second))
	assert.Equal(t, minRetryInterval, retryInterval(2*time.Second))
}
