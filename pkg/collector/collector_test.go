package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/beamstate/beamstate/pkg/alerting"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/probe"
	"github.com/beamstate/beamstate/pkg/status"
	"github.com/beamstate/beamstate/pkg/trace"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func testBinding(def models.MetricDefinition, cfg models.NodeMetricConfig) *Binding {
	node := &models.Node{ID: 7, Name: "edge-router", IP: "10.0.0.1", Enabled: true}

	return &Binding{
		Node: node,
		Settings: models.EffectiveSettings{
			SNMPCommunity: "public",
			SNMPPort:      161,
			Enabled:       true,
		},
		Def:    &def,
		Config: &cfg,
		Meta: status.NodeMeta{
			NodeID:   node.ID,
			NodeName: node.Name,
			IP:       node.IP,
		},
	}
}

func newTestCollector(t *testing.T) (*Collector, *probe.MockGetter, *MockMetricSink, *MockBreachReporter) {
	t.Helper()

	ctrl := gomock.NewController(t)
	getter := probe.NewMockGetter(ctrl)
	sink := NewMockMetricSink(ctrl)
	breaches := NewMockBreachReporter(ctrl)

	engine := status.NewEngine(trace.NewBus(10))
	c := New(getter, engine, sink, breaches, time.Second)

	return c, getter, sink, breaches
}

func TestDeriveRateFirstSampleAbsent(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{ID: 1, MetricType: models.TypeCounter, Unit: "bytes"},
		models.NodeMetricConfig{ID: 11},
	)

	rate := c.deriveRate(b, 1000, time.Now())
	assert.Nil(t, rate)
}

func TestDeriveRateComputesDelta(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{ID: 1, MetricType: models.TypeCounter, Unit: "packets"},
		models.NodeMetricConfig{ID: 11},
	)

	t0 := time.Now()
	require.Nil(t, c.deriveRate(b, 1000, t0))

	rate := c.deriveRate(b, 2000, t0.Add(10*time.Second))
	require.NotNil(t, rate)
	assert.InDelta(t, 100.0, *rate, 0.001)
}

func TestDeriveRateBytesBecomeBits(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{ID: 1, MetricType: models.TypeCounter, Unit: "bytes"},
		models.NodeMetricConfig{ID: 11},
	)

	t0 := time.Now()
	require.Nil(t, c.deriveRate(b, 0, t0))

	// 1250 bytes over 10s = 125 B/s = 1000 bits/s.
	rate := c.deriveRate(b, 1250, t0.Add(10*time.Second))
	require.NotNil(t, rate)
	assert.InDelta(t, 1000.0, *rate, 0.001)
}

func TestDeriveRateCounterResetAbsent(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{ID: 1, MetricType: models.TypeCounter, Unit: "packets"},
		models.NodeMetricConfig{ID: 11},
	)

	t0 := time.Now()
	require.Nil(t, c.deriveRate(b, 5000, t0))

	// The counter went backwards (device reboot or wrap): no rate, and
	// the new value becomes the baseline.
	assert.Nil(t, c.deriveRate(b, 100, t0.Add(10*time.Second)))

	rate := c.deriveRate(b, 200, t0.Add(20*time.Second))
	require.NotNil(t, rate)
	assert.InDelta(t, 10.0, *rate, 0.001)
}

func TestDeriveRateKeysAreIndependent(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	def := models.MetricDefinition{ID: 1, MetricType: models.TypeCounter, Unit: "packets"}
	eth0 := testBinding(def, models.NodeMetricConfig{ID: 11, InterfaceIndex: intPtr(1)})
	eth1 := testBinding(def, models.NodeMetricConfig{ID: 12, InterfaceIndex: intPtr(2)})

	t0 := time.Now()
	require.Nil(t, c.deriveRate(eth0, 100, t0))

	// A first sample on one interface must not give the other a baseline.
	assert.Nil(t, c.deriveRate(eth1, 100, t0.Add(10*time.Second)))
}

func TestCollectWritesGaugeSample(t *testing.T) {
	c, getter, sink, breaches := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{
			ID:          2,
			Name:        "cpu_load",
			OIDTemplate: "1.3.6.1.2.1.25.3.3.1.2.{index}",
			MetricType:  models.TypeGauge,
			Unit:        "percent",
		},
		models.NodeMetricConfig{
			ID:             21,
			MetricID:       2,
			InterfaceIndex: intPtr(1),
			WarningAt:      floatPtr(80),
			CriticalAt:     floatPtr(95),
		},
	)

	getter.EXPECT().
		Get(gomock.Any(), gomock.Any(), "1.3.6.1.2.1.25.3.3.1.2.1").
		Return(uint64(42), nil)

	var written *models.MetricSample

	sink.EXPECT().
		WriteSample(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sample *models.MetricSample) error {
			written = sample
			return nil
		})

	var reported alerting.MetricBreach

	breaches.EXPECT().
		HandleMetricBreach(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, breach alerting.MetricBreach) {
			reported = breach
		})

	c.Collect(context.Background(), b)

	require.NotNil(t, written)
	assert.InDelta(t, 42.0, written.Value, 0.001)
	assert.Nil(t, written.Rate)
	assert.Equal(t, "percent", written.Unit)

	assert.Equal(t, alerting.LevelNone, reported.Level)
	assert.InDelta(t, 42.0, reported.Value, 0.001)
}

func TestCollectSkipsThresholdsForFirstCounterSample(t *testing.T) {
	c, getter, sink, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{
			ID:          1,
			Name:        "if_in_octets",
			OIDTemplate: "1.3.6.1.2.1.2.2.1.10.{index}",
			MetricType:  models.TypeCounter,
			Unit:        "bytes",
		},
		models.NodeMetricConfig{
			ID:             11,
			MetricID:       1,
			InterfaceIndex: intPtr(3),
			WarningAt:      floatPtr(1e6),
		},
	)

	getter.EXPECT().
		Get(gomock.Any(), gomock.Any(), "1.3.6.1.2.1.2.2.1.10.3").
		Return(uint64(123456), nil)

	sink.EXPECT().WriteSample(gomock.Any(), gomock.Any()).Return(nil)

	// No breach report expected: a counter without a rate is not judged.
	c.Collect(context.Background(), b)
}

func TestCollectProbeFailureIsSilent(t *testing.T) {
	c, getter, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{
			ID:          2,
			Name:        "cpu_load",
			OIDTemplate: "1.3.6.1.2.1.25.3.3.1.2.1",
			MetricType:  models.TypeGauge,
			Unit:        "percent",
		},
		models.NodeMetricConfig{ID: 21, MetricID: 2},
	)

	getter.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, probe.ErrTimeout)

	// Neither the sink nor the breach reporter may be called.
	c.Collect(context.Background(), b)
}

func TestEvaluateThresholdLevels(t *testing.T) {
	tests := []struct {
		name      string
		condition models.AlertCondition
		warning   *float64
		critical  *float64
		value     float64
		want      alerting.BreachLevel
	}{
		{"below warning", models.ConditionGreaterThan, floatPtr(80), floatPtr(95), 50, alerting.LevelNone},
		{"at warning", models.ConditionGreaterThan, floatPtr(80), floatPtr(95), 80, alerting.LevelWarning},
		{"at critical", models.ConditionGreaterThan, floatPtr(80), floatPtr(95), 95, alerting.LevelCritical},
		{"critical wins over warning", models.ConditionGreaterThan, floatPtr(80), floatPtr(95), 99, alerting.LevelCritical},
		{"less-than breach", models.ConditionLessThan, floatPtr(20), floatPtr(5), 10, alerting.LevelWarning},
		{"less-than critical", models.ConditionLessThan, floatPtr(20), floatPtr(5), 2, alerting.LevelCritical},
		{"warning only", models.ConditionGreaterThan, floatPtr(80), nil, 90, alerting.LevelWarning},
		{"empty condition defaults to gt", "", floatPtr(80), nil, 90, alerting.LevelWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, breaches := newTestCollector(t)

			b := testBinding(
				models.MetricDefinition{ID: 2, Name: "cpu_load", MetricType: models.TypeGauge, Unit: "percent"},
				models.NodeMetricConfig{
					ID:             21,
					AlertCondition: tt.condition,
					WarningAt:      tt.warning,
					CriticalAt:     tt.critical,
				},
			)

			var reported alerting.MetricBreach

			breaches.EXPECT().
				HandleMetricBreach(gomock.Any(), gomock.Any()).
				Do(func(_ context.Context, breach alerting.MetricBreach) {
					reported = breach
				})

			sample := &models.MetricSample{Value: tt.value, Unit: "percent"}
			c.evaluateThresholds(context.Background(), b, sample)

			assert.Equal(t, tt.want, reported.Level)
		})
	}
}

func TestEvaluateThresholdsSkippedWithoutThresholds(t *testing.T) {
	c, _, _, _ := newTestCollector(t)

	b := testBinding(
		models.MetricDefinition{ID: 2, MetricType: models.TypeGauge},
		models.NodeMetricConfig{ID: 21},
	)

	// No expectations registered: any breach call would fail the test.
	c.evaluateThresholds(context.Background(), b, &models.MetricSample{Value: 99})
}
