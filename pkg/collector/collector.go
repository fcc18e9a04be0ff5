// Package collector pkg/collector/collector.go
//
// The metric collector runs one SNMP get per enabled (node, metric,
// interface) binding, derives counter rates from successive samples, and
// reports threshold breach state. It never notifies on its own.
package collector

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/alerting"
	"github.com/beamstate/beamstate/pkg/catalog"
	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/probe"
	"github.com/beamstate/beamstate/pkg/status"
)

const bitsPerByte = 8

// Collector performs metric collection passes.
type Collector struct {
	getter   probe.Getter
	engine   *status.Engine
	sink     MetricSink
	breaches BreachReporter
	timeout  time.Duration
	log      zerolog.Logger
}

// New creates a collector. sink and breaches may not be nil. timeout
// bounds each SNMP get; zero falls back to the probe default.
func New(getter probe.Getter, engine *status.Engine, sink MetricSink, breaches BreachReporter, timeout time.Duration) *Collector {
	return &Collector{
		getter:   getter,
		engine:   engine,
		sink:     sink,
		breaches: breaches,
		timeout:  timeout,
		log:      logger.Component("collector"),
	}
}

// Binding is one resolved collection target: the node, its effective
// SNMP settings, the metric definition, and the node-metric config.
type Binding struct {
	Node     *models.Node
	Settings models.EffectiveSettings
	Def      *models.MetricDefinition
	Config   *models.NodeMetricConfig
	Meta     status.NodeMeta
}

// Collect performs one collection pass for a binding. A probe failure is
// recorded and skipped, never returned as a hard error; the next tick
// retries.
func (c *Collector) Collect(ctx context.Context, b *Binding) {
	oid, err := catalog.ResolveOID(b.Def, b.Config.InterfaceIndex)
	if err != nil {
		// Invalid bindings are rejected at configuration-apply time;
		// reaching this means the store let one through.
		c.log.Error().Err(err).
			Str("metric", b.Def.Name).
			Int64("node_id", b.Node.ID).
			Msg("unresolvable metric binding")

		return
	}

	target := probe.Target{
		IP:        b.Node.IP,
		Port:      b.Settings.SNMPPort,
		Community: b.Settings.SNMPCommunity,
		Timeout:   c.timeout,
	}

	raw, err := c.getter.Get(ctx, target, oid)
	if err != nil {
		c.log.Debug().Err(err).
			Str("metric", b.Def.Name).
			Str("node", b.Node.Name).
			Msg("metric collection failed")

		return
	}

	value, ok := probe.ToFloat(raw)
	if !ok {
		c.log.Debug().
			Str("metric", b.Def.Name).
			Str("node", b.Node.Name).
			Msg("non-numeric metric value")

		return
	}

	now := time.Now()

	sample := &models.MetricSample{
		NodeID:         b.Node.ID,
		MetricID:       b.Def.ID,
		InterfaceIndex: b.Config.InterfaceIndex,
		Value:          value,
		Unit:           b.Def.Unit,
		Timestamp:      now,
	}

	if b.Def.MetricType == models.TypeCounter {
		sample.Rate = c.deriveRate(b, value, now)

		if sample.Rate != nil && b.Def.Unit == "bytes" {
			sample.Unit = "bps"
		}
	}

	if err := c.sink.WriteSample(ctx, sample); err != nil {
		c.log.Error().Err(err).
			Str("metric", b.Def.Name).
			Msg("metric sink write failed")
	}

	c.evaluateThresholds(ctx, b, sample)
}

// deriveRate computes value change per second since the previous sample.
// The first sample for a key, or any counter decrease (reset or wrap),
// yields no rate - absence, not zero, so startup and resets cannot fake
// a spike or drop. Byte counters are emitted as bits/sec.
func (c *Collector) deriveRate(b *Binding, value float64, now time.Time) *float64 {
	key := sampleKey(b.Config)

	prevValue, prevTime, ok := c.engine.LastSample(b.Node.ID, key)

	c.engine.SetLastSample(b.Meta, key, value, now)

	if !ok {
		return nil
	}

	elapsed := now.Sub(prevTime).Seconds()
	if elapsed <= 0 {
		return nil
	}

	delta := value - prevValue
	if delta < 0 {
		return nil
	}

	rate := delta / elapsed

	if b.Def.Unit == "bytes" {
		rate *= bitsPerByte
	}

	return &rate
}

// evaluateThresholds computes breach state for the freshly collected
// value and hands it to the breach reporter. Counters are judged on
// their rate; a counter without a rate yet is not judged at all.
func (c *Collector) evaluateThresholds(ctx context.Context, b *Binding, sample *models.MetricSample) {
	cfg := b.Config

	if cfg.WarningAt == nil && cfg.CriticalAt == nil {
		return
	}

	value := sample.Value
	if b.Def.MetricType == models.TypeCounter {
		if sample.Rate == nil {
			return
		}

		value = *sample.Rate
	}

	condition := cfg.AlertCondition
	if condition == "" {
		condition = models.ConditionGreaterThan
	}

	level := alerting.LevelNone

	if cfg.CriticalAt != nil && breached(condition, value, *cfg.CriticalAt) {
		level = alerting.LevelCritical
	} else if cfg.WarningAt != nil && breached(condition, value, *cfg.WarningAt) {
		level = alerting.LevelWarning
	}

	c.breaches.HandleMetricBreach(ctx, alerting.MetricBreach{
		ConfigID:     cfg.ID,
		NodeID:       b.Node.ID,
		NodeName:     b.Node.Name,
		MetricName:   b.Def.Name,
		Unit:         sample.Unit,
		Value:        value,
		Level:        level,
		Condition:    condition,
		WarningAt:    cfg.WarningAt,
		CriticalAt:   cfg.CriticalAt,
		NodePriority: b.Node.NotificationPriority,
		NodePaused:   !b.Settings.Enabled,
	})
}

func breached(condition models.AlertCondition, value, threshold float64) bool {
	if condition == models.ConditionLessThan {
		return value <= threshold
	}

	return value >= threshold
}

func sampleKey(cfg *models.NodeMetricConfig) string {
	return strconv.FormatInt(cfg.ID, 10)
}
