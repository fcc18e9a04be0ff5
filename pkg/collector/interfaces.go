// Package collector pkg/collector/interfaces.go
package collector

import (
	"context"

	"github.com/beamstate/beamstate/pkg/alerting"
	"github.com/beamstate/beamstate/pkg/models"
)

//go:generate mockgen -destination=mock_collector.go -package=collector github.com/beamstate/beamstate/pkg/collector MetricSink,BreachReporter

// MetricSink receives collected samples. Implementations are expected to
// be a time-series store or log shipper; delivery failures are logged
// and never abort collection.
type MetricSink interface {
	WriteSample(ctx context.Context, sample *models.MetricSample) error
}

// BreachReporter receives threshold evaluations. The collector computes
// breach state; the reporter decides whether to notify.
type BreachReporter interface {
	HandleMetricBreach(ctx context.Context, breach alerting.MetricBreach)
}
