// Package scheduler pkg/scheduler/interfaces.go
package scheduler

import (
	"context"

	"github.com/beamstate/beamstate/pkg/models"
)

//go:generate mockgen -destination=mock_scheduler.go -package=scheduler github.com/beamstate/beamstate/pkg/scheduler ConfigSource

// ConfigSource supplies the monitoring configuration the scheduler runs
// from. The scheduler re-reads it on every sync, so edits take effect
// without a restart.
type ConfigSource interface {
	Groups(ctx context.Context) ([]models.Group, error)
	Nodes(ctx context.Context) ([]models.Node, error)
	MetricDefinitions(ctx context.Context) ([]models.MetricDefinition, error)
	NodeMetricConfigs(ctx context.Context) ([]models.NodeMetricConfig, error)
}
