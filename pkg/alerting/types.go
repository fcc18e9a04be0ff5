// Package alerting pkg/alerting/types.go
package alerting

import (
	"github.com/beamstate/beamstate/pkg/models"
)

// BreachLevel is the threshold state of one node metric.
type BreachLevel string

const (
	LevelNone     BreachLevel = ""
	LevelWarning  BreachLevel = "WARNING"
	LevelCritical BreachLevel = "CRITICAL"
)

// MetricBreach reports the threshold state of a freshly collected value.
// The collector computes it; only the throttler decides whether anybody
// hears about it.
type MetricBreach struct {
	ConfigID   int64
	NodeID     int64
	NodeName   string
	MetricName string
	Unit       string
	Value      float64
	Level      BreachLevel
	Condition  models.AlertCondition
	WarningAt  *float64
	CriticalAt *float64
	// NodePriority is the node's notification priority override, if set.
	NodePriority *int
	// NodePaused suppresses breach alerts while the node is disabled.
	NodePaused bool
}
