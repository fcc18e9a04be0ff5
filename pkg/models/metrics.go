// Package models pkg/models/metrics.go
package models

import "time"

// MetricType describes how samples of a metric are interpreted.
type MetricType string

const (
	// TypeCounter is a monotonically increasing value; rates are derived
	// from the delta between successive samples.
	TypeCounter MetricType = "counter"
	// TypeGauge is an instantaneous value stored as-is.
	TypeGauge MetricType = "gauge"
)

// MetricCategory groups metric definitions by what they describe.
type MetricCategory string

const (
	CategoryInterface MetricCategory = "interface"
	CategorySystem    MetricCategory = "system"
)

// AlertCondition selects the comparison direction for thresholds.
type AlertCondition string

const (
	ConditionGreaterThan AlertCondition = "gt"
	ConditionLessThan    AlertCondition = "lt"
)

// MetricDefinition describes one collectible SNMP metric.
type MetricDefinition struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	OIDTemplate   string         `json:"oid_template"`
	MetricType    MetricType     `json:"metric_type"`
	Unit          string         `json:"unit"`
	Category      MetricCategory `json:"category"`
	RequiresIndex bool           `json:"requires_index"`
	Source        string         `json:"source"`
}

// NodeMetricConfig binds a node to a metric definition, optionally scoped
// to one interface index. Uniquely keyed by (node, definition, index).
type NodeMetricConfig struct {
	ID             int64          `json:"id"`
	NodeID         int64          `json:"node_id"`
	MetricID       int64          `json:"metric_id"`
	InterfaceIndex *int           `json:"interface_index,omitempty"`
	InterfaceName  string         `json:"interface_name,omitempty"`
	Interval       time.Duration  `json:"interval"`
	Enabled        bool           `json:"enabled"`
	AlertCondition AlertCondition `json:"alert_condition,omitempty"`
	WarningAt      *float64       `json:"warning_threshold,omitempty"`
	CriticalAt     *float64       `json:"critical_threshold,omitempty"`
}

// MetricSample is one collected value, with a derived rate for counters.
// Rate is nil on the first sample and after a counter reset or wrap.
type MetricSample struct {
	NodeID         int64     `json:"node_id"`
	MetricID       int64     `json:"metric_id"`
	InterfaceIndex *int      `json:"interface_index,omitempty"`
	Value          float64   `json:"value"`
	Rate           *float64  `json:"rate,omitempty"`
	Unit           string    `json:"unit"`
	Timestamp      time.Time `json:"timestamp"`
}
