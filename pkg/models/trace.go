// Package models pkg/models/trace.go
package models

import "time"

// TraceEvent records one status transition. Immutable once created.
type TraceEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	NodeID    int64      `json:"node_id"`
	NodeName  string     `json:"node_name"`
	IP        string     `json:"ip"`
	GroupName string     `json:"group_name"`
	OldStatus NodeStatus `json:"old_status"`
	NewStatus NodeStatus `json:"new_status"`
	Reason    string     `json:"reason"`
}

// StatusSnapshot is a copy of a node's latest cached check result,
// safe to hand to API readers while the owning loop keeps writing.
type StatusSnapshot struct {
	NodeID       int64      `json:"node_id"`
	NodeName     string     `json:"node_name"`
	IP           string     `json:"ip"`
	GroupName    string     `json:"group_name"`
	Status       NodeStatus `json:"status"`
	FailureCount int        `json:"failure_count"`
	LatencyMs    *float64   `json:"latency_ms,omitempty"`
	PacketLoss   float64    `json:"packet_loss"`
	LastCheck    time.Time  `json:"last_check"`
	MonitorPing  bool       `json:"monitor_ping"`
	MonitorSNMP  bool       `json:"monitor_snmp"`
}
