// Package models pkg/models/nodes.go
package models

import "time"

// NodeStatus is the externally visible lifecycle status of a node.
type NodeStatus string

const (
	// StatusWaiting means no check has completed yet.
	StatusWaiting NodeStatus = "WAITING"
	// StatusUp means the last check succeeded.
	StatusUp NodeStatus = "UP"
	// StatusPending means one or more consecutive failures, below the retry limit.
	StatusPending NodeStatus = "PENDING"
	// StatusDown means the retry limit was reached without a success.
	StatusDown NodeStatus = "DOWN"
	// StatusPaused means the node or its group is disabled. Overrides all others.
	StatusPaused NodeStatus = "PAUSED"
)

// Group owns nodes and supplies their default monitoring settings.
type Group struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Interval      time.Duration `json:"interval"`
	PacketCount   int           `json:"packet_count"`
	MaxRetries    int           `json:"max_retries"`
	SNMPCommunity string        `json:"snmp_community"`
	SNMPPort      uint16        `json:"snmp_port"`
	MonitorPing   bool          `json:"monitor_ping"`
	MonitorSNMP   bool          `json:"monitor_snmp"`
	Enabled       bool          `json:"enabled"`
}

// Node is a monitored device. Nil override fields inherit from the group.
type Node struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IP      string `json:"ip"`
	GroupID int64  `json:"group_id"`

	Interval      *time.Duration `json:"interval,omitempty"`
	PacketCount   *int           `json:"packet_count,omitempty"`
	MaxRetries    *int           `json:"max_retries,omitempty"`
	SNMPCommunity *string        `json:"snmp_community,omitempty"`
	SNMPPort      *uint16        `json:"snmp_port,omitempty"`
	MonitorPing   *bool          `json:"monitor_ping,omitempty"`
	MonitorSNMP   *bool          `json:"monitor_snmp,omitempty"`

	Enabled bool `json:"enabled"`

	// NotificationPriority overrides the deployment-wide alert priority.
	NotificationPriority *int `json:"notification_priority,omitempty"`
}

// EffectiveSettings is a node's configuration after group inheritance.
type EffectiveSettings struct {
	Interval      time.Duration
	PacketCount   int
	MaxRetries    int
	SNMPCommunity string
	SNMPPort      uint16
	MonitorPing   bool
	MonitorSNMP   bool
	Enabled       bool
}

// Resolve computes the node's effective settings against its owning group.
// Resolution happens at read time; effective values are never stored.
func (n *Node) Resolve(g *Group) EffectiveSettings {
	s := EffectiveSettings{
		Interval:      g.Interval,
		PacketCount:   g.PacketCount,
		MaxRetries:    g.MaxRetries,
		SNMPCommunity: g.SNMPCommunity,
		SNMPPort:      g.SNMPPort,
		MonitorPing:   g.MonitorPing,
		MonitorSNMP:   g.MonitorSNMP,
		Enabled:       n.Enabled && g.Enabled,
	}

	if n.Interval != nil {
		s.Interval = *n.Interval
	}

	if n.PacketCount != nil {
		s.PacketCount = *n.PacketCount
	}

	if n.MaxRetries != nil {
		s.MaxRetries = *n.MaxRetries
	}

	if n.SNMPCommunity != nil {
		s.SNMPCommunity = *n.SNMPCommunity
	}

	if n.SNMPPort != nil {
		s.SNMPPort = *n.SNMPPort
	}

	if n.MonitorPing != nil {
		s.MonitorPing = *n.MonitorPing
	}

	if n.MonitorSNMP != nil {
		s.MonitorSNMP = *n.MonitorSNMP
	}

	return s
}
