// Package models pkg/models/discovery.go
package models

// DiscoveryResult is one discovered host. Scan-scoped; nothing is
// persisted until the caller imports it.
type DiscoveryResult struct {
	IP          string   `json:"ip"`
	Hostname    string   `json:"hostname,omitempty"`
	LatencyMs   *float64 `json:"latency_ms,omitempty"`
	Vendor      string   `json:"vendor"`
	DeviceType  string   `json:"device_type"`
	SNMPEnabled bool     `json:"snmp_enabled"`
	Community   string   `json:"community,omitempty"`
}

// ScanProgress is a point-in-time view of a running or finished scan.
// Scanned only ever increases for a given scan ID.
type ScanProgress struct {
	ScanID    string `json:"scan_id"`
	Running   bool   `json:"running"`
	Scanned   int    `json:"scanned"`
	Total     int    `json:"total"`
	FoundICMP int    `json:"found_icmp"`
	FoundSNMP int    `json:"found_snmp"`
}

// ImportSummary reports the outcome of merging scan results into the
// configured node set.
type ImportSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}
