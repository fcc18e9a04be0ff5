// Package probe pkg/probe/interfaces.go
package probe

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mock_probe.go -package=probe github.com/beamstate/beamstate/pkg/probe Pinger,Getter

// PingResult is the outcome of one ICMP reachability check.
type PingResult struct {
	LatencyMs  float64
	PacketLoss float64
	Available  bool
}

// Target identifies an SNMP endpoint.
type Target struct {
	IP        string
	Port      uint16
	Community string
	Timeout   time.Duration
}

// SystemInfo is the standard system-description triple used for
// reachability checks and device identification.
type SystemInfo struct {
	Description string
	ObjectID    string
	Name        string
	LatencyMs   float64
}

// Pinger sends ICMP echo requests to a host.
type Pinger interface {
	// Ping probes ip with count packets, bounded by timeout. A host that
	// answers no packets yields Available=false with a nil error;
	// transport problems yield an error.
	Ping(ctx context.Context, ip string, timeout time.Duration, count int) (*PingResult, error)
}

// Getter performs SNMP reads against a target.
type Getter interface {
	// Get retrieves a single OID value, converted to a native Go type.
	Get(ctx context.Context, target Target, oid string) (interface{}, error)
	// SysInfo reads the system description group in one request.
	SysInfo(ctx context.Context, target Target) (*SystemInfo, error)
}
