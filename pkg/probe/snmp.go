// Package probe pkg/probe/snmp.go
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const (
	oidSysDescr    = ".1.3.6.1.2.1.1.1.0"
	oidSysObjectID = ".1.3.6.1.2.1.1.2.0"
	oidSysName     = ".1.3.6.1.2.1.1.5.0"

	defaultSNMPPort    = 161
	defaultSNMPTimeout = 5 * time.Second
)

// SNMPGetter implements Getter using SNMPv2c over UDP.
type SNMPGetter struct{}

// NewSNMPGetter creates an SNMP prober.
func NewSNMPGetter() *SNMPGetter {
	return &SNMPGetter{}
}

// Get implements the Getter interface.
func (g *SNMPGetter) Get(ctx context.Context, target Target, oid string) (interface{}, error) {
	results, err := g.get(ctx, target, []string{oid})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	return results[0], nil
}

// SysInfo implements the Getter interface.
func (g *SNMPGetter) SysInfo(ctx context.Context, target Target) (*SystemInfo, error) {
	start := time.Now()

	results, err := g.get(ctx, target, []string{oidSysDescr, oidSysObjectID, oidSysName})
	if err != nil {
		return nil, err
	}

	if len(results) < 3 {
		return nil, ErrEmptyResponse
	}

	info := &SystemInfo{
		LatencyMs: float64(time.Since(start)) / float64(time.Millisecond),
	}

	if s, ok := results[0].(string); ok {
		info.Description = s
	}

	if s, ok := results[1].(string); ok {
		info.ObjectID = s
	}

	if s, ok := results[2].(string); ok {
		info.Name = s
	}

	return info, nil
}

func (g *SNMPGetter) get(ctx context.Context, target Target, oids []string) ([]interface{}, error) {
	if target.IP == "" {
		return nil, ErrInvalidTarget
	}

	client := newClient(target)

	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() {
		_ = client.Conn.Close()
	}()

	client.Context = ctx

	packet, err := client.Get(oids)
	if err != nil {
		return nil, classifyError(err)
	}

	if packet.Error == gosnmp.AuthorizationError || packet.Error == gosnmp.NoAccess {
		return nil, ErrAuth
	}

	values := make([]interface{}, 0, len(packet.Variables))

	for _, variable := range packet.Variables {
		value, convErr := convertVariable(variable)
		if convErr != nil {
			return nil, convErr
		}

		values = append(values, value)
	}

	return values, nil
}

func newClient(target Target) *gosnmp.GoSNMP {
	port := target.Port
	if port == 0 {
		port = defaultSNMPPort
	}

	timeout := target.Timeout
	if timeout == 0 {
		timeout = defaultSNMPTimeout
	}

	return &gosnmp.GoSNMP{
		Target:    target.IP,
		Port:      port,
		Community: target.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
		MaxOids:   gosnmp.MaxOids,
	}
}

// classifyError maps transport errors onto the probe taxonomy so callers
// can treat every failure as a transient probe outcome.
func classifyError(err error) error {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case strings.Contains(msg, "authorization"), strings.Contains(msg, "authentication"):
		return fmt.Errorf("%w: %w", ErrAuth, err)
	default:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
}

// convertVariable converts an SNMP variable to the appropriate Go type.
func convertVariable(variable gosnmp.SnmpPDU) (interface{}, error) {
	switch variable.Type {
	case gosnmp.OctetString:
		return string(variable.Value.([]byte)), nil
	case gosnmp.Integer:
		return variable.Value.(int), nil
	case gosnmp.Counter32, gosnmp.Gauge32:
		return uint64(variable.Value.(uint)), nil
	case gosnmp.Counter64:
		return variable.Value.(uint64), nil
	case gosnmp.IPAddress:
		return variable.Value.(string), nil
	case gosnmp.ObjectIdentifier:
		return variable.Value.(string), nil
	case gosnmp.TimeTicks:
		return time.Duration(variable.Value.(uint32)) * time.Second / 100, nil
	case gosnmp.NoSuchObject:
		return nil, ErrNoSuchObject
	case gosnmp.NoSuchInstance:
		return nil, ErrNoSuchInstance
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, variable.Type)
	}
}

// ToFloat normalizes converted SNMP values to float64 for metric math.
func ToFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case uint64:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case time.Duration:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f, true
		}

		return 0, false
	default:
		return 0, false
	}
}
