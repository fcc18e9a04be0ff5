// Package probe pkg/probe/icmp.go
package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// ICMPPinger implements Pinger using ICMP echo requests.
type ICMPPinger struct {
	// Privileged selects raw-socket mode; required on Windows, optional
	// elsewhere when the binary has the capability.
	Privileged bool
}

// NewICMPPinger creates a pinger with platform-appropriate socket mode.
func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{Privileged: runtime.GOOS == "windows"}
}

// Ping implements the Pinger interface.
func (p *ICMPPinger) Ping(ctx context.Context, ip string, timeout time.Duration, count int) (*PingResult, error) {
	if count <= 0 {
		count = 1
	}

	pinger, err := probing.NewPinger(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	done := make(chan error, 1)
	go func() {
		done <- pinger.Run()
	}()

	select {
	case err = <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
	case <-ctx.Done():
		pinger.Stop()
		return nil, ctx.Err()
	}

	stats := pinger.Statistics()
	result := &PingResult{
		PacketLoss: stats.PacketLoss,
		Available:  stats.PacketsRecv > 0,
	}

	if stats.PacketsRecv > 0 {
		result.LatencyMs = float64(stats.AvgRtt) / float64(time.Millisecond)
	} else {
		result.PacketLoss = 100
	}

	return result, nil
}
