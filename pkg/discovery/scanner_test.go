package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/beamstate/beamstate/pkg/probe"
)

func waitForScan(t *testing.T, s *Scanner) {
	t.Helper()

	deadline := time.After(5 * time.Second)

	for {
		progress, err := s.Progress()
		require.NoError(t, err)

		if !progress.Running {
			return
		}

		select {
		case <-deadline:
			t.Fatal("scan did not finish in time")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScanFindsRespondingHosts(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := probe.NewMockPinger(ctrl)
	getter := probe.NewMockGetter(ctrl)

	// 192.168.1.0/30 expands to .1 and .2; only .1 answers ping, and
	// only .1 speaks SNMP.
	pinger.EXPECT().
		Ping(gomock.Any(), "192.168.1.1", gomock.Any(), 1).
		Return(&probe.PingResult{LatencyMs: 1.2, Available: true}, nil)
	pinger.EXPECT().
		Ping(gomock.Any(), "192.168.1.2", gomock.Any(), 1).
		Return(&probe.PingResult{PacketLoss: 100, Available: false}, nil)

	getter.EXPECT().
		SysInfo(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, target probe.Target) (*probe.SystemInfo, error) {
			if target.IP == "192.168.1.1" {
				return &probe.SystemInfo{
					Description: "EdgeSwitch 24-Port Lite",
					Name:        "sw-lab",
				}, nil
			}

			return nil, probe.ErrTimeout
		}).
		Times(2)

	scanner := NewScanner(Options{
		Pinger:      pinger,
		Getter:      getter,
		Concurrency: 2,
		Timeout:     100 * time.Millisecond,
	})

	scanID, err := scanner.Start("192.168.1.0/30")
	require.NoError(t, err)
	assert.NotEmpty(t, scanID)

	waitForScan(t, scanner)

	progress, err := scanner.Progress()
	require.NoError(t, err)
	assert.Equal(t, scanID, progress.ScanID)
	assert.Equal(t, 2, progress.Scanned)
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 1, progress.FoundICMP)
	assert.Equal(t, 1, progress.FoundSNMP)

	results, err := scanner.Results()
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "192.168.1.1", got.IP)
	assert.Equal(t, "sw-lab", got.Hostname)
	assert.True(t, got.SNMPEnabled)
	assert.Equal(t, "Ubiquiti", got.Vendor)
	assert.Equal(t, "Switch", got.DeviceType)
	require.NotNil(t, got.LatencyMs)
	assert.InDelta(t, 1.2, *got.LatencyMs, 0.001)
}

func TestScanRejectsConcurrentScans(t *testing.T) {
	ctrl := gomock.NewController(t)
	pinger := probe.NewMockPinger(ctrl)
	getter := probe.NewMockGetter(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})

	pinger.EXPECT().
		Ping(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, time.Duration, int) (*probe.PingResult, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release

			return &probe.PingResult{Available: false, PacketLoss: 100}, nil
		}).
		AnyTimes()
	getter.EXPECT().
		SysInfo(gomock.Any(), gomock.Any()).
		Return(nil, probe.ErrTimeout).
		AnyTimes()

	scanner := NewScanner(Options{Pinger: pinger, Getter: getter, Concurrency: 1})

	_, err := scanner.Start("192.168.1.0/30")
	require.NoError(t, err)

	<-started

	_, err = scanner.Start("192.168.2.0/30")
	assert.ErrorIs(t, err, ErrScanActive)

	close(release)
	waitForScan(t, scanner)
}

func TestProgressWithoutScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	scanner := NewScanner(Options{
		Pinger: probe.NewMockPinger(ctrl),
		Getter: probe.NewMockGetter(ctrl),
	})

	_, err := scanner.Progress()
	assert.ErrorIs(t, err, ErrNoScan)

	_, err = scanner.Results()
	assert.ErrorIs(t, err, ErrNoScan)
}
