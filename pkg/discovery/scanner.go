// Package discovery pkg/discovery/scanner.go
//
// Network discovery sweeps a CIDR range with a bounded worker pool,
// probing each address by ICMP and SNMP. One scan runs at a time;
// progress is readable while it runs and results stay available until
// the next scan starts.
package discovery

import (
	"context"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/models"
	"github.com/beamstate/beamstate/pkg/probe"
)

const (
	defaultConcurrency = 32
	defaultRateLimit   = 100
	defaultTimeout     = 2 * time.Second
	pingPackets        = 1
)

// Options configures a Scanner.
type Options struct {
	Pinger      probe.Pinger
	Getter      probe.Getter
	Concurrency int
	RateLimit   int // probes per second across all workers
	Timeout     time.Duration
	Communities []string
}

// Scanner runs discovery sweeps.
type Scanner struct {
	pinger      probe.Pinger
	getter      probe.Getter
	concurrency int
	limiter     *rate.Limiter
	timeout     time.Duration
	communities []string
	log         zerolog.Logger

	mu      sync.Mutex
	current *scanState
}

type scanState struct {
	id        string
	cidr      string
	total     int64
	scanned   atomic.Int64
	foundICMP atomic.Int64
	foundSNMP atomic.Int64
	running   atomic.Bool
	cancel    context.CancelFunc

	resultsMu sync.Mutex
	results   []models.DiscoveryResult
}

// NewScanner creates a scanner. Zero option fields get defaults; an
// empty community list falls back to "public".
func NewScanner(opts Options) *Scanner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	rateLimit := opts.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	communities := opts.Communities
	if len(communities) == 0 {
		communities = []string{"public"}
	}

	return &Scanner{
		pinger:      opts.Pinger,
		getter:      opts.Getter,
		concurrency: concurrency,
		limiter:     rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		timeout:     timeout,
		communities: communities,
		log:         logger.Component("discovery"),
	}
}

// Start begins scanning a CIDR range in the background and returns the
// scan ID. Fails with ErrScanActive while a scan is in flight.
func (s *Scanner) Start(cidr string) (string, error) {
	ips, err := expandCIDR(cidr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.running.Load() {
		return "", ErrScanActive
	}

	ctx, cancel := context.WithCancel(context.Background())

	state := &scanState{
		id:     uuid.New().String(),
		cidr:   cidr,
		total:  int64(len(ips)),
		cancel: cancel,
	}
	state.running.Store(true)

	s.current = state

	go s.run(ctx, state, ips)

	s.log.Info().
		Str("scan_id", state.id).
		Str("cidr", cidr).
		Int("addresses", len(ips)).
		Msg("discovery scan started")

	return state.id, nil
}

// Cancel aborts the running scan, if any.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.running.Load() {
		s.current.cancel()
	}
}

// Progress reports the state of the latest scan.
func (s *Scanner) Progress() (models.ScanProgress, error) {
	s.mu.Lock()
	state := s.current
	s.mu.Unlock()

	if state == nil {
		return models.ScanProgress{}, ErrNoScan
	}

	return models.ScanProgress{
		ScanID:    state.id,
		Running:   state.running.Load(),
		Scanned:   int(state.scanned.Load()),
		Total:     int(state.total),
		FoundICMP: int(state.foundICMP.Load()),
		FoundSNMP: int(state.foundSNMP.Load()),
	}, nil
}

// Results returns the hosts found by the latest scan, ordered by IP.
func (s *Scanner) Results() ([]models.DiscoveryResult, error) {
	s.mu.Lock()
	state := s.current
	s.mu.Unlock()

	if state == nil {
		return nil, ErrNoScan
	}

	state.resultsMu.Lock()
	defer state.resultsMu.Unlock()

	out := make([]models.DiscoveryResult, len(state.results))
	copy(out, state.results)

	return out, nil
}

func (s *Scanner) run(ctx context.Context, state *scanState, ips []string) {
	defer state.cancel()
	defer state.running.Store(false)

	ipChan := make(chan string, s.concurrency)

	var wg sync.WaitGroup

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case ip, ok := <-ipChan:
					if !ok {
						return
					}

					s.probeHost(ctx, state, ip)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	for _, ip := range ips {
		select {
		case ipChan <- ip:
		case <-ctx.Done():
			close(ipChan)
			wg.Wait()

			return
		}
	}

	close(ipChan)
	wg.Wait()

	state.resultsMu.Lock()
	sort.Slice(state.results, func(i, j int) bool {
		return lessIP(state.results[i].IP, state.results[j].IP)
	})
	found := len(state.results)
	state.resultsMu.Unlock()

	s.log.Info().
		Str("scan_id", state.id).
		Int("found", found).
		Int64("scanned", state.scanned.Load()).
		Msg("discovery scan finished")
}

// probeHost checks one address by ICMP, then tries each configured SNMP
// community against responders until one answers. Either protocol alone
// is enough to report the host.
func (s *Scanner) probeHost(ctx context.Context, state *scanState, ip string) {
	defer state.scanned.Add(1)

	if err := s.limiter.Wait(ctx); err != nil {
		return
	}

	result := models.DiscoveryResult{IP: ip}

	ping, err := s.pinger.Ping(ctx, ip, s.timeout, pingPackets)
	if err == nil && ping.Available {
		state.foundICMP.Add(1)

		latency := ping.LatencyMs
		result.LatencyMs = &latency
	}

	for _, community := range s.communities {
		target := probe.Target{
			IP:        ip,
			Community: community,
			Timeout:   s.timeout,
		}

		info, err := s.getter.SysInfo(ctx, target)
		if err != nil {
			continue
		}

		state.foundSNMP.Add(1)

		result.SNMPEnabled = true
		result.Community = community
		result.Vendor, result.DeviceType = classifyDevice(info.Description)

		if result.Hostname == "" {
			result.Hostname = info.Name
		}

		break
	}

	if result.LatencyMs == nil && !result.SNMPEnabled {
		return
	}

	if result.Hostname == "" {
		result.Hostname = reverseLookup(ctx, ip)
	}

	state.resultsMu.Lock()
	state.results = append(state.results, result)
	state.resultsMu.Unlock()
}

func reverseLookup(ctx context.Context, ip string) string {
	lookupCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	names, err := net.DefaultResolver.LookupAddr(lookupCtx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}

	return trimDot(names[0])
}

func trimDot(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}

	return name
}

func lessIP(a, b string) bool {
	ipA := net.ParseIP(a).To16()
	ipB := net.ParseIP(b).To16()

	if ipA == nil || ipB == nil {
		return a < b
	}

	for i := range ipA {
		if ipA[i] != ipB[i] {
			return ipA[i] < ipB[i]
		}
	}

	return false
}
