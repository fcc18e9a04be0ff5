// cmd/beamstate/main.go

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/beamstate/beamstate/pkg/alerting"
	"github.com/beamstate/beamstate/pkg/api"
	"github.com/beamstate/beamstate/pkg/collector"
	"github.com/beamstate/beamstate/pkg/config"
	"github.com/beamstate/beamstate/pkg/db"
	"github.com/beamstate/beamstate/pkg/discovery"
	"github.com/beamstate/beamstate/pkg/lifecycle"
	"github.com/beamstate/beamstate/pkg/logger"
	"github.com/beamstate/beamstate/pkg/probe"
	"github.com/beamstate/beamstate/pkg/scheduler"
	"github.com/beamstate/beamstate/pkg/status"
	"github.com/beamstate/beamstate/pkg/trace"
)

func main() {
	configPath := flag.String("config", "/etc/beamstate/beamstate.json", "Path to config file")
	flag.Parse()

	log := logger.GetLogger()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel}); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	log = logger.GetLogger()

	store, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() { _ = store.Close() }()

	if err := store.SeedMetricDefinitions(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to seed metric catalog")
	}

	bus := trace.NewBus(cfg.TraceBufferSize)
	engine := status.NewEngine(bus)

	pinger := probe.NewICMPPinger()
	getter := probe.NewSNMPGetter()

	notifier := buildNotifier(&cfg.Alerting)

	throttler := alerting.NewThrottler(notifier, alerting.Options{
		Window:          time.Duration(cfg.Alerting.Window),
		Threshold:       cfg.Alerting.Threshold,
		StormCooldown:   time.Duration(cfg.Alerting.StormCooldown),
		MetricCooldown:  time.Duration(cfg.Alerting.MetricCooldown),
		DefaultPriority: cfg.Alerting.DefaultPriority,
		Maintenance:     cfg.Alerting.MaintenanceMode,
		Priorities:      priorityResolver(store),
	})

	probeTimeout := time.Duration(cfg.Monitoring.ProbeTimeout)
	coll := collector.New(getter, engine, store, throttler, probeTimeout)

	sched := scheduler.New(scheduler.Options{
		Source:       store,
		Pinger:       pinger,
		Getter:       getter,
		Engine:       engine,
		Collector:    coll,
		ProbeTimeout: probeTimeout,
	})

	scanner := discovery.NewScanner(discovery.Options{
		Pinger:      pinger,
		Getter:      getter,
		Concurrency: cfg.Discovery.Concurrency,
		RateLimit:   cfg.Discovery.RateLimit,
		Timeout:     time.Duration(cfg.Discovery.Timeout),
		Communities: cfg.Discovery.Communities,
	})
	importer := discovery.NewImporter(store)

	apiServer := api.NewServer(store, engine, bus, scanner, importer, throttler, sched)

	service := &monitorService{
		sched:     sched,
		throttler: throttler,
		scanner:   scanner,
		bus:       bus,
	}

	err = lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "beamstate",
		Service:     service,
		Handler:     apiServer.Router(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// loadConfig reads the config file, falling back to built-in defaults
// when the file does not exist.
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig

	err := config.LoadAndValidate(path, &cfg)

	switch {
	case err == nil:
		return &cfg, nil
	case errors.Is(err, os.ErrNotExist):
		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	default:
		return nil, err
	}
}

// buildNotifier assembles the configured notification transports. With
// none enabled, alerts are computed but silently dropped.
func buildNotifier(cfg *config.AlertingConfig) alerting.Notifier {
	var transports alerting.MultiNotifier

	if cfg.Pushover.Enabled {
		transports = append(transports,
			alerting.NewPushoverNotifier(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}

	if cfg.Webhook.Enabled {
		transports = append(transports, alerting.NewWebhookNotifier(alerting.WebhookConfig{
			Enabled:         cfg.Webhook.Enabled,
			URL:             cfg.Webhook.URL,
			Headers:         cfg.Webhook.Headers,
			Secret:          cfg.Webhook.Secret,
			SignatureHeader: cfg.Webhook.SignatureHeader,
		}))
	}

	if len(transports) == 0 {
		return alerting.NoopNotifier{}
	}

	return transports
}

// priorityResolver looks up per-node notification priority overrides for
// the alert throttler.
func priorityResolver(store *db.Store) alerting.PriorityResolver {
	return func(nodeID int64) *int {
		node, err := store.NodeByID(context.Background(), nodeID)
		if err != nil {
			return nil
		}

		return node.NotificationPriority
	}
}

// monitorService ties the scheduler and throttler to the process
// lifecycle.
type monitorService struct {
	sched     *scheduler.Scheduler
	throttler *alerting.Throttler
	scanner   *discovery.Scanner
	bus       *trace.Bus

	sub *trace.Subscription
}

// Start runs the throttler and the scheduler. Blocks until ctx is
// canceled.
func (m *monitorService) Start(ctx context.Context) error {
	m.sub = m.bus.Subscribe()

	go m.throttler.Run(ctx, m.sub)

	return m.sched.Run(ctx)
}

// Stop tears down the monitoring loops.
func (m *monitorService) Stop(context.Context) error {
	m.scanner.Cancel()
	m.sched.Stop()

	if m.sub != nil {
		m.bus.Unsubscribe(m.sub)
	}

	return nil
}
