// Package config pkg/config/types.go
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so config files may use either numeric
// nanoseconds or strings like "60s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

const (
	defaultProbeTimeout    = 5 * time.Second
	defaultMaxRetries      = 3
	defaultAlertWindow     = 60 * time.Second
	defaultAlertThreshold  = 5
	defaultAlertCooldown   = 60 * time.Second
	defaultStormCooldown   = 60 * time.Second
	defaultScanConcurrency = 32
	defaultScanRateLimit   = 64
	defaultTraceBufferSize = 500
)

// MonitoringConfig holds deployment-wide defaults for the status engine
// and scheduler.
type MonitoringConfig struct {
	ProbeTimeout Duration `json:"probe_timeout"`
	MaxRetries   int      `json:"max_retries"`
}

// PushoverConfig configures the push-notification transport.
type PushoverConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	UserKey string `json:"user_key"`
}

// WebhookConfig configures an outbound notification webhook.
type WebhookConfig struct {
	Enabled         bool              `json:"enabled"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Secret          string            `json:"secret,omitempty"`
	SignatureHeader string            `json:"signature_header,omitempty"`
}

// AlertingConfig controls notification throttling.
type AlertingConfig struct {
	Window          Duration       `json:"window"`
	Threshold       int            `json:"threshold"`
	StormCooldown   Duration       `json:"storm_cooldown"`
	MetricCooldown  Duration       `json:"metric_cooldown"`
	DefaultPriority int            `json:"default_priority"`
	MaintenanceMode bool           `json:"maintenance_mode"`
	Pushover        PushoverConfig `json:"pushover"`
	Webhook         WebhookConfig  `json:"webhook"`
}

// DiscoveryConfig bounds the subnet scanner.
type DiscoveryConfig struct {
	Concurrency int      `json:"concurrency"`
	RateLimit   int      `json:"rate_limit"` // probes per second across the pool
	Timeout     Duration `json:"timeout"`
	Communities []string `json:"communities"`
}

// AppConfig is the top-level deployment configuration.
type AppConfig struct {
	ListenAddr      string           `json:"listen_addr"`
	DBPath          string           `json:"db_path"`
	LogLevel        string           `json:"log_level"`
	TraceBufferSize int              `json:"trace_buffer_size"`
	Monitoring      MonitoringConfig `json:"monitoring"`
	Alerting        AlertingConfig   `json:"alerting"`
	Discovery       DiscoveryConfig  `json:"discovery"`
}

// Validate implements the Validator interface, filling defaults for
// anything the file leaves unset.
func (c *AppConfig) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8090"
	}

	if c.DBPath == "" {
		c.DBPath = "beamstate.db"
	}

	if c.TraceBufferSize <= 0 {
		c.TraceBufferSize = defaultTraceBufferSize
	}

	if time.Duration(c.Monitoring.ProbeTimeout) <= 0 {
		c.Monitoring.ProbeTimeout = Duration(defaultProbeTimeout)
	}

	if c.Monitoring.MaxRetries <= 0 {
		c.Monitoring.MaxRetries = defaultMaxRetries
	}

	if time.Duration(c.Alerting.Window) <= 0 {
		c.Alerting.Window = Duration(defaultAlertWindow)
	}

	if c.Alerting.Threshold <= 0 {
		c.Alerting.Threshold = defaultAlertThreshold
	}

	if time.Duration(c.Alerting.StormCooldown) <= 0 {
		c.Alerting.StormCooldown = Duration(defaultStormCooldown)
	}

	if time.Duration(c.Alerting.MetricCooldown) <= 0 {
		c.Alerting.MetricCooldown = Duration(defaultAlertCooldown)
	}

	if c.Alerting.DefaultPriority < -2 || c.Alerting.DefaultPriority > 2 {
		return errInvalidPriority
	}

	if c.Discovery.Concurrency <= 0 {
		c.Discovery.Concurrency = defaultScanConcurrency
	}

	if c.Discovery.RateLimit <= 0 {
		c.Discovery.RateLimit = defaultScanRateLimit
	}

	if time.Duration(c.Discovery.Timeout) <= 0 {
		c.Discovery.Timeout = Duration(defaultProbeTimeout)
	}

	if len(c.Discovery.Communities) == 0 {
		c.Discovery.Communities = []string{"public"}
	}

	return nil
}
