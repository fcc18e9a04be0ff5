// Package db pkg/db/metrics.go holds metric definitions, bindings and
// sample storage.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beamstate/beamstate/pkg/catalog"
	"github.com/beamstate/beamstate/pkg/models"
)

const (
	configColumns = `id, node_id, metric_id, interface_index,
		interface_name, interval_ns, enabled, alert_condition,
		warning_threshold, critical_threshold`
)

// MetricDefinitions returns all metric definitions ordered by name.
func (s *Store) MetricDefinitions(ctx context.Context) ([]models.MetricDefinition, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, oid_template, metric_type, unit, category,
			requires_index, source
		FROM metric_definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var defs []models.MetricDefinition

	for rows.Next() {
		var d models.MetricDefinition

		err := rows.Scan(&d.ID, &d.Name, &d.OIDTemplate, &d.MetricType,
			&d.Unit, &d.Category, &d.RequiresIndex, &d.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
		}

		defs = append(defs, d)
	}

	return defs, rows.Err()
}

// MetricDefinitionByID returns one definition or ErrNotFound.
func (s *Store) MetricDefinitionByID(ctx context.Context, id int64) (*models.MetricDefinition, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	var d models.MetricDefinition

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, oid_template, metric_type, unit, category,
			requires_index, source
		FROM metric_definitions WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.OIDTemplate, &d.MetricType, &d.Unit,
			&d.Category, &d.RequiresIndex, &d.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
	}

	return &d, nil
}

// SeedMetricDefinitions inserts the built-in metric catalog, skipping
// names that already exist so user edits survive restarts.
func (s *Store) SeedMetricDefinitions(ctx context.Context) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	for _, d := range catalog.Defaults() {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO metric_definitions (
				name, oid_template, metric_type, unit, category,
				requires_index, source
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.Name, d.OIDTemplate, d.MetricType, d.Unit, d.Category,
			d.RequiresIndex, d.Source,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", errFailedToInsert, err)
		}
	}

	return nil
}

// NodeMetricConfigs returns every metric binding.
func (s *Store) NodeMetricConfigs(ctx context.Context) ([]models.NodeMetricConfig, error) {
	return s.queryConfigs(ctx,
		"SELECT "+configColumns+" FROM node_metric_configs ORDER BY id")
}

// NodeMetricConfigsForNode returns one node's metric bindings.
func (s *Store) NodeMetricConfigsForNode(ctx context.Context, nodeID int64) ([]models.NodeMetricConfig, error) {
	return s.queryConfigs(ctx,
		"SELECT "+configColumns+" FROM node_metric_configs WHERE node_id = ? ORDER BY id",
		nodeID)
}

func (s *Store) queryConfigs(ctx context.Context, query string, args ...interface{}) ([]models.NodeMetricConfig, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var configs []models.NodeMetricConfig

	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}

		configs = append(configs, *cfg)
	}

	return configs, rows.Err()
}

// CreateNodeMetricConfig validates the binding against its definition
// and inserts it. Interface metrics without an index are rejected here,
// not at collection time.
func (s *Store) CreateNodeMetricConfig(ctx context.Context, cfg *models.NodeMetricConfig) error {
	if err := s.validateConfig(ctx, cfg); err != nil {
		return err
	}

	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO node_metric_configs (
			node_id, metric_id, interface_index, interface_name,
			interval_ns, enabled, alert_condition,
			warning_threshold, critical_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cfg.NodeID, cfg.MetricID, cfg.InterfaceIndex, cfg.InterfaceName,
		cfg.Interval.Nanoseconds(), cfg.Enabled, string(cfg.AlertCondition),
		cfg.WarningAt, cfg.CriticalAt,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	cfg.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	return nil
}

// UpdateNodeMetricConfig validates and rewrites a binding.
func (s *Store) UpdateNodeMetricConfig(ctx context.Context, cfg *models.NodeMetricConfig) error {
	if err := s.validateConfig(ctx, cfg); err != nil {
		return err
	}

	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE node_metric_configs SET
			node_id = ?, metric_id = ?, interface_index = ?,
			interface_name = ?, interval_ns = ?, enabled = ?,
			alert_condition = ?, warning_threshold = ?, critical_threshold = ?
		WHERE id = ?`,
		cfg.NodeID, cfg.MetricID, cfg.InterfaceIndex, cfg.InterfaceName,
		cfg.Interval.Nanoseconds(), cfg.Enabled, string(cfg.AlertCondition),
		cfg.WarningAt, cfg.CriticalAt, cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToUpdate, err)
	}

	return requireRows(res, errFailedToUpdate)
}

// DeleteNodeMetricConfig removes a binding and its samples.
func (s *Store) DeleteNodeMetricConfig(ctx context.Context, id int64) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM node_metric_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToDelete, err)
	}

	return requireRows(res, errFailedToDelete)
}

// validateConfig proves the binding can produce a concrete OID.
func (s *Store) validateConfig(ctx context.Context, cfg *models.NodeMetricConfig) error {
	def, err := s.MetricDefinitionByID(ctx, cfg.MetricID)
	if err != nil {
		return err
	}

	if _, err := catalog.ResolveOID(def, cfg.InterfaceIndex); err != nil {
		return err
	}

	return nil
}

// WriteSample stores one sample and trims the binding's history to its
// retention cap.
func (s *Store) WriteSample(ctx context.Context, sample *models.MetricSample) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metric_samples (
			node_id, metric_id, interface_index, value, rate, unit, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sample.NodeID, sample.MetricID, sample.InterfaceIndex,
		sample.Value, sample.Rate, sample.Unit, sample.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	if _, err := s.db.ExecContext(ctx, trimSamplesSQL,
		sample.NodeID, sample.MetricID, maxSamplePoints); err != nil {
		return fmt.Errorf("%w: %w", errFailedToTrim, err)
	}

	return nil
}

// Samples returns a binding's samples since a cutoff, oldest first.
func (s *Store) Samples(ctx context.Context, nodeID, metricID int64, since time.Time) ([]models.MetricSample, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, metric_id, interface_index, value, rate, unit, timestamp
		FROM metric_samples
		WHERE node_id = ? AND metric_id = ? AND timestamp >= ?
		ORDER BY timestamp`,
		nodeID, metricID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var samples []models.MetricSample

	for rows.Next() {
		var (
			m     models.MetricSample
			index sql.NullInt64
			rate  sql.NullFloat64
		)

		err := rows.Scan(&m.NodeID, &m.MetricID, &index, &m.Value,
			&rate, &m.Unit, &m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
		}

		if index.Valid {
			v := int(index.Int64)
			m.InterfaceIndex = &v
		}

		if rate.Valid {
			v := rate.Float64
			m.Rate = &v
		}

		samples = append(samples, m)
	}

	return samples, rows.Err()
}

func scanConfig(row rowScanner) (*models.NodeMetricConfig, error) {
	var (
		cfg        models.NodeMetricConfig
		index      sql.NullInt64
		intervalNs int64
		condition  string
		warning    sql.NullFloat64
		critical   sql.NullFloat64
	)

	err := row.Scan(&cfg.ID, &cfg.NodeID, &cfg.MetricID, &index,
		&cfg.InterfaceName, &intervalNs, &cfg.Enabled, &condition,
		&warning, &critical)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
	}

	if index.Valid {
		v := int(index.Int64)
		cfg.InterfaceIndex = &v
	}

	cfg.Interval = time.Duration(intervalNs)
	cfg.AlertCondition = models.AlertCondition(condition)

	if warning.Valid {
		v := warning.Float64
		cfg.WarningAt = &v
	}

	if critical.Valid {
		v := critical.Float64
		cfg.CriticalAt = &v
	}

	return &cfg, nil
}
