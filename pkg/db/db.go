// Package db provides SQLite persistence for groups, nodes, metric
// definitions, metric bindings and collected samples.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/beamstate/beamstate/pkg/logger"
)

const (
	dbOperationTimeout = 5 * time.Second

	// Maximum number of samples retained per metric binding.
	maxSamplePoints = 1000

	createTablesSQL = `
		CREATE TABLE IF NOT EXISTS groups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			interval_ns INTEGER NOT NULL,
			packet_count INTEGER NOT NULL,
			max_retries INTEGER NOT NULL,
			snmp_community TEXT NOT NULL,
			snmp_port INTEGER NOT NULL,
			monitor_ping BOOLEAN NOT NULL,
			monitor_snmp BOOLEAN NOT NULL,
			enabled BOOLEAN NOT NULL
		);

		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			ip TEXT NOT NULL UNIQUE,
			group_id INTEGER NOT NULL,
			interval_ns INTEGER,
			packet_count INTEGER,
			max_retries INTEGER,
			snmp_community TEXT,
			snmp_port INTEGER,
			monitor_ping BOOLEAN,
			monitor_snmp BOOLEAN,
			enabled BOOLEAN NOT NULL,
			notification_priority INTEGER,
			FOREIGN KEY (group_id) REFERENCES groups(id)
		);

		CREATE TABLE IF NOT EXISTS metric_definitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			oid_template TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			unit TEXT NOT NULL,
			category TEXT NOT NULL,
			requires_index BOOLEAN NOT NULL,
			source TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS node_metric_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id INTEGER NOT NULL,
			metric_id INTEGER NOT NULL,
			interface_index INTEGER,
			interface_name TEXT NOT NULL DEFAULT '',
			interval_ns INTEGER NOT NULL,
			enabled BOOLEAN NOT NULL,
			alert_condition TEXT NOT NULL DEFAULT '',
			warning_threshold REAL,
			critical_threshold REAL,
			FOREIGN KEY (node_id) REFERENCES nodes(id),
			FOREIGN KEY (metric_id) REFERENCES metric_definitions(id),
			UNIQUE (node_id, metric_id, interface_index)
		);

		CREATE TABLE IF NOT EXISTS metric_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node_id INTEGER NOT NULL,
			metric_id INTEGER NOT NULL,
			interface_index INTEGER,
			value REAL NOT NULL,
			rate REAL,
			unit TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_nodes_group ON nodes(group_id);
		CREATE INDEX IF NOT EXISTS idx_metric_configs_node
			ON node_metric_configs(node_id);
		CREATE INDEX IF NOT EXISTS idx_samples_binding_time
			ON metric_samples(node_id, metric_id, timestamp);
	`

	// SQL to trim old samples per binding.
	trimSamplesSQL = `
		WITH ranked AS (
			SELECT id,
				   ROW_NUMBER() OVER (
					   PARTITION BY node_id, metric_id, interface_index
					   ORDER BY timestamp DESC
				   ) AS rn
			FROM metric_samples
			WHERE node_id = ? AND metric_id = ?
		)
		DELETE FROM metric_samples
		WHERE id IN (SELECT id FROM ranked WHERE rn > ?);
	`
)

// Store is the database connection and its operations.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// New opens the database at path, creating it if needed, and
// initializes the schema.
func New(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToEnableWAL, err)
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	store := &Store{
		db:  sqlDB,
		log: logger.Component("db"),
	}

	if _, err := sqlDB.Exec(createTablesSQL); err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToInit, err)
	}

	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, dbOperationTimeout)
}
