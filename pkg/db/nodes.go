// Package db pkg/db/nodes.go holds group and node CRUD.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/beamstate/beamstate/pkg/models"
)

const (
	nodeColumns = `id, name, ip, group_id, interval_ns, packet_count,
		max_retries, snmp_community, snmp_port, monitor_ping,
		monitor_snmp, enabled, notification_priority`

	groupColumns = `id, name, interval_ns, packet_count, max_retries,
		snmp_community, snmp_port, monitor_ping, monitor_snmp, enabled`
)

// Groups returns all groups ordered by name.
func (s *Store) Groups(ctx context.Context) ([]models.Group, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+groupColumns+" FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var groups []models.Group

	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}

		groups = append(groups, *g)
	}

	return groups, rows.Err()
}

// GroupByID returns one group or ErrNotFound.
func (s *Store) GroupByID(ctx context.Context, id int64) (*models.Group, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", id)

	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return g, err
}

// CreateGroup inserts a group and fills in its ID.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (
			name, interval_ns, packet_count, max_retries,
			snmp_community, snmp_port, monitor_ping, monitor_snmp, enabled
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.Interval.Nanoseconds(), g.PacketCount, g.MaxRetries,
		g.SNMPCommunity, g.SNMPPort, g.MonitorPing, g.MonitorSNMP, g.Enabled,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	g.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	return nil
}

// UpdateGroup rewrites a group's settings.
func (s *Store) UpdateGroup(ctx context.Context, g *models.Group) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE groups SET
			name = ?, interval_ns = ?, packet_count = ?, max_retries = ?,
			snmp_community = ?, snmp_port = ?, monitor_ping = ?,
			monitor_snmp = ?, enabled = ?
		WHERE id = ?`,
		g.Name, g.Interval.Nanoseconds(), g.PacketCount, g.MaxRetries,
		g.SNMPCommunity, g.SNMPPort, g.MonitorPing, g.MonitorSNMP, g.Enabled,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToUpdate, err)
	}

	return requireRows(res, errFailedToUpdate)
}

// DeleteGroup removes a group. Its nodes must be gone first.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToDelete, err)
	}

	return requireRows(res, errFailedToDelete)
}

// Nodes returns all nodes ordered by name.
func (s *Store) Nodes(ctx context.Context) ([]models.Node, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedToQuery, err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []models.Node

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, *n)
	}

	return nodes, rows.Err()
}

// NodeByID returns one node or ErrNotFound.
func (s *Store) NodeByID(ctx context.Context, id int64) (*models.Node, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return n, err
}

// NodeByIP returns the node with the given address, or (nil, nil) when
// none exists. The nil-without-error contract is what the discovery
// importer expects.
func (s *Store) NodeByIP(ctx context.Context, ip string) (*models.Node, error) {
	ctx, cancel := opContext(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+nodeColumns+" FROM nodes WHERE ip = ?", ip)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return n, err
}

// CreateNode inserts a node and fills in its ID.
func (s *Store) CreateNode(ctx context.Context, n *models.Node) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (
			name, ip, group_id, interval_ns, packet_count, max_retries,
			snmp_community, snmp_port, monitor_ping, monitor_snmp,
			enabled, notification_priority
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Name, n.IP, n.GroupID, durationPtrNanos(n.Interval),
		n.PacketCount, n.MaxRetries, n.SNMPCommunity, n.SNMPPort,
		n.MonitorPing, n.MonitorSNMP, n.Enabled, n.NotificationPriority,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	n.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToInsert, err)
	}

	return nil
}

// UpdateNode rewrites a node's settings and overrides.
func (s *Store) UpdateNode(ctx context.Context, n *models.Node) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET
			name = ?, ip = ?, group_id = ?, interval_ns = ?,
			packet_count = ?, max_retries = ?, snmp_community = ?,
			snmp_port = ?, monitor_ping = ?, monitor_snmp = ?,
			enabled = ?, notification_priority = ?
		WHERE id = ?`,
		n.Name, n.IP, n.GroupID, durationPtrNanos(n.Interval),
		n.PacketCount, n.MaxRetries, n.SNMPCommunity, n.SNMPPort,
		n.MonitorPing, n.MonitorSNMP, n.Enabled, n.NotificationPriority,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToUpdate, err)
	}

	return requireRows(res, errFailedToUpdate)
}

// DeleteNode removes a node together with its metric bindings and
// samples.
func (s *Store) DeleteNode(ctx context.Context, id int64) error {
	ctx, cancel := opContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM metric_samples WHERE node_id = ?", id); err != nil {
		return fmt.Errorf("%w: %w", errFailedToDelete, err)
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM node_metric_configs WHERE node_id = ?", id); err != nil {
		return fmt.Errorf("%w: %w", errFailedToDelete, err)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToDelete, err)
	}

	return requireRows(res, errFailedToDelete)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		g          models.Group
		intervalNs int64
	)

	err := row.Scan(&g.ID, &g.Name, &intervalNs, &g.PacketCount,
		&g.MaxRetries, &g.SNMPCommunity, &g.SNMPPort,
		&g.MonitorPing, &g.MonitorSNMP, &g.Enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
	}

	g.Interval = time.Duration(intervalNs)

	return &g, nil
}

func scanNode(row rowScanner) (*models.Node, error) {
	var (
		n          models.Node
		intervalNs sql.NullInt64
		packets    sql.NullInt64
		retries    sql.NullInt64
		community  sql.NullString
		port       sql.NullInt64
		ping       sql.NullBool
		snmp       sql.NullBool
		priority   sql.NullInt64
	)

	err := row.Scan(&n.ID, &n.Name, &n.IP, &n.GroupID, &intervalNs,
		&packets, &retries, &community, &port, &ping, &snmp,
		&n.Enabled, &priority)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", errFailedToScan, err)
	}

	if intervalNs.Valid {
		d := time.Duration(intervalNs.Int64)
		n.Interval = &d
	}

	if packets.Valid {
		v := int(packets.Int64)
		n.PacketCount = &v
	}

	if retries.Valid {
		v := int(retries.Int64)
		n.MaxRetries = &v
	}

	if community.Valid {
		v := community.String
		n.SNMPCommunity = &v
	}

	if port.Valid {
		v := uint16(port.Int64)
		n.SNMPPort = &v
	}

	if ping.Valid {
		v := ping.Bool
		n.MonitorPing = &v
	}

	if snmp.Valid {
		v := snmp.Bool
		n.MonitorSNMP = &v
	}

	if priority.Valid {
		v := int(priority.Int64)
		n.NotificationPriority = &v
	}

	return &n, nil
}

func durationPtrNanos(d *time.Duration) interface{} {
	if d == nil {
		return nil
	}

	return d.Nanoseconds()
}

func requireRows(res sql.Result, wrap error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", wrap, err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
