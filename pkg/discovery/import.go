// Package discovery pkg/discovery/import.go
package discovery

import (
	"context"
	"fmt"

	"github.com/beamstate/beamstate/pkg/models"
)

// NodeStore is the slice of persistence the importer needs. NodeByIP
// returns (nil, nil) when no node has that address.
type NodeStore interface {
	NodeByIP(ctx context.Context, ip string) (*models.Node, error)
	CreateNode(ctx context.Context, node *models.Node) error
	UpdateNode(ctx context.Context, node *models.Node) error
}

// Importer merges discovery results into the node inventory.
type Importer struct {
	store NodeStore
}

// NewImporter creates an importer backed by store.
func NewImporter(store NodeStore) *Importer {
	return &Importer{store: store}
}

// Import merges results into groupID. New addresses become nodes with
// group-inherited settings; existing nodes only gain protocol
// capabilities - names, thresholds and overrides the user set are never
// touched. Results that change nothing are counted as skipped.
func (im *Importer) Import(ctx context.Context, groupID int64, results []models.DiscoveryResult) (*models.ImportSummary, error) {
	summary := &models.ImportSummary{}

	for i := range results {
		result := &results[i]

		existing, err := im.store.NodeByIP(ctx, result.IP)
		if err != nil {
			return summary, fmt.Errorf("failed to look up node %s: %w", result.IP, err)
		}

		if existing == nil {
			if err := im.createNode(ctx, groupID, result); err != nil {
				return summary, err
			}

			summary.Created++

			continue
		}

		changed, err := im.updateNode(ctx, existing, result)
		if err != nil {
			return summary, err
		}

		if changed {
			summary.Updated++
		} else {
			summary.Skipped++
		}
	}

	return summary, nil
}

func (im *Importer) createNode(ctx context.Context, groupID int64, result *models.DiscoveryResult) error {
	name := result.Hostname
	if name == "" {
		name = result.IP
	}

	node := &models.Node{
		Name:    name,
		IP:      result.IP,
		GroupID: groupID,
		Enabled: true,
	}

	if result.SNMPEnabled {
		enabled := true
		node.MonitorSNMP = &enabled

		if result.Community != "" {
			community := result.Community
			node.SNMPCommunity = &community
		}
	}

	if err := im.store.CreateNode(ctx, node); err != nil {
		return fmt.Errorf("failed to create node %s: %w", result.IP, err)
	}

	return nil
}

// updateNode enables newly discovered protocol capabilities on an
// existing node. It only ever flips a capability on; everything else on
// the node is user-owned configuration.
func (im *Importer) updateNode(ctx context.Context, node *models.Node, result *models.DiscoveryResult) (bool, error) {
	changed := false

	if result.SNMPEnabled && (node.MonitorSNMP == nil || !*node.MonitorSNMP) {
		enabled := true
		node.MonitorSNMP = &enabled
		changed = true

		if node.SNMPCommunity == nil && result.Community != "" {
			community := result.Community
			node.SNMPCommunity = &community
		}
	}

	if !changed {
		return false, nil
	}

	if err := im.store.UpdateNode(ctx, node); err != nil {
		return false, fmt.Errorf("failed to update node %s: %w", result.IP, err)
	}

	return true, nil
}
