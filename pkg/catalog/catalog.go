// Package catalog holds the static definitions of collectible SNMP
// metrics and the OID template substitution used to address them.
package catalog

import (
	"errors"
	"strconv"
	"strings"

	"github.com/beamstate/beamstate/pkg/models"
)

const indexPlaceholder = "{index}"

var (
	ErrIndexRequired = errors.New("metric definition requires an interface index")
	ErrIndexUnused   = errors.New("metric definition does not take an index")
)

// ResolveOID substitutes an interface index into an OID template.
// Substitution is a pure function: templates flagged requires_index must
// receive an index, templates without the placeholder must not.
func ResolveOID(def *models.MetricDefinition, index *int) (string, error) {
	hasPlaceholder := strings.Contains(def.OIDTemplate, indexPlaceholder)

	if def.RequiresIndex || hasPlaceholder {
		if index == nil {
			return "", ErrIndexRequired
		}

		return strings.ReplaceAll(def.OIDTemplate, indexPlaceholder, strconv.Itoa(*index)), nil
	}

	if index != nil {
		return "", ErrIndexUnused
	}

	return def.OIDTemplate, nil
}

// Defaults returns the built-in metric definitions. IDs are assigned by
// the store on first seed.
func Defaults() []models.MetricDefinition {
	return []models.MetricDefinition{
		{
			Name:          "Interface Bytes In",
			OIDTemplate:   "1.3.6.1.2.1.2.2.1.10.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "bytes",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Interface Bytes Out",
			OIDTemplate:   "1.3.6.1.2.1.2.2.1.16.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "bytes",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Interface Errors In",
			OIDTemplate:   "1.3.6.1.2.1.2.2.1.14.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "errors",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Interface Errors Out",
			OIDTemplate:   "1.3.6.1.2.1.2.2.1.20.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "errors",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Interface Status",
			OIDTemplate:   "1.3.6.1.2.1.2.2.1.8.{index}",
			MetricType:    models.TypeGauge,
			Unit:          "status",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Traffic In (HC)",
			OIDTemplate:   "1.3.6.1.2.1.31.1.1.1.6.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "bytes",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Traffic Out (HC)",
			OIDTemplate:   "1.3.6.1.2.1.31.1.1.1.10.{index}",
			MetricType:    models.TypeCounter,
			Unit:          "bytes",
			Category:      models.CategoryInterface,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "CPU Utilization",
			OIDTemplate:   "1.3.6.1.2.1.25.3.3.1.2.{index}",
			MetricType:    models.TypeGauge,
			Unit:          "percent",
			Category:      models.CategorySystem,
			RequiresIndex: true,
			Source:        "snmp",
		},
		{
			Name:          "Temperature",
			OIDTemplate:   "1.3.6.1.4.1.4413.1.1.43.1.8.1.5.1.0",
			MetricType:    models.TypeGauge,
			Unit:          "celsius",
			Category:      models.CategorySystem,
			RequiresIndex: false,
			Source:        "snmp",
		},
		{
			Name:          "CPU Load (%)",
			OIDTemplate:   "1.3.6.1.4.1.4413.1.1.43.1.8.1.4.1.0",
			MetricType:    models.TypeGauge,
			Unit:          "percent",
			Category:      models.CategorySystem,
			RequiresIndex: false,
			Source:        "snmp",
		},
	}
}
