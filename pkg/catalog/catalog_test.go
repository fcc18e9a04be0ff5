package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamstate/beamstate/pkg/models"
)

func intPtr(v int) *int { return &v }

func TestResolveOID(t *testing.T) {
	tests := []struct {
		name    string
		def     models.MetricDefinition
		index   *int
		want    string
		wantErr error
	}{
		{
			name: "interface counter with index",
			def: models.MetricDefinition{
				OIDTemplate:   "1.3.6.1.2.1.2.2.1.10.{index}",
				RequiresIndex: true,
			},
			index: intPtr(3),
			want:  "1.3.6.1.2.1.2.2.1.10.3",
		},
		{
			name: "system gauge without index",
			def: models.MetricDefinition{
				OIDTemplate: "1.3.6.1.4.1.4413.1.1.43.1.8.1.5.0",
			},
			want: "1.3.6.1.4.1.4413.1.1.43.1.8.1.5.0",
		},
		{
			name: "index required but missing",
			def: models.MetricDefinition{
				OIDTemplate:   "1.3.6.1.2.1.25.3.3.1.2.{index}",
				RequiresIndex: true,
			},
			wantErr: ErrIndexRequired,
		},
		{
			name: "placeholder implies index requirement",
			def: models.MetricDefinition{
				OIDTemplate: "1.3.6.1.2.1.31.1.1.1.6.{index}",
			},
			wantErr: ErrIndexRequired,
		},
		{
			name: "index given for scalar template",
			def: models.MetricDefinition{
				OIDTemplate: "1.3.6.1.2.1.25.3.3.1.2.0",
			},
			index:   intPtr(1),
			wantErr: ErrIndexUnused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveOID(&tt.def, tt.index)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultsResolvable(t *testing.T) {
	for _, def := range Defaults() {
		def := def

		t.Run(def.Name, func(t *testing.T) {
			var index *int
			if def.RequiresIndex {
				index = intPtr(1)
			}

			oid, err := ResolveOID(&def, index)
			require.NoError(t, err)
			assert.NotContains(t, oid, "{index}")
		})
	}
}
