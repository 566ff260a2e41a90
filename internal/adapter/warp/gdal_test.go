package warp

import (
	"strings"
	"testing"

	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPAMSidecar(t *testing.T) {
	geo, err := domain.ResolveGeometry(domain.Region{
		Name:       "test",
		Satellite:  "goes-16",
		Resolution: "2km",
		Sector:     "full",
	})
	require.NoError(t, err)

	xml := pamSidecar(geo)

	assert.True(t, strings.HasPrefix(xml, "<PAMDataset>"))
	assert.Contains(t, xml, "<SRS>+proj=geos")
	assert.Contains(t, xml, "+lon_0=-75")
	assert.Contains(t, xml, "<GeoTransform>")

	// Origin and per-pixel scale in meters, rotation terms zero; row
	// scale negative because rows run top to bottom.
	assert.Contains(t, xml, "-5434894.8850560002")
	assert.Contains(t, xml, "2004.0172880000000")
	assert.Contains(t, xml, "-2004.0172880000000")
	assert.Contains(t, xml, " 0.0,")
}

func TestPAMSidecarTileWindow(t *testing.T) {
	geo, err := domain.ResolveGeometry(domain.Region{
		Name:       "test",
		Satellite:  "goes-17",
		Resolution: "2km",
		Sector:     "full",
		TileWindow: &domain.TileWindow{OffsetX: 1, OffsetY: 2, Columns: 4, Rows: 4, TileSize: 678},
	})
	require.NoError(t, err)

	xml := pamSidecar(geo)
	assert.Contains(t, xml, "-4076171.1637920002")
	assert.Contains(t, xml, "2717447.4425280001")
}
