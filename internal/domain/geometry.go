package domain

import (
	"fmt"
)

// SatelliteGeometry holds the orbital and ellipsoid constants needed to
// describe a geostationary satellite's viewing geometry. Values come from
// the GOES-R Product User Guide (L1b, volume 3): the sub-satellite
// longitude is the renormalized nominal position, not the instantaneous
// station-keeping longitude, which is what makes warping pixel-exact.
type SatelliteGeometry struct {
	Longitude  float64 // sub-satellite point, degrees east
	Height     float64 // perspective point height above the ellipsoid, meters
	SemiMajor  float64 // ellipsoid semi-major axis, meters
	SemiMinor  float64 // ellipsoid semi-minor axis, meters
	Flattening float64
	Sweep      string // scan sweep axis, "x" for the ABI
}

// Resolution describes one imagery resolution tier: the instantaneous
// field of view of a single pixel and the upstream tile layout at that
// tier.
type Resolution struct {
	RadiansPerPixel float64
	TileSize        int // tile edge, pixels
	TilesAcross     int // tiles per full-disk row/column
}

// Sector is the angular window of the full field of view captured in an
// asset. Offsets locate the upper-left corner relative to nadir, radians;
// Y is positive above nadir.
type Sector struct {
	OffsetX float64
	OffsetY float64
}

// TileWindow selects a rectangular tile sub-region out of a sector's tile
// grid. Offsets are in tiles from the sector's upper-left corner.
type TileWindow struct {
	OffsetX  int `validate:"gte=0"`
	OffsetY  int `validate:"gte=0"`
	Columns  int `validate:"gt=0"`
	Rows     int `validate:"gt=0"`
	TileSize int `validate:"gt=0"`
}

// fullDiskHalfAngle is the half-extent of the ABI full-disk frame,
// radians: 2712 px at the 2 km tier times 56 urad.
const fullDiskHalfAngle = 2712 * 56e-6

var satellites = map[string]SatelliteGeometry{
	"goes-16": {
		Longitude:  -75.0,
		Height:     35786023.0,
		SemiMajor:  6378137.0,
		SemiMinor:  6356752.31414,
		Flattening: 0.00335281068119356027,
		Sweep:      "x",
	},
	"goes-17": {
		Longitude:  -137.0,
		Height:     35786023.0,
		SemiMajor:  6378137.0,
		SemiMinor:  6356752.31414,
		Flattening: 0.00335281068119356027,
		Sweep:      "x",
	},
}

var resolutions = map[string]Resolution{
	// Tier names follow the nadir ground sample distance of the
	// geocolor product they carry.
	"2km": {RadiansPerPixel: 56e-6, TileSize: 678, TilesAcross: 8},
	"1km": {RadiansPerPixel: 28e-6, TileSize: 678, TilesAcross: 16},
	"4km": {RadiansPerPixel: 112e-6, TileSize: 678, TilesAcross: 4},
}

var sectors = map[string]Sector{
	"full": {OffsetX: -fullDiskHalfAngle, OffsetY: fullDiskHalfAngle},
}

// GeoTransform is the GDAL-style affine mapping from pixel coordinates to
// projected meters. PixelHeight is negative: raster rows run top to
// bottom while projected Y increases upward.
type GeoTransform struct {
	OriginX     float64
	PixelWidth  float64
	RotationX   float64
	OriginY     float64
	RotationY   float64
	PixelHeight float64
}

// Geometry is the reprojection-parameter bundle handed to the warp
// collaborator: the source raster's geotransform and its native
// geostationary projection in proj4 form.
type Geometry struct {
	Transform  GeoTransform
	Projection string
}

// ResolveGeometry derives the reprojection parameters for a region's
// imagery. Pure: identical input always yields identical output, so the
// result is resolved once per run and reused for every frame.
//
// The origin is the sector's angular offset from nadir, shifted inward by
// the tile sub-window offset when one is configured, scaled to meters by
// the perspective height. The per-pixel scale is the pixel's angular
// resolution times the same height.
func ResolveGeometry(region Region) (Geometry, error) {
	sat, ok := satellites[region.Satellite]
	if !ok {
		return Geometry{}, &ConfigurationError{Region: region.Name, Field: "satellite", Reason: fmt.Sprintf("unknown satellite %q", region.Satellite)}
	}
	res, ok := resolutions[region.Resolution]
	if !ok {
		return Geometry{}, &ConfigurationError{Region: region.Name, Field: "resolution", Reason: fmt.Sprintf("unknown resolution %q", region.Resolution)}
	}
	sector, ok := sectors[region.Sector]
	if !ok {
		return Geometry{}, &ConfigurationError{Region: region.Name, Field: "sector", Reason: fmt.Sprintf("unknown sector %q", region.Sector)}
	}

	offsetX := sector.OffsetX
	offsetY := sector.OffsetY
	if win := region.TileWindow; win != nil {
		offsetX += float64(win.OffsetX*win.TileSize) * res.RadiansPerPixel
		offsetY -= float64(win.OffsetY*win.TileSize) * res.RadiansPerPixel
	}

	scale := res.RadiansPerPixel * sat.Height
	return Geometry{
		Transform: GeoTransform{
			OriginX:     offsetX * sat.Height,
			PixelWidth:  scale,
			OriginY:     offsetY * sat.Height,
			PixelHeight: -scale,
		},
		Projection: fmt.Sprintf(
			"+proj=geos +lon_0=%g +h=%.0f +a=%.0f +b=%.1f +f=%.20f +sweep=%s +units=m +no_defs +over",
			sat.Longitude, sat.Height, sat.SemiMajor, sat.SemiMinor, sat.Flattening, sat.Sweep,
		),
	}, nil
}

// SatelliteLongitude exposes the sub-satellite longitude for a satellite
// key, for callers that build target projections around it.
func SatelliteLongitude(satellite string) (float64, error) {
	sat, ok := satellites[satellite]
	if !ok {
		return 0, fmt.Errorf("unknown satellite %q", satellite)
	}
	return sat.Longitude, nil
}

// ResolutionFor returns the resolution tier table entry for a tier name.
func ResolutionFor(name string) (Resolution, error) {
	res, ok := resolutions[name]
	if !ok {
		return Resolution{}, fmt.Errorf("unknown resolution %q", name)
	}
	return res, nil
}
