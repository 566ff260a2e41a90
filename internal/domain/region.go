package domain

import "time"

// GeoBounds is a geographic bounding box in degrees. West may extend
// below -180 for regions spanning the anti-meridian; the warp target
// projection is built with a matching central meridian so longitudes
// never wrap mid-region.
type GeoBounds struct {
	West  float64
	South float64
	East  float64
	North float64
}

// PixelRect is a crop rectangle in pixels, upper-left origin, exclusive
// lower-right corner.
type PixelRect struct {
	X0 int `validate:"gte=0"`
	Y0 int `validate:"gte=0"`
	X1 int `validate:"gtfield=X0"`
	Y1 int `validate:"gtfield=Y0"`
}

// Width returns the rectangle width in pixels.
func (r PixelRect) Width() int { return r.X1 - r.X0 }

// Height returns the rectangle height in pixels.
func (r PixelRect) Height() int { return r.Y1 - r.Y0 }

// BaseMap is an optional static overlay (coastlines, borders) with the
// timestamp of the upstream map revision it was captured from.
type BaseMap struct {
	Path  string
	Valid Timestamp
}

// Region is the immutable per-area configuration a pipeline run is built
// from. Constructed once at startup and never mutated; every component
// receives it by value.
type Region struct {
	Name       string `validate:"required"`
	Satellite  string `validate:"required"`
	Resolution string `validate:"required"`
	Sector     string `validate:"required"`
	TileWindow *TileWindow

	// Source providers. TilesDir holds the lossless tile-composited
	// archive; CDNDir the lossy single-file archive. At least one must
	// be set.
	TilesDir string
	CDNDir   string

	// ChartDir holds the surface-analysis archive; empty when the
	// region carries no chart overlay.
	ChartDir     string
	RequireChart bool
	FadeWindow   time.Duration `validate:"gte=0"`
	MinOpacity   int           `validate:"gte=0,lte=255"`
	MaxOpacity   int           `validate:"gte=0,lte=255,gtefield=MinOpacity"`

	BaseMap *BaseMap

	// Warp target: the Mercator window the geostationary frame is
	// reprojected into.
	CenterLongitude float64 `validate:"gte=-180,lte=180"`
	Bounds          GeoBounds
	WarpWidth       int `validate:"gt=0"`
	WarpHeight      int `validate:"gt=0"`

	Crop         PixelRect
	OutputWidth  int    `validate:"gt=0"`
	OutputHeight int    `validate:"gt=0"`
	OutputFormat string `validate:"oneof=png jpg"`
	// ReplaceFormat names a superseded output extension to delete when a
	// frame is persisted, used when a region switches formats mid-archive.
	ReplaceFormat string `validate:"omitempty,oneof=png jpg"`
	OutputDir     string `validate:"required"`

	Start Timestamp
	End   Timestamp // zero means open-ended

	// DisplayTimezone is an optional IANA zone name for a second,
	// local-time frame label.
	DisplayTimezone string
	// Caveat is optional satellite-status text stamped on every frame,
	// e.g. a preliminary-data notice.
	Caveat string
}

// TargetProjection returns the anti-meridian-safe Mercator proj4 string
// for the region. The central meridian comes from configuration so a
// Pacific region can center on 180 and keep its longitudes monotonic.
func (r Region) TargetProjection() string {
	return mercatorProjection(r.CenterLongitude)
}

// InRange reports whether ts falls inside the region's start/end bounds,
// both inclusive.
func (r Region) InRange(ts Timestamp) bool {
	if ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}

// HasCharts reports whether the region defines a chart source.
func (r Region) HasCharts() bool { return r.ChartDir != "" }
