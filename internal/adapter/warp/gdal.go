// Package warp implements the raster reprojection collaborator by
// shelling out to gdalwarp.
package warp

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/image/tiff"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// GDAL warps a geostationary source raster into a region's Mercator
// window using the gdalwarp binary. Source PNG/JPG files carry no
// georeferencing of their own, so each warp writes a PAM sidecar
// (<source>.aux.xml) holding the geotransform and projection from the
// geometry bundle, and removes it afterwards.
type GDAL struct {
	binary string
	region domain.Region
	logger *slog.Logger
}

// NewGDAL creates a warper for one region. binary is the gdalwarp
// executable path.
func NewGDAL(binary string, region domain.Region, logger *slog.Logger) *GDAL {
	return &GDAL{binary: binary, region: region, logger: logger}
}

// Warp reprojects the source asset and returns the warped raster with an
// alpha band. Any gdalwarp failure is returned with its output attached;
// the caller treats it as a per-frame failure, not a run abort.
func (w *GDAL) Warp(ctx context.Context, sourcePath string, geo domain.Geometry) (image.Image, error) {
	sidecar := sourcePath + ".aux.xml"
	if err := os.WriteFile(sidecar, []byte(pamSidecar(geo)), 0o644); err != nil {
		return nil, fmt.Errorf("write sidecar: %w", err)
	}
	defer os.Remove(sidecar)

	tmpDir, err := os.MkdirTemp("", "frameline-warp-*")
	if err != nil {
		return nil, fmt.Errorf("create warp scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	out := filepath.Join(tmpDir, "warped.tif")

	r := w.region
	args := []string{
		"--config", "CENTER_LONG", fmt.Sprintf("%g", r.CenterLongitude),
		"-t_srs", r.TargetProjection(),
		"-te", fmt.Sprintf("%g", r.Bounds.West), fmt.Sprintf("%g", r.Bounds.South),
		fmt.Sprintf("%g", r.Bounds.East), fmt.Sprintf("%g", r.Bounds.North),
		"-te_srs", "EPSG:4326",
		"-ts", fmt.Sprintf("%d", r.WarpWidth), fmt.Sprintf("%d", r.WarpHeight),
		"-wo", "SOURCE_EXTRA=1000",
		"-wo", "NUM_THREADS=4",
		"-dstalpha",
		"-overwrite",
		sourcePath, out,
	}

	cmd := exec.CommandContext(ctx, w.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("gdalwarp %s: %w: %s", sourcePath, err, output)
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open warped raster: %w", err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode warped raster: %w", err)
	}
	return img, nil
}

// pamSidecar renders the GDAL PAM metadata that geolocates a bare image
// file: the geostationary projection and the affine geotransform. The SRS
// node holds the proj4 string directly; GDAL resolves it through
// SetFromUserInput.
func pamSidecar(geo domain.Geometry) string {
	t := geo.Transform
	return fmt.Sprintf(`<PAMDataset>
  <SRS>%s</SRS>
  <Metadata domain="IMAGE_STRUCTURE">
    <MDI key="INTERLEAVE">PIXEL</MDI>
  </Metadata>
  <GeoTransform> %.10f, %.13f, %.1f, %.10f, %.1f, %.13f</GeoTransform>
</PAMDataset>
`, geo.Projection, t.OriginX, t.PixelWidth, t.RotationX, t.OriginY, t.RotationY, t.PixelHeight)
}
