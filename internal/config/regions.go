package config

import (
	"fmt"
	"time"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// Regions returns the closed registry of monitored regions, with storage
// paths rooted under the configured data directory. Each definition is
// validated; a bad entry is a ConfigurationError before any run starts.
func Regions(cfg *Config) (map[string]domain.Region, error) {
	root := cfg.DataRoot

	regions := map[string]domain.Region{
		// North Pacific: GOES-West full disk warped across the
		// anti-meridian. The longitude range runs -225..-115 (135E to
		// 115W) with the Mercator centered on 180 so it never wraps.
		"pacific": {
			Name:       "pacific",
			Satellite:  "goes-17",
			Resolution: "2km",
			Sector:     "full",

			TilesDir: root + "/pacific/tiles",
			CDNDir:   root + "/pacific/cdn",

			ChartDir:   root + "/pacific/charts",
			FadeWindow: 3 * time.Hour,
			MinOpacity: 64,
			MaxOpacity: 255,

			CenterLongitude: -180,
			Bounds:          domain.GeoBounds{West: -225, South: 16, East: -115, North: 65},
			WarpWidth:       2441,
			WarpHeight:      1556,

			Crop:         domain.PixelRect{X0: 281, Y0: 273, X1: 2441, Y1: 1488},
			OutputWidth:  1920,
			OutputHeight: 1080,
			OutputFormat: "png",
			OutputDir:    root + "/pacific/overlay",

			Start:  domain.NewTimestamp(2018, time.December, 24, 3, 0),
			Caveat: "GOES-17 Preliminary, Non-Operational Data",

			DisplayTimezone: "America/Los_Angeles",
		},

		// North Atlantic: GOES-East, no anti-meridian concerns.
		"atlantic": {
			Name:       "atlantic",
			Satellite:  "goes-16",
			Resolution: "2km",
			Sector:     "full",

			TilesDir: root + "/atlantic/tiles",
			CDNDir:   root + "/atlantic/cdn",

			ChartDir:   root + "/atlantic/charts",
			FadeWindow: 3 * time.Hour,
			MinOpacity: 64,
			MaxOpacity: 255,

			CenterLongitude: -55,
			Bounds:          domain.GeoBounds{West: -100, South: 16, East: -10, North: 65},
			WarpWidth:       2441,
			WarpHeight:      1556,

			Crop:         domain.PixelRect{X0: 281, Y0: 273, X1: 2441, Y1: 1488},
			OutputWidth:  1920,
			OutputHeight: 1080,
			OutputFormat: "png",
			OutputDir:    root + "/atlantic/overlay",

			Start: domain.NewTimestamp(2019, time.January, 1, 0, 0),
		},
	}

	for name, r := range regions {
		if err := validate.Struct(r); err != nil {
			return nil, &domain.ConfigurationError{Region: name, Field: "registry", Reason: err.Error()}
		}
	}
	return regions, nil
}

// Region looks up one enabled region by name.
func Region(cfg *Config, name string) (domain.Region, error) {
	regions, err := Regions(cfg)
	if err != nil {
		return domain.Region{}, err
	}
	r, ok := regions[name]
	if !ok {
		return domain.Region{}, fmt.Errorf("unknown region %q", name)
	}
	return r, nil
}

// ChartSource names the rolling chart URL feeding a region's archive.
type ChartSource struct {
	Region string
	URL    string
	Dir    string
}

// ChartSources returns the chart feeds for the enabled regions. The
// upstream publishes one rolling image per basin; the poller files each
// revision under its synoptic valid time.
func ChartSources(cfg *Config) ([]ChartSource, error) {
	urls := map[string]string{
		"pacific":  "https://ocean.weather.gov/P_sfc_full_ocean_color.png",
		"atlantic": "https://ocean.weather.gov/A_sfc_full_ocean_color.png",
	}
	regions, err := Regions(cfg)
	if err != nil {
		return nil, err
	}

	var out []ChartSource
	for _, name := range cfg.Regions {
		r, ok := regions[name]
		if !ok {
			return nil, fmt.Errorf("unknown region %q", name)
		}
		url, ok := urls[name]
		if !ok || !r.HasCharts() {
			continue
		}
		out = append(out, ChartSource{Region: name, URL: url, Dir: r.ChartDir})
	}
	return out, nil
}
