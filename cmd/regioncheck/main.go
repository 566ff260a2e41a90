// Command regioncheck validates the region registry and prints the
// resolved viewing geometry for each region: the geotransform anchoring
// the raw frame and the Mercator window it is warped into. Run it after
// editing the registry to catch bad constants before a pipeline does.
//
// Usage:
//
//	regioncheck
//	regioncheck -region pacific
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/halcyon-wx/frameline/internal/config"
	"github.com/halcyon-wx/frameline/internal/domain"
)

func main() {
	only := flag.String("region", "", "check a single region")
	flag.Parse()

	if code := run(*only); code != 0 {
		os.Exit(code)
	}
}

func run(only string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	regions, err := config.Regions(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "region registry: %v\n", err)
		return 1
	}

	names := make([]string, 0, len(regions))
	for name := range regions {
		if only != "" && name != only {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if only != "" && len(names) == 0 {
		fmt.Fprintf(os.Stderr, "unknown region %q\n", only)
		return 1
	}

	failed := 0
	for _, name := range names {
		r := regions[name]
		geo, err := domain.ResolveGeometry(r)
		if err != nil {
			fmt.Printf("FAIL %s: %v\n", name, err)
			failed++
			continue
		}

		fmt.Printf("OK   %s\n", name)
		fmt.Printf("     satellite   %s @ %.1fE\n", r.Satellite, mustLongitude(r.Satellite))
		fmt.Printf("     source      %s\n", geo.Projection)
		fmt.Printf("     transform   origin (%.4f, %.4f) pixel (%.9f, %.9f)\n",
			geo.Transform.OriginX, geo.Transform.OriginY,
			geo.Transform.PixelWidth, geo.Transform.PixelHeight)
		fmt.Printf("     target      %s\n", r.TargetProjection())
		fmt.Printf("     warp        %dx%d over [%g..%g, %g..%g]\n",
			r.WarpWidth, r.WarpHeight,
			r.Bounds.West, r.Bounds.East, r.Bounds.South, r.Bounds.North)
		fmt.Printf("     output      %dx%d %s (crop %dx%d at %d,%d)\n",
			r.OutputWidth, r.OutputHeight, r.OutputFormat,
			r.Crop.Width(), r.Crop.Height(), r.Crop.X0, r.Crop.Y0)
		if r.HasCharts() {
			fmt.Printf("     charts      %s (fade %s, opacity %d..%d)\n",
				r.ChartDir, r.FadeWindow, r.MinOpacity, r.MaxOpacity)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d regions failed\n", failed, len(names))
		return 1
	}
	return 0
}

func mustLongitude(satellite string) float64 {
	lon, err := domain.SatelliteLongitude(satellite)
	if err != nil {
		return 0
	}
	return lon
}
