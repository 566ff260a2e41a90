package domain

import "fmt"

// mercatorProjection builds the warp target: plain Mercator with a
// configurable central meridian and +over, so a region spanning the
// anti-meridian can use a longitude range like [-230, -115] instead of
// splitting into hemisphere halves. The EPSG:3395 definition cannot
// express this.
func mercatorProjection(centerLongitude float64) string {
	return fmt.Sprintf(
		"+proj=merc +lon_0=%g +k=1 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs +over",
		centerLongitude,
	)
}
