// Package domain models geostationary satellite imagery and the reference
// charts composited over it.
//
// # Imagery Sources
//
// Frames come from two provider archives of the same geocolor product:
//
//	tiles: lossless PNG full-disk composites assembled from the upstream
//	        tile server's 678-pixel tile grid. Primary source.
//	cdn:   lossy single-file JPGs published on the agency CDN, named with
//	        year + day-of-year timestamps. Fills gaps in the tile archive.
//
// Both file their assets under per-day directories keyed YYYYMMDD, with
// the capture time embedded in the filename. All timestamps resolve to
// minute precision in UTC via [Timestamp]; merging, chart selection, and
// output naming compare time exclusively through it.
//
// # Viewing Geometry
//
// A geostationary satellite sees the Earth through a fixed perspective
// projection. A pixel's position maps to projected meters by scaling its
// angular offset from nadir by the perspective height; [ResolveGeometry]
// derives the affine geotransform and proj4 descriptor the warp
// collaborator needs from the satellite constant tables. Constants follow
// the GOES-R Product User Guide (L1b, volume 3): the full-disk frame
// spans ±0.151872 rad, a 2 km pixel subtends 56 urad, and the published
// sub-satellite longitudes are renormalized nominal positions so the
// warp is pixel-exact.
//
// # Reference Charts
//
// Surface analysis charts are issued on a fixed synoptic cadence (every
// six hours) and filed under their valid time, truncated to that cadence.
// The chart nearest a frame's capture time is composited over it with an
// opacity that fades linearly away from the valid time, so the chart
// never implies more temporal precision than it has.
package domain
