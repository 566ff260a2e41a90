package domain

// Provider identifies the upstream source an image asset came from.
type Provider string

const (
	// ProviderTiles is the tile-composited source: lossless PNG frames
	// assembled from the upstream tile grid. Highest fidelity.
	ProviderTiles Provider = "tiles"
	// ProviderCDN is the single-file JPG source published on the CDN.
	// Lossy, but covers gaps in the tile archive.
	ProviderCDN Provider = "cdn"
)

// Fidelity ranks providers for merge tie-breaks; higher wins when two
// assets share a timestamp.
func (p Provider) Fidelity() int {
	switch p {
	case ProviderTiles:
		return 2
	case ProviderCDN:
		return 1
	default:
		return 0
	}
}

// Frame describes one satellite image asset on disk.
type Frame struct {
	Path     string
	Provider Provider
	Time     Timestamp
}

// Chart describes one reference-chart asset: a surface analysis issued at
// a fixed synoptic cadence, filed under its valid time.
type Chart struct {
	Path  string
	Valid Timestamp
}
