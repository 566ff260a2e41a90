// Package catalog discovers image and chart assets under a region's
// storage layout and merges multi-provider timelines.
package catalog

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// Entry is one directory listing result.
type Entry struct {
	Name string
	Dir  bool
}

// Lister reads directory entries from the asset store.
type Lister interface {
	List(path string) ([]Entry, error)
}

// Catalog enumerates provider and chart archives.
type Catalog struct {
	lister Lister
	logger *slog.Logger
}

// New creates a Catalog over the given store.
func New(lister Lister, logger *slog.Logger) *Catalog {
	return &Catalog{lister: lister, logger: logger}
}

var (
	dateDirRe = regexp.MustCompile(`^\d{8}$`)

	// Provider filename conventions. The tile archive embeds seconds,
	// the CDN archive stops at minutes; both resolve to minute
	// precision.
	tilesFileRe = regexp.MustCompile(`_(\d{14})\.png$`)
	cdnFileRe   = regexp.MustCompile(`_(\d{12})\.jpg$`)

	chartFileRe = regexp.MustCompile(`^(\d{12})\.png$`)
)

// ListProviderAssets enumerates one provider's archive for a region:
// per-day directories of timestamped files, filtered to the region's
// start/end bounds and returned in ascending timestamp order. Filenames
// that do not match the provider's convention are skipped, not errors;
// archives accumulate sidecar files and partial downloads.
func (c *Catalog) ListProviderAssets(region domain.Region, provider domain.Provider) ([]domain.Frame, error) {
	var root string
	var fileRe *regexp.Regexp
	switch provider {
	case domain.ProviderTiles:
		root, fileRe = region.TilesDir, tilesFileRe
	case domain.ProviderCDN:
		root, fileRe = region.CDNDir, cdnFileRe
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	if root == "" {
		return nil, nil
	}

	dates, err := c.lister.List(root)
	if err != nil {
		return nil, &domain.AssetDiscoveryError{Region: region.Name, Dir: root, Err: err}
	}

	var frames []domain.Frame
	for _, d := range dates {
		if !d.Dir || !dateDirRe.MatchString(d.Name) {
			continue
		}
		dayDir := root + "/" + d.Name
		files, err := c.lister.List(dayDir)
		if err != nil {
			return nil, &domain.AssetDiscoveryError{Region: region.Name, Dir: dayDir, Err: err}
		}
		for _, f := range files {
			if f.Dir {
				continue
			}
			m := fileRe.FindStringSubmatch(f.Name)
			if m == nil {
				continue
			}
			ts, err := domain.ParseTimestamp(m[1])
			if err != nil {
				c.logger.Debug("skipping malformed asset name", "provider", provider, "name", f.Name, "error", err)
				continue
			}
			if !region.InRange(ts) {
				continue
			}
			frames = append(frames, domain.Frame{
				Path:     dayDir + "/" + f.Name,
				Provider: provider,
				Time:     ts,
			})
		}
	}

	sort.SliceStable(frames, func(i, j int) bool { return frames[i].Time.Before(frames[j].Time) })
	return frames, nil
}

// Merge combines two already-sorted provider timelines into one ascending
// sequence with a single two-pointer pass. When both carry an asset for
// the same minute the primary descriptor is kept and the secondary
// dropped, so exactly one frame survives per distinct timestamp. Inputs
// may be very large; the merge is linear and never re-sorts.
func Merge(primary, secondary []domain.Frame) []domain.Frame {
	merged := make([]domain.Frame, 0, len(primary)+len(secondary))
	i, j := 0, 0
	for i < len(primary) && j < len(secondary) {
		switch primary[i].Time.Compare(secondary[j].Time) {
		case -1:
			merged = append(merged, primary[i])
			i++
		case 1:
			merged = append(merged, secondary[j])
			j++
		default:
			merged = append(merged, primary[i])
			i++
			j++
		}
	}
	merged = append(merged, primary[i:]...)
	merged = append(merged, secondary[j:]...)
	return merged
}

// ListCharts enumerates the region's chart archive in ascending
// valid-time order, honoring the region's start/end bounds. A region
// without a chart source yields an empty result, not an error.
func (c *Catalog) ListCharts(region domain.Region) ([]domain.Chart, error) {
	if !region.HasCharts() {
		return nil, nil
	}
	files, err := c.lister.List(region.ChartDir)
	if err != nil {
		return nil, &domain.AssetDiscoveryError{Region: region.Name, Dir: region.ChartDir, Err: err}
	}

	var charts []domain.Chart
	for _, f := range files {
		if f.Dir {
			continue
		}
		m := chartFileRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		ts, err := domain.ParseTimestamp(m[1])
		if err != nil {
			c.logger.Debug("skipping malformed chart name", "name", f.Name, "error", err)
			continue
		}
		if !region.InRange(ts) {
			continue
		}
		charts = append(charts, domain.Chart{Path: region.ChartDir + "/" + f.Name, Valid: ts})
	}

	sort.SliceStable(charts, func(i, j int) bool { return charts[i].Valid.Before(charts[j].Valid) })
	return charts, nil
}
