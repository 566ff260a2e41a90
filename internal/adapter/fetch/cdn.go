package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// CDNFetcher mirrors the agency CDN's full-disk geocolor JPGs into the
// region's secondary provider archive. The CDN lists assets in an HTML
// directory index with year + day-of-year timestamps; filenames are
// rewritten to the catalog's minute-precision convention on the way in.
type CDNFetcher struct {
	client  *Client
	store   Store
	baseURL string
	region  domain.Region
	logger  *slog.Logger
}

// NewCDNFetcher creates a fetcher for a region's CDN source. baseURL is
// the CDN root, e.g. "https://cdn.star.nesdis.noaa.gov".
func NewCDNFetcher(client *Client, store Store, baseURL string, region domain.Region, logger *slog.Logger) *CDNFetcher {
	return &CDNFetcher{
		client:  client,
		store:   store,
		baseURL: baseURL,
		region:  region,
		logger:  logger.With("region", region.Name, "source", "cdn"),
	}
}

// Listing is one downloadable asset from the CDN index.
type Listing struct {
	Time domain.Timestamp
	URL  string
}

// Available scrapes the CDN directory index and returns the assets in
// the region's time range, ascending. Index lines that do not match the
// full-disk naming convention are ignored.
func (f *CDNFetcher) Available(ctx context.Context) ([]Listing, error) {
	dir := fmt.Sprintf("%s/%s/ABI/FD/GEOCOLOR/", f.baseURL, f.cdnSatellite())
	data, err := f.client.Get(ctx, "cdn", dir)
	if err != nil {
		return nil, err
	}

	re := regexp.MustCompile(fmt.Sprintf(`<a href="(\d{11})_%s-ABI-FD-GEOCOLOR-5424x5424\.jpg">`, f.cdnSatellite()))
	var out []Listing
	for _, m := range re.FindAllStringSubmatch(string(data), -1) {
		ts, err := domain.ParseDayOfYearTimestamp(m[1])
		if err != nil {
			f.logger.Debug("skipping malformed index entry", "entry", m[1], "error", err)
			continue
		}
		if !f.region.InRange(ts) {
			continue
		}
		out = append(out, Listing{
			Time: ts,
			URL:  fmt.Sprintf("%s%s_%s-ABI-FD-GEOCOLOR-5424x5424.jpg", dir, m[1], f.cdnSatellite()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Fetch downloads one asset into the archive. Returns false without
// error when the file already exists.
func (f *CDNFetcher) Fetch(ctx context.Context, l Listing) (bool, error) {
	dest := fmt.Sprintf("%s/%s/%s_%s_full_%s.jpg", f.region.CDNDir, l.Time.DateKey(), f.region.Satellite, f.region.Resolution, l.Time)
	if f.store.Exists(dest) {
		return false, nil
	}
	data, err := f.client.Get(ctx, "cdn", l.URL)
	if err != nil {
		return false, err
	}
	if err := f.store.EnsureDir(f.region.CDNDir + "/" + l.Time.DateKey()); err != nil {
		return false, err
	}
	if err := f.store.Write(dest, data); err != nil {
		return false, err
	}
	f.logger.Info("asset written", "timestamp", l.Time, "dest", dest)
	return true, nil
}

// cdnSatellite maps a satellite key to the CDN's path form:
// "goes-16" → "GOES16".
func (f *CDNFetcher) cdnSatellite() string {
	return strings.ToUpper(strings.ReplaceAll(f.region.Satellite, "-", ""))
}
