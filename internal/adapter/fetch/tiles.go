package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"sort"
	"strconv"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// tileZoom maps the tiles-across count of a resolution tier to the tile
// server's zoom directory.
var tileZoom = map[int]string{
	4:  "02",
	8:  "03",
	16: "04",
}

// TileFetcher downloads the tile grid for each available capture time and
// assembles the tiles into full-frame PNG composites in the region's
// primary provider archive. Already-composited timestamps are skipped, so
// repeated runs only pull new captures.
type TileFetcher struct {
	client  *Client
	store   Store
	baseURL string
	region  domain.Region
	res     domain.Resolution
	zoom    string
	logger  *slog.Logger
}

// NewTileFetcher creates a fetcher for a region's tile source. baseURL is
// the tile server root, e.g. "https://rammb-slider.cira.colostate.edu".
func NewTileFetcher(client *Client, store Store, baseURL string, region domain.Region, logger *slog.Logger) (*TileFetcher, error) {
	res, err := domain.ResolutionFor(region.Resolution)
	if err != nil {
		return nil, err
	}
	zoom, ok := tileZoom[res.TilesAcross]
	if !ok {
		return nil, fmt.Errorf("no tile zoom level for %d tiles across", res.TilesAcross)
	}
	return &TileFetcher{
		client:  client,
		store:   store,
		baseURL: baseURL,
		region:  region,
		res:     res,
		zoom:    zoom,
		logger:  logger.With("region", region.Name, "source", "tiles"),
	}, nil
}

// AvailableTimes asks the tile server which capture times it currently
// holds, ascending.
func (f *TileFetcher) AvailableTimes(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/data/json/%s/full_disk/geocolor/latest_times.json", f.baseURL, f.region.Satellite)
	data, err := f.client.Get(ctx, "tiles", url)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Timestamps []int64 `json:"timestamps_int"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse latest times: %w", err)
	}
	times := make([]string, 0, len(payload.Timestamps))
	for _, t := range payload.Timestamps {
		times = append(times, strconv.FormatInt(t, 10))
	}
	sort.Strings(times)
	return times, nil
}

// FetchComposite downloads the tile window for one 14-digit capture time
// and writes the assembled composite. Returns false without error when
// the composite already exists.
func (f *TileFetcher) FetchComposite(ctx context.Context, ts14 string) (bool, error) {
	ts, err := domain.ParseTimestamp(ts14)
	if err != nil {
		return false, fmt.Errorf("tile capture time %q: %w", ts14, err)
	}
	dest := f.compositePath(ts, ts14)
	if f.store.Exists(dest) {
		return false, nil
	}

	win := f.window()
	grid := make([][]image.Image, win.Rows)
	for row := 0; row < win.Rows; row++ {
		grid[row] = make([]image.Image, win.Columns)
		for col := 0; col < win.Columns; col++ {
			url := fmt.Sprintf("%s/data/imagery/%s/%s---full_disk/geocolor/%s/%s/%03d_%03d.png",
				f.baseURL, ts.DateKey(), f.region.Satellite, ts14, f.zoom,
				row+win.OffsetY, col+win.OffsetX)
			data, err := f.client.Get(ctx, "tiles", url)
			if err != nil {
				return false, fmt.Errorf("tile %03d_%03d at %s: %w", row+win.OffsetY, col+win.OffsetX, ts, err)
			}
			tile, _, err := image.Decode(bytes.NewReader(data))
			if err != nil {
				return false, fmt.Errorf("decode tile %03d_%03d at %s: %w", row+win.OffsetY, col+win.OffsetX, ts, err)
			}
			grid[row][col] = tile
		}
	}

	composite := f.assemble(grid, win)
	var buf bytes.Buffer
	if err := png.Encode(&buf, composite); err != nil {
		return false, fmt.Errorf("encode composite at %s: %w", ts, err)
	}
	if err := f.store.EnsureDir(f.region.TilesDir + "/" + ts.DateKey()); err != nil {
		return false, err
	}
	if err := f.store.Write(dest, buf.Bytes()); err != nil {
		return false, err
	}
	f.logger.Info("composite written", "timestamp", ts, "dest", dest)
	return true, nil
}

// window returns the configured tile sub-window, defaulting to the whole
// sector grid.
func (f *TileFetcher) window() domain.TileWindow {
	if f.region.TileWindow != nil {
		return *f.region.TileWindow
	}
	return domain.TileWindow{
		Columns:  f.res.TilesAcross,
		Rows:     f.res.TilesAcross,
		TileSize: f.res.TileSize,
	}
}

// assemble pastes the tile grid into one canvas.
func (f *TileFetcher) assemble(grid [][]image.Image, win domain.TileWindow) image.Image {
	canvas := image.NewNRGBA(image.Rect(0, 0, win.Columns*win.TileSize, win.Rows*win.TileSize))
	for row := range grid {
		for col, tile := range grid[row] {
			at := image.Pt(col*win.TileSize, row*win.TileSize)
			draw.Draw(canvas, tile.Bounds().Sub(tile.Bounds().Min).Add(at), tile, tile.Bounds().Min, draw.Src)
		}
	}
	return canvas
}

// compositePath names a composite the way the catalog expects the
// primary provider's assets: per-day directory, 14-digit capture time.
func (f *TileFetcher) compositePath(ts domain.Timestamp, ts14 string) string {
	return fmt.Sprintf("%s/%s/%s_%s_full_%s.png", f.region.TilesDir, ts.DateKey(), f.region.Satellite, f.region.Resolution, ts14)
}
