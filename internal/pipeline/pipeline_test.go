package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/halcyon-wx/frameline/internal/catalog"
	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/halcyon-wx/frameline/internal/observability"
	"github.com/halcyon-wx/frameline/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

// memStore is an in-memory asset store implementing both the pipeline's
// Store and the catalog's Lister.
type memStore struct {
	files   map[string][]byte
	writes  []string
	deletes []string
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (m *memStore) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *memStore) Read(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("not found: %s", path)
	}
	return data, nil
}

func (m *memStore) Write(path string, data []byte) error {
	m.files[path] = data
	m.writes = append(m.writes, path)
	return nil
}

func (m *memStore) Delete(path string) error {
	delete(m.files, path)
	m.deletes = append(m.deletes, path)
	return nil
}

func (m *memStore) EnsureDir(string) error { return nil }

// List enumerates the immediate children of path from the stored keys.
func (m *memStore) List(path string) ([]catalog.Entry, error) {
	prefix := path + "/"
	seen := make(map[string]bool)
	var entries []catalog.Entry
	for key := range m.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		name, isDir := rest, false
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name, isDir = rest[:i], true
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, catalog.Entry{Name: name, Dir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

type mockWarper struct {
	failPaths map[string]bool
	calls     []string
}

func (m *mockWarper) Warp(_ context.Context, sourcePath string, _ domain.Geometry) (image.Image, error) {
	m.calls = append(m.calls, sourcePath)
	if m.failPaths[sourcePath] {
		return nil, errors.New("gdalwarp exited 1")
	}
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

// mockCompositor passes images through and records overlay opacities.
type mockCompositor struct {
	opacities  []int
	decorated  []pipeline.Decoration
	encodeErr  error
	prepareErr error
	prepares   int
}

func (m *mockCompositor) Decode([]byte) (image.Image, error) {
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (m *mockCompositor) PrepareChart([]byte) (image.Image, error) {
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	m.prepares++
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (m *mockCompositor) OverlayBaseMap(base, _ image.Image) image.Image { return base }

func (m *mockCompositor) OverlayChart(base, _ image.Image, opacity int) image.Image {
	m.opacities = append(m.opacities, opacity)
	return base
}

func (m *mockCompositor) CropResize(img image.Image, _ domain.PixelRect, _, _ int) image.Image {
	return img
}

func (m *mockCompositor) Decorate(img image.Image, dec pipeline.Decoration) (image.Image, error) {
	m.decorated = append(m.decorated, dec)
	return img, nil
}

func (m *mockCompositor) Encode(image.Image, string) ([]byte, error) {
	if m.encodeErr != nil {
		return nil, m.encodeErr
	}
	return []byte("frame"), nil
}

type mockNotifier struct {
	events []pipeline.FrameEvent
	err    error
}

func (m *mockNotifier) FramePersisted(_ context.Context, event pipeline.FrameEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

// --- fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegion() domain.Region {
	return domain.Region{
		Name:         "pacific",
		Satellite:    "goes-17",
		Resolution:   "2km",
		Sector:       "full",
		TilesDir:     "/data/tiles",
		CDNDir:       "/data/cdn",
		ChartDir:     "/data/charts",
		FadeWindow:   3 * time.Hour,
		MinOpacity:   64,
		MaxOpacity:   255,
		Crop:         domain.PixelRect{X0: 0, Y0: 0, X1: 8, Y1: 8},
		OutputWidth:  8,
		OutputHeight: 8,
		OutputFormat: "png",
		OutputDir:    "/data/overlay",
		Start:        domain.NewTimestamp(2019, 1, 1, 0, 0),
	}
}

// seedTile files a tile asset for the canonical timestamp ts12.
func seedTile(store *memStore, ts12 string) {
	store.files["/data/tiles/"+ts12[:8]+"/goes-17_2km_full_"+ts12+"00.png"] = []byte("tile")
}

func seedCDN(store *memStore, ts12 string) {
	store.files["/data/cdn/"+ts12[:8]+"/goes-17_2km_full_"+ts12+".jpg"] = []byte("cdn")
}

func seedChart(store *memStore, ts12 string) {
	store.files["/data/charts/"+ts12+".png"] = []byte("chart")
}

func newTestPipeline(t *testing.T, region domain.Region, store *memStore, warper *mockWarper, comp *mockCompositor, notifier pipeline.Notifier) *pipeline.Pipeline {
	t.Helper()
	cat := catalog.New(store, testLogger())
	p, err := pipeline.New(region, cat, warper, comp, store, notifier, testLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return p
}

// --- tests ---

func TestRunProducesMergedTimeline(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600")
	seedTile(store, "201901240700")
	seedCDN(store, "201901240630")
	seedCDN(store, "201901240700") // tie with tiles, must not double-produce
	seedChart(store, "201901240600")

	warper := &mockWarper{}
	comp := &mockCompositor{}
	notifier := &mockNotifier{}
	p := newTestPipeline(t, testRegion(), store, warper, comp, notifier)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Timeline)
	assert.Equal(t, 3, summary.Produced)
	assert.Zero(t, summary.Failed)

	// Outputs land in per-day directories named by canonical timestamp.
	assert.True(t, store.Exists("/data/overlay/20190124/201901240600.png"))
	assert.True(t, store.Exists("/data/overlay/20190124/201901240630.png"))
	assert.True(t, store.Exists("/data/overlay/20190124/201901240700.png"))

	// The tie went to the lossless provider.
	require.Len(t, notifier.events, 3)
	assert.Equal(t, domain.ProviderTiles, notifier.events[2].Provider)
	assert.Equal(t, domain.ProviderCDN, notifier.events[1].Provider)
}

func TestRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	for _, ts := range []string{"201901240600", "201901240700", "201901240800"} {
		seedTile(store, ts)
	}
	seedChart(store, "201901240600")

	// First run produces everything.
	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, &mockCompositor{}, nil)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.Produced)

	firstWrites := len(store.writes)

	// A new asset arrives; the second run writes exactly one frame.
	seedTile(store, "201901240900")
	p2 := newTestPipeline(t, testRegion(), store, &mockWarper{}, &mockCompositor{}, nil)
	summary, err = p2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Produced)
	assert.Equal(t, 3, summary.SkippedExists)
	assert.Len(t, store.writes, firstWrites+1)
	assert.True(t, store.Exists("/data/overlay/20190124/201901240900.png"))
}

func TestRunFrameFailureIsIsolated(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600")
	seedTile(store, "201901240700")
	seedTile(store, "201901240800")
	seedChart(store, "201901240600")

	warper := &mockWarper{failPaths: map[string]bool{
		"/data/tiles/20190124/goes-17_2km_full_20190124070000.png": true,
	}}
	notifier := &mockNotifier{}
	p := newTestPipeline(t, testRegion(), store, warper, &mockCompositor{}, notifier)

	summary, err := p.Run(context.Background())
	require.NoError(t, err, "per-frame failures must not end the run")

	assert.Equal(t, 2, summary.Produced)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, store.Exists("/data/overlay/20190124/201901240700.png"))
	assert.True(t, store.Exists("/data/overlay/20190124/201901240800.png"))

	// The failed frame still advanced the chart cursor, so its
	// successors see the same chart an uninterrupted run would.
	for _, ev := range notifier.events {
		assert.Equal(t, "201901240600", ev.ChartTimeString)
	}
}

func TestRunRequireChartSkipsUncoveredFrames(t *testing.T) {
	region := testRegion()
	region.RequireChart = true

	store := newMemStore()
	seedTile(store, "201901240600") // at chart valid time
	seedTile(store, "201901240830") // inside 3h window
	seedTile(store, "201901241800") // far beyond the window
	seedChart(store, "201901240600")

	p := newTestPipeline(t, region, store, &mockWarper{}, &mockCompositor{}, nil)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Produced)
	assert.Equal(t, 1, summary.SkippedNoChart)
	assert.False(t, store.Exists("/data/overlay/20190124/201901241800.png"))
}

func TestRunRequireChartWithNoChartsSkipsEverything(t *testing.T) {
	region := testRegion()
	region.RequireChart = true

	store := newMemStore()
	seedTile(store, "201901240600")

	p := newTestPipeline(t, region, store, &mockWarper{}, &mockCompositor{}, nil)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.Produced)
	assert.Equal(t, 1, summary.SkippedNoChart)
}

func TestRunFadeOpacity(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600") // dt 0      -> 255
	seedTile(store, "201901240730") // dt 1h30m  -> 160
	seedTile(store, "201901240900") // dt 3h     -> 64, window edge
	seedTile(store, "201901241400") // beyond window -> floor, still composited
	seedChart(store, "201901240600")

	comp := &mockCompositor{}
	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, comp, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, summary.Produced)

	assert.Equal(t, []int{255, 160, 64, 64}, comp.opacities)
}

func TestRunWithoutChartsProducesBareFrames(t *testing.T) {
	region := testRegion()
	region.ChartDir = ""

	store := newMemStore()
	seedTile(store, "201901240600")

	comp := &mockCompositor{}
	p := newTestPipeline(t, region, store, &mockWarper{}, comp, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Produced)
	assert.Empty(t, comp.opacities, "no chart overlay without a chart source")
	require.Len(t, comp.decorated, 1)
	assert.False(t, comp.decorated[0].HasChart)
}

func TestRunPreparesChartOncePerCursorPosition(t *testing.T) {
	store := newMemStore()
	for _, ts := range []string{"201901240600", "201901240620", "201901240640", "201901241200", "201901241220"} {
		seedTile(store, ts)
	}
	seedChart(store, "201901240600")
	seedChart(store, "201901241200")

	comp := &mockCompositor{}
	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, comp, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, comp.prepares, "one preparation per chart, not per frame")
}

func TestRunReplacesSupersededFormat(t *testing.T) {
	region := testRegion()
	region.ReplaceFormat = "jpg"

	store := newMemStore()
	seedTile(store, "201901240600")
	seedChart(store, "201901240600")
	// A frame persisted before the region switched to png.
	store.files["/data/overlay/20190124/201901240600.jpg"] = []byte("old")

	p := newTestPipeline(t, region, store, &mockWarper{}, &mockCompositor{}, nil)
	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Produced)
	assert.True(t, store.Exists("/data/overlay/20190124/201901240600.png"))
	assert.False(t, store.Exists("/data/overlay/20190124/201901240600.jpg"))
	assert.Contains(t, store.deletes, "/data/overlay/20190124/201901240600.jpg")
}

func TestRunNotifierFailureDoesNotFailFrame(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600")
	seedChart(store, "201901240600")

	notifier := &mockNotifier{err: errors.New("broker unreachable")}
	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, &mockCompositor{}, notifier)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Produced)
	assert.True(t, store.Exists("/data/overlay/20190124/201901240600.png"))
}

func TestRunCancelledContext(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, &mockCompositor{}, nil)
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDecoration(t *testing.T) {
	region := testRegion()
	region.Caveat = "GOES-17 Preliminary, Non-Operational Data"
	region.DisplayTimezone = "America/Los_Angeles"

	store := newMemStore()
	seedTile(store, "201901240600")
	seedChart(store, "201901240600")

	comp := &mockCompositor{}
	p := newTestPipeline(t, region, store, &mockWarper{}, comp, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, comp.decorated, 1)
	dec := comp.decorated[0]
	assert.Equal(t, "goes-17", dec.Satellite)
	assert.Equal(t, "201901240600", dec.FrameTime.String())
	assert.True(t, dec.HasChart)
	assert.Equal(t, "201901240600", dec.ChartTime.String())
	assert.Equal(t, region.Caveat, dec.Caveat)
	assert.Equal(t, "America/Los_Angeles", dec.Timezone)
}

func TestNewRejectsBadGeometry(t *testing.T) {
	region := testRegion()
	region.Satellite = "goes-99"

	cat := catalog.New(newMemStore(), testLogger())
	_, err := pipeline.New(region, cat, &mockWarper{}, &mockCompositor{}, newMemStore(), nil, testLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewRejectsRequireChartWithoutSource(t *testing.T) {
	region := testRegion()
	region.RequireChart = true
	region.ChartDir = ""

	cat := catalog.New(newMemStore(), testLogger())
	_, err := pipeline.New(region, cat, &mockWarper{}, &mockCompositor{}, newMemStore(), nil, testLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestCheckReadiness(t *testing.T) {
	store := newMemStore()
	seedTile(store, "201901240600")

	p := newTestPipeline(t, testRegion(), store, &mockWarper{}, &mockCompositor{}, nil)
	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}
