package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/halcyon-wx/frameline/internal/catalog"
	"github.com/halcyon-wx/frameline/internal/chart"
	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/halcyon-wx/frameline/internal/observability"
)

// Warper reprojects a source raster from the satellite's native
// geostationary geometry into the region's Mercator window.
type Warper interface {
	Warp(ctx context.Context, sourcePath string, geo domain.Geometry) (image.Image, error)
}

// Compositor performs the pixel-level operations the pipeline sequences:
// decode, overlay, crop/resize, decoration, encode.
type Compositor interface {
	Decode(data []byte) (image.Image, error)
	PrepareChart(data []byte) (image.Image, error)
	OverlayBaseMap(base, overlay image.Image) image.Image
	OverlayChart(base, chartImg image.Image, opacity int) image.Image
	CropResize(img image.Image, crop domain.PixelRect, width, height int) image.Image
	Decorate(img image.Image, dec Decoration) (image.Image, error)
	Encode(img image.Image, format string) ([]byte, error)
}

// Store is the persistent asset store the pipeline reads charts from and
// writes finished frames to.
type Store interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Delete(path string) error
	EnsureDir(path string) error
}

// Notifier publishes an event for every persisted frame. Optional.
type Notifier interface {
	FramePersisted(ctx context.Context, event FrameEvent) error
}

// Decoration carries the label inputs for the external compositor.
type Decoration struct {
	Satellite string
	FrameTime domain.Timestamp
	ChartTime domain.Timestamp
	HasChart  bool
	Caveat    string
	Timezone  string
}

// FrameEvent describes one persisted frame for downstream consumers.
type FrameEvent struct {
	Region     string           `json:"region"`
	Provider   domain.Provider  `json:"provider"`
	FrameTime  domain.Timestamp `json:"-"`
	ChartTime  domain.Timestamp `json:"-"`
	OutputPath string           `json:"output_path"`

	// Wire forms of the timestamps.
	FrameTimeString string `json:"frame_time"`
	ChartTimeString string `json:"chart_time,omitempty"`
}

// Outcome classifies what happened to one frame. Skip and failure
// decisions are data returned from each stage, not caught panics, so the
// orchestrator's control flow stays explicit.
type Outcome int

const (
	// OutcomeProduced means the frame was composited and persisted.
	OutcomeProduced Outcome = iota
	// OutcomeSkippedExists means the output already existed (resume).
	OutcomeSkippedExists
	// OutcomeSkippedNoChart means the region requires a chart and none
	// was valid within the fade window.
	OutcomeSkippedNoChart
	// OutcomeFailed means a stage failed; the frame is dropped and the
	// run continues.
	OutcomeFailed
)

// FrameResult reports the outcome of one frame, with the failing stage
// and error when Outcome is OutcomeFailed.
type FrameResult struct {
	Frame   domain.Frame
	Outcome Outcome
	Stage   string
	Err     error
}

// Summary tallies a region run.
type Summary struct {
	Timeline       int
	Produced       int
	SkippedExists  int
	SkippedNoChart int
	Failed         int
}

// Pipeline assembles one region's composite frame sequence. Frames are
// processed strictly in ascending timestamp order; the chart cursor is
// advanced by frame timestamps alone, so a failed frame never perturbs
// chart selection for its successors. Idempotent skip-on-exists makes the
// whole run safely re-invocable over a partially completed output tree.
type Pipeline struct {
	region   domain.Region
	geo      domain.Geometry
	catalog  *catalog.Catalog
	warper   Warper
	comp     Compositor
	store    Store
	notifier Notifier
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	// Prepared chart cache: re-preparing the overlay once per cursor
	// position instead of once per frame.
	preparedIdx int
	prepared    image.Image

	baseMap image.Image
}

// New creates a Pipeline for one region. Geometry is resolved here, once:
// it is deterministic given configuration, and a bad region fails before
// any frame is touched.
func New(region domain.Region, cat *catalog.Catalog, warper Warper, comp Compositor, store Store, notifier Notifier, logger *slog.Logger, metrics *observability.Metrics) (*Pipeline, error) {
	geo, err := domain.ResolveGeometry(region)
	if err != nil {
		return nil, err
	}
	if region.RequireChart && !region.HasCharts() {
		return nil, &domain.ConfigurationError{Region: region.Name, Field: "chart_dir", Reason: "region requires a chart but defines no chart source"}
	}
	return &Pipeline{
		region:      region,
		geo:         geo,
		catalog:     cat,
		warper:      warper,
		comp:        comp,
		store:       store,
		notifier:    notifier,
		logger:      logger.With("region", region.Name),
		metrics:     metrics,
		preparedIdx: -1,
	}, nil
}

// CheckReadiness returns nil once the pipeline has handled at least one
// frame of the current run.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return fmt.Errorf("pipeline has not processed any frames yet")
	}
	return nil
}

// Run discovers the region's merged timeline and processes every frame in
// order. Per-frame failures are logged and skipped; only discovery errors
// and context cancellation end the run early.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := domain.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	primary, err := p.catalog.ListProviderAssets(p.region, domain.ProviderTiles)
	if err != nil {
		return Summary{}, err
	}
	secondary, err := p.catalog.ListProviderAssets(p.region, domain.ProviderCDN)
	if err != nil {
		return Summary{}, err
	}
	timeline := catalog.Merge(primary, secondary)

	charts, err := p.catalog.ListCharts(p.region)
	if err != nil {
		return Summary{}, err
	}
	tracker := chart.NewTracker(charts)

	p.metrics.TimelineSize.Set(float64(len(timeline)))
	p.logger.Info("run started",
		"frames", len(timeline),
		"tiles", len(primary),
		"cdn", len(secondary),
		"charts", len(charts),
	)

	summary := Summary{Timeline: len(timeline)}
	for _, frame := range timeline {
		select {
		case <-ctx.Done():
			p.logger.Info("run cancelled", "reason", ctx.Err())
			return summary, ctx.Err()
		default:
		}

		res := p.processFrame(ctx, frame, tracker)
		p.ready.Store(true)
		switch res.Outcome {
		case OutcomeProduced:
			summary.Produced++
			p.metrics.FramesProduced.Inc()
		case OutcomeSkippedExists:
			summary.SkippedExists++
			p.metrics.FramesSkipped.WithLabelValues("exists").Inc()
		case OutcomeSkippedNoChart:
			summary.SkippedNoChart++
			p.metrics.FramesSkipped.WithLabelValues("no_chart").Inc()
			p.logger.Debug("no chart context", "frame", frame.Time)
		case OutcomeFailed:
			summary.Failed++
			p.metrics.FrameFailures.WithLabelValues(res.Stage).Inc()
			p.logger.Error("frame failed",
				"frame", frame.Time,
				"path", frame.Path,
				"stage", res.Stage,
				"error", res.Err,
			)
		}
	}

	p.logger.Info("run finished",
		"produced", summary.Produced,
		"skipped_existing", summary.SkippedExists,
		"skipped_no_chart", summary.SkippedNoChart,
		"failed", summary.Failed,
		"elapsed", domain.Now().Sub(started).Round(time.Second),
	)
	return summary, nil
}

// processFrame runs one frame through the full stage sequence. The chart
// cursor advance happens before any fallible stage so that failures are
// isolated: frame k failing leaves the cursor exactly where a successful
// frame k would have left it.
func (p *Pipeline) processFrame(ctx context.Context, frame domain.Frame, tracker *chart.Tracker) FrameResult {
	begin := time.Now()

	dest := p.destPath(frame.Time, p.region.OutputFormat)
	if p.store.Exists(dest) {
		return FrameResult{Frame: frame, Outcome: OutcomeSkippedExists}
	}

	before := tracker.Index()
	cur, hasChart := tracker.Advance(frame.Time)
	if tracker.Index() > before {
		p.metrics.ChartAdvances.Inc()
		p.logger.Debug("chart advanced", "index", tracker.Index(), "valid", cur.Valid)
	}

	weight := 0
	inWindow := false
	if hasChart {
		weight, inWindow = tracker.FadeWeight(frame.Time, p.region.FadeWindow, p.region.MinOpacity, p.region.MaxOpacity)
	}
	if p.region.RequireChart && (!hasChart || !inWindow) {
		return FrameResult{Frame: frame, Outcome: OutcomeSkippedNoChart}
	}
	if hasChart && !inWindow {
		// Chart too far from its valid time for full strength, but the
		// region keeps some context visible at the opacity floor.
		weight = p.region.MinOpacity
	}

	img, err := p.warper.Warp(ctx, frame.Path, p.geo)
	if err != nil {
		return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "warp", Err: err}
	}

	if p.region.BaseMap != nil {
		overlay, err := p.loadBaseMap()
		if err != nil {
			return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "composite", Err: err}
		}
		img = p.comp.OverlayBaseMap(img, overlay)
	}

	if hasChart {
		chartImg, err := p.preparedChart(tracker.Index(), cur)
		if err != nil {
			return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "composite", Err: err}
		}
		img = p.comp.OverlayChart(img, chartImg, weight)
	}

	img = p.comp.CropResize(img, p.region.Crop, p.region.OutputWidth, p.region.OutputHeight)

	img, err = p.comp.Decorate(img, Decoration{
		Satellite: p.region.Satellite,
		FrameTime: frame.Time,
		ChartTime: cur.Valid,
		HasChart:  hasChart,
		Caveat:    p.region.Caveat,
		Timezone:  p.region.DisplayTimezone,
	})
	if err != nil {
		return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "decorate", Err: err}
	}

	data, err := p.comp.Encode(img, p.region.OutputFormat)
	if err != nil {
		return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "persist", Err: err}
	}
	if err := p.store.EnsureDir(p.region.OutputDir + "/" + frame.Time.DateKey()); err != nil {
		return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "persist", Err: err}
	}
	if err := p.store.Write(dest, data); err != nil {
		return FrameResult{Frame: frame, Outcome: OutcomeFailed, Stage: "persist", Err: err}
	}

	if p.region.ReplaceFormat != "" && p.region.ReplaceFormat != p.region.OutputFormat {
		old := p.destPath(frame.Time, p.region.ReplaceFormat)
		if p.store.Exists(old) {
			if err := p.store.Delete(old); err != nil {
				p.logger.Warn("deleting superseded output failed", "path", old, "error", err)
			}
		}
	}

	p.metrics.FrameDuration.Observe(time.Since(begin).Seconds())
	p.logger.Info("frame persisted",
		"frame", frame.Time,
		"provider", frame.Provider,
		"chart", chartLabel(cur, hasChart),
		"opacity", weight,
		"dest", dest,
	)

	if p.notifier != nil {
		event := FrameEvent{
			Region:          p.region.Name,
			Provider:        frame.Provider,
			FrameTime:       frame.Time,
			OutputPath:      dest,
			FrameTimeString: frame.Time.String(),
		}
		if hasChart {
			event.ChartTime = cur.Valid
			event.ChartTimeString = cur.Valid.String()
		}
		if err := p.notifier.FramePersisted(ctx, event); err != nil {
			p.logger.Warn("frame notification failed", "frame", frame.Time, "error", err)
		}
	}

	return FrameResult{Frame: frame, Outcome: OutcomeProduced}
}

// preparedChart returns the prepared overlay for the chart at idx,
// re-preparing only when the cursor has moved.
func (p *Pipeline) preparedChart(idx int, cur domain.Chart) (image.Image, error) {
	if idx == p.preparedIdx && p.prepared != nil {
		return p.prepared, nil
	}
	data, err := p.store.Read(cur.Path)
	if err != nil {
		return nil, fmt.Errorf("read chart %s: %w", cur.Path, err)
	}
	img, err := p.comp.PrepareChart(data)
	if err != nil {
		return nil, fmt.Errorf("prepare chart %s: %w", cur.Path, err)
	}
	p.preparedIdx = idx
	p.prepared = img
	return img, nil
}

// loadBaseMap decodes the region's static base-map overlay, once.
func (p *Pipeline) loadBaseMap() (image.Image, error) {
	if p.baseMap != nil {
		return p.baseMap, nil
	}
	data, err := p.store.Read(p.region.BaseMap.Path)
	if err != nil {
		return nil, fmt.Errorf("read base map %s: %w", p.region.BaseMap.Path, err)
	}
	img, err := p.comp.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode base map %s: %w", p.region.BaseMap.Path, err)
	}
	p.baseMap = img
	return img, nil
}

// destPath is the output location for a frame: one directory per day,
// files named by the canonical timestamp.
func (p *Pipeline) destPath(ts domain.Timestamp, format string) string {
	return fmt.Sprintf("%s/%s/%s.%s", p.region.OutputDir, ts.DateKey(), ts, format)
}

func chartLabel(cur domain.Chart, hasChart bool) string {
	if !hasChart {
		return "none"
	}
	return cur.Valid.String()
}
