package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// frame-assembly pipeline.
type Metrics struct {
	FramesProduced  prometheus.Counter
	FramesSkipped   *prometheus.CounterVec // labels: reason={exists,no_chart}
	FrameFailures   *prometheus.CounterVec // labels: stage={warp,composite,decorate,persist}
	ChartAdvances   prometheus.Counter
	PipelineRunning prometheus.Gauge

	FrameDuration prometheus.Histogram
	TimelineSize  prometheus.Gauge

	// Remote fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: source={tiles,cdn,chart}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: source
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FramesProduced,
		m.FramesSkipped,
		m.FrameFailures,
		m.ChartAdvances,
		m.PipelineRunning,
		m.FrameDuration,
		m.TimelineSize,
		m.FetchRequests,
		m.FetchDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// avoid "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FramesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frameline",
			Name:      "frames_produced_total",
			Help:      "Total composite frames written to the output tree.",
		}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frameline",
			Name:      "frames_skipped_total",
			Help:      "Frames skipped by reason.",
		}, []string{"reason"}),
		FrameFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frameline",
			Name:      "frame_failures_total",
			Help:      "Per-frame stage failures.",
		}, []string{"stage"}),
		ChartAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "frameline",
			Name:      "chart_advances_total",
			Help:      "Chart cursor advances across the run.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "frameline",
			Name:      "pipeline_running",
			Help:      "1 when a region run is active, 0 otherwise.",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "frameline",
			Name:      "frame_duration_seconds",
			Help:      "Duration of one complete warp-composite-persist cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TimelineSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "frameline",
			Name:      "timeline_frames",
			Help:      "Frames in the merged timeline for the current run.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frameline",
			Name:      "fetch_requests_total",
			Help:      "Remote asset fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frameline",
			Name:      "fetch_duration_seconds",
			Help:      "Remote asset fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
	}
}
