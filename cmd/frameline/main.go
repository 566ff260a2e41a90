package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	httpadapter "github.com/halcyon-wx/frameline/internal/adapter/http"
	"github.com/halcyon-wx/frameline/internal/adapter/imaging"
	kafkaadapter "github.com/halcyon-wx/frameline/internal/adapter/kafka"
	"github.com/halcyon-wx/frameline/internal/adapter/store"
	"github.com/halcyon-wx/frameline/internal/adapter/warp"
	"github.com/halcyon-wx/frameline/internal/catalog"
	"github.com/halcyon-wx/frameline/internal/config"
	"github.com/halcyon-wx/frameline/internal/observability"
	"github.com/halcyon-wx/frameline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	regions, err := config.Regions(cfg)
	if err != nil {
		logger.Error("invalid region registry", "error", err)
		os.Exit(1)
	}

	logos, err := logoPaths(cfg.LogoDir)
	if err != nil {
		logger.Error("failed to list logos", "dir", cfg.LogoDir, "error", err)
		os.Exit(1)
	}

	fs := store.NewFS()
	cat := catalog.New(fs, logger)
	comp, err := imaging.New(logger, logos)
	if err != nil {
		logger.Error("failed to build compositor", "error", err)
		os.Exit(1)
	}

	// Frame notifier (feature-flagged via KAFKA_BROKERS).
	var notifier pipeline.Notifier
	var kafkaNotifier *kafkaadapter.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier = kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		notifier = kafkaNotifier
		logger.Info("frame notifier enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("frame notifier disabled")
	}

	var pipelines []*namedPipeline
	for _, name := range cfg.Regions {
		region, ok := regions[name]
		if !ok {
			logger.Error("unknown region", "region", name)
			os.Exit(1)
		}
		warper := warp.NewGDAL(cfg.GDALWarpPath, region, logger)
		p, err := pipeline.New(region, cat, warper, comp, fs, notifier, logger, metrics)
		if err != nil {
			logger.Error("failed to build pipeline", "region", name, "error", err)
			os.Exit(1)
		}
		pipelines = append(pipelines, &namedPipeline{name: name, p: p})
	}

	runs := newRunLog()
	srv := httpadapter.NewServer(cfg.HTTPAddr, group(pipelines), runs, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Sweep loop: run every enabled region, then sleep. Each sweep is
	// idempotent over the output tree so overlap with upstream fetchers
	// is harmless.
	go func() {
		ticker := time.NewTicker(cfg.RunInterval)
		defer ticker.Stop()
		for {
			for _, np := range pipelines {
				summary, err := np.p.Run(ctx)
				runs.record(np.name, summary, err)
				if err != nil && ctx.Err() == nil {
					logger.Error("pipeline run failed", "region", np.name, "error", err)
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type namedPipeline struct {
	name string
	p    *pipeline.Pipeline
}

// group reports ready once every region pipeline has completed a sweep.
type group []*namedPipeline

func (g group) CheckReadiness(ctx context.Context) error {
	for _, np := range g {
		if err := np.p.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// runLog keeps the most recent run summary per region for /lastrun.
type runLog struct {
	mu   sync.Mutex
	runs map[string]runRecord
}

type runRecord struct {
	Summary  pipeline.Summary `json:"summary"`
	Error    string           `json:"error,omitempty"`
	Finished time.Time        `json:"finished"`
}

func newRunLog() *runLog {
	return &runLog{runs: make(map[string]runRecord)}
}

func (l *runLog) record(region string, summary pipeline.Summary, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := runRecord{Summary: summary, Finished: time.Now().UTC()}
	if err != nil {
		rec.Error = err.Error()
	}
	l.runs[region] = rec
}

func (l *runLog) LastRuns() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]runRecord, len(l.runs))
	for k, v := range l.runs {
		out[k] = v
	}
	return out
}

// logoPaths lists the PNG logos stamped on each frame, in name order.
// An unset dir disables the logo strip.
func logoPaths(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
