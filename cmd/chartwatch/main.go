// Command chartwatch mirrors the rolling surface-analysis charts into
// each region's chart archive. The upstream republishes one URL per
// basin; chartwatch polls it, detects revisions by byte comparison, and
// files each new chart under its synoptic valid time.
//
// Usage:
//
//	chartwatch            # poll forever on CHART_POLL_INTERVAL
//	chartwatch -once      # poll each source once and exit
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/halcyon-wx/frameline/internal/adapter/fetch"
	"github.com/halcyon-wx/frameline/internal/adapter/store"
	"github.com/halcyon-wx/frameline/internal/config"
	"github.com/halcyon-wx/frameline/internal/observability"
)

// chartCadence is the upstream issuance interval chart valid times are
// truncated to.
const chartCadence = 6 * time.Hour

func main() {
	once := flag.Bool("once", false, "poll each chart source once and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sources, err := config.ChartSources(cfg)
	if err != nil {
		logger.Error("invalid chart sources", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		logger.Info("no chart sources enabled")
		return
	}

	client := fetch.NewClient(cfg.FetchTimeout, logger, metrics)
	fs := store.NewFS()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, src := range sources {
		poller := fetch.NewChartPoller(client, fs, src.URL, src.Dir, chartCadence, logger.With("region", src.Region))
		if *once {
			if filed, err := poller.Poll(ctx); err != nil {
				logger.Error("chart poll failed", "region", src.Region, "error", err)
			} else if !filed {
				logger.Info("chart unchanged", "region", src.Region)
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = poller.Run(ctx, cfg.ChartPollInterval)
		}()
	}
	wg.Wait()
}
