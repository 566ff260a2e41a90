// Command tilefetch mirrors upstream imagery into a region's provider
// archives: tile composites from the slider service and full-disk JPGs
// from the agency CDN. Both archives are skip-on-exists, so repeated
// invocations only download what is new.
//
// Usage:
//
//	tilefetch -region pacific              # both sources
//	tilefetch -region pacific -source cdn  # one source
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyon-wx/frameline/internal/adapter/fetch"
	"github.com/halcyon-wx/frameline/internal/adapter/store"
	"github.com/halcyon-wx/frameline/internal/config"
	"github.com/halcyon-wx/frameline/internal/observability"
)

func main() {
	region := flag.String("region", "", "region to fetch for")
	source := flag.String("source", "all", "source to mirror: tiles, cdn, or all")
	flag.Parse()

	if *region == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *region, *source); err != nil {
		logger.Error("fetch failed", "region", *region, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, name, source string) error {
	r, err := config.Region(cfg, name)
	if err != nil {
		return err
	}

	client := fetch.NewClient(cfg.FetchTimeout, logger, observability.NewMetrics())
	fs := store.NewFS()

	if source == "tiles" || source == "all" {
		fetcher, err := fetch.NewTileFetcher(client, fs, cfg.TileBaseURL, r, logger)
		if err != nil {
			return err
		}
		times, err := fetcher.AvailableTimes(ctx)
		if err != nil {
			return fmt.Errorf("list tile times: %w", err)
		}
		var fetched int
		for _, ts14 := range times {
			ok, err := fetcher.FetchComposite(ctx, ts14)
			if err != nil {
				logger.Warn("composite fetch failed", "timestamp", ts14, "error", err)
				continue
			}
			if ok {
				fetched++
			}
		}
		logger.Info("tile sync complete", "available", len(times), "fetched", fetched)
	}

	if source == "cdn" || source == "all" {
		fetcher := fetch.NewCDNFetcher(client, fs, cfg.CDNBaseURL, r, logger)
		listings, err := fetcher.Available(ctx)
		if err != nil {
			return fmt.Errorf("list cdn assets: %w", err)
		}
		var fetched int
		for _, l := range listings {
			ok, err := fetcher.Fetch(ctx, l)
			if err != nil {
				logger.Warn("cdn fetch failed", "timestamp", l.Time, "error", err)
				continue
			}
			if ok {
				fetched++
			}
		}
		logger.Info("cdn sync complete", "available", len(listings), "fetched", fetched)
	}

	return nil
}
