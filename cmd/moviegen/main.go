// Command moviegen assembles a region's persisted frames into an H.264
// time-lapse via ffmpeg.
//
// Usage:
//
//	moviegen -region pacific -start 201812240300 -end 201901010000
//	moviegen -region pacific -start 201812240300 -end 201901010000 -out wk1.mp4
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyon-wx/frameline/internal/config"
	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/halcyon-wx/frameline/internal/movie"
	"github.com/halcyon-wx/frameline/internal/observability"
)

func main() {
	region := flag.String("region", "", "region whose frames to encode")
	start := flag.String("start", "", "first frame timestamp, YYYYMMDDHHMM")
	end := flag.String("end", "", "last frame timestamp, YYYYMMDDHHMM")
	out := flag.String("out", "", "output path (default <region>_<start>-<end>.mp4)")
	flag.Parse()

	if *region == "" || *start == "" || *end == "" {
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

	if err := run(ctx, cfg, logger, *region, *start, *end, *out); err != nil {
		logger.Error("encode failed", "region", *region, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, name, startArg, endArg, out string) error {
	r, err := config.Region(cfg, name)
	if err != nil {
		return err
	}
	startTS, err := domain.ParseTimestamp(startArg)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	endTS, err := domain.ParseTimestamp(endArg)
	if err != nil {
		return fmt.Errorf("parse end: %w", err)
	}
	if out == "" {
		out = movie.DefaultName(r, startTS, endTS)
	}

	enc := movie.NewEncoder(cfg.FFmpegPath, logger)
	frames, err := enc.Encode(ctx, r, startTS, endTS, out)
	if err != nil {
		return err
	}
	logger.Info("time-lapse written", "frames", frames, "dest", out)
	return nil
}
