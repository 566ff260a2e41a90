package fetch

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/halcyon-wx/frameline/internal/domain"
)

// ChartPoller mirrors the latest surface-analysis chart into a region's
// chart archive. The upstream publishes one rolling URL per basin; each
// poll compares the fetched bytes against the last saved copy and, when
// they differ, files the new chart under its synoptic valid time.
type ChartPoller struct {
	client   *Client
	store    Store
	url      string
	dir      string
	interval time.Duration
	logger   *slog.Logger
}

// NewChartPoller creates a poller writing into dir. interval is the
// issuance cadence the valid time is truncated to, typically six hours.
func NewChartPoller(client *Client, store Store, url, dir string, interval time.Duration, logger *slog.Logger) *ChartPoller {
	return &ChartPoller{
		client:   client,
		store:    store,
		url:      url,
		dir:      dir,
		interval: interval,
		logger:   logger.With("source", "chart", "dir", dir),
	}
}

// Poll fetches the current chart once. Returns true when a new chart was
// filed. The valid time is the poll time truncated to the issuance
// cadence; the upstream republishes the same bytes until the next
// issuance, so the byte comparison keeps duplicates out of the archive.
func (p *ChartPoller) Poll(ctx context.Context) (bool, error) {
	latest, err := p.client.Get(ctx, "chart", p.url)
	if err != nil {
		return false, err
	}

	lastPath := p.dir + "/last.png"
	if last, err := p.store.Read(lastPath); err == nil && bytes.Equal(last, latest) {
		p.logger.Debug("chart unchanged")
		return false, nil
	}

	if err := p.store.EnsureDir(p.dir); err != nil {
		return false, err
	}
	if err := p.store.Write(lastPath, latest); err != nil {
		return false, err
	}

	valid := domain.Now().TruncateSynoptic(p.interval)
	dest := p.dir + "/" + valid.String() + ".png"
	if err := p.store.Write(dest, latest); err != nil {
		return false, err
	}
	p.logger.Info("new chart filed", "valid", valid, "dest", dest)
	return true, nil
}

// Run polls on a fixed cadence until the context is cancelled. Poll
// failures are logged and retried on the next tick.
func (p *ChartPoller) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := p.Poll(ctx); err != nil {
			p.logger.Warn("chart poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
