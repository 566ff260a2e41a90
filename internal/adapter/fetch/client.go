// Package fetch retrieves remote tile, frame, and chart assets over HTTP
// and files them into the provider archives the catalog reads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/halcyon-wx/frameline/internal/observability"
)

// Store is the subset of the asset store the fetchers need.
type Store interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	EnsureDir(path string) error
}

// Client is the shared HTTP client for all remote sources. Every call
// runs through a circuit breaker so a provider outage trips fast instead
// of hammering a dead endpoint for thousands of tiles.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates a fetch client with the given per-request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "asset-fetch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Client{
		http:    &http.Client{Timeout: timeout},
		breaker: cb,
		logger:  logger,
		metrics: metrics,
	}
}

// Get fetches url and returns the response body. source labels the
// metrics ("tiles", "cdn", "chart"). Non-2xx statuses are errors.
func (c *Client) Get(ctx context.Context, source, url string) ([]byte, error) {
	start := time.Now()
	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	c.metrics.FetchRequests.WithLabelValues(source, "success").Inc()
	return data, nil
}
