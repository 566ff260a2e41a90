package fetch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyon-wx/frameline/internal/adapter/fetch"
	"github.com/halcyon-wx/frameline/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory fetch.Store.
type fakeStore struct {
	files  map[string][]byte
	writes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) Exists(path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s *fakeStore) Read(path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("not found: %s", path)
	}
	return data, nil
}

func (s *fakeStore) Write(path string, data []byte) error {
	s.files[path] = data
	s.writes = append(s.writes, path)
	return nil
}

func (s *fakeStore) EnsureDir(string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient() *fetch.Client {
	return fetch.NewClient(5*time.Second, testLogger(), observability.NewMetricsForTesting())
}

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/asset.png", r.URL.Path)
		_, _ = w.Write([]byte("asset-bytes"))
	}))
	defer srv.Close()

	data, err := newTestClient().Get(context.Background(), "tiles", srv.URL+"/asset.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("asset-bytes"), data)
}

func TestClientGetNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient().Get(context.Background(), "cdn", srv.URL+"/missing.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClientBreakerTripsOnConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient()
	for i := 0; i < 10; i++ {
		_, err := client.Get(context.Background(), "tiles", srv.URL)
		require.Error(t, err)
	}

	// The breaker opens after six consecutive failures; later calls
	// fail fast without reaching the server.
	assert.Equal(t, 6, hits)
}
