package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/halcyon-wx/frameline/internal/adapter/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReadiness struct {
	err error
}

func (s *stubReadiness) CheckReadiness(context.Context) error { return s.err }

type stubRuns struct {
	payload any
}

func (s *stubRuns) LastRuns() any { return s.payload }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := httpadapter.NewServer(":0", &stubReadiness{}, nil, testLogger())

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	ready := &stubReadiness{err: errors.New("no frames processed")}
	srv := httpadapter.NewServer(":0", ready, nil, testLogger())

	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "no frames")

	ready.err = nil
	rec = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLastRun(t *testing.T) {
	runs := &stubRuns{payload: map[string]int{"pacific": 42}}
	srv := httpadapter.NewServer(":0", &stubReadiness{}, runs, testLogger())

	rec := get(t, srv, "/lastrun")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 42, body["pacific"])
}

func TestLastRunWithoutReporter(t *testing.T) {
	srv := httpadapter.NewServer(":0", &stubReadiness{}, nil, testLogger())

	rec := get(t, srv, "/lastrun")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &stubReadiness{}, nil, testLogger())

	rec := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httpadapter.NewServer(":0", &stubReadiness{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
