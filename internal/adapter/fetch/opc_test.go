package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyon-wx/frameline/internal/adapter/fetch"
	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartPollerFilesNewChart(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2019, time.January, 24, 14, 37, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	body := []byte("chart-rev-1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	store := newFakeStore()
	poller := fetch.NewChartPoller(newTestClient(), store, srv.URL, "/data/charts", 6*time.Hour, testLogger())

	filed, err := poller.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, filed)

	// 14:37 truncates to the 12Z issuance.
	data, err := store.Read("/data/charts/201901241200.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("chart-rev-1"), data)

	// Unchanged bytes on the next poll: nothing new filed.
	filed, err = poller.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, filed)

	// A new revision after the next issuance lands under its own
	// valid time.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2019, time.January, 24, 20, 5, 0, 0, time.UTC),
	))
	body = []byte("chart-rev-2")

	filed, err = poller.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, filed)

	data, err = store.Read("/data/charts/201901241800.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("chart-rev-2"), data)

	// The first revision is untouched.
	data, err = store.Read("/data/charts/201901241200.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("chart-rev-1"), data)
}

func TestChartPollerPropagatesFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	poller := fetch.NewChartPoller(newTestClient(), newFakeStore(), srv.URL, "/data/charts", 6*time.Hour, testLogger())
	_, err := poller.Poll(context.Background())
	assert.Error(t, err)
}
