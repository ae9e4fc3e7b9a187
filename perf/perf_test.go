package perf_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vhttp "github.com/wesleyorama2/volley/http"
	"github.com/wesleyorama2/volley/perf"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"widget"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRun_EmbeddedScenario(t *testing.T) {
	server := newServer(t)

	scenario := perf.ScenarioFunc(func(ctx context.Context, it *perf.Iteration) error {
		resp := it.HTTP().Do(ctx, vhttp.NewRequest("GET", "/items/7").WithName("GET /items/{id}"))
		it.Check("status is 200", resp.StatusCode == http.StatusOK)

		name, err := resp.JSON("name")
		it.Check("has name", err == nil && name.String() == "widget")
		return nil
	})

	summary, err := perf.Run(context.Background(), scenario, perf.Config{
		VUs:        2,
		Duration:   time.Minute,
		Iterations: 3,
		Target:     perf.Target{BaseURL: server.URL},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(6), summary.Iterations)
	assert.Equal(t, int64(6), summary.Metrics.TotalRequests)
	assert.True(t, summary.Passed)

	require.Len(t, summary.Requests, 1)
	assert.Equal(t, "GET /items/{id}", summary.Requests[0].Name)
	require.Len(t, summary.Checks, 2)
	for _, c := range summary.Checks {
		assert.Equal(t, int64(6), c.Passes, c.Name)
	}
}

func TestRun_CustomThreshold(t *testing.T) {
	server := newServer(t)

	scenario := perf.ScenarioFunc(func(ctx context.Context, it *perf.Iteration) error {
		it.HTTP().Get(ctx, "/")
		return nil
	})

	atLeastTen := perf.ThresholdFunc("enough_requests", func(src perf.ThresholdSource) (float64, bool) {
		n := float64(src.Snapshot().TotalRequests)
		return n, n >= 10
	})

	summary, err := perf.Run(context.Background(), scenario, perf.Config{
		VUs:        1,
		Duration:   time.Minute,
		Iterations: 2,
		Target:     perf.Target{BaseURL: server.URL},
	}, perf.WithThreshold(atLeastTen))
	require.NoError(t, err)

	assert.False(t, summary.Passed)
	assert.True(t, errors.Is(summary.Err(), perf.ErrThresholdsFailed))
	require.Len(t, summary.FailedThresholds(), 1)
	assert.Equal(t, "enough_requests", summary.FailedThresholds()[0].Metric)
	assert.Equal(t, float64(2), summary.FailedThresholds()[0].Value)
}

func TestRun_InvalidConfig(t *testing.T) {
	scenario := perf.ScenarioFunc(func(ctx context.Context, it *perf.Iteration) error { return nil })

	_, err := perf.Run(context.Background(), scenario, perf.Config{VUs: 0, Duration: time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, perf.ErrInvalidConfig))

	var cfgErr *perf.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "vus", cfgErr.Field)
}

func TestCompileThreshold(t *testing.T) {
	th, err := perf.CompileThreshold("http_req_duration", "p(95)<500")
	require.NoError(t, err)
	assert.Equal(t, "http_req_duration", th.Metric)

	_, err = perf.CompileThreshold("http_req_duration", "p(95)<<")
	assert.True(t, errors.Is(err, perf.ErrInvalidThreshold))

	defs := perf.ProfileThresholds("jit")
	assert.Equal(t, []string{"p(95)<15000"}, defs["http_req_duration"])
}
