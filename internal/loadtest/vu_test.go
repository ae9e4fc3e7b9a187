package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

func TestVirtualUser_CountsItsOwnRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	engine := metrics.NewEngine()
	defer engine.Stop()

	core, logs := observer.New(zapcore.DebugLevel)
	shared := vhttp.NewClient(vhttp.WithBaseURL(server.URL))

	scenario := ScenarioFunc(func(ctx context.Context, it *Iteration) error {
		ok := it.HTTP().Get(ctx, "/ok")
		bad := it.HTTP().Get(ctx, "/fail")
		it.Check("ok is 200", ok.StatusCode == http.StatusOK)
		it.Check("fail is 200", bad.StatusCode == http.StatusOK)
		return nil
	})

	first := newVirtualUser(1, scenario, shared, engine, Target{BaseURL: server.URL}, zap.New(core))
	second := newVirtualUser(2, scenario, shared, engine, Target{BaseURL: server.URL}, zap.New(core))

	_, err := first.RunIteration(context.Background())
	require.NoError(t, err)
	_, err = first.RunIteration(context.Background())
	require.NoError(t, err)
	_, err = second.RunIteration(context.Background())
	require.NoError(t, err)

	total, failed := first.Requests()
	assert.EqualValues(t, 4, total)
	assert.EqualValues(t, 2, failed)
	assert.EqualValues(t, 2, first.Iterations())

	total, failed = second.Requests()
	assert.EqualValues(t, 2, total)
	assert.EqualValues(t, 1, failed)

	snap := engine.Snapshot()
	assert.EqualValues(t, 6, snap.TotalRequests)
	assert.EqualValues(t, 3, snap.FailedRequests)
	assert.EqualValues(t, 3, snap.Iterations)

	assert.Equal(t, 3, logs.FilterMessage("checks failed").Len())

	first.markStopped()
	assert.Equal(t, VUStateStopped, first.State())

	stopped := logs.FilterMessage("vu stopped").All()
	require.Len(t, stopped, 1)
	fields := stopped[0].ContextMap()
	assert.EqualValues(t, 1, fields["vu"])
	assert.EqualValues(t, 2, fields["iterations"])
	assert.EqualValues(t, 4, fields["requests"])
	assert.EqualValues(t, 2, fields["failed_requests"])
}

func TestFailedChecks(t *testing.T) {
	it := &Iteration{}
	it.Check("a", true)
	it.Check("b", false)
	it.Check("c", false)

	assert.Equal(t, []string{"b", "c"}, failedChecks(it.Checks()))
	assert.Nil(t, failedChecks(nil))
}
