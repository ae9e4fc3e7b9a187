package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
	"github.com/wesleyorama2/volley/internal/stub"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func stubServer(t *testing.T, faults stub.Faults) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(stub.NewServer(stub.WithFaults(faults)))
	t.Cleanup(server.Close)
	return server
}

func TestRunCommand_ProductAgainstStub(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	server := stubServer(t, stub.Faults{})

	out, err := execute(t, "run",
		"--url", server.URL,
		"--vus", "2",
		"--duration", "5s",
		"--iterations", "2",
		"--think-min", "0s",
		"--think-max", "0s",
		"--format", "json",
		"--report-dir", "report",
		"--log-level", "error",
		"--quiet",
	)
	require.NoError(t, err)

	var summary loadtest.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.True(t, summary.Passed)
	assert.Equal(t, "product", summary.Name)
	assert.EqualValues(t, 4, summary.Iterations)
	assert.EqualValues(t, 12, summary.Metrics.TotalRequests)
	require.Len(t, summary.Thresholds, 2)

	report, err := os.ReadFile(filepath.Join(dir, "report", "volley_report_aot.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "POST /products 201 Created")
}

func TestRunCommand_URLEnvNamesProductCollection(t *testing.T) {
	t.Chdir(t.TempDir())
	server := stubServer(t, stub.Faults{})
	t.Setenv("URL", server.URL+"/api/products")

	out, err := execute(t, "run",
		"--vus", "1",
		"--duration", "5s",
		"--iterations", "2",
		"--think-min", "0s",
		"--think-max", "0s",
		"--audit-logs",
		"--format", "json",
		"--no-report-file",
		"--log-level", "error",
		"--quiet",
	)
	require.NoError(t, err)

	var summary loadtest.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.EqualValues(t, 8, summary.Metrics.TotalRequests)
	assert.Zero(t, summary.Metrics.FailedRequests)
	for _, c := range summary.Checks {
		assert.Zero(t, c.Fails, c.Name)
	}
}

func TestRunCommand_ThresholdsFail(t *testing.T) {
	t.Chdir(t.TempDir())
	server := stubServer(t, stub.Faults{ErrorRate: 1})

	out, err := execute(t, "run",
		"--url", server.URL,
		"--vus", "1",
		"--iterations", "1",
		"--think-min", "0s",
		"--think-max", "0s",
		"--no-report-file",
		"--log-level", "error",
		"--quiet",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, loadtest.ErrThresholdsFailed))
	assert.Equal(t, ExitThresholdsFailed, ExitCode(err))
	assert.Contains(t, out, "http_req_failed")
	assert.Contains(t, out, "thresholds failed")
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t, "run", "--vus=-1", "--quiet")
	require.Error(t, err)
	assert.True(t, errors.Is(err, loadtest.ErrInvalidConfig))
	assert.Equal(t, 1, ExitCode(err))
}

func TestRunCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	path := filepath.Join(dir, "load.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
target:
  url: %s
run:
  name: from-file
  vus: 3
  iterations: 1
  scenario: get
thresholds:
  checks: ["rate==1"]
report:
  format: yaml
  no_file: true
logger:
  level: error
`, server.URL)), 0o644))

	out, err := execute(t, "run", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "name: from-file")
	assert.Contains(t, out, "iterations: 3")
}

func TestSmokeCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	out, err := execute(t, "smoke", "--url", server.URL, "--scenario", "get", "--log-level", "error", "--quiet")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Contains(t, out, "✓ status is 200")

	_, statErr := os.Stat("report")
	assert.True(t, os.IsNotExist(statErr))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "volley version "+version+"\n", out)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("boom")))
	assert.Equal(t, 99, ExitCode(fmt.Errorf("%w: http_req_failed", loadtest.ErrThresholdsFailed)))
}

func TestMetricsRouter(t *testing.T) {
	reg := newMetricsRegistry()
	obs := metrics.NewPrometheusObserver(reg)
	obs.ObserveRequest(metrics.RequestOutcome{Name: "GET /", Method: http.MethodGet, StatusCode: 200})
	obs.ObserveCheck("status is 200", true)

	server := httptest.NewServer(metricsRouter(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `volley_http_reqs_total{method="GET",name="GET /",status="200"} 1`)
	assert.Contains(t, string(body), "volley_checks_total")
	assert.Contains(t, string(body), "go_goroutines")

	health, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestStartMetricsServer(t *testing.T) {
	srv, err := startMetricsServer("127.0.0.1:0", newMetricsRegistry(), zap.NewNop())
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
