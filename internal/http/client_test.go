package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
	"github.com/wesleyorama2/volley/pkg/jsonpath"
)

type captureRecorder struct {
	mu       sync.Mutex
	outcomes []metrics.RequestOutcome
}

func (c *captureRecorder) RecordRequest(o metrics.RequestOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

func (c *captureRecorder) all() []metrics.RequestOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]metrics.RequestOutcome(nil), c.outcomes...)
}

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected method GET, got %s", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Expected path /test, got %s", r.URL.Path)
		}
		if r.Header.Get("X-Test-Header") != "test-value" {
			t.Errorf("Expected header X-Test-Header: test-value, got %s", r.Header.Get("X-Test-Header"))
		}
		if r.Header.Get("User-Agent") != "volley-test" {
			t.Errorf("Expected User-Agent volley-test, got %s", r.Header.Get("User-Agent"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"success","id":7}`))
	}))
	defer server.Close()

	rec := &captureRecorder{}
	client := NewClient(
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "volley-test"),
		WithBaseURL(server.URL),
		WithRecorder(rec),
	)

	resp := client.Do(context.Background(), NewRequest("GET", "/test").WithHeader("X-Test-Header", "test-value"))

	require.NoError(t, resp.Err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.GetHeader("Content-Type"))
	assert.Equal(t, `{"message":"success","id":7}`, resp.BodyString())
	assert.True(t, resp.IsSuccess())
	assert.False(t, resp.Failed())
	assert.Greater(t, resp.ResponseTime, time.Duration(0))

	id, err := resp.JSON("$.id")
	require.NoError(t, err)
	assert.True(t, id.Exists)
	assert.EqualValues(t, 7, id.Int())

	var decoded struct {
		Message string `json:"message"`
	}
	require.NoError(t, resp.DecodeJSON(&decoded))
	assert.Equal(t, "success", decoded.Message)

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, "GET /test", outcomes[0].Name)
	assert.Equal(t, 200, outcomes[0].StatusCode)
	assert.EqualValues(t, len(resp.Body()), outcomes[0].BodySize)
	assert.False(t, outcomes[0].Failed())
}

func TestClient_ServerErrorIsRecordedAsFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rec := &captureRecorder{}
	client := NewClient(WithBaseURL(server.URL), WithRecorder(rec))

	resp := client.Do(context.Background(), NewRequest("POST", "/api/products").WithName("create"))

	assert.NoError(t, resp.Err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.True(t, resp.IsServerError())
	assert.True(t, resp.Failed())

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, "create", outcomes[0].Name)
	assert.True(t, outcomes[0].Failed())
}

func TestClient_TransportError(t *testing.T) {
	// Grab a free port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	rec := &captureRecorder{}
	client := NewClient(WithBaseURL("http://"+addr), WithTimeout(time.Second), WithRecorder(rec))

	resp := client.Get(context.Background(), "/")

	require.NotNil(t, resp)
	assert.Error(t, resp.Err)
	assert.Equal(t, 0, resp.StatusCode)
	assert.True(t, resp.Failed())

	outcomes := rec.all()
	require.Len(t, outcomes, 1)
	assert.Equal(t, 0, outcomes[0].StatusCode)
	assert.Error(t, outcomes[0].Err)
}

func TestClient_MalformedJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	resp := NewClient(WithBaseURL(server.URL)).Get(context.Background(), "/")

	_, err := resp.JSON("$.id")
	assert.True(t, errors.Is(err, jsonpath.ErrMalformedJSON))
}

func TestClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(20))

	start := time.Now()
	for i := 0; i < 30; i++ {
		resp := client.Get(context.Background(), "/")
		require.NoError(t, resp.Err)
	}

	// 20 burst tokens, the remaining 10 arrive at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestClient_RateLimitCancelledContextIsNotRecorded(t *testing.T) {
	rec := &captureRecorder{}
	client := NewClient(WithBaseURL("http://127.0.0.1:1"), WithRateLimit(0.001), WithRecorder(rec))

	// Drain the single burst token
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.limiter.Allow()

	resp := client.Get(ctx, "/")
	assert.Error(t, resp.Err)
	assert.Empty(t, rec.all())
}

func TestClient_Derive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.Header.Get("X-Env")))
	}))
	defer server.Close()

	base := NewClient(WithBaseURL(server.URL), WithHeaders(map[string]string{"X-Env": "load"}))
	rec := &captureRecorder{}
	derived := base.Derive(rec)

	resp := derived.Get(context.Background(), "/")
	assert.Equal(t, "load", resp.BodyString())
	assert.Equal(t, server.URL, derived.BaseURL())
	assert.Len(t, rec.all(), 1)
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	hc := NewHTTPClient(TransportConfig{InsecureSkipVerify: true})
	assert.Equal(t, 30*time.Second, hc.Timeout)

	transport, ok := hc.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 100, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 1000, transport.MaxIdleConns)
	require.NotNil(t, transport.TLSClientConfig)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestPhaseTimer_ParallelDials(t *testing.T) {
	timer := newPhaseTimer(time.Now())
	trace := timer.trace()

	trace.DNSStart(httptrace.DNSStartInfo{Host: "shop.local"})
	trace.DNSDone(httptrace.DNSDoneInfo{})

	addrs := []string{"[::1]:8080", "127.0.0.1:8080", "10.0.0.9:8080"}
	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			trace.ConnectStart("tcp", addr)
			time.Sleep(time.Millisecond)
			var err error
			if i == 2 {
				err = errors.New("connection refused")
			}
			trace.ConnectDone("tcp", addr, err)
		}(i, addr)
	}
	wg.Wait()

	// a losing dial reporting late must not overwrite the connect time
	connect := timer.finish(0).TCPConnectTime
	trace.ConnectStart("tcp", "192.0.2.1:8080")
	trace.ConnectDone("tcp", "192.0.2.1:8080", nil)
	trace.GotFirstResponseByte()

	timing := timer.finish(5 * time.Millisecond)
	assert.Greater(t, connect, time.Duration(0))
	assert.Equal(t, connect, timing.TCPConnectTime)
	assert.Zero(t, timing.TLSHandshakeTime)
	assert.Equal(t, 5*time.Millisecond, timing.ContentTransferTime)
	assert.GreaterOrEqual(t, timing.TotalTime, timing.TCPConnectTime)
}
