// Package http is the recording HTTP client handed to scenarios. Every
// request it sends is timed and reported to a Recorder, whatever the
// outcome.
package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

// Recorder receives the outcome of every request.
type Recorder interface {
	RecordRequest(o metrics.RequestOutcome)
}

// Client represents an HTTP client with customizable options
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	limiter    *rate.Limiter
	recorder   Recorder
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a new HTTP client with the given options
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithBaseURL sets the base URL for the client
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the timeout for the client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithHeaders adds headers to every request
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client, typically one built
// by NewHTTPClient and shared by all virtual users.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps the request rate across everything sharing this
// client. Zero or negative means unlimited.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRecorder reports every outcome to r.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) {
		c.recorder = r
	}
}

// Derive returns a client sharing the pool, limiter and headers of c but
// reporting to r.
func (c *Client) Derive(r Recorder) *Client {
	return &Client{
		httpClient: c.httpClient,
		baseURL:    c.baseURL,
		headers:    c.headers,
		limiter:    c.limiter,
		recorder:   r,
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string) *Response {
	return c.Do(ctx, NewRequest(http.MethodGet, path))
}

// Do executes req and records its outcome. The returned response is never
// nil; transport failures are reported through Response.Err with status 0.
// A request that never left because ctx ended is not recorded.
func (c *Client) Do(ctx context.Context, req *Request) *Response {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Response{Err: err}
		}
	}

	resp := c.send(ctx, req)

	if c.recorder != nil {
		c.recorder.RecordRequest(metrics.RequestOutcome{
			Name:       req.StatName(),
			Method:     req.Method,
			StatusCode: resp.StatusCode,
			Latency:    resp.ResponseTime,
			BodySize:   int64(len(resp.body)),
			Err:        resp.Err,
		})
	}

	return resp
}

func (c *Client) send(ctx context.Context, req *Request) *Response {
	httpReq, err := req.Build(ctx, c.baseURL)
	if err != nil {
		return &Response{Err: err}
	}

	for key, value := range c.headers {
		if httpReq.Header.Get(key) == "" {
			httpReq.Header.Set(key, value)
		}
	}

	timer := newPhaseTimer(time.Now())
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), timer.trace()))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		timing := timer.finish(0)
		return &Response{Err: err, ResponseTime: timing.TotalTime, Timing: timing}
	}
	defer httpResp.Body.Close()

	contentTransferStart := time.Now()
	body, readErr := io.ReadAll(httpResp.Body)
	timing := timer.finish(time.Since(contentTransferStart))

	return &Response{
		StatusCode:   httpResp.StatusCode,
		Status:       httpResp.Status,
		Headers:      httpResp.Header,
		ResponseTime: timing.TotalTime,
		Timing:       timing,
		Err:          readErr,
		body:         body,
	}
}

// phaseTimer collects httptrace callbacks into a TimingInfo. Dial
// callbacks run on parallel goroutines when several addresses are tried,
// and a losing dial may report after the request has finished.
type phaseTimer struct {
	mu     sync.Mutex
	timing TimingInfo

	lastPhaseEnd  time.Time
	dnsStart      time.Time
	dnsDone       bool
	connectStarts map[string]time.Time
	connected     bool
	tlsStart      time.Time
}

func newPhaseTimer(start time.Time) *phaseTimer {
	return &phaseTimer{
		timing:        TimingInfo{StartTime: start},
		lastPhaseEnd:  start,
		connectStarts: make(map[string]time.Time),
	}
}

func (p *phaseTimer) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.dnsStart = time.Now()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.lastPhaseEnd = time.Now()
			p.timing.DNSLookupTime = p.lastPhaseEnd.Sub(p.dnsStart)
			p.dnsDone = true
		},
		ConnectStart: func(network, addr string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			now := time.Now()
			p.connectStarts[network+"/"+addr] = now
			if !p.dnsDone && !p.connected {
				p.lastPhaseEnd = now
			}
		},
		ConnectDone: func(network, addr string, err error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			start, ok := p.connectStarts[network+"/"+addr]
			if err != nil || !ok || p.connected {
				return
			}
			p.connected = true
			p.lastPhaseEnd = time.Now()
			p.timing.TCPConnectTime = p.lastPhaseEnd.Sub(start)
		},
		TLSHandshakeStart: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.connected {
				p.tlsStart = time.Now()
			}
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if err == nil && !p.tlsStart.IsZero() {
				p.lastPhaseEnd = time.Now()
				p.timing.TLSHandshakeTime = p.lastPhaseEnd.Sub(p.tlsStart)
			}
		},
		GotFirstResponseByte: func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.timing.TimeToFirstByte = time.Since(p.lastPhaseEnd)
		},
	}
}

// finish returns a copy of the collected timings with the body read time
// and the total filled in.
func (p *phaseTimer) finish(contentTransfer time.Duration) TimingInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.timing
	t.ContentTransferTime = contentTransfer
	t.TotalTime = time.Since(t.StartTime)
	return t
}
