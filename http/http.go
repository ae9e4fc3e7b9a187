package http

import (
	vhttp "github.com/wesleyorama2/volley/internal/http"
)

type (
	// Client sends requests and records their outcome.
	Client = vhttp.Client

	// ClientOption configures a Client.
	ClientOption = vhttp.ClientOption

	// Request is a request under construction.
	Request = vhttp.Request

	// Response is the result of a request. It is never nil.
	Response = vhttp.Response

	// TimingInfo breaks a request's latency into phases.
	TimingInfo = vhttp.TimingInfo

	// Recorder receives the outcome of every request.
	Recorder = vhttp.Recorder

	// TransportConfig tunes the shared connection pool.
	TransportConfig = vhttp.TransportConfig
)

var (
	NewClient  = vhttp.NewClient
	NewRequest = vhttp.NewRequest

	WithBaseURL    = vhttp.WithBaseURL
	WithTimeout    = vhttp.WithTimeout
	WithHeader     = vhttp.WithHeader
	WithHeaders    = vhttp.WithHeaders
	WithHTTPClient = vhttp.WithHTTPClient
	WithRateLimit  = vhttp.WithRateLimit
	WithRecorder   = vhttp.WithRecorder

	// NewHTTPClient builds a pooled *http.Client from cfg.
	NewHTTPClient = vhttp.NewHTTPClient

	// DefaultTransportConfig returns the pool settings used when none are
	// given.
	DefaultTransportConfig = vhttp.DefaultTransportConfig
)
