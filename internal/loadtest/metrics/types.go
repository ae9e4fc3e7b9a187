package metrics

import "time"

// Phase represents a phase of the load run.
type Phase string

const (
	// PhaseInit is the phase before any VU has been spawned
	PhaseInit Phase = "init"

	// PhaseSteady is the phase where all VUs are iterating
	PhaseSteady Phase = "steady"

	// PhaseDraining is entered once the stop signal fired and in-flight
	// iterations are finishing
	PhaseDraining Phase = "draining"

	// PhaseDone indicates the run has completed
	PhaseDone Phase = "done"
)

// RequestOutcome is the result of a single HTTP call made by a scenario.
//
// A StatusCode of 0 means no response was received (transport error);
// Err then carries the cause.
type RequestOutcome struct {
	Name       string        `json:"name"`
	Method     string        `json:"method"`
	StatusCode int           `json:"statusCode"`
	Latency    time.Duration `json:"latency"`
	BodySize   int64         `json:"bodySize"`
	Err        error         `json:"-"`
}

// Failed reports whether the outcome counts towards http_req_failed.
// Anything outside 200-399 fails, as does a transport error.
func (o RequestOutcome) Failed() bool {
	return o.Err != nil || o.StatusCode < 200 || o.StatusCode >= 400
}

// Snapshot contains a point-in-time view of all metrics.
type Snapshot struct {
	TotalRequests   int64 `json:"totalRequests" yaml:"totalRequests"`
	SuccessRequests int64 `json:"successRequests" yaml:"successRequests"`
	FailedRequests  int64 `json:"failedRequests" yaml:"failedRequests"`
	TransportErrors int64 `json:"transportErrors" yaml:"transportErrors"`
	TotalBytes      int64 `json:"totalBytes" yaml:"totalBytes"`

	Latency LatencyStats `json:"latency" yaml:"latency"`

	// RPS is the steady-state request rate when available, the overall
	// rate otherwise
	RPS       float64 `json:"rps" yaml:"rps"`
	ErrorRate float64 `json:"errorRate" yaml:"errorRate"`

	ChecksPassed int64   `json:"checksPassed" yaml:"checksPassed"`
	ChecksFailed int64   `json:"checksFailed" yaml:"checksFailed"`
	CheckRate    float64 `json:"checkRate" yaml:"checkRate"`

	Iterations       int64   `json:"iterations" yaml:"iterations"`
	FailedIterations int64   `json:"failedIterations" yaml:"failedIterations"`
	IterationRate    float64 `json:"iterationRate" yaml:"iterationRate"`

	ActiveVUs    int           `json:"activeVUs" yaml:"activeVUs"`
	CurrentPhase Phase         `json:"currentPhase" yaml:"currentPhase"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
	StartTime    time.Time     `json:"startTime" yaml:"startTime"`
	Timestamp    time.Time     `json:"timestamp" yaml:"timestamp"`
}

// LatencyStats contains latency statistics.
type LatencyStats struct {
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stdDev" yaml:"stdDev"`
	P50    time.Duration `json:"p50" yaml:"p50"`
	P90    time.Duration `json:"p90" yaml:"p90"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
	Count  int64         `json:"count" yaml:"count"`
}

// LatencyPercentiles holds latency percentile values.
type LatencyPercentiles struct {
	Min time.Duration
	Max time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// CheckStats holds pass/fail counts for one named check.
type CheckStats struct {
	Name   string `json:"name" yaml:"name"`
	Passes int64  `json:"passes" yaml:"passes"`
	Fails  int64  `json:"fails" yaml:"fails"`
}

// RequestStats contains latency and failure statistics for one request name.
type RequestStats struct {
	Name    string       `json:"name" yaml:"name"`
	Count   int64        `json:"count" yaml:"count"`
	Failed  int64        `json:"failed" yaml:"failed"`
	Latency LatencyStats `json:"latency" yaml:"latency"`
}

// TimeBucket represents metrics for one emitter interval.
//
// Each bucket captures cumulative totals and the deltas for its interval.
type TimeBucket struct {
	Timestamp time.Time     `json:"timestamp"`
	Interval  time.Duration `json:"interval"`

	TotalRequests  int64 `json:"totalRequests"`
	TotalSuccesses int64 `json:"totalSuccesses"`
	TotalFailures  int64 `json:"totalFailures"`
	TotalBytes     int64 `json:"totalBytes"`

	IntervalRequests     int64   `json:"intervalRequests"`
	IntervalRPS          float64 `json:"intervalRPS"`
	IntervalErrorRate    float64 `json:"intervalErrorRate"`
	IntervalIterations   int64   `json:"intervalIterations"`
	IntervalChecksFailed int64   `json:"intervalChecksFailed"`

	LatencyP50 time.Duration `json:"latencyP50"`
	LatencyP95 time.Duration `json:"latencyP95"`
	LatencyP99 time.Duration `json:"latencyP99"`

	ActiveVUs int   `json:"activeVUs"`
	Phase     Phase `json:"phase"`
}

// EngineConfig contains configuration for the metrics engine.
type EngineConfig struct {
	// BucketInterval is the interval for time-series buckets (default: 1s)
	BucketInterval time.Duration

	// MaxBuckets is the maximum number of buckets to retain (default: 3600)
	MaxBuckets int

	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int

	// Observers receive every recorded event in addition to the engine
	Observers []Observer
}

// DefaultEngineConfig returns the default configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BucketInterval:   time.Second,
		MaxBuckets:       3600,
		HistogramMin:     1,
		HistogramMax:     3600000000,
		HistogramSigFigs: 3,
	}
}

// Observer receives a copy of every event recorded by the engine.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRequest(o RequestOutcome)
	ObserveCheck(name string, passed bool)
	ObserveIteration(failed bool)
	ObserveActiveVUs(n int)
}
