// Package metrics aggregates request outcomes, checks and iterations
// produced by concurrently running virtual users.
package metrics

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Engine collects and aggregates load run metrics using HDR histograms.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Counters use atomic operations,
// histograms and the check table use mutex protection, and the background
// emitter runs in its own goroutine. Every Record call is applied as a
// whole before it returns, so once all writers have returned a Snapshot
// accounts for each of them exactly once.
type Engine struct {
	// Range: 1 microsecond to 1 hour, 3 significant figures
	latencyHist   *hdrhistogram.Histogram
	latencyHistMu sync.Mutex

	requests   map[string]*requestAggregate
	requestsMu sync.RWMutex

	checks     map[string]*checkCounter
	checkOrder []string
	checksMu   sync.RWMutex

	totalRequests   atomic.Int64
	successRequests atomic.Int64
	failedRequests  atomic.Int64
	transportErrors atomic.Int64
	totalBytes      atomic.Int64

	checksPassed atomic.Int64
	checksFailed atomic.Int64

	iterations       atomic.Int64
	failedIterations atomic.Int64

	activeVUs atomic.Int32
	vusMu     sync.Mutex

	series *Series

	currentPhase Phase
	phaseMu      sync.RWMutex

	startTime time.Time
	endTime   atomic.Pointer[time.Time]

	emitterCtx    context.Context
	emitterCancel context.CancelFunc
	emitterWg     sync.WaitGroup
	stopOnce      sync.Once

	config EngineConfig
}

type requestAggregate struct {
	hist   *hdrhistogram.Histogram
	failed int64
}

type checkCounter struct {
	passes atomic.Int64
	fails  atomic.Int64
}

// NewEngine creates a new metrics engine with default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig())
}

// NewEngineWithConfig creates a new metrics engine with custom configuration
// and starts its bucket emitter.
func NewEngineWithConfig(config EngineConfig) *Engine {
	defaults := DefaultEngineConfig()
	if config.BucketInterval <= 0 {
		config.BucketInterval = defaults.BucketInterval
	}
	if config.HistogramMin <= 0 {
		config.HistogramMin = defaults.HistogramMin
	}
	if config.HistogramMax <= config.HistogramMin {
		config.HistogramMax = defaults.HistogramMax
	}
	if config.HistogramSigFigs <= 0 {
		config.HistogramSigFigs = defaults.HistogramSigFigs
	}

	ctx, cancel := context.WithCancel(context.Background())

	engine := &Engine{
		latencyHist:   hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs),
		requests:      make(map[string]*requestAggregate),
		checks:        make(map[string]*checkCounter),
		series:        NewSeries(config.MaxBuckets),
		currentPhase:  PhaseInit,
		startTime:     time.Now(),
		emitterCtx:    ctx,
		emitterCancel: cancel,
		config:        config,
	}

	engine.emitterWg.Add(1)
	go engine.runEmitter()

	return engine
}

// RecordRequest records the outcome of one HTTP call.
func (e *Engine) RecordRequest(o RequestOutcome) {
	latencyMicros := e.clamp(o.Latency.Microseconds())
	failed := o.Failed()

	// HDR histogram RecordValue is not thread-safe
	e.latencyHistMu.Lock()
	e.latencyHist.RecordValue(latencyMicros)
	e.latencyHistMu.Unlock()

	if o.Name != "" {
		e.recordNamedRequest(o.Name, latencyMicros, failed)
	}

	e.totalRequests.Add(1)
	e.totalBytes.Add(o.BodySize)
	if failed {
		e.failedRequests.Add(1)
	} else {
		e.successRequests.Add(1)
	}
	if o.StatusCode == 0 {
		e.transportErrors.Add(1)
	}

	e.series.AddRequest(failed)

	for _, obs := range e.config.Observers {
		obs.ObserveRequest(o)
	}
}

func (e *Engine) clamp(micros int64) int64 {
	if micros < e.config.HistogramMin {
		return e.config.HistogramMin
	}
	if micros > e.config.HistogramMax {
		return e.config.HistogramMax
	}
	return micros
}

func (e *Engine) recordNamedRequest(name string, latencyMicros int64, failed bool) {
	e.requestsMu.Lock()
	defer e.requestsMu.Unlock()

	agg, exists := e.requests[name]
	if !exists {
		agg = &requestAggregate{
			hist: hdrhistogram.New(e.config.HistogramMin, e.config.HistogramMax, e.config.HistogramSigFigs),
		}
		e.requests[name] = agg
	}

	agg.hist.RecordValue(latencyMicros)
	if failed {
		agg.failed++
	}
}

// RecordCheck records the verdict of one named check.
func (e *Engine) RecordCheck(name string, passed bool) {
	counter := e.checkCounter(name)
	e.series.AddCheck(passed)
	if passed {
		counter.passes.Add(1)
		e.checksPassed.Add(1)
	} else {
		counter.fails.Add(1)
		e.checksFailed.Add(1)
	}

	for _, obs := range e.config.Observers {
		obs.ObserveCheck(name, passed)
	}
}

func (e *Engine) checkCounter(name string) *checkCounter {
	e.checksMu.RLock()
	counter, ok := e.checks[name]
	e.checksMu.RUnlock()
	if ok {
		return counter
	}

	e.checksMu.Lock()
	defer e.checksMu.Unlock()
	if counter, ok = e.checks[name]; ok {
		return counter
	}
	counter = &checkCounter{}
	e.checks[name] = counter
	e.checkOrder = append(e.checkOrder, name)
	return counter
}

// RecordIteration records a completed scenario iteration.
func (e *Engine) RecordIteration(failed bool) {
	e.iterations.Add(1)
	e.series.AddIteration()
	if failed {
		e.failedIterations.Add(1)
	}

	for _, obs := range e.config.Observers {
		obs.ObserveIteration(failed)
	}
}

// SetPhase updates the current run phase.
func (e *Engine) SetPhase(phase Phase) {
	e.phaseMu.Lock()
	defer e.phaseMu.Unlock()
	e.currentPhase = phase
}

// GetPhase returns the current run phase.
func (e *Engine) GetPhase() Phase {
	e.phaseMu.RLock()
	defer e.phaseMu.RUnlock()
	return e.currentPhase
}

// SetActiveVUs updates the active VU count.
func (e *Engine) SetActiveVUs(count int) {
	e.vusMu.Lock()
	defer e.vusMu.Unlock()

	e.activeVUs.Store(int32(count))
	e.notifyVUs(count)
}

// AddActiveVUs adjusts the active VU count by delta and returns the new
// count. Observers see the counts in the order they were applied.
func (e *Engine) AddActiveVUs(delta int) int {
	e.vusMu.Lock()
	defer e.vusMu.Unlock()

	count := int(e.activeVUs.Add(int32(delta)))
	e.notifyVUs(count)
	return count
}

func (e *Engine) notifyVUs(count int) {
	for _, obs := range e.config.Observers {
		obs.ObserveActiveVUs(count)
	}
}

// GetActiveVUs returns the current active VU count.
func (e *Engine) GetActiveVUs() int {
	return int(e.activeVUs.Load())
}

func (e *Engine) runEmitter() {
	defer e.emitterWg.Done()

	ticker := time.NewTicker(e.config.BucketInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.emitterCtx.Done():
			return
		case <-ticker.C:
			e.emitBucket()
		}
	}
}

func (e *Engine) emitBucket() {
	e.series.Close(Totals{
		Requests:  e.totalRequests.Load(),
		Successes: e.successRequests.Load(),
		Failures:  e.failedRequests.Load(),
		Bytes:     e.totalBytes.Load(),
		Latency:   e.GetLatencyPercentiles(),
		ActiveVUs: e.GetActiveVUs(),
		Phase:     e.GetPhase(),
	})
}

// GetLatencyPercentiles returns current latency percentiles.
func (e *Engine) GetLatencyPercentiles() LatencyPercentiles {
	e.latencyHistMu.Lock()
	defer e.latencyHistMu.Unlock()

	return LatencyPercentiles{
		Min: micros(e.latencyHist.Min()),
		Max: micros(e.latencyHist.Max()),
		P50: micros(e.latencyHist.ValueAtQuantile(50)),
		P90: micros(e.latencyHist.ValueAtQuantile(90)),
		P95: micros(e.latencyHist.ValueAtQuantile(95)),
		P99: micros(e.latencyHist.ValueAtQuantile(99)),
	}
}

// LatencyQuantile returns the latency at quantile q, expressed as a
// percentage (q=95 is the 95th percentile).
func (e *Engine) LatencyQuantile(q float64) time.Duration {
	e.latencyHistMu.Lock()
	defer e.latencyHistMu.Unlock()
	return micros(e.latencyHist.ValueAtQuantile(q))
}

// Snapshot returns a point-in-time view of all metrics.
func (e *Engine) Snapshot() *Snapshot {
	e.latencyHistMu.Lock()
	latency := statsOf(e.latencyHist)
	e.latencyHistMu.Unlock()

	elapsed := e.elapsed()
	totalReqs := e.totalRequests.Load()
	failedReqs := e.failedRequests.Load()

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(totalReqs) / elapsed.Seconds()
	}
	if steadyRPS, n := e.series.SteadyRPS(); n > 1 {
		rps = steadyRPS
	}

	errorRate := 0.0
	if totalReqs > 0 {
		errorRate = float64(failedReqs) / float64(totalReqs)
	}

	passed, failed := e.checksPassed.Load(), e.checksFailed.Load()
	checkRate := 0.0
	if passed+failed > 0 {
		checkRate = float64(passed) / float64(passed+failed)
	}

	iterations := e.iterations.Load()
	iterationRate := 0.0
	if elapsed.Seconds() > 0 {
		iterationRate = float64(iterations) / elapsed.Seconds()
	}

	return &Snapshot{
		TotalRequests:    totalReqs,
		SuccessRequests:  e.successRequests.Load(),
		FailedRequests:   failedReqs,
		TransportErrors:  e.transportErrors.Load(),
		TotalBytes:       e.totalBytes.Load(),
		Latency:          latency,
		RPS:              rps,
		ErrorRate:        errorRate,
		ChecksPassed:     passed,
		ChecksFailed:     failed,
		CheckRate:        checkRate,
		Iterations:       iterations,
		FailedIterations: e.failedIterations.Load(),
		IterationRate:    iterationRate,
		ActiveVUs:        e.GetActiveVUs(),
		CurrentPhase:     e.GetPhase(),
		Elapsed:          elapsed,
		StartTime:        e.startTime,
		Timestamp:        time.Now(),
	}
}

func (e *Engine) elapsed() time.Duration {
	if end := e.endTime.Load(); end != nil {
		return end.Sub(e.startTime)
	}
	return time.Since(e.startTime)
}

// RequestStats returns per-request-name statistics sorted by name.
func (e *Engine) RequestStats() []RequestStats {
	e.requestsMu.RLock()
	defer e.requestsMu.RUnlock()

	result := make([]RequestStats, 0, len(e.requests))
	for name, agg := range e.requests {
		stats := statsOf(agg.hist)
		result = append(result, RequestStats{
			Name:    name,
			Count:   stats.Count,
			Failed:  agg.failed,
			Latency: stats,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// CheckStats returns pass/fail counts per check in first-seen order.
func (e *Engine) CheckStats() []CheckStats {
	e.checksMu.RLock()
	defer e.checksMu.RUnlock()

	result := make([]CheckStats, 0, len(e.checkOrder))
	for _, name := range e.checkOrder {
		counter := e.checks[name]
		result = append(result, CheckStats{
			Name:   name,
			Passes: counter.passes.Load(),
			Fails:  counter.fails.Load(),
		})
	}
	return result
}

// GetTimeSeries returns all time-series buckets.
func (e *Engine) GetTimeSeries() []*TimeBucket {
	return e.series.Buckets()
}

// Stop stops the emitter, freezes the elapsed clock and emits a final
// bucket. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.emitterCancel()
		e.emitterWg.Wait()

		now := time.Now()
		e.endTime.Store(&now)
		e.emitBucket()
	})
}

func statsOf(h *hdrhistogram.Histogram) LatencyStats {
	return LatencyStats{
		Min:    micros(h.Min()),
		Max:    micros(h.Max()),
		Mean:   time.Duration(h.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(h.StdDev() * float64(time.Microsecond)),
		P50:    micros(h.ValueAtQuantile(50)),
		P90:    micros(h.ValueAtQuantile(90)),
		P95:    micros(h.ValueAtQuantile(95)),
		P99:    micros(h.ValueAtQuantile(99)),
		Count:  h.TotalCount(),
	}
}

func micros(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
