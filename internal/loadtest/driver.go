// Package loadtest drives a fixed pool of virtual users through a scenario
// for a bounded duration and summarises what happened.
package loadtest

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
	"github.com/wesleyorama2/volley/internal/loadtest/threshold"
)

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver adds an observer notified of every recorded event.
func WithObserver(obs metrics.Observer) Option {
	return func(d *Driver) {
		if obs != nil {
			d.observers = append(d.observers, obs)
		}
	}
}

// WithHTTPClient replaces the pooled client built from Config.HTTP.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Driver) {
		d.httpClient = hc
	}
}

// WithThreshold adds a Go predicate evaluated alongside the configured
// threshold expressions.
func WithThreshold(t *threshold.Threshold) Option {
	return func(d *Driver) {
		if t != nil {
			d.extraThresholds = append(d.extraThresholds, t)
		}
	}
}

// WithBucketInterval sets the time-series resolution.
func WithBucketInterval(interval time.Duration) Option {
	return func(d *Driver) {
		d.bucketInterval = interval
	}
}

// Driver runs one load test.
//
// # Stopping
//
// The stop signal (Duration elapsed or the caller's context done) is
// checked at the top of each VU loop and interrupts think time. Iterations
// already running keep a context detached from the stop signal and are
// allowed to finish; with GracefulStop > 0 their context is cancelled once
// that much time has passed after the signal.
type Driver struct {
	cfg             Config
	thresholds      []*threshold.Threshold
	extraThresholds []*threshold.Threshold

	logger         *zap.Logger
	observers      []metrics.Observer
	httpClient     *http.Client
	bucketInterval time.Duration

	engine atomic.Pointer[metrics.Engine]

	vus   []*VirtualUser
	vusMu sync.RWMutex

	started   atomic.Bool
	running   atomic.Bool
	startTime atomic.Pointer[time.Time]
}

// NewDriver validates cfg and returns a driver ready to Run.
func NewDriver(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	thresholds, err := threshold.Parse(cfg.Thresholds)
	if err != nil {
		return nil, &ConfigError{Field: "thresholds", Message: err.Error()}
	}

	d := &Driver{
		cfg:        cfg.clone(),
		thresholds: thresholds,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("mod", "driver"))

	return d, nil
}

// Run is shorthand for NewDriver followed by Driver.Run.
func Run(ctx context.Context, scenario Scenario, cfg Config, opts ...Option) (*Summary, error) {
	d, err := NewDriver(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return d.Run(ctx, scenario)
}

// Config returns a copy of the run configuration.
func (d *Driver) Config() Config {
	return d.cfg.clone()
}

// Run executes the scenario and blocks until every VU has stopped. An
// interrupted run still returns its summary, with Interrupted set. The only
// errors are configuration errors and reuse of the driver.
func (d *Driver) Run(ctx context.Context, scenario Scenario) (*Summary, error) {
	if scenario == nil {
		return nil, &ConfigError{Field: "scenario", Message: "is required"}
	}
	if !d.started.CompareAndSwap(false, true) {
		return nil, ErrDriverUsed
	}

	engineCfg := metrics.DefaultEngineConfig()
	engineCfg.Observers = d.observers
	if d.bucketInterval > 0 {
		engineCfg.BucketInterval = d.bucketInterval
	}
	engine := metrics.NewEngineWithConfig(engineCfg)
	d.engine.Store(engine)

	client := d.newClient()

	// The stop signal only gates new iterations and think time
	stopCtx, stop := context.WithTimeout(ctx, d.cfg.Duration)
	defer stop()

	// In-flight iterations keep running past the stop signal
	iterCtx, forceCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer forceCancel()

	start := time.Now()
	d.startTime.Store(&start)
	d.running.Store(true)

	d.logger.Info("starting run",
		zap.String("name", d.cfg.Name),
		zap.Int("vus", d.cfg.VUs),
		zap.Duration("duration", d.cfg.Duration),
		zap.Int64("iterations", d.cfg.Iterations),
		zap.String("target", d.cfg.Target.BaseURL),
	)

	var wg sync.WaitGroup

	for i := 1; i <= d.cfg.VUs; i++ {
		vu := newVirtualUser(i, scenario, client, engine, d.cfg.Target, d.logger)
		d.vusMu.Lock()
		d.vus = append(d.vus, vu)
		d.vusMu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.AddActiveVUs(1)
			defer engine.AddActiveVUs(-1)
			d.runVU(iterCtx, stopCtx.Done(), vu)
		}()
	}
	engine.SetPhase(metrics.PhaseSteady)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-stopCtx.Done():
		engine.SetPhase(metrics.PhaseDraining)
		d.logger.Info("stop signal received, draining", zap.Int("active_vus", engine.GetActiveVUs()))
		d.drain(done, forceCancel)
	}

	engine.Stop()
	engine.SetPhase(metrics.PhaseDone)
	d.running.Store(false)

	summary := d.summarize(engine, start, ctx.Err() != nil)

	d.logger.Info("run finished",
		zap.Int64("requests", summary.Metrics.TotalRequests),
		zap.Int64("iterations", summary.Iterations),
		zap.Float64("error_rate", summary.Metrics.ErrorRate),
		zap.Bool("thresholds_passed", summary.Passed),
		zap.Bool("interrupted", summary.Interrupted),
	)

	return summary, nil
}

// newClient builds the client shared by all VUs. Each VU derives its own
// recording view of it.
func (d *Driver) newClient() *vhttp.Client {
	hc := d.httpClient
	if hc == nil {
		hc = vhttp.NewHTTPClient(d.cfg.HTTP)
	}

	return vhttp.NewClient(
		vhttp.WithHTTPClient(hc),
		vhttp.WithBaseURL(d.cfg.Target.BaseURL),
		vhttp.WithHeaders(d.cfg.Target.Headers),
		vhttp.WithRateLimit(d.cfg.MaxRPS),
	)
}

// runVU loops one VU until the stop signal, the iteration bound, or both.
func (d *Driver) runVU(ctx context.Context, stop <-chan struct{}, vu *VirtualUser) {
	defer vu.markStopped()

	for n := int64(0); d.cfg.Iterations == 0 || n < d.cfg.Iterations; n++ {
		select {
		case <-stop:
			return
		default:
		}

		think, _ := vu.RunIteration(ctx)

		if d.cfg.Iterations > 0 && n+1 >= d.cfg.Iterations {
			return
		}
		if think > 0 && !vu.sleep(stop, think) {
			return
		}
	}
}

// drain waits for in-flight iterations, cancelling them after the grace
// period when one is configured.
func (d *Driver) drain(done <-chan struct{}, forceCancel context.CancelFunc) {
	if d.cfg.GracefulStop <= 0 {
		<-done
		return
	}

	timer := time.NewTimer(d.cfg.GracefulStop)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		d.logger.Warn("graceful stop expired, cancelling in-flight iterations",
			zap.Duration("graceful_stop", d.cfg.GracefulStop))
		forceCancel()
		<-done
	}
}

func (d *Driver) summarize(engine *metrics.Engine, start time.Time, interrupted bool) *Summary {
	snapshot := engine.Snapshot()

	all := make([]*threshold.Threshold, 0, len(d.thresholds)+len(d.extraThresholds))
	all = append(all, d.thresholds...)
	all = append(all, d.extraThresholds...)
	results, passed := threshold.EvaluateAll(all, engine)

	end := start.Add(snapshot.Elapsed)

	return &Summary{
		Name:             d.cfg.Name,
		StartTime:        start,
		EndTime:          end,
		Duration:         end.Sub(start),
		VUs:              d.cfg.VUs,
		Iterations:       snapshot.Iterations,
		FailedIterations: snapshot.FailedIterations,
		Metrics:          snapshot,
		Requests:         engine.RequestStats(),
		Checks:           engine.CheckStats(),
		TimeSeries:       engine.GetTimeSeries(),
		Thresholds:       results,
		Passed:           passed,
		Interrupted:      interrupted,
	}
}

// Snapshot returns live metrics, or nil before Run has started.
func (d *Driver) Snapshot() *metrics.Snapshot {
	engine := d.engine.Load()
	if engine == nil {
		return nil
	}
	return engine.Snapshot()
}

// Running reports whether Run is in progress.
func (d *Driver) Running() bool {
	return d.running.Load()
}

// Progress returns run progress from 0.0 to 1.0.
func (d *Driver) Progress() float64 {
	start := d.startTime.Load()
	if start == nil {
		return 0.0
	}
	if !d.running.Load() {
		return 1.0
	}

	progress := float64(time.Since(*start)) / float64(d.cfg.Duration)

	if d.cfg.Iterations > 0 {
		if snap := d.Snapshot(); snap != nil {
			byIterations := float64(snap.Iterations) / float64(d.cfg.Iterations*int64(d.cfg.VUs))
			if byIterations > progress {
				progress = byIterations
			}
		}
	}

	if progress > 1.0 {
		progress = 1.0
	}
	return progress
}

// VUStates counts VUs per lifecycle state.
func (d *Driver) VUStates() map[VUState]int {
	d.vusMu.RLock()
	defer d.vusMu.RUnlock()

	states := make(map[VUState]int, 4)
	for _, vu := range d.vus {
		states[vu.State()]++
	}
	return states
}
