package loadtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

// VUState represents the lifecycle state of a Virtual User.
//
// Idle -> Running -> (Sleeping <-> Running)* -> Stopped
type VUState int32

const (
	// VUStateIdle indicates the VU is spawned but has not started.
	VUStateIdle VUState = iota
	// VUStateRunning indicates the VU is executing an iteration.
	VUStateRunning
	// VUStateSleeping indicates the VU is in think time between iterations.
	VUStateSleeping
	// VUStateStopped indicates the VU has exited its loop.
	VUStateStopped
)

func (s VUState) String() string {
	switch s {
	case VUStateIdle:
		return "idle"
	case VUStateRunning:
		return "running"
	case VUStateSleeping:
		return "sleeping"
	case VUStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// VirtualUser is a single simulated user repeating a scenario.
type VirtualUser struct {
	// Unique identifier for this VU
	ID int

	scenario Scenario
	client   *vhttp.Client
	metrics  *metrics.Engine
	target   Target
	logger   *zap.Logger

	// Lifecycle state (atomic for lock-free reads)
	state atomic.Int32

	iteration      atomic.Int64
	requests       atomic.Int64
	failedRequests atomic.Int64
}

// newVirtualUser derives the VU's client from shared so that its requests
// pass through the VU on their way to the engine.
func newVirtualUser(id int, scenario Scenario, shared *vhttp.Client, engine *metrics.Engine, target Target, logger *zap.Logger) *VirtualUser {
	vu := &VirtualUser{
		ID:       id,
		scenario: scenario,
		metrics:  engine,
		target:   target,
		logger:   logger.With(zap.Int("vu", id)),
	}
	vu.client = shared.Derive(vu)
	return vu
}

// RecordRequest counts the outcome against this VU and forwards it to the
// run metrics.
func (vu *VirtualUser) RecordRequest(o metrics.RequestOutcome) {
	vu.requests.Add(1)
	if o.Failed() {
		vu.failedRequests.Add(1)
	}
	vu.metrics.RecordRequest(o)
}

// Requests returns the number of requests this VU has sent and how many
// of them failed.
func (vu *VirtualUser) Requests() (total, failed int64) {
	return vu.requests.Load(), vu.failedRequests.Load()
}

// State returns the current VU state.
func (vu *VirtualUser) State() VUState {
	return VUState(vu.state.Load())
}

// Iterations returns the number of iterations started by this VU.
func (vu *VirtualUser) Iterations() int64 {
	return vu.iteration.Load()
}

// RunIteration invokes the scenario once and records the iteration. A
// returned error or a panic marks the iteration failed and records a
// failed "iteration error" check; the error is returned for logging only.
func (vu *VirtualUser) RunIteration(ctx context.Context) (time.Duration, error) {
	vu.state.Store(int32(VUStateRunning))
	n := vu.iteration.Add(1)

	it := &Iteration{
		VUID:     vu.ID,
		Number:   n,
		Target:   vu.target,
		client:   vu.client,
		recorder: vu.metrics,
		logger:   vu.logger.With(zap.Int64("iteration", n)),
	}

	err := vu.invoke(ctx, it)
	if failed := failedChecks(it.Checks()); len(failed) > 0 {
		vu.logger.Debug("checks failed", zap.Int64("iteration", n), zap.Strings("checks", failed))
	}
	if err != nil {
		vu.metrics.RecordCheck(IterationErrorCheck, false)
		vu.logger.Debug("iteration failed", zap.Int64("iteration", n), zap.Error(err))
	}
	vu.metrics.RecordIteration(err != nil)

	return it.thinkTime, err
}

func (vu *VirtualUser) invoke(ctx context.Context, it *Iteration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrScenarioPanic, r)
		}
	}()
	return vu.scenario.Run(ctx, it)
}

// sleep pauses for d. It returns false if stop fired first.
func (vu *VirtualUser) sleep(stop <-chan struct{}, d time.Duration) bool {
	vu.state.Store(int32(VUStateSleeping))

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

func (vu *VirtualUser) markStopped() {
	vu.state.Store(int32(VUStateStopped))

	total, failed := vu.Requests()
	vu.logger.Debug("vu stopped",
		zap.Int64("iterations", vu.Iterations()),
		zap.Int64("requests", total),
		zap.Int64("failed_requests", failed),
	)
}

func failedChecks(checks []CheckResult) []string {
	var names []string
	for _, c := range checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}
