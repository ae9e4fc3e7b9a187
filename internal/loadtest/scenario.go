package loadtest

import (
	"context"
	"time"

	"go.uber.org/zap"

	vhttp "github.com/wesleyorama2/volley/internal/http"
)

// Scenario is the unit of work a virtual user repeats. Implementations
// must be safe to run concurrently from many VUs; per-iteration state
// belongs on the Iteration.
type Scenario interface {
	Run(ctx context.Context, it *Iteration) error
}

// ScenarioFunc adapts a function to Scenario.
type ScenarioFunc func(ctx context.Context, it *Iteration) error

// Run calls f(ctx, it).
func (f ScenarioFunc) Run(ctx context.Context, it *Iteration) error {
	return f(ctx, it)
}

// CheckResult is the verdict of one named assertion.
type CheckResult struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
}

// IterationErrorCheck is recorded as a failed check whenever a scenario returns an
// error or panics.
const IterationErrorCheck = "iteration error"

type checkRecorder interface {
	RecordCheck(name string, passed bool)
}

// Iteration is the per-invocation context handed to a Scenario.
type Iteration struct {
	// VUID identifies the virtual user running this iteration
	VUID int

	// Number is the 1-based iteration count of this VU
	Number int64

	Target Target

	client    *vhttp.Client
	recorder  checkRecorder
	logger    *zap.Logger
	checks    []CheckResult
	thinkTime time.Duration
}

// HTTP returns the recording client. Every request sent through it is
// counted in the run metrics.
func (it *Iteration) HTTP() *vhttp.Client {
	return it.client
}

// Check records an assertion and returns passed so callers can branch on
// it.
func (it *Iteration) Check(name string, passed bool) bool {
	it.checks = append(it.checks, CheckResult{Name: name, Passed: passed})
	if it.recorder != nil {
		it.recorder.RecordCheck(name, passed)
	}
	return passed
}

// Checks returns the checks recorded so far in this iteration.
func (it *Iteration) Checks() []CheckResult {
	return it.checks
}

// SetThinkTime asks the VU to pause for d after this iteration. The pause
// is cut short when the run stops.
func (it *Iteration) SetThinkTime(d time.Duration) {
	if d < 0 {
		d = 0
	}
	it.thinkTime = d
}

// ThinkTime returns the pause requested for after this iteration.
func (it *Iteration) ThinkTime() time.Duration {
	return it.thinkTime
}

// Logger returns a logger tagged with the VU and iteration.
func (it *Iteration) Logger() *zap.Logger {
	if it.logger == nil {
		return zap.NewNop()
	}
	return it.logger
}
