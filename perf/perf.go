package perf

import (
	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/internal/loadtest/threshold"
)

// Run configuration and results.
type (
	// Config describes one run. See loadtest.Config for field semantics.
	Config = loadtest.Config

	// Target is the base URL and shared headers every VU uses.
	Target = loadtest.Target

	// ConfigError reports an invalid Config field.
	ConfigError = loadtest.ConfigError

	// Summary is the aggregate result of a finished run.
	Summary = loadtest.Summary

	// ThresholdResult is the verdict of one threshold.
	ThresholdResult = threshold.Result
)

// Scenarios.
type (
	// Scenario is the unit of work a VU repeats.
	Scenario = loadtest.Scenario

	// ScenarioFunc adapts a function to Scenario.
	ScenarioFunc = loadtest.ScenarioFunc

	// Iteration is the per-invocation context handed to a Scenario.
	Iteration = loadtest.Iteration

	// CheckResult is the verdict of one named check.
	CheckResult = loadtest.CheckResult
)

// Driving a run.
type (
	// Driver runs one load test and exposes its live state.
	Driver = loadtest.Driver

	// Option configures a Driver.
	Option = loadtest.Option

	// VUState is the lifecycle state of a virtual user.
	VUState = loadtest.VUState

	// Threshold is a compiled pass/fail criterion.
	Threshold = threshold.Threshold

	// ThresholdSource is what custom thresholds read statistics from.
	ThresholdSource = threshold.Source
)

// Errors.
var (
	ErrInvalidConfig    = loadtest.ErrInvalidConfig
	ErrThresholdsFailed = loadtest.ErrThresholdsFailed
	ErrScenarioPanic    = loadtest.ErrScenarioPanic
	ErrDriverUsed       = loadtest.ErrDriverUsed
	ErrInvalidThreshold = threshold.ErrInvalidThreshold
)

// IterationErrorCheck is the check recorded as failed when a scenario
// returns an error or panics.
const IterationErrorCheck = loadtest.IterationErrorCheck

// VU states.
const (
	VUStateIdle     = loadtest.VUStateIdle
	VUStateRunning  = loadtest.VUStateRunning
	VUStateSleeping = loadtest.VUStateSleeping
	VUStateStopped  = loadtest.VUStateStopped
)

// Run validates cfg, drives scenario until the run ends and returns the
// summary. The error is non-nil only for configuration problems; failed
// thresholds are reported through Summary.Passed and Summary.Err.
var Run = loadtest.Run

// NewDriver validates cfg and returns a driver for a single run.
var NewDriver = loadtest.NewDriver

// Driver options.
var (
	WithLogger         = loadtest.WithLogger
	WithObserver       = loadtest.WithObserver
	WithHTTPClient     = loadtest.WithHTTPClient
	WithThreshold      = loadtest.WithThreshold
	WithBucketInterval = loadtest.WithBucketInterval
)

// CompileThreshold compiles one expression over a named metric.
var CompileThreshold = threshold.Compile

// ThresholdFunc wraps a Go predicate as a threshold. fn returns the
// observed value and whether it passes.
var ThresholdFunc = threshold.Func

// ProfileThresholds returns the default thresholds for a runtime profile
// ("jit" or "aot").
var ProfileThresholds = threshold.ProfileDefaults
