package metrics

import (
	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
)

type (
	// Snapshot is a point-in-time view of a run's metrics.
	Snapshot = metrics.Snapshot

	// LatencyStats summarises a latency distribution.
	LatencyStats = metrics.LatencyStats

	// RequestStats holds statistics for one request name.
	RequestStats = metrics.RequestStats

	// CheckStats counts passes and fails of one check.
	CheckStats = metrics.CheckStats

	// TimeBucket is one interval of the time series.
	TimeBucket = metrics.TimeBucket

	// RequestOutcome is the result of a single HTTP call.
	RequestOutcome = metrics.RequestOutcome

	// Phase is the lifecycle phase of a run.
	Phase = metrics.Phase

	// Observer receives metric events as they are recorded.
	Observer = metrics.Observer

	// PrometheusObserver mirrors events into Prometheus collectors.
	PrometheusObserver = metrics.PrometheusObserver
)

// Run phases.
const (
	PhaseInit     = metrics.PhaseInit
	PhaseSteady   = metrics.PhaseSteady
	PhaseDraining = metrics.PhaseDraining
	PhaseDone     = metrics.PhaseDone
)

// NewPrometheusObserver registers the volley collectors on reg.
var NewPrometheusObserver = metrics.NewPrometheusObserver
