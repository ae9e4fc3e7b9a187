package loadtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/wesleyorama2/volley/internal/loadtest/metrics"
	"github.com/wesleyorama2/volley/internal/loadtest/threshold"
)

// Summary is the aggregate result of a finished run.
type Summary struct {
	Name      string        `json:"name,omitempty" yaml:"name,omitempty"`
	StartTime time.Time     `json:"startTime" yaml:"startTime"`
	EndTime   time.Time     `json:"endTime" yaml:"endTime"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	VUs       int           `json:"vus" yaml:"vus"`

	Iterations       int64 `json:"iterations" yaml:"iterations"`
	FailedIterations int64 `json:"failedIterations" yaml:"failedIterations"`

	Metrics    *metrics.Snapshot      `json:"metrics" yaml:"metrics"`
	Requests   []metrics.RequestStats `json:"requests,omitempty" yaml:"requests,omitempty"`
	Checks     []metrics.CheckStats   `json:"checks,omitempty" yaml:"checks,omitempty"`
	TimeSeries []*metrics.TimeBucket  `json:"timeSeries,omitempty" yaml:"-"`

	Thresholds []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	// Passed is true when every threshold passed (or none were set)
	Passed bool `json:"passed" yaml:"passed"`

	// Interrupted is true when the caller's context ended the run early
	Interrupted bool `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

// ErrorRate returns the fraction of failed requests.
func (s *Summary) ErrorRate() float64 {
	if s.Metrics == nil {
		return 0
	}
	return s.Metrics.ErrorRate
}

// FailedThresholds returns the thresholds that did not pass.
func (s *Summary) FailedThresholds() []threshold.Result {
	var failed []threshold.Result
	for _, r := range s.Thresholds {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err returns ErrThresholdsFailed, naming the failed expressions, when any
// threshold failed.
func (s *Summary) Err() error {
	failed := s.FailedThresholds()
	if len(failed) == 0 {
		return nil
	}

	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Metric + ": " + r.Expression
	}
	return fmt.Errorf("%w: %s", ErrThresholdsFailed, strings.Join(names, ", "))
}
