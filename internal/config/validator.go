package config

import (
	"fmt"
	"strings"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest"
	"github.com/wesleyorama2/volley/internal/loadtest/threshold"
)

// Built-in scenarios.
const (
	ScenarioProduct = "product"
	ScenarioGet     = "get"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors joins every problem found by Validate.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	parts := make([]string, len(ve))
	for i, e := range ve {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Is makes ValidationErrors match loadtest.ErrInvalidConfig.
func (ve ValidationErrors) Is(target error) bool {
	return target == loadtest.ErrInvalidConfig
}

// Validate checks every setting and reports all problems at once.
func Validate(s *Settings) []ValidationError {
	var errors []ValidationError

	if s.Target.URL == "" {
		errors = append(errors, ValidationError{Path: "target.url", Message: "url is required"})
	} else if !strings.HasPrefix(s.Target.URL, "http://") && !strings.HasPrefix(s.Target.URL, "https://") {
		errors = append(errors, ValidationError{Path: "target.url", Message: "must start with http:// or https://"})
	}

	if s.Run.VUs < 1 {
		errors = append(errors, ValidationError{Path: "run.vus", Message: "must be at least 1"})
	}

	if d, err := ParseDurationString(s.Run.Duration); err != nil {
		errors = append(errors, ValidationError{Path: "run.duration", Message: err.Error()})
	} else if d <= 0 {
		errors = append(errors, ValidationError{Path: "run.duration", Message: "must be positive"})
	}

	if _, err := ParseDurationString(s.Run.GracefulStop); err != nil {
		errors = append(errors, ValidationError{Path: "run.graceful_stop", Message: err.Error()})
	}

	if s.Run.Iterations < 0 {
		errors = append(errors, ValidationError{Path: "run.iterations", Message: "cannot be negative"})
	}

	switch s.Run.Scenario {
	case ScenarioProduct, ScenarioGet:
	default:
		errors = append(errors, ValidationError{
			Path:    "run.scenario",
			Message: fmt.Sprintf("unknown scenario %q (want %s or %s)", s.Run.Scenario, ScenarioProduct, ScenarioGet),
		})
	}

	switch strings.ToLower(s.Run.Profile) {
	case "", "jit", "aot":
	default:
		errors = append(errors, ValidationError{Path: "run.profile", Message: "must be jit or aot"})
	}

	if s.Scenario.ThinkMin < 0 || s.Scenario.ThinkMax < s.Scenario.ThinkMin {
		errors = append(errors, ValidationError{Path: "scenario.think_max", Message: "must not be below think_min"})
	}

	if _, err := threshold.Parse(s.Thresholds); err != nil {
		errors = append(errors, ValidationError{Path: "thresholds", Message: err.Error()})
	}

	if s.HTTP.MaxRPS < 0 {
		errors = append(errors, ValidationError{Path: "http.max_rps", Message: "cannot be negative"})
	}

	switch s.Report.Format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		errors = append(errors, ValidationError{Path: "report.format", Message: "must be text, json or yaml"})
	}

	if s.Stub.ErrorRate < 0 || s.Stub.ErrorRate > 1 {
		errors = append(errors, ValidationError{Path: "stub.error_rate", Message: "must be between 0 and 1"})
	}

	return errors
}

// LoadtestConfig validates s and converts it into a driver configuration.
// Without explicit thresholds the profile defaults apply.
func (s *Settings) LoadtestConfig() (loadtest.Config, error) {
	if errs := Validate(s); len(errs) > 0 {
		return loadtest.Config{}, ValidationErrors(errs)
	}

	duration, _ := ParseDurationString(s.Run.Duration)
	gracefulStop, _ := ParseDurationString(s.Run.GracefulStop)

	thresholds := s.Thresholds
	if len(thresholds) == 0 {
		thresholds = threshold.ProfileDefaults(s.Run.Profile)
	}

	transport := vhttp.DefaultTransportConfig()
	if s.HTTP.Timeout > 0 {
		transport.Timeout = s.HTTP.Timeout
	}
	if s.HTTP.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = s.HTTP.MaxIdleConnsPerHost
	}
	transport.InsecureSkipVerify = s.HTTP.InsecureSkipVerify

	name := s.Run.Name
	if name == "" {
		name = s.Run.Scenario
	}

	return loadtest.Config{
		Name:         name,
		VUs:          s.Run.VUs,
		Duration:     duration,
		Iterations:   s.Run.Iterations,
		GracefulStop: gracefulStop,
		Thresholds:   thresholds,
		Target: loadtest.Target{
			BaseURL: strings.TrimRight(s.Target.URL, "/"),
			Headers: s.Target.Headers,
		},
		HTTP:   transport,
		MaxRPS: s.HTTP.MaxRPS,
	}, nil
}
