package loadtest

import (
	"errors"
	"net/url"
	"time"

	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/loadtest/threshold"
)

// Target is handed to every virtual user at spawn time.
type Target struct {
	// BaseURL is prepended to relative request paths
	BaseURL string `json:"baseURL" yaml:"baseURL"`

	// Headers are sent with every request
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Config describes one load run. The driver takes a copy; later changes
// by the caller have no effect on a run in progress.
type Config struct {
	// Name is used in logs and reports
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// VUs is the number of concurrent virtual users
	VUs int `json:"vus" yaml:"vus"`

	// Duration bounds the run. Iterations in flight when it elapses are
	// allowed to finish.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Iterations caps iterations per VU (0 = until Duration elapses)
	Iterations int64 `json:"iterations,omitempty" yaml:"iterations,omitempty"`

	// GracefulStop cancels in-flight iterations this long after the stop
	// signal. Zero waits for them indefinitely.
	GracefulStop time.Duration `json:"gracefulStop,omitempty" yaml:"gracefulStop,omitempty"`

	// Thresholds maps a metric name to pass/fail expressions
	Thresholds map[string][]string `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`

	Target Target `json:"target" yaml:"target"`

	// HTTP configures the connection pool shared by all VUs
	HTTP vhttp.TransportConfig `json:"http" yaml:"http"`

	// MaxRPS caps the aggregate request rate (0 = unlimited)
	MaxRPS float64 `json:"maxRPS,omitempty" yaml:"maxRPS,omitempty"`
}

// Validate checks the configuration. The first problem is returned as a
// *ConfigError.
func (c *Config) Validate() error {
	if c.VUs < 1 {
		return &ConfigError{Field: "vus", Message: "must be at least 1"}
	}

	if c.Duration <= 0 {
		return &ConfigError{Field: "duration", Message: "must be positive"}
	}

	if c.Iterations < 0 {
		return &ConfigError{Field: "iterations", Message: "cannot be negative"}
	}

	if c.GracefulStop < 0 {
		return &ConfigError{Field: "gracefulStop", Message: "cannot be negative"}
	}

	if c.MaxRPS < 0 {
		return &ConfigError{Field: "maxRPS", Message: "cannot be negative"}
	}

	if c.Target.BaseURL != "" {
		u, err := url.Parse(c.Target.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Field: "target.baseURL", Message: "must be an absolute URL"}
		}
	}

	if _, err := threshold.Parse(c.Thresholds); err != nil {
		return &ConfigError{Field: "thresholds", Message: err.Error()}
	}

	return nil
}

func (c *Config) clone() Config {
	out := *c

	if c.Target.Headers != nil {
		out.Target.Headers = make(map[string]string, len(c.Target.Headers))
		for k, v := range c.Target.Headers {
			out.Target.Headers[k] = v
		}
	}

	if c.Thresholds != nil {
		out.Thresholds = make(map[string][]string, len(c.Thresholds))
		for k, v := range c.Thresholds {
			out.Thresholds[k] = append([]string(nil), v...)
		}
	}

	return out
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
