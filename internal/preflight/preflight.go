// Package preflight waits for the target to answer before load starts.
// Just-in-time compiled services often refuse or 5xx their first requests.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"

	vhttp "github.com/wesleyorama2/volley/internal/http"
)

// ErrNotReady is returned when the target never became ready.
var ErrNotReady = errors.New("target not ready")

// Config controls the readiness probe.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Path is probed relative to the target base URL, or used as is when
	// absolute. Empty probes the base URL itself.
	Path string `mapstructure:"path"`

	Attempts    uint          `mapstructure:"attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

// DefaultConfig returns the probe defaults.
func DefaultConfig() Config {
	return Config{
		Attempts:    10,
		Interval:    500 * time.Millisecond,
		MaxInterval: 5 * time.Second,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// WaitReady probes the target until it answers with a status below 500.
// Probe requests are not recorded in run metrics.
func WaitReady(ctx context.Context, client *vhttp.Client, cfg Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("mod", "preflight"))

	defaults := DefaultConfig()
	if cfg.Attempts == 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}

	var attempt uint
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(cfg.Attempts),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			return backoff(cfg.Interval, cfg.MaxInterval, n)
		}),
	)

	err := r.Do(func() error {
		attempt++
		resp := client.Do(ctx, vhttp.NewRequest(http.MethodGet, cfg.Path))
		if resp.Err != nil {
			logger.Debug("probe failed", zap.Uint("attempt", attempt), zap.Error(resp.Err))
			return resp.Err
		}
		if resp.StatusCode >= 500 {
			logger.Debug("probe failed", zap.Uint("attempt", attempt), zap.Int("status", resp.StatusCode))
			return &statusError{code: resp.StatusCode}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %v", ErrNotReady, attempt, err)
	}

	logger.Info("target ready", zap.Uint("attempts", attempt))
	return nil
}

func backoff(base, limit time.Duration, n uint) time.Duration {
	d := base
	for i := uint(0); i < n && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}
