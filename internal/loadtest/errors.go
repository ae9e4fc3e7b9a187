package loadtest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrThresholdsFailed is returned by Summary.Err when at least one
	// threshold did not pass.
	ErrThresholdsFailed = errors.New("thresholds failed")

	// ErrScenarioPanic wraps a value recovered from a panicking scenario.
	ErrScenarioPanic = errors.New("scenario panicked")

	// ErrDriverUsed is returned when Run is called twice on one Driver.
	ErrDriverUsed = errors.New("driver has already run")
)

// ConfigError represents a configuration validation error. The run never
// starts when one is returned.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
