package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInfeasible means the initial packing model has no solution with
	// the offered number of bar slots. Retrying with a larger MaxBars may
	// help; nothing inside the engine retries.
	ErrInfeasible = errors.New("engine: demand cannot be packed into the offered bars")

	// ErrSolverUnknown means the initial solve hit its time or node budget
	// before finding any packing. Retrying with a larger budget may help.
	ErrSolverUnknown = errors.New("engine: solver stopped without a result")
)

// ConfigError reports invalid run configuration. It is returned before any
// solver call is made.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("engine: invalid %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
