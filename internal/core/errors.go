package core

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigError.
var ErrConfiguration = errors.New("torq: configuration error")

// ConfigError is returned before any I/O when an operation is called with
// missing or contradictory options.
type ConfigError struct {
	Op  string
	Msg string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("torq: %s: %s", e.Op, e.Msg)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError returns a ConfigError for op.
func NewConfigError(op, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigError returns true if err is, or wraps, a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// ExecError wraps a failure reported by the database for a single statement.
type ExecError struct {
	Query string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("torq: exec %q: %v", e.Query, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// RollbackError is joined to the original ExecError when the recovery
// ROLLBACK itself fails.
type RollbackError struct {
	Err error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("torq: rollback after failure: %v", e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }
