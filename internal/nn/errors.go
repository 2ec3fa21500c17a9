package nn

import (
	"errors"
	"fmt"
)

// Parameter and registry errors. Match with errors.Is; the returned values are
// wrapped in *ParameterError.
var (
	ErrShapeUndefined     = errors.New("shape is not fully known")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrUninitialized      = errors.New("parameter is not initialized")
	ErrGradientNotTracked = errors.New("gradient is not tracked")
	ErrKeyNotFound        = errors.New("parameter not found")
	ErrNameCollision      = errors.New("parameter name collision")
)

// ParameterError describes a failed operation on a named parameter.
type ParameterError struct {
	Op      string // Operation that failed (e.g., "initialize", "data")
	Name    string // Fully-qualified parameter name
	Details string // Additional details
	Err     error  // One of the sentinel errors above
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: parameter %q: %v: %s", e.Op, e.Name, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: parameter %q: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ParameterError) Unwrap() error {
	return e.Err
}

func paramError(op, name string, err error, format string, args ...any) *ParameterError {
	return &ParameterError{Op: op, Name: name, Err: err, Details: fmt.Sprintf(format, args...)}
}
