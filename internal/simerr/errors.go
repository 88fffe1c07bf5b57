// Package simerr defines the error kinds shared across the core:
// InvalidSetup (synchronous, build-time), NumericFailure
// (surfaced from the next step's validity check), and ResourceFailure
// (raised immediately). Grounded on dynamo/errors.go's sentinel-plus-
// wrapper style.
package simerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSetup indicates an inconsistent user configuration:
	// incompatible quantity types, duplicate gravity solvers, an
	// undefined half-space domain, or a derivative pipeline with two
	// non-shared terms writing the same output.
	ErrInvalidSetup = errors.New("impactcore: invalid setup")

	// ErrNumericFailure indicates a derived quantity became non-finite.
	ErrNumericFailure = errors.New("impactcore: non-finite value")

	// ErrResourceFailure indicates an allocation or scheduler failure.
	ErrResourceFailure = errors.New("impactcore: resource failure")
)

// SetupError wraps ErrInvalidSetup with a component-specific message.
type SetupError struct {
	Component string
	Message   string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("impactcore: invalid setup in %s: %s", e.Component, e.Message)
}

func (e *SetupError) Unwrap() error { return ErrInvalidSetup }

func InvalidSetup(component, format string, args ...any) error {
	return &SetupError{Component: component, Message: fmt.Sprintf(format, args...)}
}

// StepError records which step/time produced a NumericFailure, mirroring
// dynamo.SimError.
type StepError struct {
	Step    int
	Time    float64
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("impactcore: step %d (t=%.6g): %s", e.Step, e.Time, e.Message)
}

func (e *StepError) Unwrap() error { return ErrNumericFailure }

func NumericFailure(step int, t float64, format string, args ...any) error {
	return &StepError{Step: step, Time: t, Message: fmt.Sprintf(format, args...)}
}
