package contracts

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks missing, misaligned or malformed input data
	ErrInput = errors.New("invalid input")

	// ErrState marks a computation requested before its prerequisite stage ran
	ErrState = errors.New("invalid state")

	// ErrNumericalDegeneracy marks a result that cannot be computed without dividing by zero
	// (e.g. annualizing over zero elapsed years)
	ErrNumericalDegeneracy = errors.New("numerical degeneracy")
)

// InputError identifies the stage and field whose precondition failed
type InputError struct {
	Stage   Stage
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInput) match any InputError
func (e *InputError) Is(target error) bool {
	return target == ErrInput
}

// NewInputError creates an InputError
func NewInputError(stage Stage, field, format string, args ...interface{}) error {
	return &InputError{Stage: stage, Field: field, Message: fmt.Sprintf(format, args...)}
}

// StateError reports a stage invoked out of order
type StateError struct {
	Stage   Stage
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Is lets errors.Is(err, ErrState) match any StateError
func (e *StateError) Is(target error) bool {
	return target == ErrState
}
