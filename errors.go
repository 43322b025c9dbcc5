package saga

import (
	"errors"
	"fmt"
)

// Protocol-misuse errors. These indicate a programming error in the
// caller, not a step failure; step failures travel inside the Outcome.
var (
	// ErrAlreadyRun is returned when Run is invoked twice on the same
	// saga, or when AddStep is called after Run has started.
	ErrAlreadyRun = errors.New("saga has already been run")

	// ErrDuplicateStep is returned when a step is added under a name
	// already present in the saga.
	ErrDuplicateStep = errors.New("step name already present in saga")

	// ErrNoSteps is returned when Run is invoked on a saga with no steps.
	ErrNoSteps = errors.New("saga has no steps")

	// ErrPoolClosed is returned when work is submitted to a worker pool
	// that has been closed.
	ErrPoolClosed = errors.New("worker pool is closed")
)

// ExecutionError wraps the error returned by a step's Execute. It is the
// expected, recoverable-by-design input to the rollback path.
type ExecutionError struct {
	Step StepName
	err  error
}

// ExecutionFailed wraps a step's forward failure in an ExecutionError.
func ExecutionFailed(step StepName, err error) error {
	return &ExecutionError{Step: step, err: err}
}

// Error implements the error interface for ExecutionError.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.err)
}

// Unwrap returns the step's own error.
func (e *ExecutionError) Unwrap() error {
	return e.err
}

// CompensationError wraps the error returned by a step's Compensate. It is
// recorded during the rollback sweep but never aborts it.
type CompensationError struct {
	Step StepName
	err  error
}

// CompensationFailed wraps a compensation failure in a CompensationError.
func CompensationFailed(step StepName, err error) error {
	return &CompensationError{Step: step, err: err}
}

// Error implements the error interface for CompensationError.
func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation for step %q failed: %v", e.Step, e.err)
}

// Unwrap returns the step's own error.
func (e *CompensationError) Unwrap() error {
	return e.err
}
