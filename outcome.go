package saga

import (
	"fmt"
	"time"
)

// SagaStatus is the terminal status of a saga run.
type SagaStatus int

const (
	// StatusCommitted means every step executed successfully and no
	// compensation occurred.
	StatusCommitted SagaStatus = iota

	// StatusRolledBack means a step failed and every compensation over
	// the succeeded steps itself succeeded.
	StatusRolledBack

	// StatusPartiallyRolledBack means a step failed and at least one
	// compensation also failed. Effects exist in the world that could
	// not be reversed automatically; operator attention is required.
	StatusPartiallyRolledBack
)

// String returns the string representation of the SagaStatus.
func (s SagaStatus) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	case StatusPartiallyRolledBack:
		return "partially_rolled_back"
	default:
		return fmt.Sprintf("unknown SagaStatus: %d", int(s))
	}
}

// CompensationFailure records a compensation that reported failure during
// the rollback sweep.
type CompensationFailure struct {
	Step StepName
	Err  error
}

// Outcome is the terminal result of one saga run. Exactly one Outcome is
// produced per run.
type Outcome struct {
	// SagaID uniquely identifies the run.
	SagaID string

	// Name is the saga name, if one was configured.
	Name string

	// Status is the terminal status.
	Status SagaStatus

	// FailedStep names the step whose Execute triggered rollback.
	// Empty when Status is StatusCommitted.
	FailedStep StepName

	// Cause is the error returned by the failed step's Execute.
	Cause error

	// Executed lists the steps whose Execute succeeded, in execution
	// order. Always a prefix of the declared step sequence.
	Executed []StepName

	// Compensated lists the steps whose Compensate succeeded.
	Compensated []StepName

	// FailedCompensations lists the compensations that themselves
	// failed. Non-empty exactly when Status is
	// StatusPartiallyRolledBack.
	FailedCompensations []CompensationFailure

	// Duration is the wall-clock time of the run.
	Duration time.Duration
}

// Committed reports whether the saga committed.
func (o *Outcome) Committed() bool {
	return o.Status == StatusCommitted
}

// RolledBack reports whether the saga fully rolled back.
func (o *Outcome) RolledBack() bool {
	return o.Status == StatusRolledBack
}

// CompensationFailed reports whether any compensation failed, leaving the
// saga in a state requiring external intervention.
func (o *Outcome) CompensationFailed() bool {
	return o.Status == StatusPartiallyRolledBack
}
