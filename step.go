package saga

import (
	"context"

	"github.com/tidwall/btree"
)

// StepName identifies a step within a saga. Names must be unique per saga
// because step outputs are keyed by name in the StepContext.
type StepName string

// StepResult is the value produced by a successful Execute. Output carries
// whatever state the step's Compensate needs to reverse the effect (for
// example, the identifier of a resource the step created). The coordinator
// threads it into the StepContext; steps never hold it as hidden state.
type StepResult struct {
	Output any
}

// Step is a unit of work in a saga: a forward effect plus a compensating
// action that semantically undoes it.
//
// Execute performs the forward effect. It is called at most once per saga
// run. On failure it must return a non-nil error and must not have left
// any effect requiring compensation.
//
// Compensate reverses the effect of a previously successful Execute. The
// coordinator calls it at most once, and never for a step whose Execute
// did not succeed. Compensation failures are not retried by the
// coordinator, so implementations are encouraged to be safe to retry
// externally.
//
// Steps do not know about each other or about saga-level ordering; all
// sequencing belongs to the coordinator.
type Step interface {
	Name() StepName
	Execute(ctx context.Context, sc *StepContext) (StepResult, error)
	Compensate(ctx context.Context, sc *StepContext) error
}

// StepContext gives a step read access to the outputs of the steps that
// succeeded before it, and during compensation to the step's own output.
// It is owned by the coordinator; steps must not retain it past the call.
type StepContext struct {
	outputs *btree.Map[StepName, any]
}

func newStepContext() *StepContext {
	return &StepContext{outputs: btree.NewMap[StepName, any](8)}
}

// Lookup retrieves the output of a previously successful step by name.
func (sc *StepContext) Lookup(name StepName) (any, bool) {
	if sc == nil || sc.outputs == nil {
		return nil, false
	}
	return sc.outputs.Get(name)
}

func (sc *StepContext) set(name StepName, output any) {
	sc.outputs.Set(name, output)
}

// Output retrieves the output of a previously successful step with a type
// assertion. It returns the zero value and false if the step has no
// recorded output or the output is not a T.
func Output[T any](sc *StepContext, name StepName) (T, bool) {
	var zero T
	value, found := sc.Lookup(name)
	if !found {
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// ExecuteFunc is the forward half of a function-backed step.
type ExecuteFunc func(ctx context.Context, sc *StepContext) (StepResult, error)

// CompensateFunc is the compensating half of a function-backed step.
type CompensateFunc func(ctx context.Context, sc *StepContext) error

// StepFunc is a Step implementation backed by ordinary functions.
type StepFunc struct {
	name       StepName
	execute    ExecuteFunc
	compensate CompensateFunc
}

// NewStepFunc packages an execute/compensate function pair into a Step.
func NewStepFunc(name StepName, execute ExecuteFunc, compensate CompensateFunc) *StepFunc {
	return &StepFunc{
		name:       name,
		execute:    execute,
		compensate: compensate,
	}
}

// NoOpCompensate is a CompensateFunc for steps whose forward effect needs
// no reversal.
func NoOpCompensate(_ context.Context, _ *StepContext) error {
	return nil
}

// NewStepFuncWithNoOpCompensate packages an execute function into a Step
// whose compensation does nothing.
func NewStepFuncWithNoOpCompensate(name StepName, execute ExecuteFunc) *StepFunc {
	return NewStepFunc(name, execute, NoOpCompensate)
}

// Name implements the Step interface for StepFunc.
func (s *StepFunc) Name() StepName {
	return s.name
}

// Execute implements the Step interface for StepFunc.
func (s *StepFunc) Execute(ctx context.Context, sc *StepContext) (StepResult, error) {
	return s.execute(ctx, sc)
}

// Compensate implements the Step interface for StepFunc.
func (s *StepFunc) Compensate(ctx context.Context, sc *StepContext) error {
	return s.compensate(ctx, sc)
}
