package saga

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// StepRegistry is a registry of reusable steps shared across sagas.
//
// Steps are identified by their StepName. Business steps tend to recur
// across saga definitions (the same payment step appears in many flows),
// so rather than constructing them at every call site, users register
// them once and assemble sagas from names.
type StepRegistry struct {
	steps *xsync.MapOf[StepName, Step]
}

// NewStepRegistry creates a new StepRegistry.
func NewStepRegistry() *StepRegistry {
	return &StepRegistry{
		steps: xsync.NewMapOf[StepName, Step](),
	}
}

// Register adds a step to the registry.
func (r *StepRegistry) Register(step Step) error {
	if _, ok := r.steps.Load(step.Name()); ok {
		return fmt.Errorf("step with name %q already registered", step.Name())
	}
	r.steps.Store(step.Name(), step)
	return nil
}

// Get retrieves a step from the registry by its name.
func (r *StepRegistry) Get(name StepName) (Step, error) {
	step, ok := r.steps.Load(name)
	if !ok {
		return nil, fmt.Errorf("no step registered with name %q", name)
	}
	return step, nil
}

// Steps resolves a list of names into steps, in order. It fails on the
// first name with no registration.
func (r *StepRegistry) Steps(names ...StepName) ([]Step, error) {
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		step, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}
