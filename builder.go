package saga

import (
	"fmt"
	"sync"
)

// sagaBuilder holds the build-phase state shared by both coordinators:
// the ordered step sequence, uniqueness of names, and the one-shot seal
// that separates the build phase from the run phase.
type sagaBuilder struct {
	mu     sync.Mutex
	steps  []Step
	names  map[StepName]struct{}
	sealed bool
}

func newSagaBuilder() *sagaBuilder {
	return &sagaBuilder{
		names: make(map[StepName]struct{}),
	}
}

// add appends a step, rejecting additions after the run has started and
// duplicate step names.
func (b *sagaBuilder) add(step Step) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return fmt.Errorf("cannot add step %q: %w", step.Name(), ErrAlreadyRun)
	}
	if _, ok := b.names[step.Name()]; ok {
		return fmt.Errorf("cannot add step %q: %w", step.Name(), ErrDuplicateStep)
	}

	b.names[step.Name()] = struct{}{}
	b.steps = append(b.steps, step)
	return nil
}

// seal freezes the step sequence and returns it. The second and later
// calls fail with ErrAlreadyRun; a saga runs exactly once.
func (b *sagaBuilder) seal() ([]Step, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return nil, ErrAlreadyRun
	}
	if len(b.steps) == 0 {
		return nil, ErrNoSteps
	}

	b.sealed = true
	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)
	return steps, nil
}
