package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Coordinator drives a saga synchronously on the caller's goroutine.
// Steps execute strictly in the order they were added; on the first
// failure, the steps that already succeeded are compensated in strict
// reverse order, best effort. Run returns exactly one Outcome.
type Coordinator struct {
	cfg    config
	sagaID string

	builder *sagaBuilder
	ledger  *Ledger
	sc      *StepContext
}

// New creates a synchronous saga coordinator.
func New(opts ...Option) *Coordinator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sagaID := uuid.NewString()
	return &Coordinator{
		cfg:     cfg,
		sagaID:  sagaID,
		builder: newSagaBuilder(),
		ledger:  NewLedger(sagaID),
		sc:      newStepContext(),
	}
}

// SagaID returns the unique identifier of this saga run.
func (c *Coordinator) SagaID() string {
	return c.sagaID
}

// AddStep appends a step to the saga. It is only valid before Run is
// invoked; step names must be unique within the saga.
func (c *Coordinator) AddStep(step Step) error {
	return c.builder.add(step)
}

// Run drives the saga to completion and returns exactly once. Step
// failures are not errors: they travel inside the Outcome. The error
// return is reserved for protocol misuse, such as running the same saga
// twice.
func (c *Coordinator) Run(ctx context.Context) (*Outcome, error) {
	steps, err := c.builder.seal()
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	logger := c.cfg.logger.With().Str("saga_id", c.sagaID).Str("saga", c.cfg.name).Logger()
	logger.Debug().Int("steps", len(steps)).Msg("starting saga")

	failedStep, cause := c.forward(ctx, steps, logger)

	outcome := &Outcome{
		SagaID:     c.sagaID,
		Name:       c.cfg.name,
		Status:     StatusCommitted,
		FailedStep: failedStep,
		Cause:      cause,
		Executed:   c.ledger.Succeeded(),
	}

	if cause != nil {
		outcome.Compensated, outcome.FailedCompensations = c.backward(ctx, steps, logger)
		outcome.Status = StatusRolledBack
		if len(outcome.FailedCompensations) > 0 {
			outcome.Status = StatusPartiallyRolledBack
		}
	}

	outcome.Duration = time.Since(startedAt)
	logger.Debug().Stringer("status", outcome.Status).Msg("saga finished")

	writeJournal(ctx, c.cfg.journal, outcome, startedAt, logger)
	return outcome, nil
}

// forward executes steps in declared order until one fails or all
// succeed. It returns the failed step and its wrapped cause, or empty
// values if everything committed.
func (c *Coordinator) forward(ctx context.Context, steps []Step, logger zerolog.Logger) (StepName, error) {
	for _, step := range steps {
		name := step.Name()

		// A cancelled context is observed between dispatches only; a
		// step already in flight cannot be interrupted.
		if err := ctx.Err(); err != nil {
			logger.Debug().Str("step", string(name)).Err(err).Msg("context cancelled before step")
			return name, ExecutionFailed(name, err)
		}

		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventStarted}, logger)
		logger.Debug().Str("step", string(name)).Msg("executing step")

		result, err := safeExecute(ctx, step, c.sc)
		if err != nil {
			c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventFailed}, logger)
			logger.Debug().Str("step", string(name)).Err(err).Msg("step failed")
			return name, ExecutionFailed(name, err)
		}

		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventSucceeded}, logger)
		c.sc.set(name, result.Output)
		logger.Debug().Str("step", string(name)).Msg("step succeeded")
	}
	return "", nil
}

// backward compensates the succeeded steps in strict reverse order. A
// failed compensation is recorded but never stops the sweep.
func (c *Coordinator) backward(ctx context.Context, steps []Step, logger zerolog.Logger) ([]StepName, []CompensationFailure) {
	byName := make(map[StepName]Step, len(steps))
	for _, step := range steps {
		byName[step.Name()] = step
	}

	succeeded := c.ledger.Succeeded()
	compensated := make([]StepName, 0, len(succeeded))
	var failures []CompensationFailure

	for i := len(succeeded) - 1; i >= 0; i-- {
		name := succeeded[i]
		step := byName[name]

		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateStarted}, logger)
		logger.Debug().Str("step", string(name)).Msg("compensating step")

		if err := safeCompensate(ctx, step, c.sc); err != nil {
			c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateFailed}, logger)
			failures = append(failures, CompensationFailure{
				Step: name,
				Err:  CompensationFailed(name, err),
			})
			logger.Debug().Str("step", string(name)).Err(err).Msg("compensation failed")
			continue
		}

		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateFinished}, logger)
		compensated = append(compensated, name)
		logger.Debug().Str("step", string(name)).Msg("compensation succeeded")
	}

	return compensated, failures
}

// Ledger returns the execution ledger for this run.
func (c *Coordinator) Ledger() *Ledger {
	return c.ledger
}

func (c *Coordinator) record(event *StepEvent, logger zerolog.Logger) {
	if err := c.ledger.Record(event); err != nil {
		logger.Warn().Err(err).Msg("failed to record ledger event")
	}
}

// safeExecute invokes Execute, converting a panic into a step failure so
// a misbehaving step cannot abort the coordinator.
func safeExecute(ctx context.Context, step Step, sc *StepContext) (result StepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return step.Execute(ctx, sc)
}

// safeCompensate invokes Compensate, converting a panic into a
// compensation failure so the rollback sweep can continue.
func safeCompensate(ctx context.Context, step Step, sc *StepContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensation panicked: %v", r)
		}
	}()
	return step.Compensate(ctx, sc)
}

// writeJournal archives the terminal run record, if a journal is
// configured. Journal errors never alter the outcome.
func writeJournal(ctx context.Context, journal Journal, outcome *Outcome, startedAt time.Time, logger zerolog.Logger) {
	if journal == nil {
		return
	}
	record := newRunRecord(outcome, startedAt, startedAt.Add(outcome.Duration))
	if err := journal.Record(ctx, record); err != nil {
		logger.Warn().Err(err).Msg("failed to journal run record")
	}
}
