package saga

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// ConcurrentCoordinator drives a saga on a worker pool it owns. Forward
// steps still form a dependent chain — step i+1 is only submitted once
// step i's result is known — but the chain is expressed through
// continuations on the pool, so the calling goroutine is free while each
// step runs. On failure, compensation for every succeeded step is fanned
// out to the pool at once and the Future settles only after all
// compensations have finished.
type ConcurrentCoordinator struct {
	cfg    config
	sagaID string

	builder *sagaBuilder
	ledger  *Ledger
	sc      *StepContext

	pool      *workerPool
	closeOnce sync.Once
}

// NewConcurrent creates a concurrent saga coordinator. The worker pool is
// created here and owned exclusively by this coordinator; the caller must
// Close it when done.
func NewConcurrent(opts ...Option) *ConcurrentCoordinator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	sagaID := uuid.NewString()
	return &ConcurrentCoordinator{
		cfg:     cfg,
		sagaID:  sagaID,
		builder: newSagaBuilder(),
		ledger:  NewLedger(sagaID),
		sc:      newStepContext(),
		pool:    newWorkerPool(cfg.workers),
	}
}

// SagaID returns the unique identifier of this saga run.
func (c *ConcurrentCoordinator) SagaID() string {
	return c.sagaID
}

// AddStep appends a step to the saga. It is only valid before Run is
// invoked; step names must be unique within the saga.
func (c *ConcurrentCoordinator) AddStep(step Step) error {
	return c.builder.add(step)
}

// Ledger returns the execution ledger for this run.
func (c *ConcurrentCoordinator) Ledger() *Ledger {
	return c.ledger
}

// Close tears down the worker pool. It is idempotent and must be called
// after the Future has settled; closing with a run in flight causes the
// Future to settle with an infrastructure error.
func (c *ConcurrentCoordinator) Close() {
	c.closeOnce.Do(func() {
		c.pool.Close()
	})
}

// Run starts the saga and returns a Future that settles with the terminal
// Outcome. Run itself never blocks on step execution. Calling Run twice
// yields a Future settled with ErrAlreadyRun.
func (c *ConcurrentCoordinator) Run(ctx context.Context) *Future {
	future := newFuture()

	steps, err := c.builder.seal()
	if err != nil {
		future.settle(nil, err)
		return future
	}

	logger := c.cfg.logger.With().Str("saga_id", c.sagaID).Str("saga", c.cfg.name).Logger()
	logger.Debug().Int("steps", len(steps)).Int("workers", c.cfg.workers).Msg("starting concurrent saga")

	run := &concurrentRun{
		coord:     c,
		ctx:       ctx,
		steps:     steps,
		future:    future,
		logger:    logger,
		startedAt: time.Now(),
		compErrs:  xsync.NewMapOf[StepName, error](),
	}
	run.submitForward(0)

	return future
}

// concurrentRun is the in-flight state of one concurrent saga run.
type concurrentRun struct {
	coord     *ConcurrentCoordinator
	ctx       context.Context
	steps     []Step
	future    *Future
	logger    zerolog.Logger
	startedAt time.Time

	// Compensation fan-in.
	compErrs    *xsync.MapOf[StepName, error]
	compPending atomic.Int64
}

// submitForward schedules step i on the pool. The continuation submits
// step i+1 on success, so forward execution stays a dependent chain.
func (r *concurrentRun) submitForward(i int) {
	err := r.coord.pool.Submit(func() {
		r.forward(i)
	})
	if err != nil {
		r.fatal(fmt.Errorf("cannot schedule step %q: %w", r.steps[i].Name(), err))
	}
}

func (r *concurrentRun) forward(i int) {
	c := r.coord
	step := r.steps[i]
	name := step.Name()

	if err := r.ctx.Err(); err != nil {
		r.logger.Debug().Str("step", string(name)).Err(err).Msg("context cancelled before step")
		r.beginCompensation(name, ExecutionFailed(name, err))
		return
	}

	c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventStarted}, r.logger)
	r.logger.Debug().Str("step", string(name)).Msg("executing step")

	result, err := safeExecute(r.ctx, step, c.sc)
	if err != nil {
		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventFailed}, r.logger)
		r.logger.Debug().Str("step", string(name)).Err(err).Msg("step failed")
		r.beginCompensation(name, ExecutionFailed(name, err))
		return
	}

	c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventSucceeded}, r.logger)
	c.sc.set(name, result.Output)
	r.logger.Debug().Str("step", string(name)).Msg("step succeeded")

	if i+1 < len(r.steps) {
		r.submitForward(i + 1)
		return
	}

	r.finish("", nil)
}

// beginCompensation fans out compensation for every succeeded step. The
// compensations run concurrently with no ordering between them; only the
// fan-in point is synchronized.
func (r *concurrentRun) beginCompensation(failedStep StepName, cause error) {
	c := r.coord
	succeeded := c.ledger.Succeeded()
	if len(succeeded) == 0 {
		r.finish(failedStep, cause)
		return
	}

	byName := make(map[StepName]Step, len(r.steps))
	for _, step := range r.steps {
		byName[step.Name()] = step
	}

	r.compPending.Store(int64(len(succeeded)))
	for _, name := range succeeded {
		step := byName[name]
		name := name
		err := c.pool.Submit(func() {
			r.compensate(step, name, failedStep, cause)
		})
		if err != nil {
			r.fatal(fmt.Errorf("cannot schedule compensation for step %q: %w", name, err))
			return
		}
	}
}

func (r *concurrentRun) compensate(step Step, name, failedStep StepName, cause error) {
	c := r.coord

	c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateStarted}, r.logger)
	r.logger.Debug().Str("step", string(name)).Msg("compensating step")

	if err := safeCompensate(r.ctx, step, c.sc); err != nil {
		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateFailed}, r.logger)
		r.compErrs.Store(name, CompensationFailed(name, err))
		r.logger.Debug().Str("step", string(name)).Err(err).Msg("compensation failed")
	} else {
		c.record(&StepEvent{SagaID: c.sagaID, Step: name, EventType: EventCompensateFinished}, r.logger)
		r.logger.Debug().Str("step", string(name)).Msg("compensation succeeded")
	}

	if r.compPending.Add(-1) == 0 {
		r.finish(failedStep, cause)
	}
}

// finish aggregates the terminal outcome and settles the Future.
func (r *concurrentRun) finish(failedStep StepName, cause error) {
	c := r.coord
	succeeded := c.ledger.Succeeded()

	outcome := &Outcome{
		SagaID:     c.sagaID,
		Name:       c.cfg.name,
		Status:     StatusCommitted,
		FailedStep: failedStep,
		Cause:      cause,
		Executed:   succeeded,
	}

	if cause != nil {
		outcome.Status = StatusRolledBack
		// Report in reverse execution order for stable output; the
		// compensations themselves ran in no particular order.
		for i := len(succeeded) - 1; i >= 0; i-- {
			name := succeeded[i]
			if err, ok := r.compErrs.Load(name); ok {
				outcome.FailedCompensations = append(outcome.FailedCompensations, CompensationFailure{
					Step: name,
					Err:  err,
				})
				continue
			}
			outcome.Compensated = append(outcome.Compensated, name)
		}
		if len(outcome.FailedCompensations) > 0 {
			outcome.Status = StatusPartiallyRolledBack
		}
	}

	outcome.Duration = time.Since(r.startedAt)
	r.logger.Debug().Stringer("status", outcome.Status).Msg("saga finished")

	writeJournal(r.ctx, c.cfg.journal, outcome, r.startedAt, r.logger)
	r.future.settle(outcome, nil)
}

// fatal settles the Future with an infrastructure error, distinct from a
// step-level failure.
func (r *concurrentRun) fatal(err error) {
	r.logger.Error().Err(err).Msg("saga aborted by infrastructure error")
	r.future.settle(nil, err)
}

func (c *ConcurrentCoordinator) record(event *StepEvent, logger zerolog.Logger) {
	if err := c.ledger.Record(event); err != nil {
		logger.Warn().Err(err).Msg("failed to record ledger event")
	}
}

// Future is the pending result of a concurrent saga run. It settles
// exactly once: with an Outcome, or with an infrastructure or
// protocol-misuse error.
type Future struct {
	done    chan struct{}
	once    sync.Once
	outcome *Outcome
	err     error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(outcome *Outcome, err error) {
	f.once.Do(func() {
		f.outcome = outcome
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed when the run has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the run settles or the context is cancelled.
func (f *Future) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome returns the settled result without blocking. The second return
// is false while the run is still in flight.
func (f *Future) Outcome() (*Outcome, bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return nil, false
	}
}
