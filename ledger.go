package saga

import (
	"fmt"
	"strings"
	"sync"
)

// StepEvent is an entry in a saga's execution ledger.
type StepEvent struct {
	SagaID    string
	Step      StepName
	EventType StepEventType
}

// String implements the fmt.Stringer interface for StepEvent.
func (e *StepEvent) String() string {
	return fmt.Sprintf("%s %s", e.Step, e.EventType.String())
}

// StepEventType defines the events that can occur for a saga step.
type StepEventType int

const (
	EventStarted StepEventType = iota
	EventSucceeded
	EventFailed
	EventCompensateStarted
	EventCompensateFinished
	EventCompensateFailed
)

// String returns the string representation of the StepEventType.
func (t StepEventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventCompensateStarted:
		return "compensate_started"
	case EventCompensateFinished:
		return "compensate_finished"
	case EventCompensateFailed:
		return "compensate_failed"
	default:
		return fmt.Sprintf("unknown StepEventType: %d", int(t))
	}
}

// stepStatus is the ledger's view of a single step's progress.
type stepStatus int

const (
	statusNeverStarted stepStatus = iota
	statusStarted
	statusSucceeded
	statusFailed
	statusCompensateStarted
	statusCompensateFinished
	statusCompensateFailed
)

// nextStatus returns the new status for a step after recording the given
// event. It rejects transitions that would violate the saga contract, in
// particular compensating a step that never executed successfully or
// compensating the same step twice.
func (s stepStatus) nextStatus(eventType StepEventType) (stepStatus, error) {
	switch s {
	case statusNeverStarted:
		if eventType == EventStarted {
			return statusStarted, nil
		}
	case statusStarted:
		switch eventType {
		case EventSucceeded:
			return statusSucceeded, nil
		case EventFailed:
			return statusFailed, nil
		}
	case statusSucceeded:
		if eventType == EventCompensateStarted {
			return statusCompensateStarted, nil
		}
	case statusCompensateStarted:
		switch eventType {
		case EventCompensateFinished:
			return statusCompensateFinished, nil
		case EventCompensateFailed:
			return statusCompensateFailed, nil
		}
	}

	return statusNeverStarted, fmt.Errorf(
		"illegal event type %s for current step status %d", eventType, s,
	)
}

// Ledger records the progress of one saga run: which steps have started,
// succeeded, failed, and been compensated. The succeeded list is always a
// prefix of the declared step sequence. The Ledger is owned and mutated
// only by the coordinator during the run; it is safe for concurrent reads
// during the concurrent coordinator's compensation fan-out.
type Ledger struct {
	mu         sync.Mutex
	sagaID     string
	unwinding  bool
	events     []*StepEvent
	stepStatus map[StepName]stepStatus
	succeeded  []StepName
}

// NewLedger creates an empty Ledger for the given saga run.
func NewLedger(sagaID string) *Ledger {
	return &Ledger{
		sagaID:     sagaID,
		events:     make([]*StepEvent, 0),
		stepStatus: make(map[StepName]stepStatus),
	}
}

// Record appends an event to the ledger, validating it against the step's
// current status.
func (l *Ledger) Record(event *StepEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.stepStatus[event.Step]
	if !ok {
		current = statusNeverStarted
	}
	next, err := current.nextStatus(event.EventType)
	if err != nil {
		return fmt.Errorf("ledger for saga %s: step %q: %w", l.sagaID, event.Step, err)
	}

	switch next {
	case statusFailed, statusCompensateStarted:
		l.unwinding = true
	case statusSucceeded:
		l.succeeded = append(l.succeeded, event.Step)
	}

	l.stepStatus[event.Step] = next
	l.events = append(l.events, event)
	return nil
}

// Unwinding returns true once a step has failed and the run has turned to
// backward recovery.
func (l *Ledger) Unwinding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.unwinding
}

// Succeeded returns the steps whose Execute succeeded, in execution order.
func (l *Ledger) Succeeded() []StepName {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]StepName(nil), l.succeeded...)
}

// Events returns a copy of the recorded events in order.
func (l *Ledger) Events() []*StepEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*StepEvent(nil), l.events...)
}

// String implements the fmt.Stringer interface for Ledger.
func (l *Ledger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("SAGA LEDGER:\n")
	sb.WriteString(fmt.Sprintf("saga id:   %s\n", l.sagaID))
	direction := "forward"
	if l.unwinding {
		direction = "unwinding"
	}
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(l.events)))
	for i, event := range l.events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, event.String()))
	}
	return sb.String()
}
