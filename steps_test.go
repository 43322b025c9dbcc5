package saga

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// callTrace records the global order of execute/compensate calls across
// steps, so tests can assert ordering properties.
type callTrace struct {
	mu      sync.Mutex
	entries []string
}

func (t *callTrace) add(kind string, name StepName) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, kind+":"+string(name))
}

func (t *callTrace) calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.entries...)
}

// recordingStep is an instrumented Step for tests: it counts calls, can
// be told to fail either operation, panic, or block its compensation on a
// gate channel.
type recordingStep struct {
	name        StepName
	output      any
	execErr     error
	compErr     error
	panicOnExec bool
	compGate    <-chan struct{}
	trace       *callTrace

	execCalls atomic.Int32
	compCalls atomic.Int32
}

func newRecordingStep(name StepName) *recordingStep {
	return &recordingStep{name: name, output: "output-" + string(name)}
}

func (s *recordingStep) Name() StepName {
	return s.name
}

func (s *recordingStep) Execute(ctx context.Context, sc *StepContext) (StepResult, error) {
	s.execCalls.Add(1)
	if s.trace != nil {
		s.trace.add("exec", s.name)
	}
	if s.panicOnExec {
		panic(fmt.Sprintf("step %s blew up", s.name))
	}
	if s.execErr != nil {
		return StepResult{}, s.execErr
	}
	return StepResult{Output: s.output}, nil
}

func (s *recordingStep) Compensate(ctx context.Context, sc *StepContext) error {
	s.compCalls.Add(1)
	if s.trace != nil {
		s.trace.add("comp", s.name)
	}
	if s.compGate != nil {
		<-s.compGate
	}
	return s.compErr
}
