package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepContextTypedLookup(t *testing.T) {
	sc := newStepContext()
	sc.set("numeric", 42)
	sc.set("textual", "hello")

	value, ok := Output[int](sc, "numeric")
	assert.True(t, ok)
	assert.Equal(t, 42, value)

	_, ok = Output[int](sc, "textual")
	assert.False(t, ok, "type mismatch must not match")

	_, ok = Output[int](sc, "missing")
	assert.False(t, ok)

	var nilContext *StepContext
	_, ok = nilContext.Lookup("anything")
	assert.False(t, ok)
}

func TestStepFuncAdapters(t *testing.T) {
	executed := false
	step := NewStepFuncWithNoOpCompensate("adapter",
		func(ctx context.Context, sc *StepContext) (StepResult, error) {
			executed = true
			return StepResult{Output: "done"}, nil
		},
	)

	assert.Equal(t, StepName("adapter"), step.Name())

	result, err := step.Execute(context.Background(), newStepContext())
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, "done", result.Output)

	assert.NoError(t, step.Compensate(context.Background(), newStepContext()))
}

func TestSagaStatusString(t *testing.T) {
	assert.Equal(t, "committed", StatusCommitted.String())
	assert.Equal(t, "rolled_back", StatusRolledBack.String())
	assert.Equal(t, "partially_rolled_back", StatusPartiallyRolledBack.String())
}
