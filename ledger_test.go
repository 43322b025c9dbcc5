package saga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerTracksSucceededPrefix(t *testing.T) {
	ledger := NewLedger("saga-1")

	for _, name := range []StepName{"a", "b", "c"} {
		require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-1", Step: name, EventType: EventStarted}))
		require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-1", Step: name, EventType: EventSucceeded}))
	}

	assert.Equal(t, []StepName{"a", "b", "c"}, ledger.Succeeded())
	assert.False(t, ledger.Unwinding())
}

func TestLedgerUnwindsAfterFailure(t *testing.T) {
	ledger := NewLedger("saga-2")

	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-2", Step: "a", EventType: EventStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-2", Step: "a", EventType: EventSucceeded}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-2", Step: "b", EventType: EventStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-2", Step: "b", EventType: EventFailed}))

	assert.True(t, ledger.Unwinding())
	assert.Equal(t, []StepName{"a"}, ledger.Succeeded(), "failed step must not join the ledger")
}

func TestLedgerRejectsCompensateBeforeSuccess(t *testing.T) {
	ledger := NewLedger("saga-3")

	err := ledger.Record(&StepEvent{SagaID: "saga-3", Step: "a", EventType: EventCompensateStarted})
	assert.Error(t, err, "compensating a step that never ran is illegal")

	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-3", Step: "a", EventType: EventStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-3", Step: "a", EventType: EventFailed}))

	err = ledger.Record(&StepEvent{SagaID: "saga-3", Step: "a", EventType: EventCompensateStarted})
	assert.Error(t, err, "compensating a failed step is illegal")
}

func TestLedgerRejectsDoubleCompensation(t *testing.T) {
	ledger := NewLedger("saga-4")

	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-4", Step: "a", EventType: EventStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-4", Step: "a", EventType: EventSucceeded}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-4", Step: "a", EventType: EventCompensateStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-4", Step: "a", EventType: EventCompensateFinished}))

	err := ledger.Record(&StepEvent{SagaID: "saga-4", Step: "a", EventType: EventCompensateStarted})
	assert.Error(t, err, "a step can be compensated at most once")
}

func TestLedgerStringShowsDirection(t *testing.T) {
	ledger := NewLedger("saga-5")
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-5", Step: "a", EventType: EventStarted}))
	require.NoError(t, ledger.Record(&StepEvent{SagaID: "saga-5", Step: "a", EventType: EventFailed}))

	out := ledger.String()
	assert.Contains(t, out, "saga-5")
	assert.Contains(t, out, "unwinding")
	assert.Contains(t, out, "a failed")
}
