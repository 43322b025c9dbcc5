package saga

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryJournalLifecycle(t *testing.T) {
	journal := NewMemoryJournal()
	ctx := context.Background()

	record := RunRecord{SagaID: "run-1", SagaName: "demo", Status: "committed"}
	require.NoError(t, journal.Record(ctx, record))

	loaded, err := journal.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", loaded.SagaName)

	require.NoError(t, journal.Delete(ctx, "run-1"))
	_, err = journal.Load(ctx, "run-1")
	assert.Error(t, err)
}

func TestFileJournalArchivesRun(t *testing.T) {
	journal, err := NewFileJournal(t.TempDir())
	require.NoError(t, err)

	first := newRecordingStep("provision")
	first.compErr = fmt.Errorf("instance stuck")
	second := newRecordingStep("configure")
	second.execErr = fmt.Errorf("bad template")

	coordinator := New(WithName("deploy"), WithJournal(journal))
	require.NoError(t, coordinator.AddStep(first))
	require.NoError(t, coordinator.AddStep(second))

	outcome, err := coordinator.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyRolledBack, outcome.Status)

	record, err := journal.Load(context.Background(), coordinator.SagaID())
	require.NoError(t, err)
	assert.Equal(t, "partially_rolled_back", record.Status)
	assert.Equal(t, "configure", record.FailedStep)
	require.Len(t, record.FailedCompensations, 1)
	assert.Equal(t, "provision", record.FailedCompensations[0].Step)
	assert.Contains(t, record.FailedCompensations[0].Cause, "instance stuck")

	// Archived records can be pruned once an operator has resolved them.
	require.NoError(t, journal.Delete(context.Background(), coordinator.SagaID()))
	_, err = journal.Load(context.Background(), coordinator.SagaID())
	assert.Error(t, err)
	require.NoError(t, journal.Delete(context.Background(), coordinator.SagaID()), "deleting twice is not an error")
}

func TestConcurrentCoordinatorWritesJournal(t *testing.T) {
	journal := NewMemoryJournal()

	coordinator := NewConcurrent(WithName("async-deploy"), WithJournal(journal))
	defer coordinator.Close()
	require.NoError(t, coordinator.AddStep(newRecordingStep("only")))

	outcome, err := coordinator.Run(context.Background()).Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, outcome.Status)

	record, err := journal.Load(context.Background(), coordinator.SagaID())
	require.NoError(t, err)
	assert.Equal(t, "committed", record.Status)
	assert.Equal(t, []string{"only"}, record.Executed)
}
