package saga

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Journal archives the terminal record of saga runs. It is an optional
// collaborator: the coordinator writes one RunRecord after the outcome is
// known and never reads it back. Crash recovery of in-flight sagas is
// explicitly not this interface's job; saga progress lives in memory only.
type Journal interface {
	// Record archives the terminal record of a run.
	Record(ctx context.Context, record RunRecord) error

	// Load retrieves an archived record by saga ID.
	Load(ctx context.Context, sagaID string) (*RunRecord, error)

	// Delete removes an archived record.
	Delete(ctx context.Context, sagaID string) error
}

// RunRecord is the JSON-serializable terminal snapshot of one saga run.
type RunRecord struct {
	SagaID              string        `json:"saga_id"`
	SagaName            string        `json:"saga_name,omitempty"`
	Status              string        `json:"status"`
	FailedStep          string        `json:"failed_step,omitempty"`
	Cause               string        `json:"cause,omitempty"`
	Executed            []string      `json:"executed,omitempty"`
	Compensated         []string      `json:"compensated,omitempty"`
	FailedCompensations []FailedComp  `json:"failed_compensations,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	FinishedAt          time.Time     `json:"finished_at"`
	Duration            time.Duration `json:"duration"`
}

// FailedComp is the journal form of a compensation failure.
type FailedComp struct {
	Step  string `json:"step"`
	Cause string `json:"cause"`
}

// newRunRecord builds the journal form of an Outcome.
func newRunRecord(o *Outcome, startedAt, finishedAt time.Time) RunRecord {
	record := RunRecord{
		SagaID:     o.SagaID,
		SagaName:   o.Name,
		Status:     o.Status.String(),
		FailedStep: string(o.FailedStep),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   o.Duration,
	}
	if o.Cause != nil {
		record.Cause = o.Cause.Error()
	}
	for _, name := range o.Executed {
		record.Executed = append(record.Executed, string(name))
	}
	for _, name := range o.Compensated {
		record.Compensated = append(record.Compensated, string(name))
	}
	for _, failure := range o.FailedCompensations {
		record.FailedCompensations = append(record.FailedCompensations, FailedComp{
			Step:  string(failure.Step),
			Cause: failure.Err.Error(),
		})
	}
	return record
}

// MemoryJournal is an in-memory Journal for tests and scenarios where
// archival is not required.
type MemoryJournal struct {
	mu      sync.RWMutex
	records map[string]*RunRecord
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		records: make(map[string]*RunRecord),
	}
}

// Record stores the run record in memory.
func (m *MemoryJournal) Record(ctx context.Context, record RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	recordCopy := record
	m.records[record.SagaID] = &recordCopy
	return nil
}

// Load retrieves a run record from memory.
func (m *MemoryJournal) Load(ctx context.Context, sagaID string) (*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, exists := m.records[sagaID]
	if !exists {
		return nil, fmt.Errorf("saga %s not found", sagaID)
	}

	recordCopy := *record
	return &recordCopy, nil
}

// Delete removes a run record from memory.
func (m *MemoryJournal) Delete(ctx context.Context, sagaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, sagaID)
	return nil
}
