package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileJournal is a Journal that archives run records as JSON files on
// disk, one file per saga run.
type FileJournal struct {
	basePath string
	mu       sync.Mutex // Protects file operations
}

// NewFileJournal creates a file-based journal that writes run records to
// the specified directory.
func NewFileJournal(basePath string) (*FileJournal, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileJournal{
		basePath: basePath,
	}, nil
}

// Record persists the run record to a JSON file.
func (f *FileJournal) Record(ctx context.Context, record RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	filename := f.filename(record.SagaID)
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// Load retrieves a run record from its JSON file.
func (f *FileJournal) Load(ctx context.Context, sagaID string) (*RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filename := f.filename(sagaID)
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("saga %s not found", sagaID)
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}

	return &record, nil
}

// Delete removes the run record file.
func (f *FileJournal) Delete(ctx context.Context, sagaID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	filename := f.filename(sagaID)
	if err := os.Remove(filename); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error
			return nil
		}
		return fmt.Errorf("failed to delete run record: %w", err)
	}

	return nil
}

// filename returns the full path for a saga's record file.
func (f *FileJournal) filename(sagaID string) string {
	return filepath.Join(f.basePath, sagaID+".json")
}
