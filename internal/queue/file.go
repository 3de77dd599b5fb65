package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

var _ model.QueueStore = (*FileStore)(nil)

// FileStore persists the pending queue as a JSON file so queued scans
// survive a restart. Writes go through a temp file and rename.
type FileStore struct {
	mu      sync.Mutex
	path    string
	records []model.AttendanceScanRecord
}

// NewFileStore opens (or creates) the queue file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("failed to parse queue file: %w", err)
	}
	return s, nil
}

// Append adds a record and persists the queue.
func (s *FileStore) Append(ctx context.Context, record model.AttendanceScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	return s.persist()
}

// List returns records in FIFO order, earliest scan first.
func (s *FileStore) List(ctx context.Context) ([]model.AttendanceScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.AttendanceScanRecord, len(s.records))
	copy(out, s.records)
	sortByScanTime(out)
	return out, nil
}

// Update replaces a stored record and persists the queue.
func (s *FileStore) Update(ctx context.Context, record model.AttendanceScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == record.ID {
			s.records[i] = record
			return s.persist()
		}
	}
	return model.ErrNotFound
}

// Remove deletes a record and persists the queue.
func (s *FileStore) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return s.persist()
		}
	}
	return model.ErrNotFound
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize queue: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".queue-*")
	if err != nil {
		return fmt.Errorf("failed to create temp queue file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close queue file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace queue file: %w", err)
	}
	return nil
}
