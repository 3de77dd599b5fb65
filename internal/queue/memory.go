// Package queue provides local pending-queue stores for offline-recorded
// attendance scans.
package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mid-D-Man/AirCode-sub002/internal/model"
)

var _ model.QueueStore = (*MemoryStore)(nil)

// MemoryStore keeps the pending queue in memory. It backs tests and
// short-lived scanning sessions where durability is not required.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]model.AttendanceScanRecord
}

// NewMemoryStore creates an empty in-memory queue.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]model.AttendanceScanRecord)}
}

// Append adds a record to the queue.
func (s *MemoryStore) Append(ctx context.Context, record model.AttendanceScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

// List returns records in FIFO order, earliest scan first.
func (s *MemoryStore) List(ctx context.Context) ([]model.AttendanceScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.AttendanceScanRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sortByScanTime(out)
	return out, nil
}

// Update replaces a stored record.
func (s *MemoryStore) Update(ctx context.Context, record model.AttendanceScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[record.ID]; !ok {
		return model.ErrNotFound
	}
	s.records[record.ID] = record
	return nil
}

// Remove deletes a record from the queue.
func (s *MemoryStore) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func sortByScanTime(records []model.AttendanceScanRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].ScanTime, records[j].ScanTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
