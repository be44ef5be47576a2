// ABOUTME: In-process source store guarded by a read/write mutex.
// ABOUTME: Used for tests, the mock-only CLI mode, and as the reference ranking behavior.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/2389-research/scholar/internal/models"
)

// MemoryStore keeps records in memory. IDs start at 1 and increase by one per insert.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.SourceRecord
}

var _ SourceStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert stores a copy of rec and assigns it the next ID.
func (s *MemoryStore) Insert(ctx context.Context, rec *models.SourceRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", ErrInvalidArgument)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c := rec.Clone()

	s.mu.Lock()
	c.ID = int64(len(s.records)) + 1
	s.records = append(s.records, c)
	s.mu.Unlock()

	rec.ID = c.ID
	return c.ID, nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStore) Get(_ context.Context, id int64) (*models.SourceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 1 || id > int64(len(s.records)) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return s.records[id-1].Clone(), nil
}

// NearestNeighbors ranks a snapshot of the stored records taken under the read lock.
func (s *MemoryStore) NearestNeighbors(ctx context.Context, query []float64, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		return nil, invalidK(k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot := s.records[:len(s.records):len(s.records)]
	s.mu.RUnlock()

	return rankNearest(snapshot, query, k)
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close releases any resources held by the store.
func (s *MemoryStore) Close() error {
	return nil
}
