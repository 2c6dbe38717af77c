package memory

import (
	"context"
	"sync"

	"projectforge-service/internal/domain"
)

// ProgressStore is an in-memory implementation of app.ProgressStore. Records
// are stored as value copies so callers never alias stored state.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[string]domain.ProgressRecord
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[string]domain.ProgressRecord)}
}

func (s *ProgressStore) Get(_ context.Context, userID, projectID string) (domain.ProgressRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID+"_"+projectID]
	if !ok {
		return domain.ProgressRecord{}, false, nil
	}
	return record.Clone(), true, nil
}

func (s *ProgressStore) Put(_ context.Context, record domain.ProgressRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Key()] = record.Clone()
	return nil
}
