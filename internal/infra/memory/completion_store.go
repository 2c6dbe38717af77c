package memory

import (
	"context"
	"sync"

	"projectforge-service/internal/domain"
)

// CompletionStore is an in-memory implementation of app.CompletionStore.
type CompletionStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.CompletionRecord
}

func NewCompletionStore() *CompletionStore {
	return &CompletionStore{byUser: make(map[string][]domain.CompletionRecord)}
}

// Append records a completion once per (user, project, source); repeats are
// dropped so retried finalizations stay idempotent.
func (s *CompletionStore) Append(_ context.Context, record domain.CompletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byUser[record.UserID] {
		if existing.ProjectID == record.ProjectID && existing.Source == record.Source {
			return nil
		}
	}
	s.byUser[record.UserID] = append(s.byUser[record.UserID], record)
	return nil
}

func (s *CompletionStore) ListByUser(_ context.Context, userID string) ([]domain.CompletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CompletionRecord(nil), s.byUser[userID]...), nil
}
