package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"projectforge-service/internal/domain"
)

// ProgressStore persists each enrollment as one JSON document under
// progress:{userId}_{projectId}. Documents have no TTL: progress records are
// never expired or deleted by this service.
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Get(ctx context.Context, userID, projectID string) (domain.ProgressRecord, bool, error) {
	raw, err := s.client.Get(ctx, progressKey(userID, projectID)).Bytes()
	if err == redis.Nil {
		return domain.ProgressRecord{}, false, nil
	}
	if err != nil {
		return domain.ProgressRecord{}, false, fmt.Errorf("get progress: %w", err)
	}
	var record domain.ProgressRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.ProgressRecord{}, false, fmt.Errorf("unmarshal progress: %w", err)
	}
	return record, true, nil
}

func (s *ProgressStore) Put(ctx context.Context, record domain.ProgressRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(record.UserID, record.ProjectID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func progressKey(userID, projectID string) string {
	return "progress:" + userID + "_" + projectID
}
