package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"projectforge-service/internal/domain"
)

// CompletionStore keeps the portfolio index as one hash per user:
// HSET completions:{userId} {projectId}:{source} {json}. Using the hash
// field as the identity makes repeated appends naturally idempotent.
type CompletionStore struct {
	client *redis.Client
}

func NewCompletionStore(client *redis.Client) *CompletionStore {
	return &CompletionStore{client: client}
}

func (s *CompletionStore) Append(ctx context.Context, record domain.CompletionRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	field := record.ProjectID + ":" + string(record.Source)
	// HSetNX keeps the first write; a retried finalize does not bump the timestamp.
	if err := s.client.HSetNX(ctx, completionsKey(record.UserID), field, raw).Err(); err != nil {
		return fmt.Errorf("append completion: %w", err)
	}
	return nil
}

func (s *CompletionStore) ListByUser(ctx context.Context, userID string) ([]domain.CompletionRecord, error) {
	values, err := s.client.HGetAll(ctx, completionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	records := make([]domain.CompletionRecord, 0, len(values))
	for _, raw := range values {
		var record domain.CompletionRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("unmarshal completion: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func completionsKey(userID string) string {
	return "completions:" + userID
}
