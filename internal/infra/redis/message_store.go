package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"projectforge-service/internal/domain"
)

// MessageStore keeps each channel's log as a Redis list: RPUSH preserves
// arrival order, which is the ordering tie-break for equal timestamps.
type MessageStore struct {
	client *redis.Client
}

func NewMessageStore(client *redis.Client) *MessageStore {
	return &MessageStore{client: client}
}

func (s *MessageStore) Append(ctx context.Context, message domain.ChatMessage) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.client.RPush(ctx, chatKey(message.Channel), raw).Err(); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *MessageStore) List(ctx context.Context, channel string) ([]domain.ChatMessage, error) {
	values, err := s.client.LRange(ctx, chatKey(channel), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	messages := make([]domain.ChatMessage, 0, len(values))
	for _, raw := range values {
		var message domain.ChatMessage
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, message)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}

func chatKey(channel string) string {
	return "chat:" + channel
}
