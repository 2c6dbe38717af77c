package memory

import (
	"context"
	"sort"
	"sync"

	"projectforge-service/internal/domain"
)

// MessageStore is an in-memory implementation of app.MessageStore. Append
// order is preserved per channel; List sorts by CreatedAt ascending with a
// stable sort so equal timestamps keep arrival order.
type MessageStore struct {
	mu        sync.RWMutex
	byChannel map[string][]domain.ChatMessage
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byChannel: make(map[string][]domain.ChatMessage)}
}

func (s *MessageStore) Append(_ context.Context, message domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byChannel[message.Channel] = append(s.byChannel[message.Channel], message)
	return nil
}

func (s *MessageStore) List(_ context.Context, channel string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	messages := append([]domain.ChatMessage(nil), s.byChannel[channel]...)
	s.mu.RUnlock()

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}
