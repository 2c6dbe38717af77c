package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"projectforge-service/internal/domain"
)

// ChatService maintains a live ordered view of one channel's messages and
// accepts new posts. Every change pushes the full current ordered set to all
// subscribers; consumers replace their local copy, they never diff.
type ChatService struct {
	store        MessageStore
	historyLimit int
	now          func() time.Time

	mu   sync.Mutex
	hubs map[string]*channelHub
}

type channelHub struct {
	subscribers map[chan []domain.ChatMessage]struct{}
}

func NewChatService(store MessageStore, historyLimit int) *ChatService {
	return NewChatServiceWithClock(store, historyLimit, time.Now)
}

// NewChatServiceWithClock is test-only for deterministic timestamps.
func NewChatServiceWithClock(store MessageStore, historyLimit int, now func() time.Time) *ChatService {
	return &ChatService{
		store:        store,
		historyLimit: historyLimit,
		now:          now,
		hubs:         make(map[string]*channelHub),
	}
}

// Subscribe returns a channel carrying full ordered snapshots, starting with
// the current state. The caller must invoke cancel to avoid leaks; cancel is
// idempotent. Resubscribing restarts from current state, there is no cursor.
func (s *ChatService) Subscribe(ctx context.Context, channel string) (<-chan []domain.ChatMessage, func(), error) {
	initial, err := s.snapshot(ctx, channel)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan []domain.ChatMessage, 8)

	s.mu.Lock()
	hub, ok := s.hubs[channel]
	if !ok {
		hub = &channelHub{subscribers: make(map[chan []domain.ChatMessage]struct{})}
		s.hubs[channel] = hub
	}
	hub.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if hub, ok := s.hubs[channel]; ok {
			if _, ok := hub.subscribers[ch]; ok {
				delete(hub.subscribers, ch)
				close(ch)
			}
			if len(hub.subscribers) == 0 {
				delete(s.hubs, channel)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

// Post appends one immutable message with a server-assigned ID and timestamp,
// optionally carrying a reply snapshot, then broadcasts the new full set.
func (s *ChatService) Post(ctx context.Context, channel, userID, userName, photoURL, text, replyToID string) (domain.ChatMessage, error) {
	if userID == "" {
		return domain.ChatMessage{}, domain.ErrUnauthenticated
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.ChatMessage{}, domain.ErrEmptyMessage
	}

	message := domain.ChatMessage{
		ID:           uuid.New().String(),
		Channel:      channel,
		UserID:       userID,
		UserName:     userName,
		UserPhotoURL: photoURL,
		Text:         trimmed,
		CreatedAt:    s.now(),
	}

	if replyToID != "" {
		target, err := s.findMessage(ctx, channel, replyToID)
		if err != nil {
			return domain.ChatMessage{}, err
		}
		snapshot := domain.NewReplySnapshot(target)
		message.ReplyTo = &snapshot
	}

	if err := s.store.Append(ctx, message); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("append message: %w", err)
	}

	latest, err := s.snapshot(ctx, channel)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	s.broadcast(channel, latest)
	return message, nil
}

// History returns the current ordered message set for a channel.
func (s *ChatService) History(ctx context.Context, channel string) ([]domain.ChatMessage, error) {
	return s.snapshot(ctx, channel)
}

func (s *ChatService) findMessage(ctx context.Context, channel, id string) (domain.ChatMessage, error) {
	messages, err := s.store.List(ctx, channel)
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("list messages: %w", err)
	}
	for _, m := range messages {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.ChatMessage{}, domain.ErrMessageNotFound
}

func (s *ChatService) snapshot(ctx context.Context, channel string) ([]domain.ChatMessage, error) {
	messages, err := s.store.List(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if s.historyLimit > 0 && len(messages) > s.historyLimit {
		messages = messages[len(messages)-s.historyLimit:]
	}
	return messages, nil
}

// broadcast pushes the snapshot to every subscriber, dropping a stale
// snapshot when a slow consumer's buffer is full so broadcasts never block.
func (s *ChatService) broadcast(channel string, messages []domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hub, ok := s.hubs[channel]
	if !ok {
		return
	}
	for ch := range hub.subscribers {
		select {
		case ch <- messages:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- messages
		}
	}
}
