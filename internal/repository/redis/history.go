package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
)

const (
	historyPrefix = "chat:history:"
)

// HistoryStore keeps chat history in Redis lists, one key per session.
// Every write refreshes the key's TTL.
type HistoryStore struct {
	client *Client
	ttl    time.Duration
}

// NewHistoryStore creates a new Redis-backed history store
func NewHistoryStore(client *Client, ttl time.Duration) *HistoryStore {
	return &HistoryStore{client: client, ttl: ttl}
}

// Append pushes a message to the end of the session's list
func (h *HistoryStore) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	key := historyKey(id)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := h.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	if h.ttl > 0 {
		pipe.Expire(ctx, key, h.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis append: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// List returns the session's messages, oldest first
func (h *HistoryStore) List(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	items, err := h.client.rdb.LRange(ctx, historyKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis list: %v", domain.ErrPersistenceFailure, err)
	}

	msgs := make([]domain.Message, 0, len(items))
	for _, item := range items {
		var msg domain.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("%w: failed to unmarshal message: %v", domain.ErrPersistenceFailure, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Delete removes the session's list
func (h *HistoryStore) Delete(ctx context.Context, id domain.SessionID) error {
	if err := h.client.rdb.Del(ctx, historyKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func historyKey(id domain.SessionID) string {
	return fmt.Sprintf("%s%s", historyPrefix, id.String())
}
