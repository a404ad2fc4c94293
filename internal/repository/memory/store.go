// Package memory is a process-local HistoryStore, used when no persistence backend is configured.
package memory

import (
	"context"
	"sync"

	"github.com/Rrens/chatwidget/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID][]domain.Message
}

func NewStore() *Store {
	return &Store{sessions: make(map[domain.SessionID][]domain.Message)}
}

func (s *Store) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	s.mu.Lock()
	s.sessions[id] = append(s.sessions[id], msg)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]domain.Message, len(s.sessions[id]))
	copy(msgs, s.sessions[id])
	return msgs, nil
}

func (s *Store) Delete(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
