package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the history store needs
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// HistoryStore implements domain.HistoryStore on the chat_messages table.
// Rows are read back in insertion order.
type HistoryStore struct {
	db DBTX
}

// NewHistoryStore creates a new PostgreSQL-backed history store
func NewHistoryStore(db DBTX) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append inserts a message for the session
func (s *HistoryStore) Append(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	query := `
		INSERT INTO chat_messages (session_id, role, text, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query, id.String(), string(msg.Role), msg.Text, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("%w: failed to insert message: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// List returns every message of the session, oldest first
func (s *HistoryStore) List(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	query := `
		SELECT role, text, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list messages: %v", domain.ErrPersistenceFailure, err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var (
			role      string
			text      string
			createdAt time.Time
		)
		if err := rows.Scan(&role, &text, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan message: %v", domain.ErrPersistenceFailure, err)
		}
		messages = append(messages, domain.Message{
			Role:      domain.MessageRole(role),
			Text:      text,
			Timestamp: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read messages: %v", domain.ErrPersistenceFailure, err)
	}

	return messages, nil
}

// Delete removes every message of the session
func (s *HistoryStore) Delete(ctx context.Context, id domain.SessionID) error {
	query := `DELETE FROM chat_messages WHERE session_id = $1`

	if _, err := s.db.Exec(ctx, query, id.String()); err != nil {
		return fmt.Errorf("%w: failed to delete messages: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}
