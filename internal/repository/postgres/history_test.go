package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*HistoryStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewHistoryStore(mock), mock
}

func TestHistoryStore_Append(t *testing.T) {
	store, mock := newMockStore(t)
	id := domain.NewSessionID()
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO chat_messages (session_id, role, text, created_at)")).
		WithArgs(id.String(), "user", "hi", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Append(context.Background(), id, domain.Message{Role: domain.RoleUser, Text: "hi", Timestamp: ts})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_List(t *testing.T) {
	store, mock := newMockStore(t)
	id := domain.NewSessionID()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"role", "text", "created_at"}).
		AddRow("bot", "Welcome", t0).
		AddRow("user", "hi", t0.Add(time.Second)).
		AddRow("bot", "Hello, how can I help?", t0.Add(2*time.Second))
	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages")).
		WithArgs(id.String()).
		WillReturnRows(rows)

	msgs, err := store.List(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.RoleBot, msgs[0].Role)
	assert.Equal(t, "Welcome", msgs[0].Text)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Equal(t, t0.Add(2*time.Second), msgs[2].Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_ListEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	id := domain.NewSessionID()

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_messages")).
		WithArgs(id.String()).
		WillReturnRows(pgxmock.NewRows([]string{"role", "text", "created_at"}))

	msgs, err := store.List(context.Background(), id)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestHistoryStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)
	id := domain.NewSessionID()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chat_messages WHERE session_id = $1")).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	require.NoError(t, store.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, mock := newMockStore(t)
	id := domain.NewSessionID()
	dbErr := errors.New("connection refused")

	mock.ExpectExec("INSERT INTO chat_messages").WillReturnError(dbErr)
	mock.ExpectQuery("FROM chat_messages").WillReturnError(dbErr)
	mock.ExpectExec("DELETE FROM chat_messages").WillReturnError(dbErr)

	err := store.Append(ctx, id, domain.Message{Role: domain.RoleUser, Text: "hi", Timestamp: time.Now()})
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailure))

	_, err = store.List(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailure))

	err = store.Delete(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailure))

	assert.NoError(t, mock.ExpectationsWereMet())
}
