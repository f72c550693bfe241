package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhall/chatstack/memory"
)

func TestPostgresStoreAppendMessages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreWithPool(mock, "messages")

	msg := memory.NewMessage(memory.RoleUser, "hello")
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(msg.ID, "s1", msg.Role, msg.Content, pgxmock.AnyArg(), msg.TokenCount, msg.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendMessages(context.Background(), "s1", []memory.Message{msg}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreMessages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreWithPool(mock, "messages")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "role", "content", "metadata", "token_count", "timestamp"}).
		AddRow("m1", memory.RoleUser, "hello", []byte(`{"channel":"web"}`), 2, now).
		AddRow("m2", memory.RoleAssistant, "hi", []byte(nil), 1, now)

	mock.ExpectQuery("SELECT id, role, content, metadata, token_count, timestamp").
		WithArgs("s1").
		WillReturnRows(rows)

	msgs, err := s.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "web", msgs[0].Metadata["channel"])
	assert.Nil(t, msgs[1].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreMessagesNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreWithPool(mock, "messages")

	mock.ExpectQuery("SELECT id, role, content, metadata, token_count, timestamp").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "role", "content", "metadata", "token_count", "timestamp"}))

	_, err = s.Messages(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPostgresStoreSessions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreWithPool(mock, "messages")

	now := time.Now()
	rows := pgxmock.NewRows([]string{"session_id", "count", "max"}).
		AddRow("s2", int64(3), now).
		AddRow("s1", int64(1), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT session_id, COUNT").WillReturnRows(rows)

	sessions, err := s.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, 3, sessions[0].MessageCount)
}

func TestPostgresStoreClear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStoreWithPool(mock, "messages")

	mock.ExpectExec("DELETE FROM messages").
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Clear(context.Background(), "s1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
