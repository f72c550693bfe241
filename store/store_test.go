package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhall/chatstack/memory"
)

// runSessionStoreSuite exercises the SessionStore contract against any
// backend.
func runSessionStoreSuite(t *testing.T, s SessionStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Messages(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	user := memory.NewMessage(memory.RoleUser, "hello")
	user.Metadata = map[string]any{"channel": "cli"}
	assistant := memory.NewMessage(memory.RoleAssistant, "hi there")

	require.NoError(t, s.AppendMessages(ctx, "s1", []memory.Message{user, assistant}))
	require.NoError(t, s.AppendMessages(ctx, "s2", []memory.Message{
		memory.NewMessage(memory.RoleUser, "other session"),
	}))

	msgs, err := s.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, user.ID, msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "cli", msgs[0].Metadata["channel"])
	assert.Equal(t, memory.RoleAssistant, msgs[1].Role)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	// s2 was written last, so it sorts first.
	assert.Equal(t, "s2", sessions[0].ID)
	for _, info := range sessions {
		if info.ID == "s1" {
			assert.Equal(t, 2, info.MessageCount)
		}
	}

	require.NoError(t, s.Clear(ctx, "s1"))
	_, err = s.Messages(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runSessionStoreSuite(t, s)
}

func TestSqliteStore(t *testing.T) {
	s, err := NewSqliteStore(SqliteOptions{Path: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	runSessionStoreSuite(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStoreWithClient(client, "test")
	defer s.Close()
	runSessionStoreSuite(t, s)
}
