package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomhall/chatstack/memory"
)

// RedisStore persists transcripts in Redis: a list per session plus a
// sorted set of session IDs scored by last update time.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // Default "chatstack"
	TTL       time.Duration // 0 means no expiry
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}

	keyPrefix := opts.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "chatstack"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       opts.TTL,
	}, nil
}

// NewRedisStoreWithClient wraps an existing client, useful for tests.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "chatstack"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.keyPrefix, sessionID)
}

func (s *RedisStore) indexKey() string {
	return fmt.Sprintf("%s:sessions", s.keyPrefix)
}

// AppendMessages pushes messages onto the session list and bumps the
// session's score in the index.
func (s *RedisStore) AppendMessages(ctx context.Context, sessionID string, msgs []memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values = append(values, data)
	}

	key := s.sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: sessionID,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// Messages returns a session's transcript, oldest first.
func (s *RedisStore) Messages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	raw, err := s.client.LRange(ctx, s.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrSessionNotFound
	}

	msgs := make([]memory.Message, 0, len(raw))
	for _, item := range raw {
		var msg memory.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *RedisStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	entries, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]SessionInfo, 0, len(entries))
	for _, entry := range entries {
		id, ok := entry.Member.(string)
		if !ok {
			continue
		}
		count, err := s.client.LLen(ctx, s.sessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count messages: %w", err)
		}
		out = append(out, SessionInfo{
			ID:           id,
			MessageCount: int(count),
			UpdatedAt:    time.UnixMilli(int64(entry.Score)),
		})
	}
	return out, nil
}

// Clear removes a session and its index entry.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
