package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomhall/chatstack/memory"
)

// PgxPool is the subset of pgxpool.Pool the store needs. pgxmock
// satisfies it for tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// PostgresStore persists transcripts in PostgreSQL via pgx.
type PostgresStore struct {
	pool      PgxPool
	tableName string
}

var _ SessionStore = (*PostgresStore)(nil)

// PostgresOptions configures the PostgreSQL connection.
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "messages"
}

// NewPostgresStore connects to PostgreSQL and creates the schema.
func NewPostgresStore(ctx context.Context, opts PostgresOptions) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "messages"
	}

	s := &PostgresStore{pool: pool, tableName: tableName}
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreWithPool wraps an existing pool without touching the
// schema, useful for tests.
func NewPostgresStoreWithPool(pool PgxPool, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = "messages"
	}
	return &PostgresStore{pool: pool, tableName: tableName}
}

// InitSchema creates the messages table if it doesn't exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB,
			token_count INTEGER NOT NULL DEFAULT 0,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// AppendMessages inserts messages for a session.
func (s *PostgresStore) AppendMessages(ctx context.Context, sessionID string, msgs []memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, role, content, metadata, token_count, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName)

	for _, msg := range msgs {
		metadataJSON, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := s.pool.Exec(ctx, query,
			msg.ID, sessionID, msg.Role, msg.Content,
			metadataJSON, msg.TokenCount, msg.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return nil
}

// Messages returns a session's transcript, oldest first.
func (s *PostgresStore) Messages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, role, content, metadata, token_count, timestamp
		FROM %s WHERE session_id = $1 ORDER BY timestamp ASC, id ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []memory.Message
	for rows.Next() {
		var msg memory.Message
		var metadataJSON []byte
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &metadataJSON, &msg.TokenCount, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, ErrSessionNotFound
	}
	return msgs, nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *PostgresStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	query := fmt.Sprintf(`
		SELECT session_id, COUNT(*), MAX(timestamp)
		FROM %s GROUP BY session_id ORDER BY MAX(timestamp) DESC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var count int64
		var updated time.Time
		if err := rows.Scan(&info.ID, &count, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.MessageCount = int(count)
		info.UpdatedAt = updated
		out = append(out, info)
	}
	return out, rows.Err()
}

// Clear removes a session's messages.
func (s *PostgresStore) Clear(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = $1`, s.tableName)
	if _, err := s.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
