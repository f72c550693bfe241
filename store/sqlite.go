package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomhall/chatstack/memory"
)

// SqliteStore persists transcripts in SQLite.
type SqliteStore struct {
	db        *sql.DB
	tableName string
}

var _ SessionStore = (*SqliteStore)(nil)

// SqliteOptions configures the SQLite connection.
type SqliteOptions struct {
	Path      string
	TableName string // Default "messages"
}

// NewSqliteStore opens (or creates) the database and its schema.
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "messages"
	}

	s := &SqliteStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the messages table if it doesn't exist.
func (s *SqliteStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata TEXT,
			token_count INTEGER NOT NULL DEFAULT 0,
			timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

// AppendMessages adds messages to a session inside one transaction.
func (s *SqliteStore) AppendMessages(ctx context.Context, sessionID string, msgs []memory.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, role, content, metadata, token_count, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)

	for _, msg := range msgs {
		metadataJSON, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query,
			msg.ID, sessionID, msg.Role, msg.Content,
			string(metadataJSON), msg.TokenCount, msg.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// Messages returns a session's transcript, oldest first.
func (s *SqliteStore) Messages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, role, content, metadata, token_count, timestamp
		FROM %s WHERE session_id = ? ORDER BY timestamp ASC, id ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []memory.Message
	for rows.Next() {
		var msg memory.Message
		var metadataJSON string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &metadataJSON, &msg.TokenCount, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if metadataJSON != "" && metadataJSON != "null" {
			if err := json.Unmarshal([]byte(metadataJSON), &msg.Metadata); err != nil {
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
func (s *SqliteStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	query := fmt.Sprintf(`
		SELECT session_id, COUNT(*), MAX(timestamp)
		FROM %s GROUP BY session_id ORDER BY MAX(timestamp) DESC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var updated time.Time
		if err := rows.Scan(&info.ID, &info.MessageCount, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.UpdatedAt = updated
		out = append(out, info)
	}
	return out, rows.Err()
}

// Clear removes a session's messages.
func (s *SqliteStore) Clear(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE session_id = ?`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
