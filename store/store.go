// Package store persists session transcripts. Backends exist for memory,
// SQLite, Redis and PostgreSQL.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tomhall/chatstack/memory"
)

// ErrSessionNotFound is returned when a session has no messages.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo describes a stored session.
type SessionInfo struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionStore persists conversation transcripts keyed by session ID.
type SessionStore interface {
	// AppendMessages adds messages to a session, creating it if needed.
	AppendMessages(ctx context.Context, sessionID string, msgs []memory.Message) error

	// Messages returns a session's transcript, oldest first.
	Messages(ctx context.Context, sessionID string) ([]memory.Message, error)

	// Sessions lists stored sessions, most recently updated first.
	Sessions(ctx context.Context) ([]SessionInfo, error)

	// Clear removes a session and its messages.
	Clear(ctx context.Context, sessionID string) error

	// Close releases the backend.
	Close() error
}
