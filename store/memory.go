package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomhall/chatstack/memory"
)

// MemoryStore keeps transcripts in process memory. Useful for tests and
// single-process deployments.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]memory.Message
	updated  map[string]time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]memory.Message),
		updated:  make(map[string]time.Time),
	}
}

// AppendMessages adds messages to a session.
func (s *MemoryStore) AppendMessages(ctx context.Context, sessionID string, msgs []memory.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], msgs...)
	s.updated[sessionID] = time.Now()
	return nil
}

// Messages returns a session's transcript.
func (s *MemoryStore) Messages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := make([]memory.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Sessions lists stored sessions, most recently updated first.
func (s *MemoryStore) Sessions(ctx context.Context) ([]SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for id, msgs := range s.sessions {
		out = append(out, SessionInfo{
			ID:           id,
			MessageCount: len(msgs),
			UpdatedAt:    s.updated[id],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Clear removes a session.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	delete(s.updated, sessionID)
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
