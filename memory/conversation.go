package memory

import (
	"context"
	"sync"
)

// DefaultMaxMessages bounds the conversation buffer.
const DefaultMaxMessages = 50

// ConversationMemory is a bounded in-order buffer of recent messages.
// When full it drops the oldest message. Safe for concurrent use.
type ConversationMemory struct {
	mu       sync.RWMutex
	messages []Message
	max      int
}

var _ Memory = (*ConversationMemory)(nil)

// ConversationOption configures a ConversationMemory.
type ConversationOption func(*ConversationMemory)

// WithMaxMessages sets the buffer capacity.
func WithMaxMessages(max int) ConversationOption {
	return func(m *ConversationMemory) {
		if max > 0 {
			m.max = max
		}
	}
}

// NewConversationMemory creates a buffer holding up to 50 messages.
func NewConversationMemory(opts ...ConversationOption) *ConversationMemory {
	m := &ConversationMemory{max: DefaultMaxMessages}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddMessage appends a message, evicting the oldest when full.
func (m *ConversationMemory) AddMessage(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if len(m.messages) > m.max {
		m.messages = m.messages[len(m.messages)-m.max:]
	}
	return nil
}

// GetContext returns the most recent messages up to limit, oldest first.
// The query is ignored; recency is the only signal here.
func (m *ConversationMemory) GetContext(ctx context.Context, query string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Messages returns a copy of the full buffer, oldest first.
func (m *ConversationMemory) Messages() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// MessagesByRole returns the buffered messages with the given role,
// oldest first.
func (m *ConversationMemory) MessagesByRole(role string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.messages {
		if msg.Role == role {
			out = append(out, msg)
		}
	}
	return out
}

// Clear empties the buffer.
func (m *ConversationMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
	return nil
}

// Stats reports message and token counts.
func (m *ConversationMemory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tokens := 0
	for _, msg := range m.messages {
		tokens += msg.TokenCount
	}
	return Stats{MessageCount: len(m.messages), TokenCount: tokens}, nil
}
