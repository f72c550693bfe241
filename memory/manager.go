package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomhall/chatstack/graph"
	"github.com/tomhall/chatstack/log"
)

const (
	// DefaultConversationLimit is how many recent turns the unified
	// context includes.
	DefaultConversationLimit = 5

	// DefaultSemanticLimit is how many recalled facts the unified
	// context includes.
	DefaultSemanticLimit = 3
)

// Manager fans message writes out to conversation and semantic memory
// concurrently, and merges both into a unified, deduplicated context.
type Manager struct {
	conversation Memory
	semantic     Memory
	logger       log.Logger

	conversationLimit int
	semanticLimit     int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithConversationLimit sets how many recent turns GetUnifiedContext
// returns.
func WithConversationLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.conversationLimit = limit
		}
	}
}

// WithSemanticLimit sets how many recalled facts GetUnifiedContext
// returns.
func WithSemanticLimit(limit int) ManagerOption {
	return func(m *Manager) {
		if limit > 0 {
			m.semanticLimit = limit
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(logger log.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager over a conversation memory and an optional
// semantic memory. A nil semantic memory disables recall.
func NewManager(conversation, semantic Memory, opts ...ManagerOption) *Manager {
	m := &Manager{
		conversation:      conversation,
		semantic:          semantic,
		logger:            log.GetDefaultLogger(),
		conversationLimit: DefaultConversationLimit,
		semanticLimit:     DefaultSemanticLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddMessage writes the message to both memories concurrently and joins
// their errors.
func (m *Manager) AddMessage(ctx context.Context, msg Message) error {
	targets := []Memory{m.conversation}
	if m.semantic != nil {
		targets = append(targets, m.semantic)
	}

	errs := make([]error, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		i, target := i, target
		graph.SafeGo(&wg, func() {
			errs[i] = target.AddMessage(ctx, msg)
		}, func(r any) {
			errs[i] = fmt.Errorf("add message: %w", &graph.PanicError{Value: r})
		})
	}
	wg.Wait()

	return errors.Join(errs...)
}

// GetUnifiedContext returns recalled facts followed by recent
// conversation turns, deduplicated by role and content. Facts come first
// so they read as system context ahead of the dialogue.
func (m *Manager) GetUnifiedContext(ctx context.Context, query string) ([]Message, error) {
	recent, err := m.conversation.GetContext(ctx, query, m.conversationLimit)
	if err != nil {
		return nil, fmt.Errorf("conversation context: %w", err)
	}

	var facts []Message
	if m.semantic != nil {
		facts, err = m.semantic.GetContext(ctx, query, m.semanticLimit)
		if err != nil {
			// Recall is best-effort; the conversation still stands alone.
			m.logger.Warn("semantic recall failed: %v", err)
			facts = nil
		}
	}

	seen := make(map[string]struct{}, len(facts)+len(recent))
	out := make([]Message, 0, len(facts)+len(recent))
	for _, msg := range append(facts, recent...) {
		key := msg.Role + "\x00" + msg.Content
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, msg)
	}
	return out, nil
}

// Clear empties both memories.
func (m *Manager) Clear(ctx context.Context) error {
	err := m.conversation.Clear(ctx)
	if m.semantic != nil {
		err = errors.Join(err, m.semantic.Clear(ctx))
	}
	return err
}

// ManagerStats reports both memories' stats.
type ManagerStats struct {
	Conversation Stats `json:"conversation"`
	Semantic     Stats `json:"semantic"`
}

// Stats collects stats from both memories.
func (m *Manager) Stats(ctx context.Context) (ManagerStats, error) {
	conv, err := m.conversation.Stats(ctx)
	if err != nil {
		return ManagerStats{}, fmt.Errorf("conversation stats: %w", err)
	}

	out := ManagerStats{Conversation: conv}
	if m.semantic != nil {
		sem, err := m.semantic.Stats(ctx)
		if err != nil {
			return ManagerStats{}, fmt.Errorf("semantic stats: %w", err)
		}
		out.Semantic = sem
	}
	return out, nil
}

// Search recalls facts similar to the query from semantic memory.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]Message, error) {
	if m.semantic == nil {
		return nil, nil
	}
	return m.semantic.GetContext(ctx, query, limit)
}
