package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/log"
	"github.com/tomhall/chatstack/rag"
)

// extractionPrompt asks the model to pull durable facts out of a message.
const extractionPrompt = `Extract durable facts about the user or the conversation from the message below: preferences, personal details, decisions, and stated goals. Write one fact per line, as a short standalone sentence. If the message contains no durable facts, reply with NONE.

Message:
%s`

// SemanticMemory stores facts extracted from messages as embedded entries
// in a vector store and recalls them by similarity to a query.
type SemanticMemory struct {
	model    llm.Model
	embedder rag.Embedder
	store    rag.VectorStore
	logger   log.Logger

	mu    sync.Mutex
	ids   []string
	facts []string
}

var _ Memory = (*SemanticMemory)(nil)

// SemanticOption configures a SemanticMemory.
type SemanticOption func(*SemanticMemory)

// WithSemanticLogger sets the logger.
func WithSemanticLogger(logger log.Logger) SemanticOption {
	return func(m *SemanticMemory) {
		m.logger = logger
	}
}

// NewSemanticMemory creates a semantic memory over a model for fact
// extraction, an embedder and a vector store for recall.
func NewSemanticMemory(model llm.Model, embedder rag.Embedder, store rag.VectorStore, opts ...SemanticOption) *SemanticMemory {
	m := &SemanticMemory{
		model:    model,
		embedder: embedder,
		store:    store,
		logger:   log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddMessage extracts facts from user messages and stores them embedded.
// Assistant and system messages carry no durable user facts and are
// skipped.
func (m *SemanticMemory) AddMessage(ctx context.Context, msg Message) error {
	if msg.Role != RoleUser {
		return nil
	}

	facts, err := m.extractFacts(ctx, msg.Content)
	if err != nil {
		return fmt.Errorf("extract facts: %w", err)
	}
	if len(facts) == 0 {
		return nil
	}

	vectors, err := m.embedder.EmbedDocuments(ctx, facts)
	if err != nil {
		return fmt.Errorf("embed facts: %w", err)
	}

	docs := make([]rag.Document, len(facts))
	for i, fact := range facts {
		doc := rag.NewDocument(fact, map[string]any{
			"kind":       "fact",
			"message_id": msg.ID,
		})
		doc.Embedding = vectors[i]
		docs[i] = doc
	}

	if err := m.store.Add(ctx, docs); err != nil {
		return fmt.Errorf("store facts: %w", err)
	}

	m.mu.Lock()
	for _, doc := range docs {
		m.ids = append(m.ids, doc.ID)
		m.facts = append(m.facts, doc.Content)
	}
	m.mu.Unlock()

	m.logger.Debug("stored %d semantic facts", len(docs))
	return nil
}

// GetContext returns up to limit stored facts similar to the query, as
// system messages.
func (m *SemanticMemory) GetContext(ctx context.Context, query string, limit int) ([]Message, error) {
	if query == "" || limit <= 0 {
		return nil, nil
	}

	vector, err := m.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := m.store.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}

	msgs := make([]Message, 0, len(results))
	for _, res := range results {
		msg := NewMessage(RoleSystem, res.Document.Content)
		msg.Metadata = map[string]any{"score": res.Score, "kind": "fact"}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Facts lists every stored fact in insertion order.
func (m *SemanticMemory) Facts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.facts))
	copy(out, m.facts)
	return out
}

// Clear removes all stored facts.
func (m *SemanticMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	ids := m.ids
	m.ids = nil
	m.facts = nil
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	return m.store.Delete(ctx, ids)
}

// Stats reports the number of stored facts.
func (m *SemanticMemory) Stats(ctx context.Context) (Stats, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{MessageCount: stats.DocumentCount}, nil
}

func (m *SemanticMemory) extractFacts(ctx context.Context, content string) ([]string, error) {
	prompt := fmt.Sprintf(extractionPrompt, content)
	reply, err := llm.GenerateText(ctx, m.model, prompt)
	if err != nil {
		return nil, err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "NONE") {
		return nil, nil
	}

	var facts []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line == "" || strings.EqualFold(line, "NONE") {
			continue
		}
		facts = append(facts, line)
	}
	return facts, nil
}
