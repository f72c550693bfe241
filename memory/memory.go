// Package memory implements short-term conversation memory, long-term
// semantic memory and a manager that fans writes out to both and merges
// their context back for prompting.
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// Roles used in stored messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TokenCount int            `json:"token_count,omitempty"`
}

// NewMessage creates a message with a fresh ID, timestamp and token count.
func NewMessage(role, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       role,
		Content:    content,
		Timestamp:  time.Now(),
		TokenCount: CountTokens(content),
	}
}

// Stats summarizes the state of a memory.
type Stats struct {
	MessageCount int `json:"message_count"`
	TokenCount   int `json:"token_count"`
}

// Memory is the interface shared by conversation and semantic memory.
type Memory interface {
	AddMessage(ctx context.Context, msg Message) error
	GetContext(ctx context.Context, query string, limit int) ([]Message, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (Stats, error)
}

// tokenEncodingName is the cl100k_base encoding used by recent OpenAI
// chat models.
const tokenEncodingName = "cl100k_base"

// CountTokens counts tokens with tiktoken, falling back to a rough
// 4-characters-per-token estimate if the encoding cannot be loaded.
func CountTokens(text string) int {
	enc, err := tiktoken.GetEncoding(tokenEncodingName)
	if err != nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
