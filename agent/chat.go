package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/log"
	"github.com/tomhall/chatstack/memory"
)

// ChatAgent is a conversational agent with memory. Each turn it merges
// recalled facts and recent conversation into the prompt, generates a
// reply and records both sides of the exchange.
type ChatAgent struct {
	model     llm.Model
	manager   *memory.Manager
	style     llm.Style
	custom    string
	settings  llm.Settings
	logger    log.Logger
	sessionID string
}

// ChatOption configures a ChatAgent.
type ChatOption func(*ChatAgent)

// WithStyle sets the response style.
func WithStyle(style llm.Style) ChatOption {
	return func(a *ChatAgent) {
		a.style = style
	}
}

// WithCustomPrompt sets a custom system prompt, used with the balanced
// style.
func WithCustomPrompt(prompt string) ChatOption {
	return func(a *ChatAgent) {
		a.custom = prompt
	}
}

// WithChatSettings overrides the generation settings.
func WithChatSettings(settings llm.Settings) ChatOption {
	return func(a *ChatAgent) {
		a.settings = settings
	}
}

// WithChatLogger sets the logger.
func WithChatLogger(logger log.Logger) ChatOption {
	return func(a *ChatAgent) {
		a.logger = logger
	}
}

// WithSessionID pins the session ID instead of generating one.
func WithSessionID(id string) ChatOption {
	return func(a *ChatAgent) {
		a.sessionID = id
	}
}

// NewChatAgent creates a chat agent over a model and a memory manager.
func NewChatAgent(model llm.Model, manager *memory.Manager, opts ...ChatOption) *ChatAgent {
	a := &ChatAgent{
		model:     model,
		manager:   manager,
		style:     llm.StyleBalanced,
		settings:  llm.DefaultSettings(),
		logger:    log.GetDefaultLogger(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SessionID returns the agent's session identifier.
func (a *ChatAgent) SessionID() string {
	return a.sessionID
}

// Send processes one user turn and returns the assistant's reply.
func (a *ChatAgent) Send(ctx context.Context, text string) (string, error) {
	return a.send(ctx, text, nil)
}

// Stream processes one user turn, forwarding reply chunks to fn as they
// arrive, and returns the full reply.
func (a *ChatAgent) Stream(ctx context.Context, text string, fn func(ctx context.Context, chunk []byte) error) (string, error) {
	return a.send(ctx, text, fn)
}

func (a *ChatAgent) send(ctx context.Context, text string, streamFn func(ctx context.Context, chunk []byte) error) (string, error) {
	prompt, err := a.buildPrompt(ctx, text)
	if err != nil {
		return "", err
	}

	opts := a.settings.CallOptions()
	if streamFn != nil {
		opts = append(opts, llms.WithStreamingFunc(streamFn))
	}

	resp, err := a.model.GenerateContent(ctx, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply := llm.ContentOf(resp)

	if err := a.manager.AddMessage(ctx, memory.NewMessage(memory.RoleUser, text)); err != nil {
		return "", fmt.Errorf("record user turn: %w", err)
	}
	if err := a.manager.AddMessage(ctx, memory.NewMessage(memory.RoleAssistant, reply)); err != nil {
		return "", fmt.Errorf("record assistant turn: %w", err)
	}

	return reply, nil
}

// buildPrompt assembles the system prompt, recalled facts, recent turns
// and the new user message. Recalled facts appear as a single system
// message prefixed "Relevant context:" so they cannot be mistaken for
// dialogue.
func (a *ChatAgent) buildPrompt(ctx context.Context, text string) ([]llms.MessageContent, error) {
	out := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, llm.SystemPrompt(a.style, a.custom)),
	}

	unified, err := a.manager.GetUnifiedContext(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("memory context: %w", err)
	}

	var facts string
	for _, msg := range unified {
		switch msg.Role {
		case memory.RoleSystem:
			if facts != "" {
				facts += "\n"
			}
			facts += "- " + msg.Content
		case memory.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case memory.RoleAssistant:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		}
	}
	if facts != "" {
		// Insert after the style prompt, before the dialogue.
		withFacts := make([]llms.MessageContent, 0, len(out)+1)
		withFacts = append(withFacts, out[0])
		withFacts = append(withFacts, llms.TextParts(llms.ChatMessageTypeSystem, "Relevant context:\n"+facts))
		withFacts = append(withFacts, out[1:]...)
		out = withFacts
	}

	out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, text))
	return out, nil
}
