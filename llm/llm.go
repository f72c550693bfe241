// Package llm defines the model-facing conventions shared by the chatstack
// agents: generation settings, response styles and small helpers on top of
// the langchaingo llms.Model abstraction.
package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Model is the chat model abstraction used across chatstack.
// It is langchaingo's llms.Model; providers live in subpackages.
type Model = llms.Model

// Style selects the assistant's response register. Each style maps to a
// system prompt; StyleBalanced falls back to a custom prompt when provided.
type Style string

const (
	StyleProfessional Style = "professional"
	StyleCasual       Style = "casual"
	StyleCreative     Style = "creative"
	StyleTechnical    Style = "technical"
	StyleBalanced     Style = "balanced"
)

var stylePrompts = map[Style]string{
	StyleProfessional: "You are a professional AI assistant. Provide formal, detailed, and well-structured responses suitable for business contexts.",
	StyleCasual:       "You are a friendly and casual AI assistant. Use conversational language and be approachable in your responses.",
	StyleCreative:     "You are a creative AI assistant. Provide imaginative, engaging responses with varied perspectives and creative insights.",
	StyleTechnical:    "You are a technical AI assistant. Provide precise, detailed explanations with technical accuracy and clarity.",
	StyleBalanced:     "You are a helpful AI assistant. Provide clear, concise, and friendly responses.",
}

// SystemPrompt returns the system prompt for a style. For StyleBalanced (or
// an unknown style) a non-empty custom prompt takes precedence.
func SystemPrompt(style Style, custom string) string {
	if prompt, ok := stylePrompts[style]; ok && style != StyleBalanced {
		return prompt
	}
	if custom != "" {
		return custom
	}
	return stylePrompts[StyleBalanced]
}

// Settings holds per-request generation parameters.
type Settings struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultSettings returns the default generation settings.
func DefaultSettings() Settings {
	return Settings{
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   2000,
		TopP:        1.0,
	}
}

// CallOptions converts the settings into langchaingo call options.
func (s Settings) CallOptions() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithModel(s.Model),
		llms.WithTemperature(s.Temperature),
		llms.WithMaxTokens(s.MaxTokens),
	}
	if s.TopP > 0 {
		opts = append(opts, llms.WithTopP(s.TopP))
	}
	if s.FrequencyPenalty != 0 {
		opts = append(opts, llms.WithFrequencyPenalty(s.FrequencyPenalty))
	}
	if s.PresencePenalty != 0 {
		opts = append(opts, llms.WithPresencePenalty(s.PresencePenalty))
	}
	return opts
}

// GenerateText runs a single-prompt completion and returns the text.
func GenerateText(ctx context.Context, model Model, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, model, prompt, options...)
}

// ContentOf extracts the text of the first choice of a model response.
func ContentOf(resp *llms.ContentResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Content
}
