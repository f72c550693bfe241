// Package openai implements the langchaingo llms.Model interface on top of
// the sashabaranov/go-openai client, including tool calling and streaming.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

var (
	// ErrEmptyResponse is returned when the API produced no choices.
	ErrEmptyResponse = errors.New("no response")

	// ErrMissingAPIKey is returned when no API key could be resolved.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")
)

// DefaultModel is used when no model is configured or requested.
const DefaultModel = "gpt-4o-mini"

// LLM is a chat model backed by the OpenAI chat completions API.
type LLM struct {
	client *goopenai.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New creates a new OpenAI LLM.
//
// Authentication options:
//  1. WithAPIKey(apiKey) - pass the key directly
//  2. Set the OPENAI_API_KEY environment variable
func New(opts ...Option) (*LLM, error) {
	o := &options{
		apiKey: getEnvOrDefault("OPENAI_API_KEY", ""),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &LLM{
		client: goopenai.NewClientWithConfig(cfg),
		model:  o.model,
	}, nil
}

// Call generates a response for a single prompt.
func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent implements the llms.Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	req := goopenai.ChatCompletionRequest{
		Model:            o.modelFor(opts),
		Messages:         convertMessages(messages),
		Temperature:      float32(opts.Temperature),
		TopP:             float32(opts.TopP),
		MaxTokens:        opts.MaxTokens,
		FrequencyPenalty: float32(opts.FrequencyPenalty),
		PresencePenalty:  float32(opts.PresencePenalty),
		Tools:            convertTools(opts.Tools),
	}

	if opts.StreamingFunc != nil {
		return o.generateStreaming(ctx, req, opts.StreamingFunc)
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choices := make([]*llms.ContentChoice, len(resp.Choices))
	for i, c := range resp.Choices {
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: string(tc.Type),
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		if len(choice.ToolCalls) > 0 {
			choice.FuncCall = choice.ToolCalls[0].FunctionCall
		}
		choices[i] = choice
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

// generateStreaming consumes the streaming API, forwarding content chunks
// to fn as they arrive and returning the accumulated response.
func (o *LLM) generateStreaming(ctx context.Context, req goopenai.ChatCompletionRequest, fn func(ctx context.Context, chunk []byte) error) (*llms.ContentResponse, error) {
	req.Stream = true

	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	var finish string

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai chat stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		delta := resp.Choices[0].Delta.Content
		if delta != "" {
			content.WriteString(delta)
			if err := fn(ctx, []byte(delta)); err != nil {
				return nil, err
			}
		}
		if resp.Choices[0].FinishReason != "" {
			finish = string(resp.Choices[0].FinishReason)
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: content.String(), StopReason: finish},
		},
	}, nil
}

func (o *LLM) modelFor(opts *llms.CallOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	if o.model != "" {
		return o.model
	}
	return DefaultModel
}

// convertMessages maps langchaingo messages onto OpenAI chat messages,
// carrying tool calls and tool responses through both directions.
func convertMessages(messages []llms.MessageContent) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		m := goopenai.ChatCompletionMessage{Role: convertRole(msg.Role)}

		var text strings.Builder
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				text.WriteString(p.Text)
			case llms.ToolCall:
				m.ToolCalls = append(m.ToolCalls, goopenai.ToolCall{
					ID:   p.ID,
					Type: goopenai.ToolTypeFunction,
					Function: goopenai.FunctionCall{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				})
			case llms.ToolCallResponse:
				m.Role = goopenai.ChatMessageRoleTool
				m.ToolCallID = p.ToolCallID
				m.Name = p.Name
				text.WriteString(p.Content)
			}
		}
		m.Content = text.String()

		out = append(out, m)
	}

	return out
}

func convertRole(role llms.ChatMessageType) string {
	switch role {
	case llms.ChatMessageTypeSystem:
		return goopenai.ChatMessageRoleSystem
	case llms.ChatMessageTypeAI:
		return goopenai.ChatMessageRoleAssistant
	case llms.ChatMessageTypeTool:
		return goopenai.ChatMessageRoleTool
	default:
		return goopenai.ChatMessageRoleUser
	}
}

func convertTools(tools []llms.Tool) []goopenai.Tool {
	if len(tools) == 0 {
		return nil
	}

	out := make([]goopenai.Tool, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}
