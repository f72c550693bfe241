package agent

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/tool"
)

const webSearchSystemPrompt = "You are a helpful assistant with access to web search. " +
	"Use the web_search tool for questions about current events, recent facts or anything outside your knowledge. " +
	"Cite the sources you used in your answer."

// WebSearchAgent answers questions using a model plus Tavily web search.
type WebSearchAgent struct {
	react *ReactAgent
}

// NewWebSearchAgent creates a web search agent. The apiKey falls back to
// the TAVILY_API_KEY environment variable.
func NewWebSearchAgent(model llm.Model, apiKey string, opts ...ReactOption) (*WebSearchAgent, error) {
	search, err := tool.NewTavilySearch(apiKey, tool.WithTavilyMaxResults(5))
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	return NewWebSearchAgentWithTool(model, search, opts...)
}

// NewWebSearchAgentWithTool creates a web search agent over an explicit
// search tool, useful for testing.
func NewWebSearchAgentWithTool(model llm.Model, search tools.Tool, opts ...ReactOption) (*WebSearchAgent, error) {
	react, err := NewReactAgent(model, []tools.Tool{search}, opts...)
	if err != nil {
		return nil, err
	}
	return &WebSearchAgent{react: react}, nil
}

// Ask answers a single question, searching the web as needed.
func (a *WebSearchAgent) Ask(ctx context.Context, question string) (string, error) {
	return a.react.Run(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, webSearchSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	})
}
