package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/log"
)

const mcpSystemPrompt = "You are a helpful assistant. Use the available tools when they can help answer the user's question."

// MCPAgent connects to an MCP server over streamable HTTP, exposes the
// server's tools to the model and answers questions through the
// tool-calling loop.
type MCPAgent struct {
	session *mcp.ClientSession
	react   *ReactAgent
	logger  log.Logger
}

// NewMCPAgent connects to the MCP server at endpoint and lists its tools.
func NewMCPAgent(ctx context.Context, model llm.Model, endpoint string, opts ...ReactOption) (*MCPAgent, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "chatstack", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to MCP server %s: %w", endpoint, err)
	}

	listed, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("list MCP tools: %w", err)
	}

	wrapped := make([]tools.Tool, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		wrapped = append(wrapped, &mcpTool{
			session:     session,
			name:        t.Name,
			description: t.Description,
		})
	}

	react, err := NewReactAgent(model, wrapped, opts...)
	if err != nil {
		session.Close()
		return nil, err
	}

	return &MCPAgent{
		session: session,
		react:   react,
		logger:  log.GetDefaultLogger(),
	}, nil
}

// Tools returns the names of the server's tools.
func (a *MCPAgent) Tools() []string {
	names := make([]string, 0, len(a.react.tools))
	for name := range a.react.tools {
		names = append(names, name)
	}
	return names
}

// Ask answers a question, calling MCP tools as needed.
func (a *MCPAgent) Ask(ctx context.Context, question string) (string, error) {
	return a.react.Run(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, mcpSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	})
}

// Close shuts down the MCP session.
func (a *MCPAgent) Close() error {
	return a.session.Close()
}

// mcpTool adapts one MCP server tool to the tools.Tool interface.
type mcpTool struct {
	session     *mcp.ClientSession
	name        string
	description string
}

var _ tools.Tool = (*mcpTool)(nil)

func (t *mcpTool) Name() string {
	return t.name
}

func (t *mcpTool) Description() string {
	return t.description
}

// Call invokes the tool on the server. JSON input is passed through as
// structured arguments; plain text is wrapped as {"input": text}.
func (t *mcpTool) Call(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		args = map[string]any{"input": input}
	}

	result, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call MCP tool %s: %w", t.name, err)
	}

	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", fmt.Errorf("MCP tool %s failed: %s", t.name, sb.String())
	}
	return sb.String(), nil
}
