// Package agent builds chat agents on top of the state graph: a plain
// conversational agent with memory, a tool-calling loop, a web search
// agent and an MCP-backed agent.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/tomhall/chatstack/graph"
	"github.com/tomhall/chatstack/log"
)

// DefaultMaxIterations bounds the tool-calling loop.
const DefaultMaxIterations = 10

// maxIterationsMessage is returned when the loop hits its bound without
// the model producing a final answer.
const maxIterationsMessage = "I wasn't able to finish within the allowed number of steps. Please try a simpler question."

// ReactAgent runs a model in a loop, executing requested tool calls and
// feeding results back until the model answers without tools.
type ReactAgent struct {
	model         llms.Model
	tools         map[string]tools.Tool
	toolDefs      []llms.Tool
	maxIterations int
	logger        log.Logger
	runnable      *graph.Runnable[map[string]any]
}

// ReactOption configures a ReactAgent.
type ReactOption func(*ReactAgent)

// WithMaxIterations bounds the tool loop.
func WithMaxIterations(max int) ReactOption {
	return func(a *ReactAgent) {
		if max > 0 {
			a.maxIterations = max
		}
	}
}

// WithReactLogger sets the logger.
func WithReactLogger(logger log.Logger) ReactOption {
	return func(a *ReactAgent) {
		a.logger = logger
	}
}

// NewReactAgent builds the agent graph: the agent node calls the model
// with tool definitions; a conditional edge routes to the tools node when
// the model requested calls, and to END otherwise.
func NewReactAgent(model llms.Model, toolList []tools.Tool, opts ...ReactOption) (*ReactAgent, error) {
	a := &ReactAgent{
		model:         model,
		tools:         make(map[string]tools.Tool, len(toolList)),
		maxIterations: DefaultMaxIterations,
		logger:        log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, t := range toolList {
		a.tools[t.Name()] = t
		a.toolDefs = append(a.toolDefs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"input": map[string]any{
							"type":        "string",
							"description": "The input query for the tool",
						},
					},
					"required":             []string{"input"},
					"additionalProperties": false,
				},
			},
		})
	}

	schema := graph.NewMapSchema()
	schema.RegisterReducer("messages", graph.AppendReducer)

	g := graph.NewStateGraph[map[string]any]()
	g.SetSchema(schema)
	g.AddNode("agent", "decide next action", a.agentNode)
	g.AddNode("tools", "execute requested tools", a.toolsNode)
	g.SetEntryPoint("agent")
	g.AddConditionalEdge("agent", a.route)
	g.AddEdge("tools", "agent")

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile react graph: %w", err)
	}
	a.runnable = runnable

	return a, nil
}

// Run executes the loop for the given conversation and returns the final
// assistant text.
func (a *ReactAgent) Run(ctx context.Context, messages []llms.MessageContent) (string, error) {
	out, err := a.runnable.Invoke(ctx, map[string]any{
		"messages": messages,
	})
	if err != nil {
		return "", err
	}

	final, ok := out["messages"].([]llms.MessageContent)
	if !ok || len(final) == 0 {
		return "", fmt.Errorf("react agent produced no messages")
	}

	last := final[len(final)-1]
	for _, part := range last.Parts {
		if text, ok := part.(llms.TextContent); ok {
			return text.Text, nil
		}
	}
	return "", nil
}

func (a *ReactAgent) agentNode(ctx context.Context, state map[string]any) (map[string]any, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok {
		return nil, fmt.Errorf("messages key not found or invalid type")
	}

	iteration, _ := state["iteration_count"].(int)
	if iteration >= a.maxIterations {
		return map[string]any{
			"messages": []llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeAI, maxIterationsMessage),
			},
		}, nil
	}

	opts := []llms.CallOption{}
	if len(a.toolDefs) > 0 {
		opts = append(opts, llms.WithTools(a.toolDefs))
	}

	resp, err := a.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	choice := resp.Choices[0]

	aiMsg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		aiMsg.Parts = append(aiMsg.Parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		aiMsg.Parts = append(aiMsg.Parts, tc)
	}

	return map[string]any{
		"messages":        []llms.MessageContent{aiMsg},
		"iteration_count": iteration + 1,
	}, nil
}

func (a *ReactAgent) toolsNode(ctx context.Context, state map[string]any) (map[string]any, error) {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return nil, fmt.Errorf("messages key not found or invalid type")
	}

	last := messages[len(messages)-1]
	if last.Role != llms.ChatMessageTypeAI {
		return nil, fmt.Errorf("last message is not an AI message")
	}

	var toolMessages []llms.MessageContent
	for _, part := range last.Parts {
		tc, ok := part.(llms.ToolCall)
		if !ok {
			continue
		}

		result, err := a.execute(ctx, tc)
		if err != nil {
			result = fmt.Sprintf("Error: %v", err)
		}

		toolMessages = append(toolMessages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    result,
				},
			},
		})
	}

	return map[string]any{"messages": toolMessages}, nil
}

func (a *ReactAgent) execute(ctx context.Context, tc llms.ToolCall) (string, error) {
	t, ok := a.tools[tc.FunctionCall.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", tc.FunctionCall.Name)
	}

	// Tools take a single string input; unwrap {"input": ...} arguments
	// and fall back to the raw argument string.
	input := tc.FunctionCall.Arguments
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err == nil {
		if v, ok := args["input"].(string); ok {
			input = v
		}
	}

	a.logger.Debug("calling tool %s with input %q", tc.FunctionCall.Name, input)
	return t.Call(ctx, input)
}

func (a *ReactAgent) route(ctx context.Context, state map[string]any) string {
	messages, ok := state["messages"].([]llms.MessageContent)
	if !ok || len(messages) == 0 {
		return graph.END
	}

	last := messages[len(messages)-1]
	for _, part := range last.Parts {
		if _, ok := part.(llms.ToolCall); ok {
			return "tools"
		}
	}
	return graph.END
}
