package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"

	"github.com/tomhall/chatstack/memory"
)

// scriptedModel replays a fixed sequence of responses.
type scriptedModel struct {
	responses []*llms.ContentResponse
	calls     [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls = append(m.calls, messages)
	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   id,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      name,
				Arguments: args,
			},
		}},
	}}}
}

// echoTool records its input and returns a canned result.
type echoTool struct {
	name   string
	result string
	inputs []string
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "echoes input" }
func (t *echoTool) Call(ctx context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	return t.result, nil
}

func TestReactAgentDirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		textResponse("direct answer"),
	}}

	a, err := NewReactAgent(model, nil)
	require.NoError(t, err)

	out, err := a.Run(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "direct answer", out)
	assert.Len(t, model.calls, 1)
}

func TestReactAgentExecutesToolThenAnswers(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "lookup", `{"input":"go release date"}`),
		textResponse("it shipped in February"),
	}}
	lookup := &echoTool{name: "lookup", result: "Go 1.24 shipped February 2025"}

	a, err := NewReactAgent(model, []tools.Tool{lookup})
	require.NoError(t, err)

	out, err := a.Run(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "when did go ship?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "it shipped in February", out)
	require.Len(t, lookup.inputs, 1)
	assert.Equal(t, "go release date", lookup.inputs[0])

	// Second model call sees the tool response.
	require.Len(t, model.calls, 2)
	second := model.calls[1]
	last := second[len(second)-1]
	assert.Equal(t, llms.ChatMessageTypeTool, last.Role)
}

func TestReactAgentUnknownToolReportsError(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "missing", `{"input":"x"}`),
		textResponse("sorry"),
	}}

	a, err := NewReactAgent(model, nil)
	require.NoError(t, err)

	out, err := a.Run(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "q"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sorry", out)

	second := model.calls[1]
	last := second[len(second)-1]
	resp := last.Parts[0].(llms.ToolCallResponse)
	assert.Contains(t, resp.Content, "unknown tool")
}

func TestReactAgentMaxIterations(t *testing.T) {
	// Model always asks for another tool call.
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "loop", `{"input":"again"}`),
	}}
	loop := &echoTool{name: "loop", result: "keep going"}

	a, err := NewReactAgent(model, []tools.Tool{loop}, WithMaxIterations(2))
	require.NoError(t, err)

	out, err := a.Run(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "q"),
	})
	require.NoError(t, err)
	assert.Equal(t, maxIterationsMessage, out)
	assert.Len(t, model.calls, 2)
}

func newTestManager() *memory.Manager {
	return memory.NewManager(memory.NewConversationMemory(), nil)
}

func TestChatAgentSendRecordsBothTurns(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		textResponse("hi there"),
	}}
	mgr := newTestManager()

	a := NewChatAgent(model, mgr)
	reply, err := a.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	stats, err := mgr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Conversation.MessageCount)
}

func TestChatAgentPromptIncludesHistory(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		textResponse("first reply"),
		textResponse("second reply"),
	}}
	mgr := newTestManager()
	a := NewChatAgent(model, mgr)

	_, err := a.Send(context.Background(), "first question")
	require.NoError(t, err)
	_, err = a.Send(context.Background(), "second question")
	require.NoError(t, err)

	require.Len(t, model.calls, 2)
	second := model.calls[1]
	// system + first question + first reply + second question
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, second[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, second[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, second[2].Role)
}

func TestChatAgentStyleSystemPrompt(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		textResponse("ok"),
	}}
	a := NewChatAgent(model, newTestManager(), WithStyle("technical"))

	_, err := a.Send(context.Background(), "explain mutexes")
	require.NoError(t, err)

	first := model.calls[0][0]
	text := first.Parts[0].(llms.TextContent).Text
	assert.Contains(t, text, "technical")
}

func TestChatAgentSessionID(t *testing.T) {
	a := NewChatAgent(&scriptedModel{responses: []*llms.ContentResponse{textResponse("ok")}}, newTestManager())
	assert.NotEmpty(t, a.SessionID())

	b := NewChatAgent(&scriptedModel{responses: []*llms.ContentResponse{textResponse("ok")}}, newTestManager(), WithSessionID("fixed"))
	assert.Equal(t, "fixed", b.SessionID())
}

func TestWebSearchAgent(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("call_1", "web_search", `{"input":"latest news"}`),
		textResponse("here is the news"),
	}}
	search := &echoTool{name: "web_search", result: "1. Headline"}

	a, err := NewWebSearchAgentWithTool(model, search)
	require.NoError(t, err)

	out, err := a.Ask(context.Background(), "what's the latest news?")
	require.NoError(t, err)
	assert.Equal(t, "here is the news", out)
	assert.Equal(t, []string{"latest news"}, search.inputs)
}
