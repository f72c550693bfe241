package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/tomhall/chatstack/rag"
)

// fakeExtractor returns a fixed extraction reply.
type fakeExtractor struct {
	reply string
	calls int
}

func (f *fakeExtractor) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeExtractor) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.calls++
	return f.reply, nil
}

// hashEmbedder maps distinct texts to deterministic vectors. Texts sharing
// a first word land near each other.
type hashEmbedder struct{}

func (hashEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	v := []float32{0, 0, 1}
	for i, c := range text {
		v[i%2] += float32(c) / 1000
	}
	return v, nil
}

func (e hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := e.EmbedDocument(ctx, t)
		out[i] = v
	}
	return out, nil
}

func TestSemanticMemoryStoresAndRecallsFacts(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{reply: "- The user's name is Ada.\n- The user prefers Go."}
	store := rag.NewMemoryVectorStore()

	m := NewSemanticMemory(model, hashEmbedder{}, store)

	require.NoError(t, m.AddMessage(ctx, NewMessage(RoleUser, "Hi, I'm Ada and I love Go")))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MessageCount)

	msgs, err := m.GetContext(ctx, "what is my name", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Equal(t, RoleSystem, msg.Role)
		assert.Equal(t, "fact", msg.Metadata["kind"])
	}

	facts := m.Facts()
	require.Len(t, facts, 2)
	assert.Equal(t, "The user's name is Ada.", facts[0])
}

func TestSemanticMemorySkipsAssistantMessages(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{reply: "- should never be stored"}
	m := NewSemanticMemory(model, hashEmbedder{}, rag.NewMemoryVectorStore())

	require.NoError(t, m.AddMessage(ctx, NewMessage(RoleAssistant, "sure, done")))
	assert.Equal(t, 0, model.calls)
}

func TestSemanticMemoryNoneReplyStoresNothing(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{reply: "NONE"}
	m := NewSemanticMemory(model, hashEmbedder{}, rag.NewMemoryVectorStore())

	require.NoError(t, m.AddMessage(ctx, NewMessage(RoleUser, "hmm")))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MessageCount)
}

func TestSemanticMemoryClear(t *testing.T) {
	ctx := context.Background()
	model := &fakeExtractor{reply: "The user likes tea."}
	m := NewSemanticMemory(model, hashEmbedder{}, rag.NewMemoryVectorStore())

	require.NoError(t, m.AddMessage(ctx, NewMessage(RoleUser, "I like tea")))
	require.NoError(t, m.Clear(ctx))

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.MessageCount)
}

func TestSemanticMemoryEmptyQuery(t *testing.T) {
	m := NewSemanticMemory(&fakeExtractor{}, hashEmbedder{}, rag.NewMemoryVectorStore())
	msgs, err := m.GetContext(context.Background(), "", 3)
	require.NoError(t, err)
	assert.Nil(t, msgs)
}
