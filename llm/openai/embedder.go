package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = goopenai.SmallEmbedding3

// Embedder produces vector embeddings via the OpenAI embeddings API.
type Embedder struct {
	client *goopenai.Client
	model  goopenai.EmbeddingModel
}

// NewEmbedder creates an embedder. It accepts the same options as New;
// WithModel selects the embedding model.
func NewEmbedder(opts ...Option) (*Embedder, error) {
	o := &options{
		apiKey: getEnvOrDefault("OPENAI_API_KEY", ""),
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

	model := DefaultEmbeddingModel
	if o.model != "" {
		model = goopenai.EmbeddingModel(o.model)
	}

	return &Embedder{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// EmbedDocument embeds a single text.
func (e *Embedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of texts, preserving input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
