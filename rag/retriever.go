package rag

import (
	"context"
	"fmt"
)

// VectorRetriever retrieves documents from a vector store by embedding the
// query and running a similarity search.
type VectorRetriever struct {
	embedder Embedder
	store    VectorStore
	minScore float64
}

var _ Retriever = (*VectorRetriever)(nil)

// RetrieverOption configures a VectorRetriever.
type RetrieverOption func(*VectorRetriever)

// WithMinScore drops results scoring below the threshold.
func WithMinScore(score float64) RetrieverOption {
	return func(r *VectorRetriever) {
		r.minScore = score
	}
}

// NewVectorRetriever creates a retriever over the given embedder and store.
func NewVectorRetriever(embedder Embedder, store VectorStore, opts ...RetrieverOption) *VectorRetriever {
	r := &VectorRetriever{embedder: embedder, store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query and returns up to k similar documents.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]SearchResult, error) {
	vector, err := r.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if r.minScore > 0 {
		filtered := results[:0]
		for _, res := range results {
			if res.Score >= r.minScore {
				filtered = append(filtered, res)
			}
		}
		results = filtered
	}
	return results, nil
}

// Ingest splits, embeds and stores documents, returning the number of
// chunks written.
func Ingest(ctx context.Context, docs []Document, splitter TextSplitter, embedder Embedder, store VectorStore) (int, error) {
	chunks := splitter.SplitDocuments(docs)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}
