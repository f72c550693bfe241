// Package rag provides the retrieval-augmented generation pipeline:
// document loading, chunking, embedding, vector search and a graph-driven
// question answering workflow.
package rag

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document is a chunk of text with metadata and an optional embedding.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewDocument creates a document with a fresh ID and timestamps.
func NewDocument(content string, metadata map[string]any) Document {
	now := time.Now()
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return Document{
		ID:        uuid.NewString(),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Loader reads raw documents from some source. Implementations live in
// the loader subpackage.
type Loader interface {
	Load(ctx context.Context) ([]Document, error)
}

// TextSplitter splits documents into retrievable chunks.
type TextSplitter interface {
	SplitDocuments(docs []Document) []Document
}

// Embedder turns text into vectors.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore holds embedded documents and answers similarity queries.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)
	SearchWithFilter(ctx context.Context, vector []float32, k int, filter map[string]any) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

// StoreStats reports the state of a vector store.
type StoreStats struct {
	DocumentCount int `json:"document_count"`
	Dimensions    int `json:"dimensions"`
}

// Retriever finds documents relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]SearchResult, error)
}
