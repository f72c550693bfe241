package rag

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a query vector's dimensionality
// does not match the stored documents.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// MemoryVectorStore is an in-memory vector store using cosine similarity.
// It is safe for concurrent use.
type MemoryVectorStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	dims int
}

var _ VectorStore = (*MemoryVectorStore)(nil)

// NewMemoryVectorStore creates an empty in-memory vector store.
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{docs: make(map[string]Document)}
}

// Add stores documents. Documents without an embedding are rejected.
func (s *MemoryVectorStore) Add(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			return errors.New("document has no embedding: " + doc.ID)
		}
		if s.dims == 0 {
			s.dims = len(doc.Embedding)
		} else if len(doc.Embedding) != s.dims {
			return ErrDimensionMismatch
		}
		s.docs[doc.ID] = doc
	}
	return nil
}

// Search returns the k most similar documents by cosine similarity.
func (s *MemoryVectorStore) Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	return s.SearchWithFilter(ctx, vector, k, nil)
}

// SearchWithFilter returns the k most similar documents whose metadata
// matches every key in the filter.
func (s *MemoryVectorStore) SearchWithFilter(ctx context.Context, vector []float32, k int, filter map[string]any) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims != 0 && len(vector) != s.dims {
		return nil, ErrDimensionMismatch
	}

	results := make([]SearchResult, 0, len(s.docs))
	for _, doc := range s.docs {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		results = append(results, SearchResult{
			Document: doc,
			Score:    CosineSimilarity(vector, doc.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (s *MemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

// Stats reports document count and embedding dimensionality.
func (s *MemoryVectorStore) Stats(ctx context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStats{DocumentCount: len(s.docs), Dimensions: s.dims}, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryVectorStore) Close() error {
	return nil
}

func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Mismatched or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
