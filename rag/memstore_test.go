package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedDoc(content string, vector []float32, metadata map[string]any) Document {
	doc := NewDocument(content, metadata)
	doc.Embedding = vector
	return doc
}

func TestMemoryStoreSearchRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVectorStore()

	require.NoError(t, store.Add(ctx, []Document{
		embeddedDoc("exact", []float32{1, 0}, nil),
		embeddedDoc("orthogonal", []float32{0, 1}, nil),
		embeddedDoc("close", []float32{0.9, 0.1}, nil),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact", results[0].Document.Content)
	assert.Equal(t, "close", results[1].Document.Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreSearchWithFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVectorStore()

	require.NoError(t, store.Add(ctx, []Document{
		embeddedDoc("a", []float32{1, 0}, map[string]any{"source": "x"}),
		embeddedDoc("b", []float32{1, 0}, map[string]any{"source": "y"}),
	}))

	results, err := store.SearchWithFilter(ctx, []float32{1, 0}, 10, map[string]any{"source": "y"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Document.Content)
}

func TestMemoryStoreRejectsMissingEmbedding(t *testing.T) {
	store := NewMemoryVectorStore()
	err := store.Add(context.Background(), []Document{NewDocument("no vector", nil)})
	assert.Error(t, err)
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVectorStore()

	require.NoError(t, store.Add(ctx, []Document{embeddedDoc("a", []float32{1, 0}, nil)}))

	err := store.Add(ctx, []Document{embeddedDoc("b", []float32{1, 0, 0}, nil)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryStoreDeleteAndStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryVectorStore()

	doc := embeddedDoc("a", []float32{1, 0}, nil)
	require.NoError(t, store.Add(ctx, []Document{doc}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 2, stats.Dimensions)

	require.NoError(t, store.Delete(ctx, []string{doc.ID, "unknown"}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}
