package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortTextIsOneChunk(t *testing.T) {
	s := NewRecursiveSplitter()
	chunks := s.SplitText("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplitTextEmpty(t *testing.T) {
	s := NewRecursiveSplitter()
	assert.Nil(t, s.SplitText("   "))
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	paragraphs := make([]string, 20)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word ", 30)
	}
	text := strings.Join(paragraphs, "\n\n")

	s := NewRecursiveSplitter(WithChunkSize(300), WithChunkOverlap(50))
	chunks := s.SplitText(text)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 300+50)
	}
}

func TestSplitTextUnbrokenTextFallsBackToHardSplit(t *testing.T) {
	text := strings.Repeat("x", 1000)

	s := NewRecursiveSplitter(WithChunkSize(300), WithChunkOverlap(0))
	chunks := s.SplitText(text)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitDocumentsAnnotatesChunks(t *testing.T) {
	doc := NewDocument(strings.Repeat("sentence one. ", 100), map[string]any{"source": "report.txt"})

	s := NewRecursiveSplitter(WithChunkSize(200), WithChunkOverlap(20))
	chunks := s.SplitDocuments([]Document{doc})

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, "report.txt", chunk.Metadata["source"])
		assert.Equal(t, i, chunk.Metadata["chunk_index"])
		assert.Equal(t, len(chunks), chunk.Metadata["chunk_total"])
		assert.Equal(t, doc.ID, chunk.Metadata["parent_id"])
		assert.NotEqual(t, doc.ID, chunk.ID)
	}
}

func TestDefaultParameters(t *testing.T) {
	s := NewRecursiveSplitter()
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.chunkOverlap)
}
