// Package loader provides document loaders for text files, PDFs and
// web pages.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tomhall/chatstack/rag"
)

// TextLoader loads a plain text or markdown file as a single document.
type TextLoader struct {
	path string
}

var _ rag.Loader = (*TextLoader)(nil)

// NewTextLoader creates a loader for the given file path.
func NewTextLoader(path string) *TextLoader {
	return &TextLoader{path: path}
}

// Load reads the file and returns one document with source metadata.
func (l *TextLoader) Load(ctx context.Context) ([]rag.Document, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	doc := rag.NewDocument(string(data), map[string]any{
		"source": filepath.Base(l.path),
		"type":   "text",
	})
	return []rag.Document{doc}, nil
}

// ReaderLoader loads a document from an io.Reader, useful for uploads
// where no file path exists.
type ReaderLoader struct {
	r      io.Reader
	source string
}

var _ rag.Loader = (*ReaderLoader)(nil)

// NewReaderLoader creates a loader over r, tagging documents with source.
func NewReaderLoader(r io.Reader, source string) *ReaderLoader {
	return &ReaderLoader{r: r, source: source}
}

// Load reads the stream and returns one document.
func (l *ReaderLoader) Load(ctx context.Context) ([]rag.Document, error) {
	data, err := io.ReadAll(l.r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.source, err)
	}

	doc := rag.NewDocument(string(data), map[string]any{
		"source": l.source,
		"type":   "text",
	})
	return []rag.Document{doc}, nil
}
