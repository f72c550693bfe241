package loader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tomhall/chatstack/rag"
)

// PDFLoader extracts text from a PDF file, one document per page.
type PDFLoader struct {
	path string
}

var _ rag.Loader = (*PDFLoader)(nil)

// NewPDFLoader creates a loader for the given PDF path.
func NewPDFLoader(path string) *PDFLoader {
	return &PDFLoader{path: path}
}

// Load opens the PDF and returns one document per non-empty page, with
// source and page metadata.
func (l *PDFLoader) Load(ctx context.Context) ([]rag.Document, error) {
	f, reader, err := pdf.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", l.path, err)
	}
	defer f.Close()

	source := filepath.Base(l.path)
	var docs []rag.Document

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", pageNum, source, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		docs = append(docs, rag.NewDocument(text, map[string]any{
			"source": source,
			"type":   "pdf",
			"page":   pageNum,
		}))
	}

	return docs, nil
}

// PDFBytesLoader extracts text from in-memory PDF data, for uploads.
type PDFBytesLoader struct {
	data   []byte
	source string
}

var _ rag.Loader = (*PDFBytesLoader)(nil)

// NewPDFBytesLoader creates a loader over raw PDF bytes.
func NewPDFBytesLoader(data []byte, source string) *PDFBytesLoader {
	return &PDFBytesLoader{data: data, source: source}
}

// Load parses the PDF bytes and returns one document per non-empty page.
func (l *PDFBytesLoader) Load(ctx context.Context) ([]rag.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(l.data), int64(len(l.data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %w", l.source, err)
	}

	var docs []rag.Document
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", pageNum, l.source, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		docs = append(docs, rag.NewDocument(text, map[string]any{
			"source": l.source,
			"type":   "pdf",
			"page":   pageNum,
		}))
	}

	return docs, nil
}
