package rag

import (
	"strings"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1500

	// DefaultChunkOverlap is the number of characters carried between
	// adjacent chunks.
	DefaultChunkOverlap = 200
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// RecursiveSplitter splits text on a separator hierarchy, preferring
// paragraph boundaries and degrading to sentence, word and finally
// character splits for long runs of unbroken text.
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// SplitterOption configures a RecursiveSplitter.
type SplitterOption func(*RecursiveSplitter)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) SplitterOption {
	return func(s *RecursiveSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks.
func WithChunkOverlap(overlap int) SplitterOption {
	return func(s *RecursiveSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators overrides the separator hierarchy.
func WithSeparators(separators []string) SplitterOption {
	return func(s *RecursiveSplitter) {
		s.separators = separators
	}
}

// NewRecursiveSplitter creates a splitter with the default 1500/200
// chunking parameters.
func NewRecursiveSplitter(opts ...SplitterOption) *RecursiveSplitter {
	s := &RecursiveSplitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   defaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkOverlap >= s.chunkSize {
		s.chunkOverlap = s.chunkSize / 10
	}
	return s
}

// SplitText splits a single text into chunks.
func (s *RecursiveSplitter) SplitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// SplitDocuments splits each document, copying its metadata to every chunk
// and annotating chunk index, chunk count and the parent document ID.
func (s *RecursiveSplitter) SplitDocuments(docs []Document) []Document {
	var out []Document
	for _, doc := range docs {
		chunks := s.SplitText(doc.Content)
		for i, chunk := range chunks {
			meta := make(map[string]any, len(doc.Metadata)+3)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = i
			meta["chunk_total"] = len(chunks)
			meta["parent_id"] = doc.ID
			out = append(out, NewDocument(chunk, meta))
		}
	}
	return out
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.hardSplit(text)
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return s.split(text, rest)
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
	}

	for _, part := range parts {
		piece := part
		if current.Len() > 0 {
			piece = sep + part
		}

		if current.Len()+len(piece) > s.chunkSize && current.Len() > 0 {
			flush()
			// Carry the overlap tail into the next chunk.
			if s.chunkOverlap > 0 && len(chunks) > 0 {
				prev := chunks[len(chunks)-1]
				if len(prev) > s.chunkOverlap {
					prev = prev[len(prev)-s.chunkOverlap:]
				}
				current.WriteString(prev)
				piece = sep + part
			} else {
				piece = part
			}
		}

		if len(piece) > s.chunkSize {
			flush()
			chunks = append(chunks, s.split(strings.TrimSpace(piece), rest)...)
			continue
		}

		current.WriteString(piece)
	}
	flush()

	return chunks
}

// hardSplit chops text at fixed offsets, the last resort when no
// separator produces chunks under the size limit.
func (s *RecursiveSplitter) hardSplit(text string) []string {
	var chunks []string
	step := s.chunkSize - s.chunkOverlap
	if step <= 0 {
		step = s.chunkSize
	}
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
