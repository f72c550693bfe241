package loader

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tomhall/chatstack/rag"
)

// WebLoader fetches a web page and extracts its visible text.
type WebLoader struct {
	url    string
	client *http.Client
}

var _ rag.Loader = (*WebLoader)(nil)

// WebOption configures a WebLoader.
type WebOption func(*WebLoader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) WebOption {
	return func(l *WebLoader) {
		l.client = client
	}
}

// NewWebLoader creates a loader for the given URL.
func NewWebLoader(url string, opts ...WebOption) *WebLoader {
	l := &WebLoader{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches the page, strips scripts and styles and returns the page
// text as a single document with title metadata.
func (l *WebLoader) Load(ctx context.Context) ([]rag.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", l.url, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", l.url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.url, err)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		return nil, fmt.Errorf("no text content at %s", l.url)
	}

	out := rag.NewDocument(text, map[string]any{
		"source": l.url,
		"type":   "web",
		"title":  title,
	})
	return []rag.Document{out}, nil
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
