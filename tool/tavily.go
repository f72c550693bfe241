// Package tool provides tools agents can call, following the langchaingo
// tools.Tool interface.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/tmc/langchaingo/tools"
)

// TavilySearch is a tool that uses the Tavily Search API to search the web.
type TavilySearch struct {
	APIKey      string
	BaseURL     string
	MaxResults  int
	SearchDepth string
	Client      *http.Client
}

var _ tools.Tool = (*TavilySearch)(nil)

type TavilyOption func(*TavilySearch)

// WithTavilyBaseURL sets the base URL for the Tavily Search API.
func WithTavilyBaseURL(baseURL string) TavilyOption {
	return func(t *TavilySearch) {
		t.BaseURL = baseURL
	}
}

// WithTavilyMaxResults sets the number of results to return (1-20).
func WithTavilyMaxResults(max int) TavilyOption {
	return func(t *TavilySearch) {
		if max < 1 {
			max = 1
		}
		if max > 20 {
			max = 20
		}
		t.MaxResults = max
	}
}

// WithTavilySearchDepth sets the search depth ("basic" or "advanced").
func WithTavilySearchDepth(depth string) TavilyOption {
	return func(t *TavilySearch) {
		t.SearchDepth = depth
	}
}

// WithTavilyHTTPClient sets a custom HTTP client.
func WithTavilyHTTPClient(client *http.Client) TavilyOption {
	return func(t *TavilySearch) {
		t.Client = client
	}
}

// NewTavilySearch creates a new TavilySearch tool.
// If apiKey is empty, it tries to read from TAVILY_API_KEY environment variable.
func NewTavilySearch(apiKey string, opts ...TavilyOption) (*TavilySearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY not set")
	}

	t := &TavilySearch{
		APIKey:      apiKey,
		BaseURL:     "https://api.tavily.com/search",
		MaxResults:  5,
		SearchDepth: "basic",
		Client:      http.DefaultClient,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Name returns the name of the tool.
func (t *TavilySearch) Name() string {
	return "web_search"
}

// Description returns the description of the tool.
func (t *TavilySearch) Description() string {
	return "Search the web for current information, news and facts. " +
		"Useful for questions about recent events or topics outside your knowledge. " +
		"Input should be a search query."
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Call executes the search and formats the results for the model.
func (t *TavilySearch) Call(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.APIKey,
		Query:       input,
		SearchDepth: t.SearchDepth,
		MaxResults:  t.MaxResults,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var result tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Results) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	if result.Answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\n", result.Answer)
	}
	for i, r := range result.Results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Content)
	}
	return strings.TrimSpace(sb.String()), nil
}
