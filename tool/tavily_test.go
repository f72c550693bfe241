package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTavilySearchRequiresKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	_, err := NewTavilySearch("")
	assert.Error(t, err)
}

func TestNewTavilySearchDefaults(t *testing.T) {
	ts, err := NewTavilySearch("key")
	require.NoError(t, err)
	assert.Equal(t, 5, ts.MaxResults)
	assert.Equal(t, "basic", ts.SearchDepth)
	assert.Equal(t, "web_search", ts.Name())
	assert.NotEmpty(t, ts.Description())
}

func TestTavilyMaxResultsClamped(t *testing.T) {
	ts, err := NewTavilySearch("key", WithTavilyMaxResults(100))
	require.NoError(t, err)
	assert.Equal(t, 20, ts.MaxResults)

	ts, err = NewTavilySearch("key", WithTavilyMaxResults(0))
	require.NoError(t, err)
	assert.Equal(t, 1, ts.MaxResults)
}

func TestTavilyCallFormatsResults(t *testing.T) {
	var gotReq tavilyRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]any{
			"answer": "Go 1.24 is the latest release.",
			"results": []map[string]any{
				{"title": "Go Blog", "url": "https://go.dev/blog", "content": "Release notes", "score": 0.9},
			},
		})
	}))
	defer srv.Close()

	ts, err := NewTavilySearch("key", WithTavilyBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := ts.Call(context.Background(), "latest go release")
	require.NoError(t, err)

	assert.Equal(t, "latest go release", gotReq.Query)
	assert.Equal(t, "key", gotReq.APIKey)
	assert.Equal(t, 5, gotReq.MaxResults)
	assert.Contains(t, out, "Go 1.24 is the latest release.")
	assert.Contains(t, out, "1. Go Blog")
	assert.Contains(t, out, "https://go.dev/blog")
}

func TestTavilyCallNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
	}))
	defer srv.Close()

	ts, err := NewTavilySearch("key", WithTavilyBaseURL(srv.URL))
	require.NoError(t, err)

	out, err := ts.Call(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
}

func TestTavilyCallErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ts, err := NewTavilySearch("key", WithTavilyBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = ts.Call(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
