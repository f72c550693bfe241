// Package server exposes the chat, RAG and agent functionality over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tomhall/chatstack/agent"
	"github.com/tomhall/chatstack/graph"
	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/log"
	"github.com/tomhall/chatstack/memory"
	"github.com/tomhall/chatstack/rag"
	"github.com/tomhall/chatstack/render"
	"github.com/tomhall/chatstack/store"
)

// Server hosts the HTTP API. Construct with NewServer and mount Router.
type Server struct {
	model    llm.Model
	embedder rag.Embedder
	splitter rag.TextSplitter
	vectors  rag.VectorStore
	answerer *rag.Answerer
	sessions store.SessionStore
	renderer *render.Renderer
	logger   log.Logger

	webSearch *agent.WebSearchAgent
	mcp       *agent.MCPAgent

	newManager func() *memory.Manager

	mu     sync.RWMutex
	agents map[string]*agent.ChatAgent
}

// Options configures a Server. Model, Embedder and Sessions are required;
// the rest default sensibly.
type Options struct {
	Model    llm.Model
	Embedder rag.Embedder
	Sessions store.SessionStore

	Splitter rag.TextSplitter
	Vectors  rag.VectorStore
	Logger   log.Logger

	// WebSearch and MCP are optional; their endpoints return 503 when
	// unset.
	WebSearch *agent.WebSearchAgent
	MCP       *agent.MCPAgent

	// NewManager builds the per-session memory manager. Defaults to a
	// conversation buffer plus semantic memory over the shared model
	// and embedder.
	NewManager func() *memory.Manager
}

// NewServer wires the API. It builds the RAG answerer over the supplied
// splitter, embedder and vector store.
func NewServer(opts Options) (*Server, error) {
	if opts.Model == nil || opts.Embedder == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("model, embedder and session store are required")
	}

	s := &Server{
		model:     opts.Model,
		embedder:  opts.Embedder,
		splitter:  opts.Splitter,
		vectors:   opts.Vectors,
		sessions:  opts.Sessions,
		renderer:  render.NewRenderer(),
		logger:    opts.Logger,
		webSearch: opts.WebSearch,
		mcp:       opts.MCP,
		agents:    make(map[string]*agent.ChatAgent),
	}
	if s.logger == nil {
		s.logger = log.GetDefaultLogger()
	}
	if s.splitter == nil {
		s.splitter = rag.NewRecursiveSplitter()
	}
	if s.vectors == nil {
		s.vectors = rag.NewMemoryVectorStore()
	}

	retriever := rag.NewVectorRetriever(s.embedder, s.vectors)
	answerer, err := rag.NewAnswerer(retriever, s.model,
		rag.WithLogger(s.logger),
		rag.WithRetryPolicy(&graph.RetryPolicy{
			MaxRetries:      2,
			BackoffStrategy: graph.ExponentialBackoff,
			RetryableErrors: []string{"429", "rate limit", "timeout", "connection reset"},
		}),
	)
	if err != nil {
		return nil, err
	}
	s.answerer = answerer

	s.newManager = opts.NewManager
	if s.newManager == nil {
		s.newManager = func() *memory.Manager {
			semStore := rag.NewMemoryVectorStore()
			sem := memory.NewSemanticMemory(s.model, s.embedder, semStore)
			return memory.NewManager(memory.NewConversationMemory(), sem)
		}
	}

	return s, nil
}

// Router builds the chi router for the API.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}/history", s.handleHistory)
		r.Delete("/sessions/{id}", s.handleDeleteSession)

		r.Post("/chat", s.handleChat)
		r.Post("/agent/chat", s.handleAgentChat)
		r.Post("/mcp/chat", s.handleMCPChat)

		r.Post("/documents", s.handleIngest)
		r.Post("/documents/query", s.handleQuery)
		r.Get("/documents/stats", s.handleDocumentStats)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) agentFor(sessionID string) (*agent.ChatAgent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[sessionID]
	return a, ok
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
