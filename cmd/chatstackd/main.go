// Command chatstackd runs the chatstack HTTP API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kataras/golog"

	"github.com/tomhall/chatstack/agent"
	"github.com/tomhall/chatstack/config"
	"github.com/tomhall/chatstack/llm/openai"
	"github.com/tomhall/chatstack/log"
	"github.com/tomhall/chatstack/memory"
	"github.com/tomhall/chatstack/rag"
	"github.com/tomhall/chatstack/server"
	"github.com/tomhall/chatstack/store"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logger := log.NewGologLogger(golog.Default)
	log.SetDefaultLogger(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(log.ParseLevel(cfg.Log.Level))

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger log.Logger) error {
	model, err := openai.New(
		openai.WithAPIKey(cfg.LLM.APIKey),
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
	)
	if err != nil {
		return err
	}

	embedder, err := openai.NewEmbedder(
		openai.WithAPIKey(cfg.LLM.APIKey),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.EmbeddingModel),
	)
	if err != nil {
		return err
	}

	sessions, err := openSessionStore(cfg.Store)
	if err != nil {
		return err
	}
	defer sessions.Close()

	opts := server.Options{
		Model:    model,
		Embedder: embedder,
		Sessions: sessions,
		Logger:   logger,
		Splitter: rag.NewRecursiveSplitter(
			rag.WithChunkSize(cfg.RAG.ChunkSize),
			rag.WithChunkOverlap(cfg.RAG.ChunkOverlap),
		),
		NewManager: func() *memory.Manager {
			sem := memory.NewSemanticMemory(model, embedder, rag.NewMemoryVectorStore())
			conv := memory.NewConversationMemory(memory.WithMaxMessages(cfg.Memory.MaxMessages))
			return memory.NewManager(conv, sem,
				memory.WithConversationLimit(cfg.Memory.ConversationLimit),
				memory.WithSemanticLimit(cfg.Memory.SemanticLimit),
			)
		},
	}

	if cfg.Tools.TavilyAPIKey != "" {
		webSearch, err := agent.NewWebSearchAgent(model, cfg.Tools.TavilyAPIKey)
		if err != nil {
			return err
		}
		opts.WebSearch = webSearch
		logger.Info("web search agent enabled")
	}

	if cfg.Tools.MCPEndpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mcpAgent, err := agent.NewMCPAgent(ctx, model, cfg.Tools.MCPEndpoint)
		cancel()
		if err != nil {
			return err
		}
		defer mcpAgent.Close()
		opts.MCP = mcpAgent
		logger.Info("MCP agent connected to %s with tools %v", cfg.Tools.MCPEndpoint, mcpAgent.Tools())
	}

	srv, err := server.NewServer(opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stop:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

func openSessionStore(cfg config.Store) (store.SessionStore, error) {
	switch cfg.Backend {
	case "sqlite":
		return store.NewSqliteStore(store.SqliteOptions{Path: cfg.SqlitePath})
	case "redis":
		return store.NewRedisStore(store.RedisOptions{Addr: cfg.RedisAddr})
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewPostgresStore(ctx, store.PostgresOptions{ConnString: cfg.PostgresDSN})
	default:
		return store.NewMemoryStore(), nil
	}
}
