// Package config loads chatstack configuration from a TOML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the full chatstack configuration.
type Config struct {
	Server Server `toml:"server"`
	LLM    LLM    `toml:"llm"`
	RAG    RAG    `toml:"rag"`
	Memory Memory `toml:"memory"`
	Store  Store  `toml:"store"`
	Tools  Tools  `toml:"tools"`
	Log    Log    `toml:"log"`
}

// Server configures the HTTP server.
type Server struct {
	Addr string `toml:"addr"`
}

// LLM configures the model provider.
type LLM struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	EmbeddingModel string  `toml:"embedding_model"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	Style          string  `toml:"style"`
	CustomPrompt   string  `toml:"custom_prompt"`
}

// RAG configures chunking and retrieval.
type RAG struct {
	ChunkSize    int     `toml:"chunk_size"`
	ChunkOverlap int     `toml:"chunk_overlap"`
	MinScore     float64 `toml:"min_score"`
}

// Memory configures conversation and semantic memory.
type Memory struct {
	MaxMessages       int `toml:"max_messages"`
	ConversationLimit int `toml:"conversation_limit"`
	SemanticLimit     int `toml:"semantic_limit"`
}

// Store configures session persistence.
type Store struct {
	// Backend is one of "memory", "sqlite", "redis", "postgres".
	Backend     string `toml:"backend"`
	SqlitePath  string `toml:"sqlite_path"`
	RedisAddr   string `toml:"redis_addr"`
	PostgresDSN string `toml:"postgres_dsn"`
}

// Tools configures external tools.
type Tools struct {
	TavilyAPIKey string `toml:"tavily_api_key"`
	MCPEndpoint  string `toml:"mcp_endpoint"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080"},
		LLM: LLM{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2000,
			Style:       "balanced",
		},
		RAG: RAG{
			ChunkSize:    1500,
			ChunkOverlap: 200,
		},
		Memory: Memory{
			MaxMessages:       50,
			ConversationLimit: 5,
			SemanticLimit:     3,
		},
		Store: Store{
			Backend:    "memory",
			SqlitePath: "chatstack.db",
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the TOML file at path (if non-empty), applies environment
// overrides and returns the result. Missing file with an empty path is
// not an error; defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from the environment. Secrets are only
// expected through the environment in deployments.
func (c *Config) applyEnv() {
	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Model, "CHATSTACK_MODEL")
	setString(&c.Tools.TavilyAPIKey, "TAVILY_API_KEY")
	setString(&c.Tools.MCPEndpoint, "CHATSTACK_MCP_ENDPOINT")
	setString(&c.Server.Addr, "CHATSTACK_ADDR")
	setString(&c.Store.Backend, "CHATSTACK_STORE")
	setString(&c.Store.RedisAddr, "CHATSTACK_REDIS_ADDR")
	setString(&c.Store.PostgresDSN, "CHATSTACK_POSTGRES_DSN")
	setString(&c.Log.Level, "CHATSTACK_LOG_LEVEL")
	setInt(&c.LLM.MaxTokens, "CHATSTACK_MAX_TOKENS")
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.RAG.ChunkOverlap, c.RAG.ChunkSize)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
