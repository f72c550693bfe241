// Command chatstack is an interactive terminal client: chat with memory,
// ingest documents and query them.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tomhall/chatstack/agent"
	"github.com/tomhall/chatstack/config"
	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/llm/openai"
	"github.com/tomhall/chatstack/log"
	"github.com/tomhall/chatstack/memory"
	"github.com/tomhall/chatstack/rag"
	"github.com/tomhall/chatstack/rag/loader"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	infoStyle      = lipgloss.NewStyle().Faint(true)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	sourceStyle    = lipgloss.NewStyle().Faint(true).Italic(true)
)

const usage = `usage: chatstack [flags] <command> [args]

commands:
  chat              interactive chat with memory
  ingest <files..>  chunk and embed documents into the local index
  query <question>  answer a question from ingested documents
  search <query>    one-shot web search agent (needs TAVILY_API_KEY)
`

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	style := flag.String("style", "", "response style: professional, casual, creative, technical, balanced")
	flag.Parse()

	log.SetDefaultLogger(&log.NoOpLogger{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if *style != "" {
		cfg.LLM.Style = *style
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	app, err := newApp(cfg)
	if err != nil {
		fatal("%v", err)
	}

	ctx := context.Background()
	switch args[0] {
	case "chat":
		err = app.chat(ctx)
	case "ingest":
		err = app.ingest(ctx, args[1:])
	case "query":
		err = app.query(ctx, strings.Join(args[1:], " "))
	case "search":
		err = app.search(ctx, strings.Join(args[1:], " "))
	default:
		fmt.Print(usage)
		os.Exit(2)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}

type app struct {
	cfg      config.Config
	model    *openai.LLM
	embedder *openai.Embedder
	splitter *rag.RecursiveSplitter
	vectors  *rag.MemoryVectorStore
}

func newApp(cfg config.Config) (*app, error) {
	model, err := openai.New(
		openai.WithAPIKey(cfg.LLM.APIKey),
		openai.WithModel(cfg.LLM.Model),
		openai.WithBaseURL(cfg.LLM.BaseURL),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(
		openai.WithAPIKey(cfg.LLM.APIKey),
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithModel(cfg.LLM.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		model:    model,
		embedder: embedder,
		splitter: rag.NewRecursiveSplitter(
			rag.WithChunkSize(cfg.RAG.ChunkSize),
			rag.WithChunkOverlap(cfg.RAG.ChunkOverlap),
		),
		vectors: rag.NewMemoryVectorStore(),
	}, nil
}

func (a *app) chat(ctx context.Context) error {
	sem := memory.NewSemanticMemory(a.model, a.embedder, rag.NewMemoryVectorStore())
	conv := memory.NewConversationMemory(memory.WithMaxMessages(a.cfg.Memory.MaxMessages))
	mgr := memory.NewManager(conv, sem,
		memory.WithConversationLimit(a.cfg.Memory.ConversationLimit),
		memory.WithSemanticLimit(a.cfg.Memory.SemanticLimit),
	)

	chatAgent := agent.NewChatAgent(a.model, mgr,
		agent.WithStyle(llm.Style(a.cfg.LLM.Style)),
		agent.WithCustomPrompt(a.cfg.LLM.CustomPrompt),
	)

	fmt.Println(titleStyle.Render("chatstack"))
	fmt.Println(infoStyle.Render(fmt.Sprintf("session %s, style %s. /quit to exit, /stats for memory stats.",
		chatAgent.SessionID(), a.cfg.LLM.Style)))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/stats":
			stats, err := mgr.Stats(ctx)
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
				continue
			}
			fmt.Println(infoStyle.Render(fmt.Sprintf(
				"conversation: %d messages (%d tokens), semantic: %d facts",
				stats.Conversation.MessageCount, stats.Conversation.TokenCount,
				stats.Semantic.MessageCount)))
			continue
		case "/clear":
			if err := mgr.Clear(ctx); err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			} else {
				fmt.Println(infoStyle.Render("memory cleared"))
			}
			continue
		}

		fmt.Print(assistantStyle.Render("assistant> "))
		_, err := chatAgent.Stream(ctx, line, func(ctx context.Context, chunk []byte) error {
			fmt.Print(assistantStyle.Render(string(chunk)))
			return nil
		})
		fmt.Println()
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}
	return scanner.Err()
}

func (a *app) ingest(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("ingest: no files given")
	}

	var docs []rag.Document
	for _, path := range paths {
		var l rag.Loader
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf":
			l = loader.NewPDFLoader(path)
		default:
			if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
				l = loader.NewWebLoader(path)
			} else {
				l = loader.NewTextLoader(path)
			}
		}

		loaded, err := l.Load(ctx)
		if err != nil {
			return err
		}
		docs = append(docs, loaded...)
		fmt.Println(infoStyle.Render(fmt.Sprintf("loaded %s (%d documents)", path, len(loaded))))
	}

	count, err := rag.Ingest(ctx, docs, a.splitter, a.embedder, a.vectors)
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("ingested %d chunks", count)))

	// The in-memory index only lives for this process; drop into query
	// mode so the work isn't wasted.
	return a.queryLoop(ctx)
}

func (a *app) query(ctx context.Context, question string) error {
	if question == "" {
		return fmt.Errorf("query: no question given")
	}
	return a.answer(ctx, question)
}

func (a *app) queryLoop(ctx context.Context) error {
	fmt.Println(infoStyle.Render("ask questions about the ingested documents. /quit to exit."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("query> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := a.answer(ctx, line); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}
	return scanner.Err()
}

func (a *app) answer(ctx context.Context, question string) error {
	retriever := rag.NewVectorRetriever(a.embedder, a.vectors,
		rag.WithMinScore(a.cfg.RAG.MinScore))
	answerer, err := rag.NewAnswerer(retriever, a.model)
	if err != nil {
		return err
	}

	out, err := answerer.Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(assistantStyle.Render(out.Answer))
	for _, res := range out.Documents {
		if src, ok := res.Document.Metadata["source"].(string); ok {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("  - %s (%.2f)", src, res.Score)))
		}
	}
	return nil
}

func (a *app) search(ctx context.Context, question string) error {
	if question == "" {
		return fmt.Errorf("search: no query given")
	}

	webAgent, err := agent.NewWebSearchAgent(a.model, a.cfg.Tools.TavilyAPIKey)
	if err != nil {
		return err
	}

	reply, err := webAgent.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Println(assistantStyle.Render(reply))
	return nil
}
