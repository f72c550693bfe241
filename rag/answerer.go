package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/tomhall/chatstack/graph"
	"github.com/tomhall/chatstack/llm"
	"github.com/tomhall/chatstack/log"
)

// QueryMode distinguishes broad summarization queries from narrow factual
// lookups. The mode drives how many chunks are retrieved and how the
// answer prompt is framed.
type QueryMode string

const (
	// ModeSummary asks for a synthesis across many chunks.
	ModeSummary QueryMode = "summary"

	// ModeFact asks for a specific detail from few, precise chunks.
	ModeFact QueryMode = "fact"
)

const (
	// SummaryTopK is how many chunks a summary query retrieves.
	SummaryTopK = 8

	// FactTopK is how many chunks a fact query retrieves.
	FactTopK = 3
)

var (
	summaryHints = []string{"summarize", "summary", "overview", "key points", "bullet", "synthesize"}
	factHints    = []string{"when", "date", "who", "where", "amount", "total", "price", "figure", "specific", "exact"}
)

// RefusalAnswer is returned when retrieval produced no usable context.
const RefusalAnswer = "I couldn't find enough information in the documents to answer that."

// ClassifyQuery decides the query mode from lexical hints. Fact hints win
// over summary hints when both are present, and unhinted queries default
// to fact mode since precise answers degrade gracefully.
func ClassifyQuery(question string) QueryMode {
	q := strings.ToLower(question)

	for _, hint := range factHints {
		if strings.Contains(q, hint) {
			return ModeFact
		}
	}
	for _, hint := range summaryHints {
		if strings.Contains(q, hint) {
			return ModeSummary
		}
	}
	return ModeFact
}

// TopKFor returns the retrieval depth for a query mode.
func TopKFor(mode QueryMode) int {
	if mode == ModeSummary {
		return SummaryTopK
	}
	return FactTopK
}

// AnswerState is the state threaded through the answer workflow graph.
type AnswerState struct {
	Question  string
	Mode      QueryMode
	Documents []SearchResult
	Answer    string
}

// Answerer runs the classify-retrieve-generate workflow over a retriever
// and a chat model.
type Answerer struct {
	retriever Retriever
	model     llm.Model
	settings  llm.Settings
	logger    log.Logger
	retry     *graph.RetryPolicy
	runnable  *graph.Runnable[AnswerState]
}

// AnswererOption configures an Answerer.
type AnswererOption func(*Answerer)

// WithSettings overrides the generation settings.
func WithSettings(settings llm.Settings) AnswererOption {
	return func(a *Answerer) {
		a.settings = settings
	}
}

// WithLogger sets the workflow logger.
func WithLogger(logger log.Logger) AnswererOption {
	return func(a *Answerer) {
		a.logger = logger
	}
}

// WithRetryPolicy retries failing workflow nodes, typically transient
// provider errors during embedding or generation.
func WithRetryPolicy(policy *graph.RetryPolicy) AnswererOption {
	return func(a *Answerer) {
		a.retry = policy
	}
}

// NewAnswerer builds the workflow graph: classify -> retrieve -> generate.
func NewAnswerer(retriever Retriever, model llm.Model, opts ...AnswererOption) (*Answerer, error) {
	a := &Answerer{
		retriever: retriever,
		model:     model,
		settings:  llm.DefaultSettings(),
		logger:    log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	g := graph.NewStateGraph[AnswerState]()
	g.AddNode("classify", "determine query mode", a.classify)
	g.AddNode("retrieve", "fetch relevant chunks", a.retrieve)
	g.AddNode("generate", "answer from context", a.generate)
	g.SetEntryPoint("classify")
	g.AddEdge("classify", "retrieve")
	g.AddEdge("retrieve", "generate")
	g.AddEdge("generate", graph.END)
	if a.retry != nil {
		g.SetRetryPolicy(a.retry)
	}

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile answer graph: %w", err)
	}
	a.runnable = runnable

	return a, nil
}

// Answer runs the full workflow for a question.
func (a *Answerer) Answer(ctx context.Context, question string) (AnswerState, error) {
	return a.runnable.Invoke(ctx, AnswerState{Question: question})
}

func (a *Answerer) classify(ctx context.Context, s AnswerState) (AnswerState, error) {
	s.Mode = ClassifyQuery(s.Question)
	a.logger.Debug("classified query as %s: %q", s.Mode, s.Question)
	return s, nil
}

func (a *Answerer) retrieve(ctx context.Context, s AnswerState) (AnswerState, error) {
	results, err := a.retriever.Retrieve(ctx, s.Question, TopKFor(s.Mode))
	if err != nil {
		return s, fmt.Errorf("retrieve: %w", err)
	}
	s.Documents = results
	a.logger.Debug("retrieved %d chunks for mode %s", len(results), s.Mode)
	return s, nil
}

func (a *Answerer) generate(ctx context.Context, s AnswerState) (AnswerState, error) {
	excerpts := buildContext(s.Documents)
	if excerpts == "" {
		s.Answer = RefusalAnswer
		return s, nil
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPromptFor(s.Mode)),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Context:\n%s\n\nQuestion: %s", excerpts, s.Question)),
	}

	resp, err := a.model.GenerateContent(ctx, messages, a.settings.CallOptions()...)
	if err != nil {
		return s, fmt.Errorf("generate answer: %w", err)
	}

	answer := strings.TrimSpace(llm.ContentOf(resp))
	if answer == "" {
		answer = RefusalAnswer
	}
	s.Answer = answer
	return s, nil
}

func systemPromptFor(mode QueryMode) string {
	if mode == ModeSummary {
		return "You are a document analysis assistant. Synthesize the provided context into a clear, well-organized answer, " +
			"preferring bullet points for distinct themes. Cover the main themes across all excerpts. " +
			"Only use information from the context; if the context is insufficient, say so."
	}
	return "You are a document analysis assistant. Answer the question precisely using only the provided context. " +
		"Quote specific figures, names and dates from the excerpts when relevant. If the answer is not in the context, say so."
}

func buildContext(results []SearchResult) string {
	var b strings.Builder
	for i, res := range results {
		content := strings.TrimSpace(res.Document.Content)
		if content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Excerpt %d]\n%s", i+1, content)
	}
	return b.String()
}
