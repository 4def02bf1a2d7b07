package rag

import (
	"context"
	"time"

	"docassist/internal/docstore"
	"docassist/internal/llm"
	"docassist/internal/vectorstore"
)

// Options tunes the engine. Zero values fall back to the defaults below.
type Options struct {
	// RetrievalK is how many chunks ground a chat answer.
	RetrievalK int
	// AnalysisK is how many chunks ground each analysis question.
	AnalysisK int
	// SummaryMaxChunks caps how many chunks feed the summary.
	SummaryMaxChunks int
	// GenRetries bounds generation attempts per call.
	GenRetries int
	// GenRetryBase is the first backoff delay between attempts.
	GenRetryBase time.Duration
}

const (
	defaultRetrievalK       = 4
	defaultAnalysisK        = 3
	defaultSummaryMaxChunks = 10
	defaultGenRetries       = 3
	defaultGenRetryBase     = 500 * time.Millisecond
)

func (o Options) withDefaults() Options {
	if o.RetrievalK <= 0 {
		o.RetrievalK = defaultRetrievalK
	}
	if o.AnalysisK <= 0 {
		o.AnalysisK = defaultAnalysisK
	}
	if o.SummaryMaxChunks <= 0 {
		o.SummaryMaxChunks = defaultSummaryMaxChunks
	}
	if o.GenRetries <= 0 {
		o.GenRetries = defaultGenRetries
	}
	if o.GenRetryBase <= 0 {
		o.GenRetryBase = defaultGenRetryBase
	}
	return o
}

// Engine answers chat turns, summaries, and analyses over ingested
// documents. All three operations are read-only with respect to the index
// and the registry.
type Engine struct {
	docs      *docstore.Store
	index     vectorstore.VectorIndex
	retriever *Retriever
	generator Generator
	opts      Options
}

// NewEngine creates the engine.
func NewEngine(
	docs *docstore.Store,
	index vectorstore.VectorIndex,
	retriever *Retriever,
	generator Generator,
	opts Options,
) *Engine {
	return &Engine{
		docs:      docs,
		index:     index,
		retriever: retriever,
		generator: generator,
		opts:      opts.withDefaults(),
	}
}

// generate runs one completion with the engine's retry policy.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	err := llm.Retry(ctx, e.opts.GenRetries, e.opts.GenRetryBase, func(ctx context.Context) error {
		var genErr error
		answer, genErr = e.generator.Generate(ctx, llm.GenerateRequest{
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
			Temperature: temperature,
		})
		return genErr
	})
	return answer, err
}
