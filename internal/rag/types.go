package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_providers.go -package=mocks docassist/internal/rag Embedder,Generator

import (
	"context"

	"docassist/internal/llm"
	"docassist/internal/vectorstore"
)

// Embedder turns texts into embedding vectors, one per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces completions, whole or streamed.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (string, error)
	Stream(ctx context.Context, req llm.GenerateRequest) (<-chan string, <-chan error)
}

// ChatRequest is one conversational turn against a document.
type ChatRequest struct {
	DocumentID string
	Message    string
	History    []llm.Message
}

// RetrievedChunk is one scored passage from the document's collection.
type RetrievedChunk struct {
	Score float32
	vectorstore.Payload
}

// RetrievalResult holds the passages retrieved for a query, ordered by
// descending score.
type RetrievalResult struct {
	Query  string
	Chunks []RetrievedChunk
}

// Source is a citation attached to an answer.
type Source struct {
	Page    int    `json:"page"`
	Excerpt string `json:"excerpt"`
}

// SummaryResult is the output of the summary engine. KeyPoints is the raw
// numbered list produced by the model.
type SummaryResult struct {
	Summary   string `json:"summary"`
	KeyPoints string `json:"key_points"`
}

// Event is one item in an answer stream. The set is closed: ContentEvent,
// SourcesEvent, ErrorEvent, DoneEvent.
type Event interface {
	event()
}

// ContentEvent carries one generation delta.
type ContentEvent struct {
	Content string
}

// SourcesEvent carries the citations for the turn, ordered by retrieval
// score. It is emitted exactly once per successful turn, with an empty list
// when retrieval found nothing.
type SourcesEvent struct {
	Sources []Source
}

// ErrorEvent is terminal: the turn failed.
type ErrorEvent struct {
	Message string
}

// DoneEvent is terminal: the turn completed.
type DoneEvent struct{}

func (ContentEvent) event() {}
func (SourcesEvent) event() {}
func (ErrorEvent) event()   {}
func (DoneEvent) event()    {}
