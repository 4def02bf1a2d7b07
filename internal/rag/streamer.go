package rag

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/llm"
)

// excerptRunes is how much chunk text a citation carries.
const excerptRunes = 200

// StreamAnswer runs one chat turn. The returned channel yields zero or more
// ContentEvents, then exactly one SourcesEvent, then DoneEvent; on failure
// it yields a terminal ErrorEvent instead. The channel is closed after the
// terminal event, or without one when ctx is canceled mid-turn.
func (e *Engine) StreamAnswer(ctx context.Context, req ChatRequest) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		e.streamAnswer(ctx, req, events)
	}()
	return events
}

func (e *Engine) streamAnswer(ctx context.Context, req ChatRequest, events chan<- Event) {
	logger := contextutil.LoggerFromContext(ctx)

	result, err := e.retriever.Retrieve(ctx, req.DocumentID, req.Message, e.opts.RetrievalK)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "document_id", req.DocumentID, "error", err)
		if errors.Is(err, docstore.ErrNotFound) {
			e.emit(ctx, events, ErrorEvent{Message: "document not found"})
		} else {
			e.emit(ctx, events, ErrorEvent{Message: "failed to retrieve context"})
		}
		return
	}

	contextBlock := contextFromChunks(result.Chunks)
	messages := make([]llm.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: chatUserMessage(contextBlock, req.Message),
	})

	genReq := llm.GenerateRequest{
		System:      chatSystemPrompt,
		Messages:    messages,
		Temperature: temperature,
	}

	contentEmitted, err := e.streamCompletion(ctx, genReq, events)
	if err != nil {
		if ctx.Err() != nil {
			// Client gone: close without a terminal event.
			logger.InfoContext(ctx, "chat turn canceled", "document_id", req.DocumentID)
			return
		}
		logger.ErrorContext(ctx, "generation failed",
			"document_id", req.DocumentID,
			"content_emitted", contentEmitted,
			"error", err,
		)
		e.emit(ctx, events, ErrorEvent{Message: "failed to generate answer"})
		return
	}

	// The document may have been deleted while the answer streamed. Citing
	// chunks that no longer exist would be worse than failing the turn.
	if !e.docs.Has(req.DocumentID) {
		logger.WarnContext(ctx, "document deleted mid-turn", "document_id", req.DocumentID)
		e.emit(ctx, events, ErrorEvent{Message: "document was deleted during this conversation"})
		return
	}

	if !e.emit(ctx, events, SourcesEvent{Sources: sourcesFromChunks(result.Chunks)}) {
		return
	}
	e.emit(ctx, events, DoneEvent{})

	logger.InfoContext(ctx, "chat turn completed",
		"document_id", req.DocumentID,
		"chunks_used", len(result.Chunks),
	)
}

// streamCompletion drives the provider stream, forwarding deltas as content
// events. Transient failures are retried with doubling backoff, but only
// while nothing has been emitted; once the client has seen content a
// failure is final.
func (e *Engine) streamCompletion(ctx context.Context, genReq llm.GenerateRequest, events chan<- Event) (bool, error) {
	var lastErr error
	delay := e.opts.GenRetryBase

	for attempt := 0; attempt < e.opts.GenRetries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, delay); err != nil {
				return false, lastErr
			}
			delay *= 2
		}

		emitted, err := e.streamOnce(ctx, genReq, events)
		if err == nil {
			return emitted, nil
		}
		lastErr = err
		if emitted || ctx.Err() != nil || !llm.IsTransient(err) {
			return emitted, err
		}
	}
	return false, lastErr
}

func (e *Engine) streamOnce(ctx context.Context, genReq llm.GenerateRequest, events chan<- Event) (bool, error) {
	out, errc := e.generator.Stream(ctx, genReq)

	emitted := false
	for delta := range out {
		if !e.emit(ctx, events, ContentEvent{Content: delta}) {
			return emitted, ctx.Err()
		}
		emitted = true
	}
	return emitted, <-errc
}

// emit delivers one event unless ctx is done first.
func (e *Engine) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// sourcesFromChunks builds citations in retrieval order. The slice is never
// nil so an empty turn still serializes as an explicit empty list.
func sourcesFromChunks(chunks []RetrievedChunk) []Source {
	sources := make([]Source, len(chunks))
	for i, chunk := range chunks {
		sources[i] = Source{Page: chunk.Page, Excerpt: excerpt(chunk.Text)}
	}
	return sources
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	return string([]rune(text)[:excerptRunes]) + "..."
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
