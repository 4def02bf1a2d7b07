package rag

import (
	"context"
	"fmt"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/vectorstore"
)

// Retriever answers similarity queries against one document's collection.
type Retriever struct {
	docs     *docstore.Store
	index    vectorstore.VectorIndex
	embedder Embedder
}

// NewRetriever creates a Retriever.
func NewRetriever(docs *docstore.Store, index vectorstore.VectorIndex, embedder Embedder) *Retriever {
	return &Retriever{
		docs:     docs,
		index:    index,
		embedder: embedder,
	}
}

// Retrieve embeds the query and returns the top k chunks of the document,
// ordered by descending score. The ordering is deterministic: cosine score
// with ascending chunk index as the tie-break, no reranking. An unknown
// document id returns docstore.ErrNotFound.
func (r *Retriever) Retrieve(ctx context.Context, docID, query string, k int) (RetrievalResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	// The registry is checked first: a registered document whose collection
	// is missing is index corruption, not a 404.
	if !r.docs.Has(docID) {
		return RetrievalResult{}, docstore.ErrNotFound
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return RetrievalResult{}, fmt.Errorf("expected 1 query embedding, got %d", len(embeddings))
	}

	scored, err := r.index.Search(ctx, docID, embeddings[0], k)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("search failed for document %s: %w", docID, err)
	}

	chunks := make([]RetrievedChunk, len(scored))
	for i, point := range scored {
		chunks[i] = RetrievedChunk{Score: point.Score, Payload: point.Payload}
	}

	logger.DebugContext(ctx, "retrieval completed",
		"document_id", docID,
		"k", k,
		"results", len(chunks),
	)
	return RetrievalResult{Query: query, Chunks: chunks}, nil
}
