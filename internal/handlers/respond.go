package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/extract"
	"docassist/internal/ingest"
	"docassist/internal/llm"
	"docassist/internal/vectorstore"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DocumentResponse is the JSON shape of one registered document.
type DocumentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

func documentResponse(doc docstore.Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		PageCount:  doc.PageCount,
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	writeJSON(ctx, w, statusCode, ErrorResponse{Error: message})
}

// respondError maps domain errors to HTTP status codes. The response body
// carries a stable message; the underlying error goes to the log.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch {
	case errors.Is(err, extract.ErrUnsupportedType):
		logger.WarnContext(ctx, "unsupported file type", "error", err)
		writeError(ctx, w, http.StatusUnsupportedMediaType, "unsupported file type")
	case errors.Is(err, docstore.ErrNotFound):
		logger.WarnContext(ctx, "document not found", "error", err)
		writeError(ctx, w, http.StatusNotFound, "document not found")
	case isIngestError(err):
		logger.ErrorContext(ctx, "ingestion failed", "error", err)
		writeError(ctx, w, http.StatusUnprocessableEntity, "failed to process document")
	case isProviderError(err):
		logger.ErrorContext(ctx, "provider error", "error", err)
		writeError(ctx, w, http.StatusBadGateway, "language model provider error")
	case isCorruptionError(err):
		logger.ErrorContext(ctx, "vector index corrupted", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "vector index corrupted")
	default:
		logger.ErrorContext(ctx, "internal error", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "internal server error")
	}
}

func isIngestError(err error) bool {
	var ingestErr *ingest.Error
	return errors.As(err, &ingestErr)
}

func isProviderError(err error) bool {
	var llmErr *llm.Error
	return errors.As(err, &llmErr)
}

func isCorruptionError(err error) bool {
	return errors.Is(err, vectorstore.ErrCollectionNotFound) ||
		errors.Is(err, vectorstore.ErrDimensionMismatch) ||
		errors.Is(err, vectorstore.ErrCorrupt)
}
