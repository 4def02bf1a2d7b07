package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/ingest"
	"docassist/internal/metrics"
)

// ListDocumentsHandler lists registered documents in upload order.
type ListDocumentsHandler struct {
	docs *docstore.Store
}

// NewListDocumentsHandler creates a new ListDocumentsHandler.
func NewListDocumentsHandler(docs *docstore.Store) *ListDocumentsHandler {
	return &ListDocumentsHandler{docs: docs}
}

// DocumentsResponse represents the document listing.
type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

func (h *ListDocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	docs := h.docs.List()
	out := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = documentResponse(doc)
	}
	writeJSON(r.Context(), w, http.StatusOK, DocumentsResponse{Documents: out})
}

// DeleteDocumentHandler removes a document, its collection and its upload.
type DeleteDocumentHandler struct {
	pipeline *ingest.Pipeline
	docs     *docstore.Store
	metrics  *metrics.Metrics
}

// NewDeleteDocumentHandler creates a new DeleteDocumentHandler.
func NewDeleteDocumentHandler(pipeline *ingest.Pipeline, docs *docstore.Store, m *metrics.Metrics) *DeleteDocumentHandler {
	return &DeleteDocumentHandler{
		pipeline: pipeline,
		docs:     docs,
		metrics:  m,
	}
}

func (h *DeleteDocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	id := chi.URLParam(r, "documentID")
	if err := h.pipeline.Delete(ctx, id); err != nil {
		respondError(ctx, w, err)
		return
	}
	h.metrics.SetDocumentCount(h.docs.Len())

	logger.InfoContext(ctx, "document deleted", "document_id", id)
	w.WriteHeader(http.StatusNoContent)
}
