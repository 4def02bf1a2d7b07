package handlers

import (
	"encoding/json"
	"net/http"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/rag"
)

// SummarizeHandler produces a summary and key points for one document.
type SummarizeHandler struct {
	engine *rag.Engine
	docs   *docstore.Store
}

// NewSummarizeHandler creates a new SummarizeHandler.
func NewSummarizeHandler(engine *rag.Engine, docs *docstore.Store) *SummarizeHandler {
	return &SummarizeHandler{
		engine: engine,
		docs:   docs,
	}
}

// SummarizeRequest represents the HTTP request payload for a summary.
type SummarizeRequest struct {
	CollectionID string `json:"collection_id"`
}

// SummarizeResponse represents the HTTP response payload for a summary.
type SummarizeResponse struct {
	Summary   string           `json:"summary"`
	KeyPoints string           `json:"key_points"`
	Document  DocumentResponse `json:"document"`
}

func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CollectionID == "" {
		logger.WarnContext(ctx, "missing collection id")
		writeError(ctx, w, http.StatusBadRequest, "collection_id is required")
		return
	}

	doc, err := h.docs.Get(req.CollectionID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	result, err := h.engine.Summarize(ctx, req.CollectionID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, SummarizeResponse{
		Summary:   result.Summary,
		KeyPoints: result.KeyPoints,
		Document:  documentResponse(doc),
	})
}
