package handlers

import (
	"encoding/json"
	"net/http"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/rag"
)

// AnalyzeHandler runs the fixed analysis question set over one document.
type AnalyzeHandler struct {
	engine *rag.Engine
	docs   *docstore.Store
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(engine *rag.Engine, docs *docstore.Store) *AnalyzeHandler {
	return &AnalyzeHandler{
		engine: engine,
		docs:   docs,
	}
}

// AnalyzeRequest represents the HTTP request payload for an analysis.
type AnalyzeRequest struct {
	CollectionID string `json:"collection_id"`
}

// AnalyzeResponse represents the HTTP response payload for an analysis.
// Analysis marshals as an object whose keys keep the question order.
type AnalyzeResponse struct {
	Analysis rag.AnalysisResult `json:"analysis"`
	Document DocumentResponse   `json:"document"`
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AnalyzeRequest
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

	result, err := h.engine.Analyze(ctx, req.CollectionID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, AnalyzeResponse{
		Analysis: result,
		Document: documentResponse(doc),
	})
}
