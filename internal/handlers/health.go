package handlers

import (
	"net/http"

	"docassist/internal/docstore"
)

// HealthHandler reports service liveness and registry size.
type HealthHandler struct {
	docs          *docstore.Store
	vectorBackend string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(docs *docstore.Store, vectorBackend string) *HealthHandler {
	return &HealthHandler{
		docs:          docs,
		vectorBackend: vectorBackend,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Documents     int    `json:"documents"`
	VectorBackend string `json:"vector_backend"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Documents:     h.docs.Len(),
		VectorBackend: h.vectorBackend,
	})
}
