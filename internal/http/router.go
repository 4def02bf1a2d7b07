package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"docassist/internal/docstore"
	"docassist/internal/handlers"
	"docassist/internal/ingest"
	"docassist/internal/metrics"
	"docassist/internal/rag"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline       *ingest.Pipeline
	Engine         *rag.Engine
	Docs           *docstore.Store
	Metrics        *metrics.Metrics
	VectorBackend  string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// NewRouter creates the HTTP router with all API routes and middleware.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(deps.Metrics.Middleware)

	r.Method(http.MethodGet, "/", handlers.NewRootHandler())
	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Docs, deps.VectorBackend))
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Method(http.MethodPost, "/upload", handlers.NewUploadHandler(deps.Pipeline, deps.Docs, deps.Metrics, deps.MaxUploadBytes))
	r.Method(http.MethodPost, "/chat", handlers.NewChatHandler(deps.Engine, deps.Docs, deps.Metrics))
	r.Method(http.MethodPost, "/summarize", handlers.NewSummarizeHandler(deps.Engine, deps.Docs))
	r.Method(http.MethodPost, "/analyze", handlers.NewAnalyzeHandler(deps.Engine, deps.Docs))
	r.Method(http.MethodGet, "/documents", handlers.NewListDocumentsHandler(deps.Docs))
	r.Method(http.MethodDelete, "/documents/{documentID}", handlers.NewDeleteDocumentHandler(deps.Pipeline, deps.Docs, deps.Metrics))

	return r
}
