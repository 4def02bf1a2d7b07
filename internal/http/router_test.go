package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"docassist/internal/docstore"
	"docassist/internal/extract"
	"docassist/internal/ingest"
	"docassist/internal/metrics"
	"docassist/internal/rag"
	"docassist/internal/rag/mocks"
	"docassist/internal/vectorstore"
)

func newRouterDeps(t *testing.T, ctrl *gomock.Controller) *Deps {
	t.Helper()

	index, err := vectorstore.NewSQLiteIndex(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("NewSQLiteIndex() error = %v", err)
	}
	t.Cleanup(func() { _ = index.Close() })

	chunker, err := ingest.NewChunker(120, 30)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	docs := docstore.New()
	embedder := mocks.NewMockEmbedder(ctrl)
	generator := mocks.NewMockGenerator(ctrl)

	pipeline := ingest.NewPipeline(extract.NewRegistry(), chunker, embedder, index, docs, t.TempDir(), 3, 4)
	retriever := rag.NewRetriever(docs, index, embedder)
	engine := rag.NewEngine(docs, index, retriever, generator, rag.Options{
		GenRetries:   1,
		GenRetryBase: time.Millisecond,
	})

	return &Deps{
		Pipeline:       pipeline,
		Engine:         engine,
		Docs:           docs,
		Metrics:        metrics.New(),
		VectorBackend:  "sqlite",
		MaxUploadBytes: 1 << 20,
		CORSOrigins:    []string{"*"},
	}
}

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newRouterDeps(t, ctrl))

	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newRouterDeps(t, ctrl))

	// Requests carry no usable body, so each route resolves to its
	// validation failure. The point is that the route exists and the
	// method matches.
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{
			name:       "GET root",
			method:     http.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET health",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "GET metrics",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST upload without multipart body",
			method:     http.MethodPost,
			path:       "/upload",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST chat with empty body",
			method:     http.MethodPost,
			path:       "/chat",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST summarize with empty body",
			method:     http.MethodPost,
			path:       "/summarize",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "POST analyze with empty body",
			method:     http.MethodPost,
			path:       "/analyze",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET documents",
			method:     http.MethodGet,
			path:       "/documents",
			wantStatus: http.StatusOK,
		},
		{
			name:       "DELETE unknown document",
			method:     http.MethodDelete,
			path:       "/documents/no-such-id",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "GET upload method not allowed",
			method:     http.MethodGet,
			path:       "/upload",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "POST documents method not allowed",
			method:     http.MethodPost,
			path:       "/documents",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_RootMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newRouterDeps(t, ctrl))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Router GET / status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "Document Chat API") {
		t.Errorf("Router GET / body = %v, want service banner", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Router GET / Content-Type = %v, want application/json", ct)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newRouterDeps(t, ctrl))

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Router preflight status = %v, want %v", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Router preflight Allow-Origin = %q, want %q", got, "*")
	}
}

func TestRouter_CORSRestrictedOrigin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	deps := newRouterDeps(t, ctrl)
	deps.CORSOrigins = []string{"http://app.example.com"}
	router := NewRouter(deps)

	tests := []struct {
		name        string
		origin      string
		wantAllowed string
	}{
		{
			name:        "allowed origin echoed",
			origin:      "http://app.example.com",
			wantAllowed: "http://app.example.com",
		},
		{
			name:        "other origin rejected",
			origin:      "http://evil.example.com",
			wantAllowed: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/documents", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Router Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
		})
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := NewRouter(newRouterDeps(t, ctrl))

	// Drive one API request through the middleware, then scrape.
	seed := httptest.NewRequest(http.MethodGet, "/documents", nil)
	router.ServeHTTP(httptest.NewRecorder(), seed)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Router GET /metrics status = %v, want %v", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "docassist_http_requests_total") {
		t.Error("Router GET /metrics should expose request counters")
	}
}
