package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"docassist/internal/config"
	"docassist/internal/docstore"
	"docassist/internal/extract"
	"docassist/internal/http"
	"docassist/internal/ingest"
	"docassist/internal/llm"
	"docassist/internal/metrics"
	"docassist/internal/rag"
	"docassist/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Open the vector index selected by VECTOR_BACKEND
	index, err := newVectorIndex(cfg)
	if err != nil {
		log.Fatalf("Failed to open vector index: %v", err)
	}
	defer func() {
		_ = index.Close()
	}()
	slog.Info("Vector index ready", "backend", cfg.VectorBackend)

	docs := docstore.New()

	// Create provider client, instrumented so every outbound call is counted
	client, err := llm.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create provider client: %v", err)
	}
	m := metrics.New()
	instrumented := metrics.InstrumentClient(client, m)
	slog.Info("Provider client ready",
		"provider", cfg.Provider,
		"gen_model", cfg.GenModel,
		"embed_model", cfg.EmbedModel,
	)

	// Create ingestion pipeline
	chunker, err := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}
	pipeline := ingest.NewPipeline(
		extract.NewRegistry(),
		chunker,
		instrumented,
		index,
		docs,
		cfg.UploadDir,
		cfg.EmbedDim,
		cfg.EmbedBatch,
	)

	// The registry starts empty on boot, so any collection or stored upload
	// left behind by a previous run is an orphan. Sweep them before serving.
	if err := pipeline.SweepOrphans(context.Background()); err != nil {
		slog.Warn("Orphan sweep failed", "error", err)
	}

	// Create RAG engine
	retriever := rag.NewRetriever(docs, index, instrumented)
	engine := rag.NewEngine(docs, index, retriever, instrumented, rag.Options{
		RetrievalK:       cfg.RetrievalK,
		AnalysisK:        cfg.AnalysisK,
		SummaryMaxChunks: cfg.SummaryMaxChunks,
		GenRetries:       cfg.GenRetries,
		GenRetryBase:     cfg.GenRetryBase,
	})
	slog.Info("RAG engine initialized")

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		Pipeline:       pipeline,
		Engine:         engine,
		Docs:           docs,
		Metrics:        m,
		VectorBackend:  cfg.VectorBackend,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		CORSOrigins:    splitOrigins(cfg.CORSOrigins),
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.RequestTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		// WriteTimeout stays unset: SSE chat turns can outlive any fixed
		// budget and end via context cancellation instead.
		IdleTimeout: 2 * cfg.RequestTimeout,
	}

	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	slog.Info("Shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown did not complete cleanly", "error", err)
	}
}

// newVectorIndex opens the vector backend selected by configuration.
func newVectorIndex(cfg *config.Config) (vectorstore.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		return vectorstore.NewQdrantIndex(cfg.QdrantURL)
	default:
		return vectorstore.NewSQLiteIndex(cfg.VectorDBPath)
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// splitOrigins turns the comma-separated CORS_ORIGINS value into a list.
func splitOrigins(s string) []string {
	var origins []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}
