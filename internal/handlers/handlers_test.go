package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"path/filepath"
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

const testEmbedDim = 3

// testEnv wires real pipeline, registry, index and engine over mocked
// provider ports, the same shape main assembles.
type testEnv struct {
	docs      *docstore.Store
	index     *vectorstore.SQLiteIndex
	pipeline  *ingest.Pipeline
	engine    *rag.Engine
	generator *mocks.MockGenerator
	metrics   *metrics.Metrics
	uploadDir string
}

func newTestEnv(t *testing.T, ctrl *gomock.Controller) *testEnv {
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
	embedder.EXPECT().Embed(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, texts []string) ([][]float32, error) {
			vectors := make([][]float32, len(texts))
			for i := range vectors {
				vectors[i] = []float32{1, 0, 0}
			}
			return vectors, nil
		}).AnyTimes()
	generator := mocks.NewMockGenerator(ctrl)
	uploadDir := t.TempDir()

	pipeline := ingest.NewPipeline(extract.NewRegistry(), chunker, embedder, index, docs, uploadDir, testEmbedDim, 4)
	retriever := rag.NewRetriever(docs, index, embedder)
	engine := rag.NewEngine(docs, index, retriever, generator, rag.Options{
		GenRetries:   1,
		GenRetryBase: time.Millisecond,
	})

	return &testEnv{
		docs:      docs,
		index:     index,
		pipeline:  pipeline,
		engine:    engine,
		generator: generator,
		metrics:   metrics.New(),
		uploadDir: uploadDir,
	}
}

// multipartBody builds a single-file multipart request body.
func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}
