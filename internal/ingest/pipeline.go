package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docassist/internal/ingest Embedder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/extract"
	"docassist/internal/vectorstore"
)

// embedConcurrency bounds how many embedding batches are in flight at once.
const embedConcurrency = 4

// Embedder turns texts into embedding vectors, one per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline ingests uploaded documents: extract, chunk, embed, index, and
// finally register. The document id is minted fresh per attempt and doubles
// as the vector collection id, so concurrent ingestions never share state.
// Registration is the last step; any earlier failure rolls back the stored
// upload and the collection, so a registered document always has a complete
// index.
type Pipeline struct {
	registry  *extract.Registry
	chunker   *Chunker
	embedder  Embedder
	index     vectorstore.VectorIndex
	docs      *docstore.Store
	uploadDir string
	embedDim  int
	batchSize int
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	registry *extract.Registry,
	chunker *Chunker,
	embedder Embedder,
	index vectorstore.VectorIndex,
	docs *docstore.Store,
	uploadDir string,
	embedDim int,
	batchSize int,
) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pipeline{
		registry:  registry,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		docs:      docs,
		uploadDir: uploadDir,
		embedDim:  embedDim,
		batchSize: batchSize,
	}
}

// Ingest processes one uploaded file and returns the registered document.
func (p *Pipeline) Ingest(ctx context.Context, filename string, r io.Reader) (docstore.Document, error) {
	logger := contextutil.LoggerFromContext(ctx)
	started := time.Now()

	// Resolve the extractor first so unsupported types fail before any writes.
	ex, err := p.registry.ForFilename(filename)
	if err != nil {
		return docstore.Document{}, newError(KindExtraction, filename, err)
	}

	docID := uuid.New().String()
	storedPath := filepath.Join(p.uploadDir, docID+strings.ToLower(filepath.Ext(filename)))

	if err := storeUpload(storedPath, r); err != nil {
		return docstore.Document{}, newError(KindExtraction, filename, err)
	}

	pages, chunks, err := p.extractAndChunk(ctx, ex, storedPath)
	if err != nil {
		p.rollback(ctx, docID, storedPath, false)
		return docstore.Document{}, newError(KindExtraction, filename, err)
	}

	vectors, err := p.embedChunks(ctx, chunks)
	if err != nil {
		p.rollback(ctx, docID, storedPath, false)
		return docstore.Document{}, newError(KindEmbedding, filename, err)
	}

	if err := p.indexChunks(ctx, docID, chunks, vectors); err != nil {
		p.rollback(ctx, docID, storedPath, true)
		return docstore.Document{}, newError(KindIndexing, filename, err)
	}

	doc := docstore.Document{
		ID:         docID,
		Filename:   filename,
		PageCount:  len(pages),
		ChunkCount: len(chunks),
		CreatedAt:  time.Now().UTC(),
	}
	if err := p.docs.Add(doc); err != nil {
		p.rollback(ctx, docID, storedPath, true)
		return docstore.Document{}, newError(KindIndexing, filename, err)
	}

	logger.InfoContext(ctx, "ingested document",
		"document_id", docID,
		"filename", filename,
		"pages", len(pages),
		"chunks", len(chunks),
		"duration", time.Since(started),
	)
	return doc, nil
}

// Delete removes a document: registry entry, vector collection, and stored
// upload. Collection and file removal are best effort once the registry
// entry is gone.
func (p *Pipeline) Delete(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := p.docs.Get(id)
	if err != nil {
		return err
	}
	if err := p.docs.Remove(id); err != nil {
		return err
	}

	if err := p.index.DeleteCollection(ctx, id); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
		logger.WarnContext(ctx, "failed to delete collection", "document_id", id, "error", err)
	}

	storedPath := filepath.Join(p.uploadDir, id+strings.ToLower(filepath.Ext(doc.Filename)))
	if err := os.Remove(storedPath); err != nil && !os.IsNotExist(err) {
		logger.WarnContext(ctx, "failed to remove stored upload", "document_id", id, "error", err)
	}

	logger.InfoContext(ctx, "deleted document", "document_id", id, "filename", doc.Filename)
	return nil
}

// SweepOrphans removes collections and stored uploads whose id is not in the
// registry. The registry is empty at process start, so running this at boot
// clears everything left behind by earlier runs or crashed ingestions.
func (p *Pipeline) SweepOrphans(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	ids, err := p.index.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	removedCollections := 0
	for _, id := range ids {
		if p.docs.Has(id) {
			continue
		}
		if err := p.index.DeleteCollection(ctx, id); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.WarnContext(ctx, "failed to sweep collection", "collection", id, "error", err)
			continue
		}
		removedCollections++
	}

	removedFiles := 0
	entries, err := os.ReadDir(p.uploadDir)
	if err != nil {
		return fmt.Errorf("failed to read upload directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if p.docs.Has(stem) {
			continue
		}
		if err := os.Remove(filepath.Join(p.uploadDir, name)); err != nil {
			logger.WarnContext(ctx, "failed to sweep stored upload", "file", name, "error", err)
			continue
		}
		removedFiles++
	}

	if removedCollections > 0 || removedFiles > 0 {
		logger.InfoContext(ctx, "swept orphans", "collections", removedCollections, "files", removedFiles)
	}
	return nil
}

func storeUpload(path string, r io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return nil
}

func (p *Pipeline) extractAndChunk(ctx context.Context, ex extract.Extractor, storedPath string) ([]extract.Page, []Chunk, error) {
	f, err := os.Open(storedPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored upload: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	pages, err := ex.Extract(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	chunks := p.chunker.Chunk(pages)
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("document contains no extractable text")
	}
	return pages, chunks, nil
}

// embedChunks embeds chunk texts in batches, a few batches in flight at a
// time. The result keeps chunk order.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		g.Go(func() error {
			batch, err := p.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embedding count mismatch for chunks %d-%d: expected %d, got %d",
					start, end-1, end-start, len(batch))
			}
			for i, vec := range batch {
				if len(vec) != p.embedDim {
					return fmt.Errorf("embedding for chunk %d has %d dimensions, expected %d",
						start+i, len(vec), p.embedDim)
				}
				vectors[start+i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (p *Pipeline) indexChunks(ctx context.Context, docID string, chunks []Chunk, vectors [][]float32) error {
	if err := p.index.CreateCollection(ctx, docID, p.embedDim); err != nil {
		return err
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			Vector: vectors[i],
			Payload: vectorstore.Payload{
				DocumentID: docID,
				ChunkIndex: chunk.Index,
				Page:       chunk.Page,
				Text:       chunk.Text,
			},
		}
	}
	if err := p.index.AddPoints(ctx, docID, points); err != nil {
		return err
	}

	// A stored count different from the chunk count means the collection is
	// corrupt; fail the ingestion rather than register a document whose
	// citations could dangle.
	count, err := p.index.CountPoints(ctx, docID)
	if err != nil {
		return err
	}
	if count != len(chunks) {
		return fmt.Errorf("indexed point count mismatch: expected %d, got %d: %w",
			len(chunks), count, vectorstore.ErrCorrupt)
	}
	return nil
}

// rollback removes whatever the failed ingestion left behind. It runs with
// the cause of the failure already decided, so it only logs its own errors.
func (p *Pipeline) rollback(ctx context.Context, docID, storedPath string, collectionCreated bool) {
	// Cleanup must run even when the request context is already canceled.
	ctx = context.WithoutCancel(ctx)
	logger := contextutil.LoggerFromContext(ctx)

	if err := os.Remove(storedPath); err != nil && !os.IsNotExist(err) {
		logger.WarnContext(ctx, "rollback: failed to remove stored upload", "path", storedPath, "error", err)
	}
	if collectionCreated {
		if err := p.index.DeleteCollection(ctx, docID); err != nil && !errors.Is(err, vectorstore.ErrCollectionNotFound) {
			logger.WarnContext(ctx, "rollback: failed to delete collection", "collection", docID, "error", err)
		}
	}
}
