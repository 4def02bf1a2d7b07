package handlers

import (
	"errors"
	"net/http"
	"time"

	"docassist/internal/contextutil"
	"docassist/internal/docstore"
	"docassist/internal/ingest"
	"docassist/internal/metrics"
)

// UploadHandler accepts a multipart document upload and runs ingestion.
type UploadHandler struct {
	pipeline *ingest.Pipeline
	docs     *docstore.Store
	metrics  *metrics.Metrics
	maxBytes int64
}

// NewUploadHandler creates a new UploadHandler. maxBytes bounds the whole
// request body.
func NewUploadHandler(pipeline *ingest.Pipeline, docs *docstore.Store, m *metrics.Metrics, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		pipeline: pipeline,
		docs:     docs,
		metrics:  m,
		maxBytes: maxBytes,
	}
}

// UploadResponse represents a successful ingestion.
type UploadResponse struct {
	Status       string `json:"status"`
	CollectionID string `json:"collection_id"`
	Filename     string `json:"filename"`
	PageCount    int    `json:"page_count"`
	ChunkCount   int    `json:"chunk_count"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			logger.WarnContext(ctx, "upload exceeds size limit", "limit_bytes", h.maxBytes)
			writeError(ctx, w, http.StatusRequestEntityTooLarge, "file exceeds the upload limit")
			return
		}
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(ctx, w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	if header.Filename == "" {
		logger.WarnContext(ctx, "upload missing filename")
		writeError(ctx, w, http.StatusBadRequest, "uploaded file has no name")
		return
	}

	start := time.Now()
	doc, err := h.pipeline.Ingest(ctx, header.Filename, file)
	h.metrics.RecordIngest(time.Since(start), doc.ChunkCount, err)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	h.metrics.SetDocumentCount(h.docs.Len())

	writeJSON(ctx, w, http.StatusOK, UploadResponse{
		Status:       "success",
		CollectionID: doc.ID,
		Filename:     doc.Filename,
		PageCount:    doc.PageCount,
		ChunkCount:   doc.ChunkCount,
	})
}
