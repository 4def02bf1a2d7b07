package rag

import (
	"context"
	"fmt"
	"strings"

	"docassist/internal/contextutil"
)

// Summarize produces an abstractive summary and key points for a document.
// When the document has more chunks than the configured budget, an evenly
// spaced sample (always including the first and last chunk) feeds the
// summary, so repeated calls read the same text.
func (e *Engine) Summarize(ctx context.Context, docID string) (SummaryResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if _, err := e.docs.Get(docID); err != nil {
		return SummaryResult{}, err
	}

	count, err := e.index.CountPoints(ctx, docID)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("failed to count chunks for document %s: %w", docID, err)
	}
	if count == 0 {
		return SummaryResult{}, fmt.Errorf("document %s has no indexed chunks", docID)
	}

	indexes := sampleIndexes(count, e.opts.SummaryMaxChunks)
	payloads, err := e.index.FetchByIndex(ctx, docID, indexes)
	if err != nil {
		return SummaryResult{}, fmt.Errorf("failed to fetch chunks for document %s: %w", docID, err)
	}

	texts := make([]string, len(payloads))
	for i, payload := range payloads {
		texts[i] = payload.Text
	}
	sample := strings.Join(texts, "\n\n")

	logger.InfoContext(ctx, "summarizing document",
		"document_id", docID,
		"total_chunks", count,
		"sampled_chunks", len(payloads),
	)

	summary, err := e.generate(ctx, summaryPrompt(sample))
	if err != nil {
		return SummaryResult{}, fmt.Errorf("failed to generate summary: %w", err)
	}

	keyPoints, err := e.generate(ctx, keyPointsPrompt(summary))
	if err != nil {
		return SummaryResult{}, fmt.Errorf("failed to extract key points: %w", err)
	}

	return SummaryResult{Summary: summary, KeyPoints: keyPoints}, nil
}

// sampleIndexes picks up to max chunk indexes out of total, evenly spaced
// and always including index 0 and total-1. With total <= max every index
// is returned.
func sampleIndexes(total, max int) []int {
	if total <= max {
		indexes := make([]int, total)
		for i := range indexes {
			indexes[i] = i
		}
		return indexes
	}
	if max == 1 {
		return []int{0}
	}

	indexes := make([]int, max)
	for i := range indexes {
		indexes[i] = i * (total - 1) / (max - 1)
	}
	return indexes
}
