package extract

import (
	"context"
	"fmt"
	"io"

	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"docassist/internal/contextutil"
)

// pdfExtractor extracts text per physical page. Pages that fail to parse are
// kept with empty text so page numbering stays aligned with the source file.
type pdfExtractor struct{}

func (e *pdfExtractor) Exts() []string { return []string{".pdf"} }

func (e *pdfExtractor) Extract(ctx context.Context, r io.ReadSeeker) ([]Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pdfReader, err := model.NewPdfReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page count: %w", err)
	}

	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			logger.WarnContext(ctx, "failed to load PDF page", "page", i, "error", err)
			pages = append(pages, Page{Number: i})
			continue
		}

		ex, err := extractor.New(page)
		if err != nil {
			logger.WarnContext(ctx, "failed to create extractor for PDF page", "page", i, "error", err)
			pages = append(pages, Page{Number: i})
			continue
		}

		text, err := ex.ExtractText()
		if err != nil {
			logger.WarnContext(ctx, "failed to extract text from PDF page", "page", i, "error", err)
			pages = append(pages, Page{Number: i})
			continue
		}

		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages, nil
}
