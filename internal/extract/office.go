package extract

import (
	"context"
	"fmt"
	"io"

	"code.sajari.com/docconv"
)

// officeExtractor converts word-processor documents through docconv. Word
// documents have no reliable physical page boundary after conversion, so the
// output paginates on form feeds only.
type officeExtractor struct {
	mimeType string
	exts     []string
}

func newOfficeExtractor(mimeType string, exts ...string) *officeExtractor {
	return &officeExtractor{mimeType: mimeType, exts: exts}
}

func (e *officeExtractor) Exts() []string { return e.exts }

func (e *officeExtractor) Extract(ctx context.Context, r io.ReadSeeker) ([]Page, error) {
	res, err := docconv.Convert(r, e.mimeType, true)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}
	return paginate(res.Body, false), nil
}
