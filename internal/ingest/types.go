package ingest

import "fmt"

// Chunk is one overlapping window of document text. Index is dense and
// global across the document, starting at 0; Page is the 1-based page the
// text came from. A chunk never spans pages.
type Chunk struct {
	Index int
	Page  int
	Text  string
}

// Ingestion failure kinds.
const (
	KindExtraction = "extraction"
	KindEmbedding  = "embedding"
	KindIndexing   = "indexing"
)

// Error describes an ingestion failure. Whatever the kind, the pipeline has
// already rolled back: nothing is registered and no partial collection or
// stored upload remains.
type Error struct {
	Kind     string
	Filename string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingestion failed (%s) for %s: %v", e.Kind, e.Filename, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind, filename string, err error) *Error {
	return &Error{Kind: kind, Filename: filename, Err: err}
}
