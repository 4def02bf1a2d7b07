package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks docassist/internal/vectorstore VectorIndex

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when an operation references a collection
// id that does not exist in the index.
var ErrCollectionNotFound = errors.New("collection not found")

// ErrDimensionMismatch is returned when a vector's width does not match the
// collection's configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrCorrupt marks an index whose stored state is inconsistent, such as a
// point count that disagrees with the chunks written or an undecodable
// embedding blob.
var ErrCorrupt = errors.New("index corrupted")

// Payload carries the chunk fields stored alongside each vector. A chunk is
// identified by (DocumentID, ChunkIndex).
type Payload struct {
	DocumentID string
	ChunkIndex int
	Page       int
	Text       string
}

// Point is one chunk vector plus its payload.
type Point struct {
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a search hit. Score is cosine similarity.
type ScoredPoint struct {
	Score   float32
	Payload Payload
}

// VectorIndex stores per-document chunk collections and serves similarity
// search over them. The collection id equals the document id. Results are
// ordered by descending score with ties broken by ascending chunk index, so
// repeated searches over an unchanged collection return identical rankings.
type VectorIndex interface {
	// CreateCollection creates an empty collection with the given vector dimension.
	CreateCollection(ctx context.Context, id string, dim int) error

	// AddPoints inserts chunk vectors into the collection.
	AddPoints(ctx context.Context, id string, points []Point) error

	// Search returns the k nearest chunks to the query vector. A k larger
	// than the collection returns every point ranked.
	Search(ctx context.Context, id string, vector []float32, k int) ([]ScoredPoint, error)

	// FetchByIndex returns the payloads for the given chunk indexes in
	// ascending index order. Unknown indexes are skipped.
	FetchByIndex(ctx context.Context, id string, indexes []int) ([]Payload, error)

	// CountPoints returns the number of points stored in the collection.
	CountPoints(ctx context.Context, id string) (int, error)

	// DeleteCollection removes the collection and all of its points.
	DeleteCollection(ctx context.Context, id string) error

	// HasCollection reports whether the collection exists.
	HasCollection(ctx context.Context, id string) (bool, error)

	// ListCollections returns the ids of all collections in the index.
	ListCollections(ctx context.Context) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
