package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"docassist/internal/contextutil"
)

// collectionPrefix namespaces our collections inside a shared Qdrant
// instance so ListCollections never reports (and the startup sweep never
// deletes) collections owned by other applications.
const collectionPrefix = "doc_"

// QdrantIndex implements VectorIndex against a Qdrant server. Each document
// gets its own Qdrant collection; point ids are the chunk indexes.
type QdrantIndex struct {
	client *qdrant.Client
}

// NewQdrantIndex creates a Qdrant-backed index.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantIndex(urlStr string) (*QdrantIndex, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{client: client}, nil
}

// CreateCollection creates an empty collection with the given vector dimension.
func (s *QdrantIndex) CreateCollection(ctx context.Context, id string, dim int) error {
	logger := contextutil.LoggerFromContext(ctx)

	if dim <= 0 {
		return fmt.Errorf("dimension must be greater than 0, got %d", dim)
	}

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionPrefix + id,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", id, err)
	}

	logger.InfoContext(ctx, "created collection", "collection", id, "dim", dim)
	return nil
}

// AddPoints inserts chunk vectors into the collection.
func (s *QdrantIndex) AddPoints(ctx context.Context, id string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	dim, err := s.collectionDim(ctx, id)
	if err != nil {
		return err
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("chunk %d has %d dimensions, collection %s expects %d: %w",
				p.Payload.ChunkIndex, len(p.Vector), id, dim, ErrDimensionMismatch)
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(p.Payload.ChunkIndex)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": p.Payload.DocumentID,
				"chunk_index": int64(p.Payload.ChunkIndex),
				"page":        int64(p.Payload.Page),
				"text":        p.Payload.Text,
			}),
		})
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionPrefix + id,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to add points", "collection", id, "count", len(points), "error", err)
		return fmt.Errorf("failed to add points: %w", err)
	}

	logger.InfoContext(ctx, "added points", "collection", id, "count", len(points))
	return nil
}

// Search returns the k nearest chunks to the query vector.
func (s *QdrantIndex) Search(ctx context.Context, id string, vector []float32, k int) ([]ScoredPoint, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	exists, err := s.HasCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	limit := uint64(k)
	scoredPoints, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionPrefix + id,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", id, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]ScoredPoint, 0, len(scoredPoints))
	for _, sp := range scoredPoints {
		results = append(results, ScoredPoint{
			Score:   sp.Score,
			Payload: payloadFromQdrant(id, sp.Payload),
		})
	}

	// Qdrant orders by score; re-sort stably so equal scores rank by chunk index.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Payload.ChunkIndex < results[j].Payload.ChunkIndex
	})

	logger.InfoContext(ctx, "search completed", "collection", id, "k", k, "results", len(results))
	return results, nil
}

// FetchByIndex returns payloads for the given chunk indexes in ascending index order.
func (s *QdrantIndex) FetchByIndex(ctx context.Context, id string, indexes []int) ([]Payload, error) {
	exists, err := s.HasCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}
	if len(indexes) == 0 {
		return nil, nil
	}

	ids := make([]*qdrant.PointId, 0, len(indexes))
	for _, idx := range indexes {
		ids = append(ids, qdrant.NewIDNum(uint64(idx)))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collectionPrefix + id,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch points: %w", err)
	}

	payloads := make([]Payload, 0, len(points))
	for _, p := range points {
		payloads = append(payloads, payloadFromQdrant(id, p.Payload))
	}
	sort.Slice(payloads, func(i, j int) bool {
		return payloads[i].ChunkIndex < payloads[j].ChunkIndex
	})

	return payloads, nil
}

// CountPoints returns the number of points stored in the collection.
func (s *QdrantIndex) CountPoints(ctx context.Context, id string) (int, error) {
	exists, err := s.HasCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	info, err := s.client.GetCollectionInfo(ctx, collectionPrefix+id)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	if info.PointsCount == nil {
		return 0, nil
	}
	return int(*info.PointsCount), nil
}

// DeleteCollection removes the collection and all of its points.
func (s *QdrantIndex) DeleteCollection(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.HasCollection(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCollectionNotFound
	}

	if err := s.client.DeleteCollection(ctx, collectionPrefix+id); err != nil {
		logger.ErrorContext(ctx, "failed to delete collection", "collection", id, "error", err)
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	logger.InfoContext(ctx, "deleted collection", "collection", id)
	return nil
}

// HasCollection reports whether the collection exists.
func (s *QdrantIndex) HasCollection(ctx context.Context, id string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collectionPrefix+id)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// ListCollections returns the ids of all collections owned by this index.
func (s *QdrantIndex) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var ids []string
	for _, name := range names {
		if strings.HasPrefix(name, collectionPrefix) {
			ids = append(ids, strings.TrimPrefix(name, collectionPrefix))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantIndex) Close() error {
	return s.client.Close()
}

func (s *QdrantIndex) collectionDim(ctx context.Context, id string) (int, error) {
	exists, err := s.HasCollection(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	info, err := s.client.GetCollectionInfo(ctx, collectionPrefix+id)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}
	config := info.Config
	if config == nil || config.Params == nil {
		return 0, fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return 0, fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return 0, fmt.Errorf("collection vector params are invalid")
	}
	return int(params.Size), nil
}

// payloadFromQdrant converts a Qdrant payload back into a chunk Payload.
// The document id from the collection is authoritative; the payload copy is
// a convenience for debugging in the Qdrant console.
func payloadFromQdrant(docID string, fields map[string]*qdrant.Value) Payload {
	p := Payload{DocumentID: docID}
	if fields == nil {
		return p
	}
	if v, ok := fields["chunk_index"]; ok {
		p.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := fields["page"]; ok {
		p.Page = int(v.GetIntegerValue())
	}
	if v, ok := fields["text"]; ok {
		p.Text = v.GetStringValue()
	}
	return p
}
