package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"docassist/internal/contextutil"
)

// SQLiteIndex implements VectorIndex on an embedded SQLite file. Embeddings
// are L2-normalized on write and stored as little-endian float32 blobs, so
// cosine similarity reduces to a dot product at search time. Search scans the
// collection's rows; collections here are single documents, small enough that
// a linear scan beats maintaining an ANN structure.
type SQLiteIndex struct {
	db *sql.DB
}

// NewSQLiteIndex opens (creating if needed) the index database at path and
// runs migrations. Migrations are idempotent.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate index database: %w", err)
	}

	return &SQLiteIndex{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS collections (
			id TEXT PRIMARY KEY,
			dim INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS points (
			collection_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			page INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL,
			PRIMARY KEY (collection_id, chunk_index),
			FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// CreateCollection creates an empty collection with the given vector dimension.
func (s *SQLiteIndex) CreateCollection(ctx context.Context, id string, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("dimension must be greater than 0, got %d", dim)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO collections (id, dim) VALUES (?, ?)",
		id, dim,
	)
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", id, err)
	}
	return nil
}

// AddPoints inserts chunk vectors into the collection in one transaction.
func (s *SQLiteIndex) AddPoints(ctx context.Context, id string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	dim, err := s.collectionDim(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO points (collection_id, chunk_index, page, text, embedding) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range points {
		if len(p.Vector) != dim {
			return fmt.Errorf("chunk %d has %d dimensions, collection %s expects %d: %w",
				p.Payload.ChunkIndex, len(p.Vector), id, dim, ErrDimensionMismatch)
		}
		vec := normalize(p.Vector)
		if _, err := stmt.ExecContext(ctx,
			id, p.Payload.ChunkIndex, p.Payload.Page, p.Payload.Text, encodeVector(vec),
		); err != nil {
			return fmt.Errorf("failed to insert point %d: %w", p.Payload.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit points: %w", err)
	}

	logger.InfoContext(ctx, "added points", "collection", id, "count", len(points))
	return nil
}

// Search returns the k nearest chunks to the query vector.
func (s *SQLiteIndex) Search(ctx context.Context, id string, vector []float32, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	dim, err := s.collectionDim(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("query has %d dimensions, collection %s expects %d: %w",
			len(vector), id, dim, ErrDimensionMismatch)
	}
	query := normalize(vector)

	rows, err := s.db.QueryContext(ctx,
		"SELECT chunk_index, page, text, embedding FROM points WHERE collection_id = ?",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []ScoredPoint
	for rows.Next() {
		var (
			chunkIndex int
			page       int
			text       string
			blob       []byte
		)
		if err := rows.Scan(&chunkIndex, &page, &text, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("point %d in collection %s: %w", chunkIndex, id, err)
		}
		if len(stored) != dim {
			return nil, fmt.Errorf("point %d in collection %s has %d dimensions, expected %d: %w",
				chunkIndex, id, len(stored), dim, ErrDimensionMismatch)
		}
		results = append(results, ScoredPoint{
			Score: dot(query, stored),
			Payload: Payload{
				DocumentID: id,
				ChunkIndex: chunkIndex,
				Page:       page,
				Text:       text,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Descending score, ascending chunk index on ties.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Payload.ChunkIndex < results[j].Payload.ChunkIndex
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// FetchByIndex returns payloads for the given chunk indexes in ascending index order.
func (s *SQLiteIndex) FetchByIndex(ctx context.Context, id string, indexes []int) ([]Payload, error) {
	if _, err := s.collectionDim(ctx, id); err != nil {
		return nil, err
	}
	if len(indexes) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(indexes)), ",")
	args := make([]any, 0, len(indexes)+1)
	args = append(args, id)
	for _, idx := range indexes {
		args = append(args, idx)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT chunk_index, page, text FROM points WHERE collection_id = ? AND chunk_index IN ("+placeholders+") ORDER BY chunk_index",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query points by index: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var payloads []Payload
	for rows.Next() {
		p := Payload{DocumentID: id}
		if err := rows.Scan(&p.ChunkIndex, &p.Page, &p.Text); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return payloads, nil
}

// CountPoints returns the number of points stored in the collection.
func (s *SQLiteIndex) CountPoints(ctx context.Context, id string) (int, error) {
	if _, err := s.collectionDim(ctx, id); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM points WHERE collection_id = ?",
		id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// DeleteCollection removes the collection and all of its points.
func (s *SQLiteIndex) DeleteCollection(ctx context.Context, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	res, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCollectionNotFound
	}

	logger.InfoContext(ctx, "deleted collection", "collection", id)
	return nil
}

// HasCollection reports whether the collection exists.
func (s *SQLiteIndex) HasCollection(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM collections WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return true, nil
}

// ListCollections returns the ids of all collections in the index.
func (s *SQLiteIndex) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM collections ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) collectionDim(ctx context.Context, id string) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dim FROM collections WHERE id = ?", id).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, ErrCollectionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query collection: %w", err)
	}
	return dim, nil
}

// encodeVector packs a float32 slice into a little-endian blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 slice.
func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4: %w", len(blob), ErrCorrupt)
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}

// normalize returns the L2-normalized copy of vec. A zero vector is returned
// unchanged.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, f := range vec {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out
	}
	out := make([]float32, len(vec))
	for i, f := range vec {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
