// Package docstore holds the in-memory registry of ingested documents.
// The registry is the source of truth for which documents exist: a document
// is listed here only once all of its chunks are indexed. It starts empty on
// every process start and is never persisted.
package docstore

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a document id is not in the registry.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateID is returned when Add is called with an id already registered.
var ErrDuplicateID = errors.New("document id already registered")

// Document is the metadata record for one ingested document. The document id
// doubles as the vector collection id.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is a concurrency-safe document registry preserving insertion order.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		docs: make(map[string]Document),
	}
}

// Add registers a document. The id must not already be present.
func (s *Store) Add(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		return ErrDuplicateID
	}
	s.docs[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	return nil
}

// Get returns the document for id, or ErrNotFound.
func (s *Store) Get(id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// Has reports whether id is registered.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.docs[id]
	return ok
}

// List returns all documents in insertion order.
func (s *Store) List() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

// Remove deletes the document for id, or returns ErrNotFound.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of registered documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs)
}
