package docstore

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testDoc(id, filename string) Document {
	return Document{
		ID:         id,
		Filename:   filename,
		PageCount:  3,
		ChunkCount: 6,
		CreatedAt:  time.Now(),
	}
}

func TestStore_AddGet(t *testing.T) {
	s := New()

	doc := testDoc("doc-1", "report.pdf")
	if err := s.Add(doc); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := s.Get("doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Filename != "report.pdf" || got.PageCount != 3 || got.ChunkCount != 6 {
		t.Errorf("Get() = %+v, want %+v", got, doc)
	}
}

func TestStore_AddDuplicate(t *testing.T) {
	s := New()

	if err := s.Add(testDoc("doc-1", "a.pdf")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := s.Add(testDoc("doc-1", "b.pdf"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Add() duplicate error = %v, want ErrDuplicateID", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := New()

	_, err := s.Get("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListInsertionOrder(t *testing.T) {
	s := New()

	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		if err := s.Add(testDoc(id, id+".txt")); err != nil {
			t.Fatalf("Add(%q) error = %v", id, err)
		}
	}

	docs := s.List()
	if len(docs) != 3 {
		t.Fatalf("List() returned %d docs, want 3", len(docs))
	}
	for i, id := range ids {
		if docs[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q (insertion order)", i, docs[i].ID, id)
		}
	}
}

func TestStore_Remove(t *testing.T) {
	s := New()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Add(testDoc(id, id+".txt")); err != nil {
			t.Fatalf("Add(%q) error = %v", id, err)
		}
	}

	if err := s.Remove("b"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if s.Has("b") {
		t.Error("Has() = true after Remove")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d after Remove, want 2", s.Len())
	}

	docs := s.List()
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "c" {
		t.Errorf("List() after Remove = %v, want [a c]", docs)
	}

	if err := s.Remove("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() twice error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListReturnsCopies(t *testing.T) {
	s := New()
	if err := s.Add(testDoc("doc-1", "a.txt")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	docs := s.List()
	docs[0].Filename = "mutated.txt"

	got, err := s.Get("doc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Filename != "a.txt" {
		t.Errorf("Get() Filename = %q after mutating List() result, want %q", got.Filename, "a.txt")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", n)
			if err := s.Add(testDoc(id, id+".txt")); err != nil {
				t.Errorf("Add(%q) error = %v", id, err)
			}
			_, _ = s.Get(id)
			_ = s.List()
		}(i)
	}
	wg.Wait()

	if s.Len() != 20 {
		t.Errorf("Len() = %d after concurrent adds, want 20", s.Len())
	}
}
