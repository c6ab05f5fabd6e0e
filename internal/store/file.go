package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-ports/flowlet/internal/query"
)

// FileStore keeps every collection in a single JSON file. The whole file is
// loaded at open and rewritten after each mutation.
type FileStore struct {
	mu   sync.Mutex
	path string
	data map[string][]Document
}

// OpenFile opens (or creates on first write) the JSON store at path.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store.OpenFile: %w: %w", ErrStoreUnavailable, err)
	}
	s := &FileStore{path: path, data: make(map[string][]Document)}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("store.OpenFile: %w: %w", ErrStoreUnavailable, err)
	}
	if len(b) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("store.OpenFile: parse %s: %w: %w", path, ErrStoreUnavailable, err)
	}
	if s.data == nil {
		s.data = make(map[string][]Document)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

// Close is a no-op; every mutation is already on disk.
func (s *FileStore) Close() error { return nil }

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

// InsertOne appends doc to collection.
func (s *FileStore) InsertOne(collection string, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("store.InsertOne: %w", err)
	}
	id, ok := docID(stored)
	if !ok {
		return nil, fmt.Errorf("store.InsertOne: %w", ErrMissingID)
	}
	for _, d := range s.data[collection] {
		if existing, _ := docID(d); existing == id {
			return nil, fmt.Errorf("store.InsertOne: %w: %s", ErrDuplicateID, id)
		}
	}

	s.data[collection] = append(s.data[collection], stored)
	if err := s.flush(); err != nil {
		s.data[collection] = s.data[collection][:len(s.data[collection])-1]
		return nil, fmt.Errorf("store.InsertOne: %w", err)
	}
	return cloneDoc(stored), nil
}

// FindOne returns the first document in collection matching q.
func (s *FileStore) FindOne(collection string, q query.Query) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, q)
	if i < 0 {
		return nil, false, nil
	}
	return cloneDoc(s.data[collection][i]), true, nil
}

// FindMany returns all documents in collection matching q.
func (s *FileStore) FindMany(collection string, q query.Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Document, 0)
	for _, d := range s.data[collection] {
		if q.Match(d) {
			out = append(out, cloneDoc(d))
		}
	}
	return out, nil
}

// UpdateOne merges patch into the first match.
func (s *FileStore) UpdateOne(collection string, q query.Query, patch Document) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, q)
	if i < 0 {
		return nil, false, nil
	}
	p, err := normalize(patch)
	if err != nil {
		return nil, false, fmt.Errorf("store.UpdateOne: %w", err)
	}

	prev := s.data[collection][i]
	next := cloneDoc(prev)
	merge(next, p)
	s.data[collection][i] = next
	if err := s.flush(); err != nil {
		s.data[collection][i] = prev
		return nil, false, fmt.Errorf("store.UpdateOne: %w", err)
	}
	return cloneDoc(next), true, nil
}

// DeleteOne removes the first match.
func (s *FileStore) DeleteOne(collection string, q query.Query) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(collection, q)
	if i < 0 {
		return false, nil
	}
	prev := s.data[collection]
	next := make([]Document, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	s.data[collection] = next
	if err := s.flush(); err != nil {
		s.data[collection] = prev
		return false, fmt.Errorf("store.DeleteOne: %w", err)
	}
	return true, nil
}

// DeleteMany removes every match.
func (s *FileStore) DeleteMany(collection string, q query.Query) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data[collection]
	next := make([]Document, 0, len(prev))
	for _, d := range prev {
		if !q.Match(d) {
			next = append(next, d)
		}
	}
	removed := len(prev) - len(next)
	if removed == 0 {
		return 0, nil
	}
	s.data[collection] = next
	if err := s.flush(); err != nil {
		s.data[collection] = prev
		return 0, fmt.Errorf("store.DeleteMany: %w", err)
	}
	return removed, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *FileStore) indexOf(collection string, q query.Query) int {
	for i, d := range s.data[collection] {
		if q.Match(d) {
			return i
		}
	}
	return -1
}

// flush writes the whole store to a temp file and renames it into place.
func (s *FileStore) flush() error {
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStoreUnavailable, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".flowlet-*.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: write: %w", ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: close: %w", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: rename: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// cloneDoc deep-copies a document that already holds only JSON types.
func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
