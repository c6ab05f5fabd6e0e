// Package store implements the local embedded document store.
//
// Documents are JSON objects grouped into named collections. Every document
// carries a string identifier under "_id" that is unique within its
// collection. Queries are interpreted by the shared query matcher so every
// backend returns the same records in the same (insertion) order.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-ports/flowlet/internal/query"
)

// Driver names accepted by Open.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)

var (
	// ErrStoreUnavailable is returned when the backing file cannot be opened
	// or parsed, or a read/write against it fails.
	ErrStoreUnavailable = errors.New("local store unavailable")
	// ErrMissingID is returned when an inserted document has no string _id.
	ErrMissingID = errors.New("document has no _id")
	// ErrDuplicateID is returned when a collection already holds the _id.
	ErrDuplicateID = errors.New("duplicate _id")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Document is a single stored record.
type Document = map[string]any

// Store is the collection-scoped document store contract. "Nothing matched"
// is reported through the boolean or count results and is never an error.
type Store interface {
	// InsertOne stores doc, which must carry a string _id.
	InsertOne(collection string, doc Document) (Document, error)
	// FindOne returns the first match in insertion order.
	FindOne(collection string, q query.Query) (Document, bool, error)
	// FindMany returns every match in insertion order. Never nil.
	FindMany(collection string, q query.Query) ([]Document, error)
	// UpdateOne shallow-merges patch into the first match. _id is not patchable.
	UpdateOne(collection string, q query.Query, patch Document) (Document, bool, error)
	// DeleteOne removes the first match.
	DeleteOne(collection string, q query.Query) (bool, error)
	// DeleteMany removes every match and reports how many were removed.
	DeleteMany(collection string, q query.Query) (int, error)
	Close() error
}

// Open opens the store for driver at path. An empty driver selects the JSON
// file backend.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", DriverJSON:
		return OpenFile(path)
	case DriverSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("store.Open: %w: %q", ErrUnknownDriver, driver)
	}
}

// DefaultPath returns the store file for driver inside the flowlet home.
func DefaultPath(home, driver string) string {
	if driver == DriverSQLite {
		return filepath.Join(home, "flowlet.db")
	}
	return filepath.Join(home, "flowlet.json")
}

// ---------------------------------------------------------------------------
// Helpers shared by the backends
// ---------------------------------------------------------------------------

// normalize deep-copies doc through JSON so stored documents hold only
// decoded JSON types and never alias caller memory.
func normalize(doc Document) (Document, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Document{}
	}
	return out, nil
}

// docID extracts the string _id of doc.
func docID(doc Document) (string, bool) {
	id, ok := doc[query.IDField].(string)
	return id, ok && id != ""
}

// merge applies the top-level keys of patch to doc, leaving _id untouched.
func merge(doc, patch Document) {
	for k, v := range patch {
		if k == query.IDField {
			continue
		}
		doc[k] = v
	}
}
