package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver with database/sql

	"github.com/go-ports/flowlet/internal/query"
)

// schemaVersion is persisted in the meta table.
const schemaVersion = 1

// ErrSchemaVersion is returned when the database was written by a newer schema.
var ErrSchemaVersion = errors.New("unsupported store schema version")

// SQLiteStore keeps documents as JSON bodies in a single SQLite table. Rows
// are ordered by an autoincrement sequence so iteration follows insertion
// order, and filtering uses the same matcher as FileStore.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the SQLite store at path and initialises the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store.OpenSQLite: %w: %w", ErrStoreUnavailable, err)
	}
	sqldb, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store.OpenSQLite: %w: %w", ErrStoreUnavailable, err)
	}
	sqldb.SetMaxOpenConns(1)

	s := &SQLiteStore{db: sqldb, path: path}
	if err := s.createSchema(); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("store.OpenSQLite createSchema: %w: %w", ErrStoreUnavailable, err)
	}
	return s, nil
}

// Path returns the database file backing the store.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func (s *SQLiteStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			body       TEXT NOT NULL,
			UNIQUE (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_collection ON documents (collection, seq)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("createSchema exec: %w\nSQL: %s", err, stmt)
		}
	}

	val, ok, err := s.GetMeta("schema_version")
	if err != nil {
		return err
	}
	if !ok {
		return s.SetMeta("schema_version", strconv.Itoa(schemaVersion))
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("schema_version %q: %w", val, err)
	}
	if v > schemaVersion {
		return fmt.Errorf("%w: database has %d, this build supports %d", ErrSchemaVersion, v, schemaVersion)
	}
	return nil
}

// ---------------------------------------------------------------------------
// CRUD
// ---------------------------------------------------------------------------

// InsertOne stores doc as a new row in collection.
func (s *SQLiteStore) InsertOne(collection string, doc Document) (Document, error) {
	stored, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("store.InsertOne: %w", err)
	}
	id, ok := docID(stored)
	if !ok {
		return nil, fmt.Errorf("store.InsertOne: %w", ErrMissingID)
	}

	var exists int
	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("store.InsertOne: %w: %w", ErrStoreUnavailable, err)
	}
	if exists > 0 {
		return nil, fmt.Errorf("store.InsertOne: %w: %s", ErrDuplicateID, id)
	}

	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("store.InsertOne: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		collection, id, string(body),
	); err != nil {
		return nil, fmt.Errorf("store.InsertOne: %w: %w", ErrStoreUnavailable, err)
	}
	return stored, nil
}

// FindOne returns the first document in collection matching q.
func (s *SQLiteStore) FindOne(collection string, q query.Query) (Document, bool, error) {
	rows, err := s.scan(collection, q, 1)
	if err != nil {
		return nil, false, fmt.Errorf("store.FindOne: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].doc, true, nil
}

// FindMany returns all documents in collection matching q.
func (s *SQLiteStore) FindMany(collection string, q query.Query) ([]Document, error) {
	rows, err := s.scan(collection, q, 0)
	if err != nil {
		return nil, fmt.Errorf("store.FindMany: %w", err)
	}
	out := make([]Document, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.doc)
	}
	return out, nil
}

// UpdateOne merges patch into the first match.
func (s *SQLiteStore) UpdateOne(collection string, q query.Query, patch Document) (Document, bool, error) {
	rows, err := s.scan(collection, q, 1)
	if err != nil {
		return nil, false, fmt.Errorf("store.UpdateOne: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	p, err := normalize(patch)
	if err != nil {
		return nil, false, fmt.Errorf("store.UpdateOne: %w", err)
	}

	doc := rows[0].doc
	merge(doc, p)
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, false, fmt.Errorf("store.UpdateOne: %w", err)
	}
	if _, err := s.db.Exec(
		`UPDATE documents SET body = ? WHERE seq = ?`, string(body), rows[0].seq,
	); err != nil {
		return nil, false, fmt.Errorf("store.UpdateOne: %w: %w", ErrStoreUnavailable, err)
	}
	return doc, true, nil
}

// DeleteOne removes the first match.
func (s *SQLiteStore) DeleteOne(collection string, q query.Query) (bool, error) {
	rows, err := s.scan(collection, q, 1)
	if err != nil {
		return false, fmt.Errorf("store.DeleteOne: %w", err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	if _, err := s.db.Exec(`DELETE FROM documents WHERE seq = ?`, rows[0].seq); err != nil {
		return false, fmt.Errorf("store.DeleteOne: %w: %w", ErrStoreUnavailable, err)
	}
	return true, nil
}

// DeleteMany removes every match.
func (s *SQLiteStore) DeleteMany(collection string, q query.Query) (int, error) {
	rows, err := s.scan(collection, q, 0)
	if err != nil {
		return 0, fmt.Errorf("store.DeleteMany: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("store.DeleteMany: %w: %w", ErrStoreUnavailable, err)
	}
	for _, r := range rows {
		if _, err := tx.Exec(`DELETE FROM documents WHERE seq = ?`, r.seq); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("store.DeleteMany: %w: %w", ErrStoreUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store.DeleteMany: %w: %w", ErrStoreUnavailable, err)
	}
	return len(rows), nil
}

// ---------------------------------------------------------------------------
// Meta
// ---------------------------------------------------------------------------

// GetMeta returns the value for key, or ("", false, nil) if not set.
func (s *SQLiteStore) GetMeta(key string) (string, bool, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetMeta upserts a key-value pair in the meta table.
func (s *SQLiteStore) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value,
	)
	return err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type row struct {
	seq int64
	doc Document
}

// scan walks collection in insertion order and returns matches of q.
// limit <= 0 means no limit.
func (s *SQLiteStore) scan(collection string, q query.Query, limit int) ([]row, error) {
	rows, err := s.db.Query(
		`SELECT seq, body FROM documents WHERE collection = ? ORDER BY seq`, collection,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		var body string
		if err := rows.Scan(&r.seq, &body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if err := json.Unmarshal([]byte(body), &r.doc); err != nil {
			return nil, fmt.Errorf("%w: decode row %d: %w", ErrStoreUnavailable, r.seq, err)
		}
		if !q.Match(r.doc) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return out, nil
}
