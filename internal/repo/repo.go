// Package repo implements the dual-store entity repositories.
//
// The local store is authoritative. Creates, updates and removes are mirrored
// to the remote service on a best-effort basis: a failed mirror is logged and
// reported in Result.Warnings but never fails the operation. Reads and lists
// go to exactly one store, chosen by the caller, with no fallback between
// them.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var (
	// ErrNotFound is returned by update and remove when no local record
	// matches the lookup key.
	ErrNotFound = errors.New("record not found")
	// ErrNoRecords is returned by list when the local store call itself failed.
	ErrNoRecords = errors.New("no records found")
	// ErrUnsupported is returned for operations an entity does not offer.
	ErrUnsupported = errors.New("operation not supported")
	// ErrInvalidInput is returned when a required input field is empty.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOffline is returned by remote reads when no remote is configured.
	ErrOffline = remote.ErrOffline
)

// ReadInput selects one record. Remote reads bypass the local store.
type ReadInput struct {
	Query  query.Query
	Remote bool
}

// ListInput selects many records. Remote lists bypass the local store.
type ListInput struct {
	Query  query.Query
	Remote bool
}

// Result is the outcome of a mutating operation. Warnings holds one line per
// failed remote mirror.
type Result[T any] struct {
	Record   T
	Warnings []string
}

// Repository is the contract every entity repository satisfies. T is the
// entity, C, U and R its create, update and remove inputs.
type Repository[T, C, U, R any] interface {
	Create(ctx context.Context, in C) (*Result[T], error)
	Update(ctx context.Context, in U) (*Result[T], error)
	// Read returns nil, nil when nothing matches.
	Read(ctx context.Context, in ReadInput) (*T, error)
	// List returns an empty, non-nil slice when nothing matches.
	List(ctx context.Context, in ListInput) ([]T, error)
	// Remove reports whether the local record was deleted.
	Remove(ctx context.Context, in R) (*Result[bool], error)
}

// updateInput is satisfied by every entity's update input.
type updateInput interface {
	Lookup() string
	Patch() map[string]any
}

// ---------------------------------------------------------------------------
// collection engine
// ---------------------------------------------------------------------------

// collection implements the five operations for one entity type. key is the
// lookup field used by update and remove. A nil remote disables mirroring.
type collection[T any] struct {
	name   string
	key    string
	store  store.Store
	remote *remote.Client
}

func newCollection[T any](name, key string, s store.Store, rc *remote.Client) *collection[T] {
	return &collection[T]{name: name, key: key, store: s, remote: rc}
}

func (c *collection[T]) lookup(value string) query.Query {
	return query.Eq(c.key, value)
}

// create inserts rec locally, then mirrors it.
func (c *collection[T]) create(ctx context.Context, rec T) (*Result[T], error) {
	doc, err := toDoc(rec)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Create: %w", c.name, err)
	}
	stored, err := c.store.InsertOne(c.name, doc)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Create: %w", c.name, err)
	}
	out, err := fromDoc[T](stored)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Create: %w", c.name, err)
	}

	res := &Result[T]{Record: out}
	c.mirror(ctx, res, "insert-one", out)
	return res, nil
}

// update patches the record whose key equals in.Lookup(), then mirrors the
// full updated record. A missing record makes no remote call.
func (c *collection[T]) update(ctx context.Context, in updateInput) (*Result[T], error) {
	if in.Lookup() == "" {
		return nil, fmt.Errorf("repo.%s.Update: %w: %s is required", c.name, ErrInvalidInput, c.key)
	}
	q := c.lookup(in.Lookup())
	stored, ok, err := c.store.UpdateOne(c.name, q, in.Patch())
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Update: %w", c.name, err)
	}
	if !ok {
		return nil, fmt.Errorf("repo.%s.Update %q: %w", c.name, in.Lookup(), ErrNotFound)
	}
	out, err := fromDoc[T](stored)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Update: %w", c.name, err)
	}

	res := &Result[T]{Record: out}
	c.mirror(ctx, res, "update-one", map[string]any{"query": q, "document": out})
	return res, nil
}

// read returns the first match from exactly one store.
func (c *collection[T]) read(ctx context.Context, in ReadInput) (*T, error) {
	if in.Remote {
		if !c.remote.Enabled() {
			return nil, fmt.Errorf("repo.%s.Read: %w", c.name, ErrOffline)
		}
		resp, err := remote.Call[T](ctx, c.remote, "/find-one/"+c.name, map[string]any{"query": in.Query})
		if err != nil {
			return nil, fmt.Errorf("repo.%s.Read: %w", c.name, err)
		}
		return resp.Data, nil
	}

	doc, ok, err := c.store.FindOne(c.name, in.Query)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Read: %w", c.name, err)
	}
	if !ok {
		return nil, nil
	}
	out, err := fromDoc[T](doc)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Read: %w", c.name, err)
	}
	return &out, nil
}

// list returns every match from exactly one store.
func (c *collection[T]) list(ctx context.Context, in ListInput) ([]T, error) {
	if in.Remote {
		if !c.remote.Enabled() {
			return nil, fmt.Errorf("repo.%s.List: %w", c.name, ErrOffline)
		}
		resp, err := remote.Call[[]T](ctx, c.remote, "/find-many/"+c.name, map[string]any{"query": in.Query})
		if err != nil {
			return nil, fmt.Errorf("repo.%s.List: %w", c.name, err)
		}
		if resp.Data == nil {
			return []T{}, nil
		}
		return *resp.Data, nil
	}

	docs, err := c.store.FindMany(c.name, in.Query)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.List: %w: %w", c.name, ErrNoRecords, err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := fromDoc[T](d)
		if err != nil {
			return nil, fmt.Errorf("repo.%s.List: %w", c.name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// remove deletes remotely first (best effort), then locally. Only the local
// delete decides the outcome.
func (c *collection[T]) remove(ctx context.Context, key string) (*Result[bool], error) {
	if key == "" {
		return nil, fmt.Errorf("repo.%s.Remove: %w: %s is required", c.name, ErrInvalidInput, c.key)
	}
	q := c.lookup(key)

	res := &Result[bool]{}
	mirrorTo(ctx, c.remote, c.name, res, "delete-one", map[string]any{"query": q})

	ok, err := c.store.DeleteOne(c.name, q)
	if err != nil {
		return nil, fmt.Errorf("repo.%s.Remove: %w", c.name, err)
	}
	if !ok {
		return nil, fmt.Errorf("repo.%s.Remove %q: %w", c.name, key, ErrNotFound)
	}
	res.Record = true
	return res, nil
}

func (c *collection[T]) mirror(ctx context.Context, res *Result[T], op string, body any) {
	mirrorTo(ctx, c.remote, c.name, res, op, body)
}

// warner is satisfied by every *Result.
type warner interface{ warn(msg string) }

func (r *Result[T]) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// mirrorTo posts body to /<op>/<entity>. Failures are logged and recorded as
// warnings. With no remote configured it does nothing.
func mirrorTo(ctx context.Context, rc *remote.Client, entity string, res warner, op string, body any) {
	if !rc.Enabled() {
		return
	}
	if err := rc.Post(ctx, "/"+op+"/"+entity, body, nil); err != nil {
		slog.Warn("remote mirror failed", "entity", entity, "op", op, "err", err)
		res.warn(fmt.Sprintf("failed to sync %s to remote: %v", entity, err))
		return
	}
	slog.Debug("remote mirror ok", "entity", entity, "op", op)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func toDoc(v any) (store.Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc store.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromDoc[T any](doc store.Document) (T, error) {
	var out T
	b, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}
