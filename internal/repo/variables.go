package repo

import (
	"context"
	"fmt"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var _ Repository[models.Variable, models.CreateVariableInput, models.UpdateVariableInput, models.RemoveVariableInput] = (*Variables)(nil)

// Variables is the repository of substitution variables, keyed by name.
type Variables struct {
	c *collection[models.Variable]
}

// NewVariables returns the variable repository over s and rc (nil rc = offline).
func NewVariables(s store.Store, rc *remote.Client) *Variables {
	return &Variables{c: newCollection[models.Variable](models.VariableCollection, "name", s, rc)}
}

// Create stores a new variable and mirrors it.
func (r *Variables) Create(ctx context.Context, in models.CreateVariableInput) (*Result[models.Variable], error) {
	if in.Name == "" {
		return nil, fmt.Errorf("repo.variable.Create: %w: name is required", ErrInvalidInput)
	}
	return r.c.create(ctx, models.Variable{
		ID:    models.NewID(),
		Name:  in.Name,
		Value: in.Value,
	})
}

// Update patches the variable named in.Name.
func (r *Variables) Update(ctx context.Context, in models.UpdateVariableInput) (*Result[models.Variable], error) {
	return r.c.update(ctx, in)
}

// Read returns the first matching variable, or nil.
func (r *Variables) Read(ctx context.Context, in ReadInput) (*models.Variable, error) {
	return r.c.read(ctx, in)
}

// List returns every matching variable.
func (r *Variables) List(ctx context.Context, in ListInput) ([]models.Variable, error) {
	return r.c.list(ctx, in)
}

// Remove deletes the variable named in.Name remotely, then locally.
func (r *Variables) Remove(ctx context.Context, in models.RemoveVariableInput) (*Result[bool], error) {
	return r.c.remove(ctx, in.Name)
}

// Lookup returns the local value of name and whether it exists.
func (r *Variables) Lookup(ctx context.Context, name string) (string, bool, error) {
	v, err := r.Read(ctx, ReadInput{Query: query.Eq("name", name)})
	if err != nil || v == nil {
		return "", false, err
	}
	return v.Value, true, nil
}

// Set updates the variable named name when it exists locally and creates it
// otherwise.
func (r *Variables) Set(ctx context.Context, name, value string) (*Result[models.Variable], error) {
	_, ok, err := r.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return r.Create(ctx, models.CreateVariableInput{Name: name, Value: value})
	}
	return r.Update(ctx, models.UpdateVariableInput{Name: name, Value: value})
}
