package repo

import (
	"context"
	"fmt"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var _ Repository[models.Project, models.CreateProjectInput, models.UpdateProjectInput, models.RemoveProjectInput] = (*Projects)(nil)

// Projects is the repository of projects, keyed by name.
type Projects struct {
	c *collection[models.Project]
}

// NewProjects returns the project repository over s and rc (nil rc = offline).
func NewProjects(s store.Store, rc *remote.Client) *Projects {
	return &Projects{c: newCollection[models.Project](models.ProjectCollection, "name", s, rc)}
}

// Create stores a new project and mirrors it.
func (r *Projects) Create(ctx context.Context, in models.CreateProjectInput) (*Result[models.Project], error) {
	if in.Name == "" {
		return nil, fmt.Errorf("repo.project.Create: %w: name is required", ErrInvalidInput)
	}
	return r.c.create(ctx, models.Project{
		ID:          models.NewID(),
		Name:        in.Name,
		Description: in.Description,
	})
}

// Update patches the project named in.Name.
func (r *Projects) Update(ctx context.Context, in models.UpdateProjectInput) (*Result[models.Project], error) {
	return r.c.update(ctx, in)
}

// Read returns the first matching project, or nil.
func (r *Projects) Read(ctx context.Context, in ReadInput) (*models.Project, error) {
	return r.c.read(ctx, in)
}

// List returns every matching project.
func (r *Projects) List(ctx context.Context, in ListInput) ([]models.Project, error) {
	return r.c.list(ctx, in)
}

// Remove deletes the project named in.Name remotely, then locally.
func (r *Projects) Remove(ctx context.Context, in models.RemoveProjectInput) (*Result[bool], error) {
	return r.c.remove(ctx, in.Name)
}
