package repo

import (
	"context"
	"fmt"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var _ Repository[models.Task, models.CreateTaskInput, models.UpdateTaskInput, models.RemoveTaskInput] = (*Tasks)(nil)

// Tasks is the repository of tasks, keyed by title.
type Tasks struct {
	c *collection[models.Task]
}

// NewTasks returns the task repository over s and rc (nil rc = offline).
func NewTasks(s store.Store, rc *remote.Client) *Tasks {
	return &Tasks{c: newCollection[models.Task](models.TaskCollection, "title", s, rc)}
}

// Create stores a new task in the todo state and mirrors it.
func (r *Tasks) Create(ctx context.Context, in models.CreateTaskInput) (*Result[models.Task], error) {
	if in.Title == "" {
		return nil, fmt.Errorf("repo.task.Create: %w: title is required", ErrInvalidInput)
	}
	milestones := in.Milestones
	if milestones == nil {
		milestones = []models.Milestone{}
	}
	return r.c.create(ctx, models.Task{
		ID:          models.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      models.StatusTodo,
		Project:     in.Project,
		DueDate:     in.DueDate,
		Tags:        models.UniqueTags(in.Tags),
		Milestones:  milestones,
	})
}

// Update patches the task titled in.Title.
func (r *Tasks) Update(ctx context.Context, in models.UpdateTaskInput) (*Result[models.Task], error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, fmt.Errorf("repo.task.Update: %w: status %q", ErrInvalidInput, *in.Status)
	}
	return r.c.update(ctx, in)
}

// Read returns the first matching task, or nil.
func (r *Tasks) Read(ctx context.Context, in ReadInput) (*models.Task, error) {
	return r.c.read(ctx, in)
}

// List returns every matching task.
func (r *Tasks) List(ctx context.Context, in ListInput) ([]models.Task, error) {
	return r.c.list(ctx, in)
}

// Remove deletes the task titled in.Title.
func (r *Tasks) Remove(ctx context.Context, in models.RemoveTaskInput) (*Result[bool], error) {
	return r.c.remove(ctx, in.Title)
}
