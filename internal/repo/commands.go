package repo

import (
	"context"
	"fmt"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var _ Repository[models.Command, models.CreateCommandInput, models.UpdateCommandInput, models.RemoveCommandInput] = (*Commands)(nil)

// Commands is the repository of saved shell commands, keyed by name.
type Commands struct {
	c *collection[models.Command]
}

// NewCommands returns the command repository over s and rc (nil rc = offline).
func NewCommands(s store.Store, rc *remote.Client) *Commands {
	return &Commands{c: newCollection[models.Command](models.CommandCollection, "name", s, rc)}
}

// Create stores a new command and mirrors it.
func (r *Commands) Create(ctx context.Context, in models.CreateCommandInput) (*Result[models.Command], error) {
	if in.Name == "" {
		return nil, fmt.Errorf("repo.command.Create: %w: name is required", ErrInvalidInput)
	}
	return r.c.create(ctx, models.Command{
		ID:      models.NewID(),
		Name:    in.Name,
		Cmd:     in.Cmd,
		Project: in.Project,
	})
}

// Update patches the command named in.Name.
func (r *Commands) Update(ctx context.Context, in models.UpdateCommandInput) (*Result[models.Command], error) {
	return r.c.update(ctx, in)
}

// Read returns the first matching command, or nil.
func (r *Commands) Read(ctx context.Context, in ReadInput) (*models.Command, error) {
	return r.c.read(ctx, in)
}

// List returns every matching command.
func (r *Commands) List(ctx context.Context, in ListInput) ([]models.Command, error) {
	return r.c.list(ctx, in)
}

// Remove deletes the command named in.Name.
func (r *Commands) Remove(ctx context.Context, in models.RemoveCommandInput) (*Result[bool], error) {
	return r.c.remove(ctx, in.Name)
}

// Save updates the command named in.Name when it exists locally and creates
// it otherwise. created reports which happened.
func (r *Commands) Save(ctx context.Context, in models.CreateCommandInput) (res *Result[models.Command], created bool, err error) {
	existing, err := r.Read(ctx, ReadInput{Query: query.Eq("name", in.Name)})
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		res, err = r.Create(ctx, in)
		return res, err == nil, err
	}
	upd := models.UpdateCommandInput{Name: in.Name, Cmd: &in.Cmd}
	if in.Project != "" {
		upd.Project = &in.Project
	}
	res, err = r.Update(ctx, upd)
	return res, false, err
}

// Push copies the local command named name to the remote, updating the remote
// record when one exists. Unlike mirroring, remote errors are returned.
func (r *Commands) Push(ctx context.Context, name string) (*models.Command, error) {
	local, err := r.Read(ctx, ReadInput{Query: query.Eq("name", name)})
	if err != nil {
		return nil, err
	}
	if local == nil {
		return nil, fmt.Errorf("repo.command.Push %q: %w", name, ErrNotFound)
	}
	rc := r.c.remote
	if !rc.Enabled() {
		return nil, fmt.Errorf("repo.command.Push: %w", ErrOffline)
	}

	q := query.Eq("name", name)
	found, err := remote.Call[models.Command](ctx, rc, "/find-one/command", map[string]any{"query": q})
	if err != nil {
		return nil, fmt.Errorf("repo.command.Push: %w", err)
	}
	if found.Data != nil {
		err = rc.Post(ctx, "/update-one/command", map[string]any{"query": q, "document": local}, nil)
	} else {
		err = rc.Post(ctx, "/insert-one/command", local, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("repo.command.Push: %w", err)
	}
	return local, nil
}

// Pull copies the remote command named name into the local store. A new
// local record keeps the remote _id; an existing one keeps its own _id and
// takes the remote cmd and project.
func (r *Commands) Pull(ctx context.Context, name string) (*models.Command, error) {
	found, err := r.Read(ctx, ReadInput{Query: query.Eq("name", name), Remote: true})
	if err != nil {
		return nil, fmt.Errorf("repo.command.Pull: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("repo.command.Pull %q: %w", name, ErrNotFound)
	}

	q := query.Eq("name", name)
	doc, ok, err := r.c.store.UpdateOne(models.CommandCollection, q, store.Document{
		"cmd":     found.Cmd,
		"project": found.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.command.Pull: %w", err)
	}
	if !ok {
		if found.ID == "" {
			found.ID = models.NewID()
		}
		rec, err := toDoc(found)
		if err != nil {
			return nil, fmt.Errorf("repo.command.Pull: %w", err)
		}
		if doc, err = r.c.store.InsertOne(models.CommandCollection, rec); err != nil {
			return nil, fmt.Errorf("repo.command.Pull: %w", err)
		}
	}
	out, err := fromDoc[models.Command](doc)
	if err != nil {
		return nil, fmt.Errorf("repo.command.Pull: %w", err)
	}
	return &out, nil
}
