package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/store"
)

var _ Repository[models.Auth, models.Credentials, models.UpdateAuthInput, models.LogoutInput] = (*Auths)(nil)

// Auths holds the local session. Auth records are never mirrored: Create logs
// in against the remote and stores the returned token locally, Remove only
// clears the local record.
type Auths struct {
	local  *collection[models.Auth]
	remote *remote.Client
}

// NewAuths returns the auth repository. rc is used for login and register only.
func NewAuths(s store.Store, rc *remote.Client) *Auths {
	return &Auths{
		local:  newCollection[models.Auth](models.AuthCollection, "_id", s, nil),
		remote: rc,
	}
}

// Create logs in with creds. On success every local Auth record is replaced
// by one holding the new token; on failure the local record is untouched.
func (r *Auths) Create(ctx context.Context, creds models.Credentials) (*Result[models.Auth], error) {
	if !r.remote.Enabled() {
		return nil, fmt.Errorf("repo.auth.Create: %w", ErrOffline)
	}
	resp, err := remote.Call[models.LoginResponse](ctx, r.remote, "/auth/login", creds)
	if err != nil {
		return nil, fmt.Errorf("repo.auth.Create: %w", err)
	}
	if resp.Data == nil || resp.Data.Token == "" {
		return nil, fmt.Errorf("repo.auth.Create: %w: login returned no token", remote.ErrDecodeFailed)
	}

	if _, err := r.local.store.DeleteMany(models.AuthCollection, query.All()); err != nil {
		return nil, fmt.Errorf("repo.auth.Create: %w", err)
	}
	return r.local.create(ctx, models.Auth{ID: models.NewID(), FlowletToken: resp.Data.Token})
}

// Update always fails: sessions are replaced by logging in again.
func (r *Auths) Update(context.Context, models.UpdateAuthInput) (*Result[models.Auth], error) {
	return nil, fmt.Errorf("repo.auth.Update: %w", ErrUnsupported)
}

// Read returns the local session matching in.Query. Remote reads are not offered.
func (r *Auths) Read(ctx context.Context, in ReadInput) (*models.Auth, error) {
	if in.Remote {
		return nil, fmt.Errorf("repo.auth.Read: %w: remote read", ErrUnsupported)
	}
	return r.local.read(ctx, in)
}

// List returns local sessions matching in.Query.
func (r *Auths) List(ctx context.Context, in ListInput) ([]models.Auth, error) {
	if in.Remote {
		return nil, fmt.Errorf("repo.auth.List: %w: remote list", ErrUnsupported)
	}
	return r.local.list(ctx, in)
}

// Remove logs out by deleting every local Auth record.
func (r *Auths) Remove(_ context.Context, _ models.LogoutInput) (*Result[bool], error) {
	n, err := r.local.store.DeleteMany(models.AuthCollection, query.All())
	if err != nil {
		return nil, fmt.Errorf("repo.auth.Remove: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("repo.auth.Remove: %w: not logged in", ErrNotFound)
	}
	return &Result[bool]{Record: true}, nil
}

// Register creates a remote account. Nothing is stored locally.
func (r *Auths) Register(ctx context.Context, creds models.Credentials) error {
	if !r.remote.Enabled() {
		return fmt.Errorf("repo.auth.Register: %w", ErrOffline)
	}
	if _, err := remote.Call[json.RawMessage](ctx, r.remote, "/auth/register", creds); err != nil {
		return fmt.Errorf("repo.auth.Register: %w", err)
	}
	return nil
}

// Token returns the stored session token, or "" when logged out.
func (r *Auths) Token(ctx context.Context) (string, error) {
	a, err := r.Read(ctx, ReadInput{Query: query.All()})
	if err != nil || a == nil {
		return "", err
	}
	return a.FlowletToken, nil
}
