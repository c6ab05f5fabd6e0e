package repo_test

import (
	"context"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/repo"
	"github.com/go-ports/flowlet/internal/store"
)

var creds = models.Credentials{Email: "dev@example.com", Password: "hunter2"}

// ---------------------------------------------------------------------------
// Create (login)
// ---------------------------------------------------------------------------

func TestAuthCreate_ReplacesExistingSession(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	e := newEnv(c, 0)
	_, err := e.store.InsertOne(models.AuthCollection, store.Document{"_id": "old", "flowlet_token": "stale"})
	c.Assert(err, qt.IsNil)
	e.remote.responses["/auth/login"] = `{"data":{"token":"fresh"}}`

	res, err := e.repos.Auths.Create(ctx, creds)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Record.FlowletToken, qt.Equals, "fresh")

	all, err := e.repos.Auths.List(ctx, repo.ListInput{Query: query.All()})
	c.Assert(err, qt.IsNil)
	c.Assert(all, qt.HasLen, 1)
	c.Assert(all[0].FlowletToken, qt.Equals, "fresh")

	calls := e.remote.Calls()
	c.Assert(calls, qt.HasLen, 1)
	c.Assert(calls[0].Path, qt.Equals, "/auth/login")
	c.Assert(calls[0].Body, qt.DeepEquals, map[string]any{"email": "dev@example.com", "password": "hunter2"})

	token, err := e.repos.Auths.Token(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(token, qt.Equals, "fresh")
}

func TestAuthCreate_FailurePath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rejected login", http.StatusUnauthorized, "", remote.ErrRejected},
		{"login without token", 0, `{"data":null,"message":"bad credentials"}`, remote.ErrDecodeFailed},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			e := newEnv(c, tc.status)
			_, err := e.store.InsertOne(models.AuthCollection, store.Document{"_id": "old", "flowlet_token": "keep"})
			c.Assert(err, qt.IsNil)
			if tc.body != "" {
				e.remote.responses["/auth/login"] = tc.body
			}

			_, err = e.repos.Auths.Create(ctx, creds)
			c.Assert(err, qt.ErrorIs, tc.want)

			token, err := e.repos.Auths.Token(ctx)
			c.Assert(err, qt.IsNil)
			c.Assert(token, qt.Equals, "keep")
		})
	}

	c.Run("offline", func(c *qt.C) {
		e := newOfflineEnv(c)
		_, err := e.repos.Auths.Create(ctx, creds)
		c.Assert(err, qt.ErrorIs, repo.ErrOffline)
		c.Assert(e.repos.Auths.Register(ctx, creds), qt.ErrorIs, repo.ErrOffline)
	})
}

// ---------------------------------------------------------------------------
// Update / Read / Remove / Register
// ---------------------------------------------------------------------------

func TestAuthUpdate_Unsupported(t *testing.T) {
	c := qt.New(t)
	e := newOfflineEnv(c)
	_, err := e.repos.Auths.Update(context.Background(), models.UpdateAuthInput{})
	c.Assert(err, qt.ErrorIs, repo.ErrUnsupported)
}

func TestAuthRead_LocalOnly(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	e := newEnv(c, 0)

	_, err := e.repos.Auths.Read(ctx, repo.ReadInput{Query: query.All(), Remote: true})
	c.Assert(err, qt.ErrorIs, repo.ErrUnsupported)
	_, err = e.repos.Auths.List(ctx, repo.ListInput{Query: query.All(), Remote: true})
	c.Assert(err, qt.ErrorIs, repo.ErrUnsupported)

	token, err := e.repos.Auths.Token(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(token, qt.Equals, "")
	c.Assert(e.remote.Calls(), qt.HasLen, 0)
}

func TestAuthRemove(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("logout clears local session without mirroring", func(c *qt.C) {
		e := newEnv(c, 0)
		_, err := e.store.InsertOne(models.AuthCollection, store.Document{"_id": "a", "flowlet_token": "t"})
		c.Assert(err, qt.IsNil)

		res, err := e.repos.Auths.Remove(ctx, models.LogoutInput{})
		c.Assert(err, qt.IsNil)
		c.Assert(res.Record, qt.IsTrue)
		c.Assert(e.remote.Calls(), qt.HasLen, 0)

		token, err := e.repos.Auths.Token(ctx)
		c.Assert(err, qt.IsNil)
		c.Assert(token, qt.Equals, "")
	})

	c.Run("logout with no session is not found", func(c *qt.C) {
		e := newOfflineEnv(c)
		_, err := e.repos.Auths.Remove(ctx, models.LogoutInput{})
		c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
	})
}

func TestAuthRegister(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("posts credentials and stores nothing", func(c *qt.C) {
		e := newEnv(c, 0)
		c.Assert(e.repos.Auths.Register(ctx, creds), qt.IsNil)
		c.Assert(e.remote.Paths(), qt.DeepEquals, []string{"/auth/register"})

		all, err := e.repos.Auths.List(ctx, repo.ListInput{Query: query.All()})
		c.Assert(err, qt.IsNil)
		c.Assert(all, qt.HasLen, 0)
	})

	c.Run("rejection is returned", func(c *qt.C) {
		e := newEnv(c, http.StatusConflict)
		c.Assert(e.repos.Auths.Register(ctx, creds), qt.ErrorIs, remote.ErrRejected)
	})
}
