// Package service builds the process-scoped Context that every CLI command
// and the MCP server share: resolved home, configuration, one local store,
// one remote client and the entity repositories over them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-ports/flowlet/internal/config"
	"github.com/go-ports/flowlet/internal/redaction"
	"github.com/go-ports/flowlet/internal/remote"
	"github.com/go-ports/flowlet/internal/repo"
	"github.com/go-ports/flowlet/internal/store"
)

// Options tune New. The zero value resolves everything from the environment.
type Options struct {
	// Home overrides the flowlet home (the --home flag).
	Home string
	// HTTPClient replaces http.DefaultClient for remote calls.
	HTTPClient *http.Client
	// Offline skips the remote client even when one is configured.
	Offline bool
}

// Context is the handle passed to every operation. It owns the store; call
// Close when done.
type Context struct {
	Home       string
	HomeSource string
	Config     *config.Config
	StorePath  string

	Store    store.Store
	Remote   *remote.Client // nil when offline
	Redactor *redaction.Redactor

	*repo.Set
}

// New resolves the flowlet home, loads its config, opens the local store and,
// unless disabled, the remote client authenticated with the stored session
// token.
func New(ctx context.Context, opts Options) (*Context, error) {
	home, source := config.ResolveHome(opts.Home)
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("service.New: create home: %w", err)
	}

	cfg, err := config.Load(ConfigPath(home))
	if err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}
	cfg.ApplyEnv()

	storePath, err := cfg.StorePath()
	if err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}
	if storePath == "" {
		storePath = store.DefaultPath(home, cfg.Store.Driver)
	}
	s, err := store.Open(cfg.Store.Driver, storePath)
	if err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}

	var rc *remote.Client
	if cfg.RemoteEnabled() && !opts.Offline {
		rc, err = newRemote(ctx, cfg.Remote.BaseURL, s, opts.HTTPClient)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("service.New: %w", err)
		}
	}

	patterns, err := redaction.LoadIgnoreFile(filepath.Join(home, redaction.IgnoreFile))
	if err != nil {
		slog.Warn("failed to load "+redaction.IgnoreFile, "err", err)
	}

	slog.Debug("context ready", "home", home, "source", source, "store", storePath, "remote", rc.BaseURL())
	return &Context{
		Home:       home,
		HomeSource: source,
		Config:     cfg,
		StorePath:  storePath,
		Store:      s,
		Remote:     rc,
		Redactor:   redaction.New(patterns),
		Set:        repo.NewSet(s, rc),
	}, nil
}

// newRemote builds the client, attaching the locally stored session token.
func newRemote(ctx context.Context, baseURL string, s store.Store, hc *http.Client) (*remote.Client, error) {
	token, err := repo.NewAuths(s, nil).Token(ctx)
	if err != nil {
		return nil, err
	}
	opts := []remote.Option{remote.WithToken(token)}
	if hc != nil {
		opts = append(opts, remote.WithHTTPClient(hc))
	}
	return remote.New(ctx, baseURL, opts...)
}

// Online reports whether a remote client is configured.
func (c *Context) Online() bool { return c.Remote.Enabled() }

// Close releases the local store.
func (c *Context) Close() error {
	return c.Store.Close()
}

// ConfigPath returns the per-home config file path.
func ConfigPath(home string) string {
	return filepath.Join(home, config.FileName)
}
