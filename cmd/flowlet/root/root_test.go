// End-to-end tests that run the flowlet CLI in-process against a temporary
// home. Output is captured via cobra's SetOut.
package rootcmd_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	rootcmd "github.com/go-ports/flowlet/cmd/flowlet/root"
	"github.com/go-ports/flowlet/internal/projectcfg"
	"github.com/go-ports/flowlet/internal/repo"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// runCmd executes the root command with args and returns stdout and stderr.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	root := rootcmd.New()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	execErr := root.ExecuteContext(context.Background())

	return buf.String(), execErr
}

// offlineHome isolates HOME, disables the remote and returns a fresh flowlet
// home for --home.
func offlineHome(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLOWLET_HOME", "")
	t.Setenv("FLOWLET_REMOTE_URL", "")
	return filepath.Join(t.TempDir(), "home")
}

// failingRemote points FLOWLET_REMOTE_URL at a server that answers 500.
func failingRemote(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("FLOWLET_REMOTE_URL", srv.URL)
}

// ---------------------------------------------------------------------------
// Help / version
// ---------------------------------------------------------------------------

func TestHelp_HappyPath(t *testing.T) {
	c := qt.New(t)
	offlineHome(t)

	out, err := runCmd(t, "--help")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "flowlet")
	c.Assert(out, qt.Contains, "command")
	c.Assert(out, qt.Contains, "task")

	out, err = runCmd(t)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Usage:")
}

func TestVersion_HappyPath(t *testing.T) {
	c := qt.New(t)

	out, err := runCmd(t, "version")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "flowlet dev")
}

func TestLogLevel_FailurePath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	_, err := runCmd(t, "--home", home, "--log-level", "loud", "command", "ls")
	c.Assert(err, qt.ErrorMatches, `invalid --log-level "loud".*`)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestCommandSave_HappyPath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	out, err := runCmd(t, "--home", home, "command", "save", "deploy", "./deploy.sh", "--env", "prod")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Saved `deploy`")

	out, err = runCmd(t, "--home", home, "command", "show", "deploy")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "./deploy.sh --env prod")

	out, err = runCmd(t, "--home", home, "cmd", "save", "deploy", "./deploy.sh", "v2")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Updated `deploy`")

	out, err = runCmd(t, "--home", home, "command", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "deploy")
	c.Assert(out, qt.Contains, "./deploy.sh v2")

	out, err = runCmd(t, "--home", home, "command", "rm", "deploy")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Removed `deploy`")

	out, err = runCmd(t, "--home", home, "command", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "No commands saved.")
}

func TestCommandSave_RemoteFailureIsWarning(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)
	failingRemote(t)

	out, err := runCmd(t, "--home", home, "command", "save", "deploy", "./deploy.sh")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Saved `deploy`")
	c.Assert(out, qt.Contains, "Warning: failed to sync command to remote")

	out, err = runCmd(t, "--home", home, "command", "show", "deploy")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "./deploy.sh")
}

func TestCommand_FailurePath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	c.Run("show unknown command", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "command", "show", "nope")
		c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
	})

	c.Run("rm unknown command", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "command", "rm", "nope")
		c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
	})

	c.Run("save needs a command body", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "command", "save", "deploy")
		c.Assert(err, qt.IsNotNil)
	})

	c.Run("json-path without save-var", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "command", "run", "x", "--json-path", "id")
		c.Assert(err, qt.ErrorMatches, `--json-path requires --save-var`)
	})

	c.Run("remote list while offline", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "command", "ls", "--remote")
		c.Assert(err, qt.ErrorIs, repo.ErrOffline)
	})
}

// ---------------------------------------------------------------------------
// Running commands
// ---------------------------------------------------------------------------

func TestRun_InjectsVariables(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)
	t.Setenv("WHO", "")

	_, err := runCmd(t, "--home", home, "vars", "set", "GREETING", "hello")
	c.Assert(err, qt.IsNil)
	_, err = runCmd(t, "--home", home, "command", "save", "greet", "echo", "${GREETING}", "${WHO}")
	c.Assert(err, qt.IsNil)

	out, err := runCmd(t, "--home", home, "command", "show", "greet")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "GREETING, WHO")

	out, err = runCmd(t, "--home", home, "command", "run", "greet", "--", "again")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Warning: missing variable ${WHO}")
	c.Assert(out, qt.Contains, "Running: echo hello ${WHO} again")
	c.Assert(out, qt.Contains, "hello again")

	c.Run("bare name runs the command", func(c *qt.C) {
		out, err := runCmd(t, "--home", home, "greet")
		c.Assert(err, qt.IsNil)
		c.Assert(out, qt.Contains, "Running: echo hello ${WHO}")
	})

	c.Run("bare unknown name fails", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "missing")
		c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
	})
}

func TestRun_SaveVar(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	_, err := runCmd(t, "--home", home, "command", "save", "token", `echo '{"id":"abc-1","n":2}'`)
	c.Assert(err, qt.IsNil)

	out, err := runCmd(t, "--home", home, "command", "run", "token", "--save-var", "LAST_ID", "--json-path", "id")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Saved `LAST_ID` = abc-1")

	out, err = runCmd(t, "--home", home, "command", "run", "token", "--save-var", "RAW")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Saved `RAW`")

	out, err = runCmd(t, "--home", home, "vars", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "LAST_ID")
	c.Assert(out, qt.Contains, "abc-1")

	_, err = runCmd(t, "--home", home, "command", "run", "token", "--save-var", "X", "--json-path", "missing")
	c.Assert(err, qt.IsNotNil)
}

func TestRun_CommandFails(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	_, err := runCmd(t, "--home", home, "command", "save", "broken", "exit", "3")
	c.Assert(err, qt.IsNil)

	_, err = runCmd(t, "--home", home, "broken")
	c.Assert(err, qt.ErrorMatches, `.*exit status 3`)
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func TestVars_Redaction(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	_, err := runCmd(t, "--home", home, "vars", "set", "DB_PASSWORD", "hunter2")
	c.Assert(err, qt.IsNil)
	_, err = runCmd(t, "--home", home, "vars", "add", "HOST", "example.com")
	c.Assert(err, qt.IsNil)

	out, err := runCmd(t, "--home", home, "vars", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "example.com")
	c.Assert(out, qt.Contains, "[REDACTED]")
	c.Assert(out, qt.Not(qt.Contains), "hunter2")

	out, err = runCmd(t, "--home", home, "vars", "ls", "--reveal")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "hunter2")

	_, err = runCmd(t, "--home", home, "vars", "rm", "HOST")
	c.Assert(err, qt.IsNil)
	_, err = runCmd(t, "--home", home, "vars", "rm", "HOST")
	c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func TestProject_HappyPath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)
	dir := t.TempDir()

	out, err := runCmd(t, "--home", home, "project", "new",
		"--name", "shop", "--description", "web shop", "--environment", "dev", "--dir", dir)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created project `shop`")

	f, err := projectcfg.Read(filepath.Join(dir, projectcfg.FileName))
	c.Assert(err, qt.IsNil)
	c.Assert(f.Project.Name, qt.Equals, "shop")
	c.Assert(f.Project.Environment, qt.Equals, "dev")

	_, err = runCmd(t, "--home", home, "project", "new", "--name", "shop", "--dir", dir)
	c.Assert(err, qt.ErrorIs, projectcfg.ErrExists)

	out, err = runCmd(t, "--home", home, "project", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "shop")

	out, err = runCmd(t, "--home", home, "project", "rm", "shop")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Aborted")

	out, err = runCmd(t, "--home", home, "project", "rm", "shop", "--yes")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Removed `shop`")
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func TestTask_HappyPath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	out, err := runCmd(t, "--home", home, "task", "new",
		"--title", "Ship v1", "--due", "2030-01-15", "--tag", "release,backend", "--milestone", "beta")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created task `Ship v1`")

	out, err = runCmd(t, "--home", home, "task", "ls")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Ship v1")
	c.Assert(out, qt.Contains, "Todo")
	c.Assert(out, qt.Contains, "2030-01-15")
	c.Assert(out, qt.Contains, "release, backend")

	out, err = runCmd(t, "--home", home, "task", "edit", "Ship v1", "--status", "in progress", "--milestone", "ga")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Updated `Ship v1` (In Progress)")

	out, err = runCmd(t, "--home", home, "task", "show", "Ship v1")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "In Progress")
	c.Assert(out, qt.Contains, "1. beta")
	c.Assert(out, qt.Contains, "2. ga")

	out, err = runCmd(t, "--home", home, "task", "ls", "--status", "done")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "No tasks.")

	out, err = runCmd(t, "--home", home, "task", "rm", "Ship v1")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Removed `Ship v1`")
}

func TestTask_FailurePath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	c.Run("bad status", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "task", "ls", "--status", "blocked")
		c.Assert(err, qt.ErrorMatches, `invalid task status "blocked".*`)
	})

	c.Run("bad due date", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "task", "new", "--title", "x", "--due", "xyzzy")
		c.Assert(err, qt.ErrorMatches, `models.ParseDate.*`)
	})

	c.Run("edit unknown task", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "task", "edit", "nope", "--status", "done")
		c.Assert(err, qt.ErrorIs, repo.ErrNotFound)
	})

	c.Run("missing title without a terminal", func(c *qt.C) {
		_, err := runCmd(t, "--home", home, "task", "new")
		c.Assert(err, qt.IsNotNil)
	})
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestAuth_HappyPath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			_, _ = w.Write([]byte(`{"data":{"token":"tok-1"}}`))
		default:
			_, _ = w.Write([]byte(`{"data":null}`))
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("FLOWLET_REMOTE_URL", srv.URL)

	out, err := runCmd(t, "--home", home, "auth", "register", "--email", "a@b.io", "--password", "pw")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Registered")

	out, err = runCmd(t, "--home", home, "auth", "login", "--email", "a@b.io", "--password", "pw")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Logged in")

	out, err = runCmd(t, "--home", home, "auth", "logout")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Logged out")

	out, err = runCmd(t, "--home", home, "auth", "logout")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "No active session.")
}

func TestAuthLogin_OfflineFailure(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	_, err := runCmd(t, "--home", home, "auth", "login", "--email", "a@b.io", "--password", "pw")
	c.Assert(err, qt.ErrorIs, repo.ErrOffline)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfig_HappyPath(t *testing.T) {
	c := qt.New(t)
	home := offlineHome(t)

	out, err := runCmd(t, "--home", home, "config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Created")

	out, err = runCmd(t, "--home", home, "config", "init")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Use --force to overwrite.")

	_, err = runCmd(t, "--home", home, "config", "set", "store.driver", "sqlite")
	c.Assert(err, qt.IsNil)

	out, err = runCmd(t, "--home", home, "config")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "driver: sqlite")
	c.Assert(out, qt.Contains, "home_source: flag")

	_, err = runCmd(t, "--home", home, "command", "save", "deploy", "./deploy.sh")
	c.Assert(err, qt.IsNil)
	_, err = os.Stat(filepath.Join(home, "flowlet.db"))
	c.Assert(err, qt.IsNil)

	_, err = runCmd(t, "--home", home, "config", "set", "nope", "x")
	c.Assert(err, qt.ErrorMatches, `unknown config key.*`)
}

func TestConfigHome_HappyPath(t *testing.T) {
	c := qt.New(t)
	offlineHome(t)
	target := t.TempDir()

	out, err := runCmd(t, "config", "set-home", target)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Persisted flowlet home: "+target)

	out, err = runCmd(t, "config")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "home_source: config")

	out, err = runCmd(t, "config", "clear-home")
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Contains, "Cleared persisted flowlet home setting.")
}
