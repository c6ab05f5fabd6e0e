package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/flowlet/internal/runner"
)

func newRunner() (*runner.Runner, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &runner.Runner{Shell: "sh", Stdin: bytes.NewReader(nil), Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func TestRun_HappyPath(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	c.Run("streams without capture", func(c *qt.C) {
		r, stdout, stderr := newRunner()
		got, err := r.Run(ctx, "echo hello; echo oops >&2", false)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.HasLen, 0)
		c.Assert(stdout.String(), qt.Equals, "hello\n")
		c.Assert(stderr.String(), qt.Equals, "oops\n")
	})

	c.Run("capture also streams", func(c *qt.C) {
		r, stdout, _ := newRunner()
		got, err := r.Run(ctx, `printf '{"token":"abc"}'`, true)
		c.Assert(err, qt.IsNil)
		c.Assert(string(got), qt.Equals, `{"token":"abc"}`)
		c.Assert(stdout.String(), qt.Equals, `{"token":"abc"}`)
	})

	c.Run("extra env is visible", func(c *qt.C) {
		r, stdout, _ := newRunner()
		r.Env = []string{"FLOWLET_TEST_VALUE=42"}
		_, err := r.Run(ctx, `echo "$FLOWLET_TEST_VALUE"`, false)
		c.Assert(err, qt.IsNil)
		c.Assert(stdout.String(), qt.Equals, "42\n")
	})
}

func TestRun_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("non-zero exit", func(c *qt.C) {
		r, _, _ := newRunner()
		_, err := r.Run(context.Background(), "exit 3", false)
		c.Assert(err, qt.ErrorIs, runner.ErrCommandFailed)
		c.Assert(err, qt.ErrorMatches, `.*exit status 3`)
	})

	c.Run("missing shell", func(c *qt.C) {
		r, _, _ := newRunner()
		r.Shell = filepath.Join(t.TempDir(), "no-such-shell")
		_, err := r.Run(context.Background(), "true", false)
		c.Assert(err, qt.IsNotNil)
		c.Assert(err, qt.Not(qt.ErrorIs), runner.ErrCommandFailed)
	})

	c.Run("cancelled context", func(c *qt.C) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r, _, _ := newRunner()
		_, err := r.Run(ctx, "sleep 5", false)
		c.Assert(err, qt.IsNotNil)
	})
}

func TestShell(t *testing.T) {
	c := qt.New(t)

	c.Setenv("SHELL", "/bin/zsh")
	c.Assert(runner.Shell(), qt.Equals, "/bin/zsh")

	c.Setenv("SHELL", "")
	c.Assert(runner.Shell(), qt.Equals, "sh")
}

func TestExtract_HappyPath(t *testing.T) {
	c := qt.New(t)

	out := []byte(`{"data":{"token":"abc","id":7,"user":{"roles":["a"]}}}`)
	tests := []struct {
		name, path, want string
	}{
		{"dotted path", "data.token", "abc"},
		{"dollar path", "$.data.token", "abc"},
		{"number renders as json", "data.id", "7"},
		{"object renders as json", "data.user", `{"roles":["a"]}`},
		{"array index", "$.data.user.roles[0]", "a"},
	}
	for _, tt := range tests {
		c.Run(tt.name, func(c *qt.C) {
			got, err := runner.Extract(out, tt.path)
			c.Assert(err, qt.IsNil)
			c.Assert(got, qt.Equals, tt.want)
		})
	}

	c.Run("empty path takes trimmed output", func(c *qt.C) {
		got, err := runner.Extract([]byte("  v1.2.3\n"), "")
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, "v1.2.3")
	})
}

func TestExtract_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("output is not json", func(c *qt.C) {
		_, err := runner.Extract([]byte("plain text"), "a")
		c.Assert(err, qt.ErrorMatches, "runner.Extract: output is not JSON: .*")
	})

	c.Run("missing key", func(c *qt.C) {
		_, err := runner.Extract([]byte(`{"a":1}`), "b")
		c.Assert(err, qt.ErrorIs, runner.ErrNoValue)
	})

	c.Run("null value", func(c *qt.C) {
		_, err := runner.Extract([]byte(`{"a":null}`), "a")
		c.Assert(err, qt.ErrorIs, runner.ErrNoValue)
	})

	c.Run("empty output with empty path", func(c *qt.C) {
		_, err := runner.Extract([]byte("\n"), "")
		c.Assert(err, qt.ErrorIs, runner.ErrNoValue)
	})
}

func TestClean(t *testing.T) {
	c := qt.New(t)

	c.Assert(runner.Clean("docker run \\\n  --rm \\\n  alpine  echo hi\n"), qt.Equals, "docker run --rm alpine echo hi")
	c.Assert(runner.Clean("  ls  "), qt.Equals, "ls")
	c.Assert(runner.Clean(""), qt.Equals, "")
}

func TestEdit_HappyPath(t *testing.T) {
	c := qt.New(t)

	// A fake editor that appends a line to the file it is given.
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-editor")
	c.Assert(os.WriteFile(script, []byte("#!/bin/sh\necho ' --verbose' >> \"$1\"\n"), 0o700), qt.IsNil)
	c.Setenv("EDITOR", script)

	r, _, _ := newRunner()
	got, err := r.Edit(context.Background(), "make build")
	c.Assert(err, qt.IsNil)
	c.Assert(runner.Clean(got), qt.Equals, "make build --verbose")
}

func TestEdit_FailurePath(t *testing.T) {
	c := qt.New(t)
	c.Setenv("EDITOR", "false")

	r, _, _ := newRunner()
	_, err := r.Edit(context.Background(), "x")
	c.Assert(err, qt.ErrorMatches, `runner.Edit: editor "false" exited with error: .*`)
}
