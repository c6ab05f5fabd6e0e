// Package runner executes saved commands in the user's shell and extracts
// values from their JSON output.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/yalp/jsonpath"
)

var (
	// ErrCommandFailed is returned when the shell exits with a non-zero status.
	ErrCommandFailed = errors.New("command failed")
	// ErrNoValue is returned by Extract when the path selects nothing usable.
	ErrNoValue = errors.New("no value at path")
)

// Runner runs shell text through $SHELL -c. Zero fields fall back to the
// process's own shell and standard streams.
type Runner struct {
	Shell  string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    []string
}

// Shell returns $SHELL, or "sh" when it is unset.
func Shell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "sh"
}

// Run executes script and streams its output. When capture is true stdout is
// also buffered and returned.
func (r *Runner) Run(ctx context.Context, script string, capture bool) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.shell(), "-c", script) //nolint:gosec // running user-saved commands is the point
	cmd.Stdin = orReader(r.Stdin, os.Stdin)
	cmd.Stderr = orWriter(r.Stderr, os.Stderr)
	if r.Env != nil {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var buf bytes.Buffer
	stdout := orWriter(r.Stdout, os.Stdout)
	if capture {
		cmd.Stdout = io.MultiWriter(stdout, &buf)
	} else {
		cmd.Stdout = stdout
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return buf.Bytes(), fmt.Errorf("runner.Run: %w: exit status %d", ErrCommandFailed, exitErr.ExitCode())
		}
		return buf.Bytes(), fmt.Errorf("runner.Run: %w", err)
	}
	return buf.Bytes(), nil
}

// Extract evaluates path against output parsed as JSON and renders the
// selected value as a string. path may be written "a.b" or "$.a.b"; an empty
// path selects the whole trimmed output.
func Extract(output []byte, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		v := strings.TrimSpace(string(output))
		if v == "" {
			return "", ErrNoValue
		}
		return v, nil
	}
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}

	var doc any
	if err := json.Unmarshal(output, &doc); err != nil {
		return "", fmt.Errorf("runner.Extract: output is not JSON: %w", err)
	}
	v, err := jsonpath.Read(doc, path)
	if err != nil {
		return "", fmt.Errorf("runner.Extract %s: %w: %w", path, ErrNoValue, err)
	}

	switch t := v.(type) {
	case nil:
		return "", fmt.Errorf("runner.Extract %s: %w", path, ErrNoValue)
	case string:
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("runner.Extract: %w", err)
		}
		return string(b), nil
	}
}

// Clean joins a multi-line command into one line, dropping line-continuation
// backslashes and surplus spaces.
func Clean(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		l = strings.TrimRight(l, " \t\r")
		lines[i] = strings.TrimSuffix(l, "\\")
	}
	return strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
}

func orReader(r, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
