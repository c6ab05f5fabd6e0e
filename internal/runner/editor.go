package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Editor returns $EDITOR, falling back to the first of vim, vi and nano found
// on PATH.
func Editor() string {
	if e := os.Getenv("EDITOR"); e != "" {
		return e
	}
	for _, name := range []string{"vim", "vi"} {
		if _, err := exec.LookPath(name); err == nil {
			return name
		}
	}
	return "nano"
}

// Edit opens initial in the user's editor and returns the saved contents.
func (r *Runner) Edit(ctx context.Context, initial string) (string, error) {
	f, err := os.CreateTemp("", "flowlet-*.sh")
	if err != nil {
		return "", fmt.Errorf("runner.Edit: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(initial); err != nil {
		f.Close()
		return "", fmt.Errorf("runner.Edit: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("runner.Edit: %w", err)
	}

	editor := Editor()
	// EDITOR may carry arguments ("code --wait"), so it goes through the shell.
	cmd := exec.CommandContext(ctx, r.shell(), "-c", editor+` "$1"`, "flowlet-edit", path) //nolint:gosec // editor is user-configured
	cmd.Stdin = orReader(r.Stdin, os.Stdin)
	cmd.Stdout = orWriter(r.Stdout, os.Stdout)
	cmd.Stderr = orWriter(r.Stderr, os.Stderr)
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("runner.Edit: editor %q exited with error: %w", editor, err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("runner.Edit: %w", err)
	}
	return string(out), nil
}

func (r *Runner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}
	return Shell()
}
