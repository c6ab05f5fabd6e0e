// Package shared holds the context passed to all CLI commands.
package shared

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/internal/printer"
	"github.com/go-ports/flowlet/internal/projectcfg"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/runner"
	"github.com/go-ports/flowlet/internal/service"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Home overrides the flowlet home directory.
	// When empty, resolution falls through to FLOWLET_HOME env var → persisted config → ~/.flowlet.
	Home string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Open builds the flowlet context for one command invocation. Callers must
// Close it.
func (c *Context) Open(cmd *cobra.Command) (*service.Context, error) {
	return service.New(cmd.Context(), service.Options{Home: c.Home})
}

// Printer returns a printer bound to the command's output streams.
func Printer(cmd *cobra.Command) *printer.Printer {
	return printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// Runner returns a shell runner bound to the command's streams.
func Runner(cmd *cobra.Command) *runner.Runner {
	return &runner.Runner{Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
}

// SetupLogging installs a text slog handler on stderr at the given level.
func SetupLogging(cmd *cobra.Command, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: use debug, info, warn or error", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})))
	return nil
}

// CurrentProject returns the name declared by the nearest flowlet.toml above
// the working directory, or "" when there is none.
func CurrentProject() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	name, err := projectcfg.Name(cwd)
	if err != nil {
		slog.Warn("ignoring unreadable project file", "err", err)
		return ""
	}
	return name
}

// ProjectScope returns the list query for the current project, or All when
// global is set or no project file is found. project is "" in the latter case.
func ProjectScope(global bool) (q query.Query, project string) {
	if global {
		return query.All(), ""
	}
	if project = CurrentProject(); project != "" {
		return query.Eq("project", project), project
	}
	return query.All(), ""
}

// Or returns v, or "-" when it is blank.
func Or(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
