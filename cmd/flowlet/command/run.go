package commandcmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/inject"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
	"github.com/go-ports/flowlet/internal/runner"
)

// RunOptions capture part of a command's output into a variable.
type RunOptions struct {
	// SaveVar names the variable to store the captured value in.
	SaveVar string
	// JSONPath selects the value from JSON output ("a.b" or "$.a.b").
	// Empty stores the whole trimmed output.
	JSONPath string
}

func (c *Command) newRun() *cobra.Command {
	var opts RunOptions
	cmd := &cobra.Command{
		Use:   "run <name> [-- extra args...]",
		Short: "Run a saved command with variables substituted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.JSONPath != "" && opts.SaveVar == "" {
				return fmt.Errorf("--json-path requires --save-var")
			}
			return c.Run(cmd, args[0], args[1:], opts)
		},
	}
	cmd.Flags().StringVar(&opts.SaveVar, "save-var", "", "Store the command's output in this variable")
	cmd.Flags().StringVar(&opts.JSONPath, "json-path", "", "With --save-var, store only this field of the JSON output")
	return cmd
}

// Run executes the saved command name with its ${VAR} placeholders filled in
// and extra appended.
func (c *Command) Run(cmd *cobra.Command, name string, extra []string, opts RunOptions) error {
	fc, err := c.ctx.Open(cmd)
	if err != nil {
		return err
	}
	defer fc.Close()

	ctx := cmd.Context()
	saved, err := fc.Commands.Read(ctx, repo.ReadInput{Query: query.Eq("name", name)})
	if err != nil {
		return err
	}
	if saved == nil {
		return notFound(name)
	}

	text, warnings, err := inject.Variables(ctx, fc.Variables, saved.Cmd)
	if err != nil {
		return err
	}
	if len(extra) > 0 {
		text += " " + strings.Join(extra, " ")
	}

	p := shared.Printer(cmd)
	p.Warnings(warnings)
	p.Info("Running", fc.Redactor.Text(text))

	out, err := shared.Runner(cmd).Run(ctx, text, opts.SaveVar != "")
	if err != nil {
		return err
	}
	if opts.SaveVar == "" {
		return nil
	}

	value, err := runner.Extract(out, opts.JSONPath)
	if err != nil {
		return err
	}
	res, err := fc.Variables.Set(ctx, opts.SaveVar, value)
	if err != nil {
		return err
	}
	p.Success("Variable", fmt.Sprintf("Saved `%s` = %s", opts.SaveVar, fc.Redactor.Value(opts.SaveVar, value)))
	p.Warnings(res.Warnings)
	return nil
}

// ---------------------------------------------------------------------------
// command edit
// ---------------------------------------------------------------------------

func (c *Command) newEdit() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <name>",
		Short: "Edit a saved command in $EDITOR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			ctx := cmd.Context()
			saved, err := fc.Commands.Read(ctx, repo.ReadInput{Query: query.Eq("name", args[0])})
			if err != nil {
				return err
			}
			if saved == nil {
				return notFound(args[0])
			}

			edited, err := shared.Runner(cmd).Edit(ctx, saved.Cmd)
			if err != nil {
				return err
			}
			edited = runner.Clean(edited)

			p := shared.Printer(cmd)
			if edited == "" {
				return fmt.Errorf("command %q: refusing to save an empty command", args[0])
			}
			if edited == saved.Cmd {
				p.Info("Command", "No changes.")
				return nil
			}

			res, err := fc.Commands.Update(ctx, models.UpdateCommandInput{Name: args[0], Cmd: &edited})
			if err != nil {
				return err
			}
			p.Success("Command", fmt.Sprintf("Updated `%s`.", args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
}
