// Package varscmd implements the `flowlet vars` group.
package varscmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
)

// Command implements `flowlet vars`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the vars group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "vars",
		Aliases: []string{"var"},
		Short:   "Manage variables substituted into commands as ${NAME}",
	}
	c.cmd.AddCommand(c.newList(), c.newSet(), c.newRemove())
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) newList() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List variables",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			vars, err := fc.Variables.List(cmd.Context(), repo.ListInput{Query: query.All()})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(vars))
			for _, v := range vars {
				value := v.Value
				if !reveal {
					value = fc.Redactor.Value(v.Name, v.Value)
				}
				rows = append(rows, []string{v.Name, value})
			}
			shared.Printer(cmd).Table([]string{"NAME", "VALUE"}, rows, "No variables set.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Show secret values instead of [REDACTED]")
	return cmd
}

func (c *Command) newSet() *cobra.Command {
	return &cobra.Command{
		Use:     "set <name> <value>",
		Aliases: []string{"add"},
		Short:   "Create or replace a variable",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Variables.Set(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Variable", fmt.Sprintf("Set `%s`. Use it as ${%s}.", args[0], args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
}

func (c *Command) newRemove() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a variable",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Variables.Remove(cmd.Context(), models.RemoveVariableInput{Name: args[0]})
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("variable %q: %w", args[0], repo.ErrNotFound)
			}
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Variable", fmt.Sprintf("Removed `%s`.", args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
}
