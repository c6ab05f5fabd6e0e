// Package projectcmd implements the `flowlet project` group.
package projectcmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/projectcfg"
	"github.com/go-ports/flowlet/internal/prompt"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
)

// Command implements `flowlet project`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the project group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "project",
		Short: "Create and manage projects",
	}
	c.cmd.AddCommand(c.newNew(), c.newList(), c.newRemove())
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// ---------------------------------------------------------------------------
// project new
// ---------------------------------------------------------------------------

func (c *Command) newNew() *cobra.Command {
	var (
		answers prompt.ProjectAnswers
		dir     string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a project and write flowlet.toml in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if answers.Name == "" {
				if err := prompt.Project(cmd.Context(), &answers); err != nil {
					return err
				}
			}
			if answers.Environment == "" {
				answers.Environment = prompt.Environments[0]
			}

			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			path, err := projectcfg.Write(dir, projectcfg.Project{
				Name:        answers.Name,
				Description: answers.Description,
				Environment: answers.Environment,
			})
			if err != nil {
				return err
			}

			res, err := fc.Projects.Create(cmd.Context(), models.CreateProjectInput{
				Name:        answers.Name,
				Description: answers.Description,
			})
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Project", fmt.Sprintf("Created project `%s` and wrote %s.", res.Record.Name, path))
			p.Warnings(res.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&answers.Name, "name", "", "Project name (prompted when omitted)")
	cmd.Flags().StringVar(&answers.Description, "description", "", "Project description")
	cmd.Flags().StringVar(&answers.Environment, "environment", "", "Current environment (local, dev, staging, prod)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write flowlet.toml in")
	return cmd
}

// ---------------------------------------------------------------------------
// project ls
// ---------------------------------------------------------------------------

func (c *Command) newList() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			projects, err := fc.Projects.List(cmd.Context(), repo.ListInput{Query: query.All(), Remote: remote})
			if err != nil {
				return err
			}
			current := shared.CurrentProject()
			rows := make([][]string, 0, len(projects))
			for _, pr := range projects {
				name := pr.Name
				if name == current {
					name += " *"
				}
				rows = append(rows, []string{name, shared.Or(pr.Description)})
			}
			shared.Printer(cmd).Table([]string{"NAME", "DESCRIPTION"}, rows, "No projects yet. Create one with `flowlet project new`.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "List from the remote store")
	return cmd
}

// ---------------------------------------------------------------------------
// project rm
// ---------------------------------------------------------------------------

func (c *Command) newRemove() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a project record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := shared.Printer(cmd)
			if !yes {
				ok, err := prompt.Confirm(cmd.Context(), fmt.Sprintf("Delete the project `%s`?", args[0]), false)
				if err != nil {
					return err
				}
				if !ok {
					p.Info("Aborted", "Project deletion cancelled. Pass --yes to skip the prompt.")
					return nil
				}
			}

			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Projects.Remove(cmd.Context(), models.RemoveProjectInput{Name: args[0]})
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("project %q: %w", args[0], repo.ErrNotFound)
			}
			if err != nil {
				return err
			}
			p.Success("Project", fmt.Sprintf("Removed `%s`.", args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
