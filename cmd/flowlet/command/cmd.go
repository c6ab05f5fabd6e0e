// Package commandcmd implements the `flowlet command` group.
package commandcmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/inject"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/printer"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
)

// Command implements `flowlet command`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:     "command",
		Aliases: []string{"cmd"},
		Short:   "Save, run and share shell commands",
	}
	c.cmd.AddCommand(
		c.newSave(),
		c.newRun(),
		c.newList(),
		c.newShow(),
		c.newRemove(),
		c.newEdit(),
		c.newPush(),
		c.newPull(),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// ---------------------------------------------------------------------------
// command save
// ---------------------------------------------------------------------------

func (c *Command) newSave() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "save <name> <cmd...>",
		Short: "Save a command, replacing any command with the same name",
		Example: `  flowlet command save deploy ./deploy.sh --env prod
  flowlet command save greet -- echo "hello ${NAME}"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if project == "" {
				project = shared.CurrentProject()
			}

			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, created, err := fc.Commands.Save(cmd.Context(), models.CreateCommandInput{
				Name:    name,
				Cmd:     strings.Join(args[1:], " "),
				Project: project,
			})
			if err != nil {
				return err
			}

			p := shared.Printer(cmd)
			verb := "Updated"
			if created {
				verb = "Saved"
			}
			p.Success("Command", fmt.Sprintf("%s `%s`. Run with `flowlet %s`.", verb, name, name))
			p.Warnings(res.Warnings)
			return nil
		},
	}
	// Everything after the name belongs to the saved command.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&project, "project", "", "Owning project (default: from flowlet.toml)")
	return cmd
}

// ---------------------------------------------------------------------------
// command ls
// ---------------------------------------------------------------------------

func (c *Command) newList() *cobra.Command {
	var remote, global bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List saved commands in the current project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			q, project := shared.ProjectScope(global)
			cmds, err := fc.Commands.List(cmd.Context(), repo.ListInput{Query: q, Remote: remote})
			if err != nil {
				return err
			}

			p := shared.Printer(cmd)
			if project != "" {
				p.Info("Project", project)
			}
			rows := make([][]string, 0, len(cmds))
			for _, m := range cmds {
				rows = append(rows, []string{m.Name, m.Cmd, shared.Or(m.Project)})
			}
			p.Table([]string{"NAME", "COMMAND", "PROJECT"}, rows, "No commands saved.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "List from the remote store")
	cmd.Flags().BoolVarP(&global, "global", "g", false, "Ignore flowlet.toml and list every command")
	return cmd
}

// ---------------------------------------------------------------------------
// command show
// ---------------------------------------------------------------------------

func (c *Command) newShow() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			m, err := fc.Commands.Read(cmd.Context(), repo.ReadInput{Query: query.Eq("name", args[0]), Remote: remote})
			if err != nil {
				return err
			}
			if m == nil {
				return notFound(args[0])
			}
			shared.Printer(cmd).Fields([]printer.Field{
				{Key: "Name", Value: m.Name},
				{Key: "Command", Value: m.Cmd},
				{Key: "Project", Value: m.Project},
				{Key: "Variables", Value: strings.Join(inject.Names(m.Cmd), ", ")},
				{Key: "ID", Value: m.ID},
			})
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Read from the remote store")
	return cmd
}

// ---------------------------------------------------------------------------
// command rm
// ---------------------------------------------------------------------------

func (c *Command) newRemove() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Delete a saved command",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Commands.Remove(cmd.Context(), models.RemoveCommandInput{Name: args[0]})
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(args[0])
			}
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Command", fmt.Sprintf("Removed `%s`.", args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
}

func notFound(name string) error {
	return fmt.Errorf("command %q: %w", name, repo.ErrNotFound)
}
