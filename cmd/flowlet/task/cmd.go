// Package taskcmd implements the `flowlet task` group.
package taskcmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/flowlet/cmd/flowlet/shared"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/printer"
	"github.com/go-ports/flowlet/internal/prompt"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
)

// Command implements `flowlet task`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the task group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "task",
		Short: "Track tasks for the current project",
	}
	c.cmd.AddCommand(c.newNew(), c.newEdit(), c.newList(), c.newShow(), c.newRemove())
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

// ---------------------------------------------------------------------------
// task new
// ---------------------------------------------------------------------------

func (c *Command) newNew() *cobra.Command {
	var (
		title, description, project, due string
		tags, milestones                 []string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" {
				a := prompt.TaskAnswers{Description: description, DueDate: due, Tags: strings.Join(tags, ", ")}
				if err := prompt.Task(cmd.Context(), &a); err != nil {
					return err
				}
				title, description, due, tags = a.Title, a.Description, a.DueDate, prompt.SplitTags(a.Tags)
			}
			if project == "" {
				project = shared.CurrentProject()
			}

			in := models.CreateTaskInput{
				Title:       title,
				Description: description,
				Project:     project,
				Tags:        tags,
				Milestones:  make([]models.Milestone, 0, len(milestones)),
			}
			var err error
			if in.DueDate, err = parseDue(due); err != nil {
				return err
			}
			for _, m := range milestones {
				in.Milestones = append(in.Milestones, models.Milestone{Name: m})
			}

			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Tasks.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Task", fmt.Sprintf("Created task `%s`.", res.Record.Title))
			p.Warnings(res.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Task title (prompted when omitted)")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&project, "project", "", "Owning project (default: from flowlet.toml)")
	cmd.Flags().StringVar(&due, "due", "", `Due date: YYYY-MM-DD or natural language ("next friday")`)
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable or comma separated)")
	cmd.Flags().StringArrayVar(&milestones, "milestone", nil, "Milestone name (repeatable)")
	return cmd
}

// ---------------------------------------------------------------------------
// task edit
// ---------------------------------------------------------------------------

func (c *Command) newEdit() *cobra.Command {
	var (
		status, description, due string
		tags, addMilestones       []string
	)
	cmd := &cobra.Command{
		Use:   "edit <title>",
		Short: "Change a task's status, description, due date, tags or milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			ctx := cmd.Context()
			task, err := fc.Tasks.Read(ctx, repo.ReadInput{Query: query.Eq("title", args[0])})
			if err != nil {
				return err
			}
			if task == nil {
				return notFound(args[0])
			}

			in := models.UpdateTaskInput{Title: task.Title}
			flags := cmd.Flags()
			if !flags.Changed("status") && !flags.Changed("description") && !flags.Changed("due") &&
				!flags.Changed("tag") && !flags.Changed("milestone") {
				if in, err = promptEdit(cmd, task); err != nil {
					return err
				}
			} else {
				if flags.Changed("status") {
					st, err := models.ParseTaskStatus(status)
					if err != nil {
						return err
					}
					in.Status = &st
				}
				if flags.Changed("description") {
					in.Description = &description
				}
				if flags.Changed("due") {
					if in.DueDate, err = parseDue(due); err != nil {
						return err
					}
				}
				if flags.Changed("tag") {
					in.Tags = models.UniqueTags(tags)
				}
				if flags.Changed("milestone") {
					in.Milestones = append([]models.Milestone{}, task.Milestones...)
					for _, m := range addMilestones {
						in.Milestones = append(in.Milestones, models.Milestone{Name: m})
					}
				}
			}

			res, err := fc.Tasks.Update(ctx, in)
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Task", fmt.Sprintf("Updated `%s` (%s).", res.Record.Title, res.Record.Status))
			p.Warnings(res.Warnings)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "New status: todo, in_progress or done")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace the tags (repeatable or comma separated)")
	cmd.Flags().StringArrayVar(&addMilestones, "milestone", nil, "Append a milestone (repeatable)")
	return cmd
}

func promptEdit(cmd *cobra.Command, task *models.Task) (models.UpdateTaskInput, error) {
	a := prompt.TaskAnswers{
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Tags:        strings.Join(task.Tags, ", "),
	}
	if task.DueDate != nil {
		a.DueDate = task.DueDate.String()
	}
	if err := prompt.Task(cmd.Context(), &a); err != nil {
		return models.UpdateTaskInput{}, err
	}

	st := models.TaskStatus(a.Status)
	in := models.UpdateTaskInput{
		Title:       task.Title,
		Status:      &st,
		Description: &a.Description,
		Tags:        prompt.SplitTags(a.Tags),
	}
	due, err := parseDue(a.DueDate)
	if err != nil {
		return in, err
	}
	in.DueDate = due
	return in, nil
}

// ---------------------------------------------------------------------------
// task ls / show / rm
// ---------------------------------------------------------------------------

func (c *Command) newList() *cobra.Command {
	var (
		status         string
		remote, global bool
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks in the current project",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var want models.TaskStatus
			if status != "" {
				st, err := models.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				want = st
			}

			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			q, project := shared.ProjectScope(global)
			tasks, err := fc.Tasks.List(cmd.Context(), repo.ListInput{Query: q, Remote: remote})
			if err != nil {
				return err
			}

			p := shared.Printer(cmd)
			if project != "" {
				p.Info("Project", project)
			}
			today := models.DateOf(time.Now())
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				if want != "" && t.Status != want {
					continue
				}
				dueText := "-"
				if t.DueDate != nil {
					dueText = t.DueDate.String()
					if t.Status != models.StatusDone && t.DueDate.Before(today) {
						dueText = p.Fail(dueText)
					}
				}
				rows = append(rows, []string{
					t.Title,
					p.Status(string(t.Status), t.Status.String()),
					dueText,
					shared.Or(t.Project),
					shared.Or(strings.Join(t.Tags, ", ")),
				})
			}
			p.Table([]string{"TITLE", "STATUS", "DUE", "PROJECT", "TAGS"}, rows, "No tasks.")
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only tasks in this status")
	cmd.Flags().BoolVar(&remote, "remote", false, "List from the remote store")
	cmd.Flags().BoolVarP(&global, "global", "g", false, "Ignore flowlet.toml and list every task")
	return cmd
}

func (c *Command) newShow() *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "show <title>",
		Short: "Show a task and its milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			t, err := fc.Tasks.Read(cmd.Context(), repo.ReadInput{Query: query.Eq("title", args[0]), Remote: remote})
			if err != nil {
				return err
			}
			if t == nil {
				return notFound(args[0])
			}

			p := shared.Printer(cmd)
			dueText := ""
			if t.DueDate != nil {
				dueText = t.DueDate.String()
			}
			p.Fields([]printer.Field{
				{Key: "Title", Value: t.Title},
				{Key: "Status", Value: p.Status(string(t.Status), t.Status.String())},
				{Key: "Description", Value: t.Description},
				{Key: "Project", Value: t.Project},
				{Key: "Due", Value: dueText},
				{Key: "Tags", Value: strings.Join(t.Tags, ", ")},
				{Key: "ID", Value: t.ID},
			})
			if len(t.Milestones) > 0 {
				p.Heading("Milestones")
				for i, m := range t.Milestones {
					line := fmt.Sprintf("%d. %s", i+1, m.Name)
					if m.DueDate != nil {
						line += " (due " + m.DueDate.String() + ")"
					}
					if m.Description != "" {
						line += " - " + m.Description
					}
					fmt.Fprintln(p.Out(), line)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Read from the remote store")
	return cmd
}

func (c *Command) newRemove() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <title>",
		Aliases: []string{"remove"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := c.ctx.Open(cmd)
			if err != nil {
				return err
			}
			defer fc.Close()

			res, err := fc.Tasks.Remove(cmd.Context(), models.RemoveTaskInput{Title: args[0]})
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(args[0])
			}
			if err != nil {
				return err
			}
			p := shared.Printer(cmd)
			p.Success("Task", fmt.Sprintf("Removed `%s`.", args[0]))
			p.Warnings(res.Warnings)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func notFound(title string) error {
	return fmt.Errorf("task %q: %w", title, repo.ErrNotFound)
}

// parseDue returns nil for blank input.
func parseDue(text string) (*models.Date, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(text, time.Now())
	if err != nil {
		return nil, err
	}
	return &d, nil
}
