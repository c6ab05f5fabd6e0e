// Package mcp provides the stdio MCP server that lets coding agents list and
// save flowlet commands, read variables and manage tasks.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/flowlet/internal/buildinfo"
	"github.com/go-ports/flowlet/internal/models"
	"github.com/go-ports/flowlet/internal/query"
	"github.com/go-ports/flowlet/internal/repo"
	"github.com/go-ports/flowlet/internal/service"
)

const commandListDescription = `List saved shell commands. Secrets embedded in command text are redacted. Call this before writing a long shell invocation: the user may already have saved it.` //nolint:lll

const commandSaveDescription = `Save a shell command under a name so the user can run it later with "flowlet <name>". Saving an existing name replaces its command text. Use ${NAME} placeholders for values stored as variables.` //nolint:lll

const variableListDescription = `List variable names available for ${NAME} substitution in saved commands. Values of secret-looking variables are redacted.` //nolint:lll

// NewServer creates and registers all flowlet tools on a new MCP server.
// It is separate from Serve so tests can obtain a configured server without
// committing to the stdio transport.
func NewServer(fc *service.Context) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("flowlet", buildinfo.Version)
	registerTools(s, fc)
	return s
}

// Serve starts the stdio MCP server, blocking until stdin closes.
func Serve(ctx context.Context, opts service.Options) error {
	fc, err := service.New(ctx, opts)
	if err != nil {
		return fmt.Errorf("mcp: init context: %w", err)
	}
	defer fc.Close()

	return mcpserver.ServeStdio(NewServer(fc))
}

func registerTools(s *mcpserver.MCPServer, fc *service.Context) {
	s.AddTool(mcp.NewTool("command_list",
		mcp.WithDescription(commandListDescription),
		mcp.WithString("project",
			mcp.Description("Only commands belonging to this project."),
		),
		mcp.WithBoolean("remote",
			mcp.Description("Read from the remote store instead of the local one."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCommandList(ctx, fc, req)
	})

	s.AddTool(mcp.NewTool("command_show",
		mcp.WithDescription("Show one saved command by name."),
		mcp.WithString("name",
			mcp.Description("Command name."),
			mcp.Required(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCommandShow(ctx, fc, req)
	})

	s.AddTool(mcp.NewTool("command_save",
		mcp.WithDescription(commandSaveDescription),
		mcp.WithString("name",
			mcp.Description("Name to run the command by. No spaces."),
			mcp.Required(),
		),
		mcp.WithString("cmd",
			mcp.Description("Shell command text."),
			mcp.Required(),
		),
		mcp.WithString("project",
			mcp.Description("Owning project name."),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCommandSave(ctx, fc, req)
	})

	s.AddTool(mcp.NewTool("variable_list",
		mcp.WithDescription(variableListDescription),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleVariableList(ctx, fc)
	})

	s.AddTool(mcp.NewTool("task_list",
		mcp.WithDescription("List tasks, optionally filtered by project or status."),
		mcp.WithString("project",
			mcp.Description("Only tasks belonging to this project."),
		),
		mcp.WithString("status",
			mcp.Description("Only tasks in this status."),
			mcp.Enum(statusNames()...),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTaskList(ctx, fc, req)
	})

	s.AddTool(mcp.NewTool("task_create",
		mcp.WithDescription("Create a task. New tasks start as todo."),
		mcp.WithString("title",
			mcp.Description("Task title, used to look the task up later."),
			mcp.Required(),
		),
		mcp.WithString("description",
			mcp.Description("Longer description."),
		),
		mcp.WithString("project",
			mcp.Description("Owning project name."),
		),
		mcp.WithString("due_date",
			mcp.Description(`Due date as YYYY-MM-DD or natural language ("next friday").`),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags."),
			mcp.WithStringItems(),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleTaskCreate(ctx, fc, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleCommandList(ctx context.Context, fc *service.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmds, err := fc.Commands.List(ctx, repo.ListInput{
		Query:  projectQuery(req.GetString("project", "")),
		Remote: req.GetBool("remote", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]map[string]any, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, commandView(fc, cmd))
	}
	return jsonResult(out)
}

func handleCommandShow(ctx context.Context, fc *service.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	cmd, err := fc.Commands.Read(ctx, repo.ReadInput{Query: query.Eq("name", name)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cmd == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no command named %q", name)), nil
	}
	return jsonResult(commandView(fc, *cmd))
}

func handleCommandSave(ctx context.Context, fc *service.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return mcp.NewToolResultError("name must be a single non-empty word"), nil
	}
	cmdText := strings.TrimSpace(req.GetString("cmd", ""))
	if cmdText == "" {
		return mcp.NewToolResultError("cmd is required"), nil
	}

	res, created, err := fc.Commands.Save(ctx, models.CreateCommandInput{
		Name:    name,
		Cmd:     cmdText,
		Project: req.GetString("project", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	action := "updated"
	if created {
		action = "created"
	}
	return jsonResult(map[string]any{
		"id":       res.Record.ID,
		"name":     res.Record.Name,
		"action":   action,
		"warnings": nonNil(res.Warnings),
	})
}

func handleVariableList(ctx context.Context, fc *service.Context) (*mcp.CallToolResult, error) {
	vars, err := fc.Variables.List(ctx, repo.ListInput{Query: query.All()})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]map[string]any, 0, len(vars))
	for _, v := range vars {
		out = append(out, map[string]any{
			"name":  v.Name,
			"value": fc.Redactor.Value(v.Name, v.Value),
		})
	}
	return jsonResult(out)
}

func handleTaskList(ctx context.Context, fc *service.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := fc.Tasks.List(ctx, repo.ListInput{Query: projectQuery(req.GetString("project", ""))})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var want models.TaskStatus
	if s := req.GetString("status", ""); s != "" {
		if want, err = models.ParseTaskStatus(s); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	out := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		if want != "" && t.Status != want {
			continue
		}
		out = append(out, taskView(t))
	}
	return jsonResult(out)
}

func handleTaskCreate(ctx context.Context, fc *service.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := models.CreateTaskInput{
		Title:       strings.TrimSpace(req.GetString("title", "")),
		Description: req.GetString("description", ""),
		Project:     req.GetString("project", ""),
		Tags:        req.GetStringSlice("tags", make([]string, 0)),
	}
	if due := req.GetString("due_date", ""); due != "" {
		d, err := models.ParseDate(due, time.Now())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.DueDate = &d
	}

	res, err := fc.Tasks.Create(ctx, in)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidInput) {
			return mcp.NewToolResultError("title is required"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	view := taskView(res.Record)
	view["warnings"] = nonNil(res.Warnings)
	return jsonResult(view)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func projectQuery(project string) query.Query {
	if project = strings.TrimSpace(project); project != "" {
		return query.Eq("project", project)
	}
	return query.All()
}

func commandView(fc *service.Context, cmd models.Command) map[string]any {
	return map[string]any{
		"id":      cmd.ID,
		"name":    cmd.Name,
		"cmd":     fc.Redactor.Text(cmd.Cmd),
		"project": cmd.Project,
	}
}

func taskView(t models.Task) map[string]any {
	view := map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"project":     t.Project,
		"tags":        nonNil(t.Tags),
	}
	if t.DueDate != nil {
		view["due_date"] = t.DueDate.String()
	}
	return view
}

func statusNames() []string {
	out := make([]string, 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		out = append(out, string(s))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return make([]string, 0)
	}
	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
