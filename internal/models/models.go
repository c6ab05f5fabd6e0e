// Package models defines the flowlet entities and the input structs that
// callers hand to the repositories.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Collection names, also used as the <entity> segment of remote paths.
const (
	CommandCollection  = "command"
	TaskCollection     = "task"
	ProjectCollection  = "project"
	VariableCollection = "variable"
	AuthCollection     = "auth"
)

// NewID returns a fresh time-ordered identifier (UUIDv7).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ---------------------------------------------------------------------------
// Command
// ---------------------------------------------------------------------------

// Command is a named shell command.
type Command struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Cmd     string `json:"cmd"`
	Project string `json:"project,omitempty"` // optional owning project name
}

// CreateCommandInput is the data needed to create a Command.
type CreateCommandInput struct {
	Name    string
	Cmd     string
	Project string // optional
}

// UpdateCommandInput patches the Command named Name. Nil fields are left unchanged.
type UpdateCommandInput struct {
	Name    string
	Cmd     *string
	Project *string
}

// Lookup implements the repository update contract.
func (in UpdateCommandInput) Lookup() string { return in.Name }

// Patch returns the fields this input sets.
func (in UpdateCommandInput) Patch() map[string]any {
	p := map[string]any{}
	if in.Cmd != nil {
		p["cmd"] = *in.Cmd
	}
	if in.Project != nil {
		p["project"] = *in.Project
	}
	return p
}

// RemoveCommandInput names the Command to delete.
type RemoveCommandInput struct {
	Name string
}

// ---------------------------------------------------------------------------
// Task
// ---------------------------------------------------------------------------

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists every valid status in lifecycle order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// String returns the display form ("Todo", "In Progress", "Done").
func (s TaskStatus) String() string {
	switch s {
	case StatusTodo:
		return "Todo"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of TaskStatuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// ParseTaskStatus accepts the stored or display form, case-insensitively,
// with spaces, hyphens or underscores between words.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	st := TaskStatus(norm)
	if !st.Valid() {
		return "", fmt.Errorf("invalid task status %q (want todo, in_progress or done)", s)
	}
	return st, nil
}

// Milestone is an ordered checkpoint owned by a Task.
type Milestone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DueDate     *Date  `json:"due_date,omitempty"`
}

// Task is a unit of work, optionally scoped to a project.
type Task struct {
	ID          string      `json:"_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      TaskStatus  `json:"status"`
	Project     string      `json:"project,omitempty"`
	DueDate     *Date       `json:"due_date,omitempty"`
	Tags        []string    `json:"tags"`
	Milestones  []Milestone `json:"milestones"`
}

// CreateTaskInput is the data needed to create a Task. New tasks start as todo.
type CreateTaskInput struct {
	Title       string
	Description string
	Project     string
	DueDate     *Date
	Tags        []string
	Milestones  []Milestone
}

// UpdateTaskInput patches the Task titled Title. Nil fields are left unchanged;
// a non-nil empty Tags or Milestones clears the list.
type UpdateTaskInput struct {
	Title       string
	Status      *TaskStatus
	Description *string
	DueDate     *Date
	Tags        []string
	Milestones  []Milestone
}

// Lookup implements the repository update contract.
func (in UpdateTaskInput) Lookup() string { return in.Title }

// Patch returns the fields this input sets.
func (in UpdateTaskInput) Patch() map[string]any {
	p := map[string]any{}
	if in.Status != nil {
		p["status"] = *in.Status
	}
	if in.Description != nil {
		p["description"] = *in.Description
	}
	if in.DueDate != nil {
		p["due_date"] = *in.DueDate
	}
	if in.Tags != nil {
		p["tags"] = UniqueTags(in.Tags)
	}
	if in.Milestones != nil {
		p["milestones"] = in.Milestones
	}
	return p
}

// RemoveTaskInput names the Task to delete.
type RemoveTaskInput struct {
	Title string
}

// UniqueTags trims tags, drops empties and removes duplicates keeping the
// first occurrence. The result is never nil.
func UniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ---------------------------------------------------------------------------
// Project
// ---------------------------------------------------------------------------

// Project groups commands and tasks by name.
type Project struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateProjectInput is the data needed to create a Project.
type CreateProjectInput struct {
	Name        string
	Description string
}

// UpdateProjectInput patches the Project named Name.
type UpdateProjectInput struct {
	Name        string
	Description *string
}

// Lookup implements the repository update contract.
func (in UpdateProjectInput) Lookup() string { return in.Name }

// Patch returns the fields this input sets.
func (in UpdateProjectInput) Patch() map[string]any {
	p := map[string]any{}
	if in.Description != nil {
		p["description"] = *in.Description
	}
	return p
}

// RemoveProjectInput names the Project to delete.
type RemoveProjectInput struct {
	Name string
}

// ---------------------------------------------------------------------------
// Variable
// ---------------------------------------------------------------------------

// Variable is a named value substituted into commands as ${name}.
type Variable struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreateVariableInput is the data needed to create a Variable.
type CreateVariableInput struct {
	Name  string
	Value string
}

// UpdateVariableInput replaces the value of the Variable named Name.
type UpdateVariableInput struct {
	Name  string
	Value string
}

// Lookup implements the repository update contract.
func (in UpdateVariableInput) Lookup() string { return in.Name }

// Patch returns the fields this input sets.
func (in UpdateVariableInput) Patch() map[string]any {
	return map[string]any{"value": in.Value}
}

// RemoveVariableInput names the Variable to delete.
type RemoveVariableInput struct {
	Name string
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// Auth holds the session token returned by the remote login endpoint.
// At most one Auth record exists locally.
type Auth struct {
	ID           string `json:"_id"`
	FlowletToken string `json:"flowlet_token"`
}

// Credentials are sent to the remote login and register endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateAuthInput exists to complete the repository contract; auth records
// cannot be updated.
type UpdateAuthInput struct{}

// LogoutInput removes the local session.
type LogoutInput struct{}

// LoginResponse is the data payload of /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
}
