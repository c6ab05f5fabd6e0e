// Package prompt collects missing CLI input through interactive forms.
//
// Every entry point refuses to run without a terminal on stdin and stdout so
// scripted invocations fail fast with ErrNotInteractive instead of hanging.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/go-ports/flowlet/internal/models"
)

var (
	// ErrNotInteractive is returned when stdin or stdout is not a terminal.
	ErrNotInteractive = errors.New("not an interactive terminal; pass the values as flags")
	// ErrAborted is returned when the user cancels a form.
	ErrAborted = errors.New("cancelled")
)

// Interactive reports whether both stdin and stdout are terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func run(ctx context.Context, form *huh.Form) error {
	if !Interactive() {
		return ErrNotInteractive
	}
	if err := form.WithTheme(huh.ThemeCharm()).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// Credentials asks for any of email and password that are still empty.
func Credentials(ctx context.Context, creds *models.Credentials) error {
	var fields []huh.Field
	if creds.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(&creds.Email).
			Validate(ValidateEmail))
	}
	if creds.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&creds.Password).
			Validate(Required("password")))
	}
	if len(fields) == 0 {
		return nil
	}
	return run(ctx, huh.NewForm(huh.NewGroup(fields...)))
}

// ProjectAnswers are the values collected by Project.
type ProjectAnswers struct {
	Name        string
	Description string
	Environment string
}

// Environments are the choices offered for a new project.
var Environments = []string{"local", "dev", "staging", "prod"}

// Project asks for a new project's name, description and environment.
func Project(ctx context.Context, a *ProjectAnswers) error {
	if a.Environment == "" {
		a.Environment = Environments[0]
	}
	return run(ctx, huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Project name").
			Value(&a.Name).
			Validate(Required("name")),
		huh.NewInput().
			Title("Description").
			Description("optional").
			Value(&a.Description),
		huh.NewSelect[string]().
			Title("Environment").
			Options(huh.NewOptions(Environments...)...).
			Value(&a.Environment),
	)))
}

// TaskAnswers are the values collected by Task. DueDate and Tags are raw
// text; callers parse them.
type TaskAnswers struct {
	Title       string
	Description string
	Status      string
	DueDate     string
	Tags        string
}

// Task asks for a task's fields, pre-filled with whatever a already holds.
func Task(ctx context.Context, a *TaskAnswers) error {
	if a.Status == "" {
		a.Status = string(models.StatusTodo)
	}
	statuses := make([]huh.Option[string], 0, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		statuses = append(statuses, huh.NewOption(s.String(), string(s)))
	}
	return run(ctx, huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Title").
			Value(&a.Title).
			Validate(Required("title")),
		huh.NewText().
			Title("Description").
			CharLimit(2000).
			Value(&a.Description),
		huh.NewSelect[string]().
			Title("Status").
			Options(statuses...).
			Value(&a.Status),
		huh.NewInput().
			Title("Due date").
			Description("YYYY-MM-DD or e.g. \"next friday\"").
			Value(&a.DueDate),
		huh.NewInput().
			Title("Tags").
			Description("comma separated").
			Value(&a.Tags),
	)))
}

// Confirm asks a yes/no question. Without a terminal it returns def.
func Confirm(ctx context.Context, title string, def bool) (bool, error) {
	if !Interactive() {
		return def, nil
	}
	ok := def
	err := run(ctx, huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Value(&ok),
	)))
	return ok, err
}

// ---------------------------------------------------------------------------
// Validators
// ---------------------------------------------------------------------------

// Required returns a validator rejecting blank input.
func Required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// ValidateEmail rejects anything that is not a bare address.
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Name != "" {
		return errors.New("enter a valid email address")
	}
	return nil
}

// SplitTags turns comma separated text into a tag list.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return models.UniqueTags(strings.Split(s, ","))
}
