// Package printer renders CLI output: status lines, tables and key/value
// blocks. Colors are chosen per writer, so output to a pipe or buffer is
// plain text.
package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

const (
	iconPass = "✓"
	iconWarn = "⚠"
	iconFail = "✗"
	iconInfo = "ℹ"
)

// Printer writes styled output to out and errors to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	pass, warn, fail, muted, accent, bold lipgloss.Style
	failErr                               lipgloss.Style
}

// New returns a Printer for the given streams.
func New(out, errOut io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	re := lipgloss.NewRenderer(errOut)
	return &Printer{
		out:     out,
		errOut:  errOut,
		pass:    r.NewStyle().Foreground(colorPass),
		warn:    r.NewStyle().Foreground(colorWarn),
		fail:    r.NewStyle().Foreground(colorFail),
		muted:   r.NewStyle().Foreground(colorMuted),
		accent:  r.NewStyle().Foreground(colorAccent).Bold(true),
		bold:    r.NewStyle().Bold(true),
		failErr: re.NewStyle().Foreground(colorFail),
	}
}

// Out returns the standard output writer.
func (p *Printer) Out() io.Writer { return p.out }

// Success prints "✓ label: message".
func (p *Printer) Success(label, message string) {
	fmt.Fprintf(p.out, "%s %s: %s\n", p.pass.Render(iconPass), p.bold.Render(label), message)
}

// Info prints "ℹ label: message".
func (p *Printer) Info(label, message string) {
	fmt.Fprintf(p.out, "%s %s: %s\n", p.accent.Render(iconInfo), p.bold.Render(label), message)
}

// Warning prints "⚠ Warning: message".
func (p *Printer) Warning(message string) {
	fmt.Fprintf(p.out, "%s %s\n", p.warn.Render(iconWarn), p.warn.Render("Warning: "+message))
}

// Warnings prints one Warning line per entry.
func (p *Printer) Warnings(messages []string) {
	for _, m := range messages {
		p.Warning(m)
	}
}

// Error prints "✗ label: message" to the error stream.
func (p *Printer) Error(label, message string) {
	fmt.Fprintf(p.errOut, "%s %s: %s\n", p.failErr.Render(iconFail), label, message)
}

// Heading prints an accented section title.
func (p *Printer) Heading(title string) {
	fmt.Fprintln(p.out, p.accent.Render(title))
}

// Muted prints a dimmed line.
func (p *Printer) Muted(text string) {
	fmt.Fprintln(p.out, p.muted.Render(text))
}

// Field is one row of a key/value block.
type Field struct {
	Key   string
	Value string
}

// Fields prints keys aligned in a column. Empty values print as "-".
func (p *Printer) Fields(fields []Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Key))
	}
	for _, f := range fields {
		v := f.Value
		if v == "" {
			v = p.muted.Render("-")
		}
		key := p.bold.Render(f.Key + ":")
		fmt.Fprintf(p.out, "%s%s %s\n", key, strings.Repeat(" ", width-len(f.Key)), v)
	}
}

// Table prints rows under headers with a rounded border. With no rows it
// prints empty instead.
func (p *Printer) Table(headers []string, rows [][]string, empty string) {
	if len(rows) == 0 {
		p.Muted(empty)
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.muted).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.accent.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(p.out, t.String())
}

// Status renders a status label with its color.
func (p *Printer) Status(name, display string) string {
	switch name {
	case "done":
		return p.pass.Render(display)
	case "in_progress":
		return p.warn.Render(display)
	default:
		return display
	}
}

// Fail renders text in the failure color.
func (p *Printer) Fail(text string) string { return p.fail.Render(text) }
