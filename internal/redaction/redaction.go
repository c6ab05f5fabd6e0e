// Package redaction masks secrets in command text and variable values before
// they are shown outside the terminal (MCP responses, redacted listings).
package redaction

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// IgnoreFile is the per-home file of extra patterns, one regexp per line.
const IgnoreFile = ".flowletignore"

const replacement = "[REDACTED]"

// rule replaces the matched text with repl, which may keep capture groups.
type rule struct {
	re   *regexp.Regexp
	repl string
}

// builtinRules are compiled once and applied before any caller patterns.
var builtinRules = []rule{
	{regexp.MustCompile(`(?i)(--?(?:password|passwd|pass|token|secret|api[_-]?key)(?:=|\s+))("[^"]*"|'[^']*'|\S+)`), "${1}" + replacement},
	{regexp.MustCompile(`(?i)(authorization:\s*(?:bearer|basic|token)\s+)[^\s"']+`), "${1}" + replacement},
	{regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:PASSWORD|SECRET|TOKEN|API_KEY|APIKEY)[A-Z0-9_]*=)("[^"]*"|'[^']*'|\S+)`), "${1}" + replacement},
	{regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^:/\s@]+:)[^@\s]+@`), "${1}" + replacement + "@"},
	{regexp.MustCompile(`(?i)sk_(?:live|test)_[a-zA-Z0-9]+`), replacement},
	{regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]+`), replacement},
	{regexp.MustCompile(`AKIA[0-9A-Z]{16}`), replacement},
	{regexp.MustCompile(`xox[bpas]-[a-zA-Z0-9-]+`), replacement},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+(?:\.[a-zA-Z0-9_-]+)?`), replacement},
}

// secretName matches variable names whose values are always masked.
var secretName = regexp.MustCompile(`(?i)pass|secret|token|api_?key|credential|private`)

// Redactor applies the built-in rules plus caller-supplied patterns.
type Redactor struct {
	extra []*regexp.Regexp
}

// New returns a Redactor that also masks every match of extra.
func New(extra []*regexp.Regexp) *Redactor {
	return &Redactor{extra: extra}
}

// Text masks secrets embedded in free text such as a shell command.
func (r *Redactor) Text(text string) string {
	for _, rl := range builtinRules {
		text = rl.re.ReplaceAllString(text, rl.repl)
	}
	if r == nil {
		return text
	}
	for _, re := range r.extra {
		text = re.ReplaceAllString(text, replacement)
	}
	return text
}

// Value masks a variable's value. Values of secret-looking names are hidden
// entirely; anything else is treated as text.
func (r *Redactor) Value(name, value string) string {
	if value != "" && secretName.MatchString(name) {
		return replacement
	}
	return r.Text(value)
}

// LoadIgnoreFile reads path and compiles each non-blank, non-comment line as
// a regular expression. A missing file yields nil patterns and no error.
func LoadIgnoreFile(path string) ([]*regexp.Regexp, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []*regexp.Regexp
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		re, err := regexp.Compile(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, scanner.Err()
}
