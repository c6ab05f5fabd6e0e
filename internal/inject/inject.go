// Package inject substitutes ${name} placeholders with stored variable values.
package inject

import (
	"context"
	"fmt"
	"regexp"
)

var placeholder = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)

// Lookuper resolves a variable by name. ok is false when no variable exists.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (value string, ok bool, err error)
}

// Variables replaces every ${name} in text with the value of the variable of
// that name. Unknown placeholders are left untouched and reported once each
// in warnings. A lookup error aborts the substitution.
func Variables(ctx context.Context, vars Lookuper, text string) (out string, warnings []string, err error) {
	values := make(map[string]string)
	missing := make(map[string]bool)

	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, seen := values[name]; seen || missing[name] {
			continue
		}
		v, ok, err := vars.Lookup(ctx, name)
		if err != nil {
			return "", nil, fmt.Errorf("inject.Variables %q: %w", name, err)
		}
		if !ok {
			missing[name] = true
			warnings = append(warnings, fmt.Sprintf("missing variable ${%s}", name))
			continue
		}
		values[name] = v
	}

	out = placeholder.ReplaceAllStringFunc(text, func(tok string) string {
		name := placeholder.FindStringSubmatch(tok)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return tok
	})
	return out, warnings, nil
}

// Names returns the distinct placeholder names in text, in order of first use.
func Names(text string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
