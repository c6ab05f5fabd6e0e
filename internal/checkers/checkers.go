// Package checkers provides quicktest checkers shared by the test suites.
package checkers

import (
	"encoding/json"
	"fmt"
	"reflect"

	qt "github.com/frankban/quicktest"
	"github.com/yalp/jsonpath"
)

// JSONPathEquals returns a checker that evaluates path against the JSON
// document held in got (a string, []byte or already decoded value) and
// compares the result with want.
//
//	c.Assert(body, checkers.JSONPathEquals("$.data.name"), "deploy")
func JSONPathEquals(path string) qt.Checker {
	return &jsonPathChecker{path: path}
}

type jsonPathChecker struct {
	path string
}

func (*jsonPathChecker) ArgNames() []string { return []string{"got", "want"} }

func (c *jsonPathChecker) Check(got any, args []any, note func(key string, value any)) error {
	doc, err := decode(got)
	if err != nil {
		return qt.BadCheckf("cannot decode got: %v", err)
	}
	value, err := jsonpath.Read(doc, c.path)
	if err != nil {
		note("path", c.path)
		return fmt.Errorf("cannot evaluate path: %w", err)
	}

	want, err := decode(mustJSON(args[0]))
	if err != nil {
		return qt.BadCheckf("cannot normalize want: %v", err)
	}
	if !reflect.DeepEqual(value, want) {
		note("path", c.path)
		note("value at path", value)
		return fmt.Errorf("value at path does not match")
	}
	return nil
}

func decode(v any) (any, error) {
	var raw []byte
	switch t := v.(type) {
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	default:
		raw = mustJSON(v)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}
