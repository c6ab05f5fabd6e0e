// Package query implements the filter expression shared by the local store
// and the remote wire protocol.
//
// A Query is either All (match every record) or Eq(field, value). Both forms
// serialize to the same JSON whether they are matched in memory or sent to
// the remote service:
//
//	"All"
//	{"Eq":["name","deploy"]}
package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// IDField is the document key holding a record's generated identifier.
const IDField = "_id"

// ErrInvalid is returned when a serialized query cannot be decoded.
var ErrInvalid = errors.New("invalid query")

// Kind discriminates the two query forms.
type Kind int

const (
	// KindAll matches every record.
	KindAll Kind = iota
	// KindEq matches records whose Field equals Value.
	KindEq
)

// Query is a filter expression. The zero value matches everything.
type Query struct {
	kind  Kind
	field string
	value any
}

// All returns a query matching every record.
func All() Query { return Query{kind: KindAll} }

// Eq returns a query matching records whose field equals value.
// value is normalized through JSON so that it compares equal to decoded
// documents regardless of its Go type (an int matches a stored float64).
func Eq(field string, value any) Query {
	return Query{kind: KindEq, field: field, value: normalize(value)}
}

// Kind reports which form q is.
func (q Query) Kind() Kind { return q.kind }

// Field returns the compared field name ("" for All).
func (q Query) Field() string { return q.field }

// Value returns the normalized comparison value (nil for All).
func (q Query) Value() any { return q.value }

// IsAll reports whether q matches every record.
func (q Query) IsAll() bool { return q.kind == KindAll }

// String renders q for logs and error messages.
func (q Query) String() string {
	if q.kind == KindAll {
		return "All"
	}
	return fmt.Sprintf("%s == %v", q.field, q.value)
}

// Match reports whether doc satisfies q. Dotted field names ("a.b") walk
// nested objects.
func (q Query) Match(doc map[string]any) bool {
	if q.kind == KindAll {
		return true
	}
	got, ok := lookup(doc, q.field)
	if !ok {
		return false
	}
	return reflect.DeepEqual(normalize(got), q.value)
}

// MarshalJSON encodes q in the wire form.
func (q Query) MarshalJSON() ([]byte, error) {
	if q.kind == KindAll {
		return []byte(`"All"`), nil
	}
	return json.Marshal(map[string][]any{"Eq": {q.field, q.value}})
}

// UnmarshalJSON decodes the wire form.
func (q *Query) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = All()
		return nil
	}

	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "All" {
			return fmt.Errorf("%w: unknown variant %q", ErrInvalid, tag)
		}
		*q = All()
		return nil
	}

	var obj map[string][]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	args, ok := obj["Eq"]
	if !ok || len(obj) != 1 {
		return fmt.Errorf("%w: expected \"All\" or {\"Eq\":[field,value]}", ErrInvalid)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: Eq takes 2 arguments, got %d", ErrInvalid, len(args))
	}
	var field string
	if err := json.Unmarshal(args[0], &field); err != nil {
		return fmt.Errorf("%w: Eq field: %w", ErrInvalid, err)
	}
	var value any
	if err := json.Unmarshal(args[1], &value); err != nil {
		return fmt.Errorf("%w: Eq value: %w", ErrInvalid, err)
	}
	*q = Query{kind: KindEq, field: field, value: value}
	return nil
}

// lookup resolves a possibly dotted field name inside doc.
func lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// normalize round-trips v through JSON so numbers become float64, structs
// become maps and typed slices become []any.
func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool, float64:
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
