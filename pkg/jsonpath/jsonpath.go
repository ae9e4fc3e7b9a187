// Package jsonpath reads fields out of JSON response bodies.
//
// A missing field and a malformed document are different outcomes: Lookup
// reports the first as a Value with Exists false and the second as
// ErrMalformedJSON.
package jsonpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformedJSON is returned when the body is not valid JSON.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrPathNotFound is returned by Extract when the path does not resolve.
	ErrPathNotFound = errors.New("path not found")
)

// Value is the result of a lookup.
type Value struct {
	Exists bool
	Null   bool
	raw    gjson.Result
}

// String returns the value as text. Absent values are empty.
func (v Value) String() string {
	if !v.Exists {
		return ""
	}
	return v.raw.String()
}

// Int returns the value as an integer.
func (v Value) Int() int64 { return v.raw.Int() }

// Float returns the value as a float.
func (v Value) Float() float64 { return v.raw.Float() }

// Bool returns the value as a boolean.
func (v Value) Bool() bool { return v.raw.Bool() }

// IsArray reports whether the value is a JSON array.
func (v Value) IsArray() bool { return v.raw.IsArray() }

// IsObject reports whether the value is a JSON object.
func (v Value) IsObject() bool { return v.raw.IsObject() }

// Raw returns the raw JSON text of the value.
func (v Value) Raw() string { return v.raw.Raw }

// Lookup resolves path in body. Paths use JSONPath ($.items[0].id) or
// plain dotted notation (items.0.id).
func Lookup(body []byte, path string) (Value, error) {
	if !gjson.ValidBytes(body) {
		return Value{}, ErrMalformedJSON
	}

	result := gjson.GetBytes(body, convertToGjsonPath(path))
	if !result.Exists() {
		return Value{}, nil
	}

	return Value{Exists: true, Null: result.Type == gjson.Null, raw: result}, nil
}

// Extract extracts a value as a string, failing when the path is missing.
func Extract(json string, path string) (string, error) {
	if json == "" {
		return "", fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}

	v, err := Lookup([]byte(json), path)
	if err != nil {
		return "", err
	}
	if !v.Exists {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	if v.Null {
		return "null", nil
	}
	return v.String(), nil
}

// convertToGjsonPath converts a JSONPath expression to a gjson path format
func convertToGjsonPath(path string) string {
	if path == "$" || path == "" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	// $['name'] and $["name"]
	path = strings.ReplaceAll(path, "['", ".")
	path = strings.ReplaceAll(path, "']", "")
	path = strings.ReplaceAll(path, "[\"", ".")
	path = strings.ReplaceAll(path, "\"]", "")

	// [n] -> .n
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	return strings.TrimPrefix(path, ".")
}
