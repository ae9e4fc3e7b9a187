package jsonpath

import (
	"errors"
	"testing"
)

const product = `{
	"id": 42,
	"name": "Load Test Product 17",
	"description": null,
	"price": 19.99,
	"tags": ["a", "b"],
	"stock": {"warehouse": {"quantity": 7}},
	"active": true
}`

func TestLookup(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		exists bool
		null   bool
		want   string
	}{
		{"Root", "$", true, false, ""},
		{"Simple property", "$.name", true, false, "Load Test Product 17"},
		{"Dotted without root", "id", true, false, "42"},
		{"Null property", "$.description", true, true, ""},
		{"Nested property", "$.stock.warehouse.quantity", true, false, "7"},
		{"Array element", "$.tags[1]", true, false, "b"},
		{"Bracket notation", "$['name']", true, false, "Load Test Product 17"},
		{"Double quoted bracket", `$["price"]`, true, false, "19.99"},
		{"Missing property", "$.sku", false, false, ""},
		{"Missing index", "$.tags[5]", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Lookup([]byte(product), tt.path)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if v.Exists != tt.exists {
				t.Errorf("Exists = %v, want %v", v.Exists, tt.exists)
			}
			if v.Null != tt.null {
				t.Errorf("Null = %v, want %v", v.Null, tt.null)
			}
			if tt.want != "" && v.String() != tt.want {
				t.Errorf("String() = %q, want %q", v.String(), tt.want)
			}
		})
	}
}

func TestLookup_MalformedIsNotAbsent(t *testing.T) {
	bodies := []string{``, `{"id":`, `<html>oops</html>`, `{"id": 1}}`}

	for _, body := range bodies {
		_, err := Lookup([]byte(body), "$.id")
		if !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("Lookup(%q) error = %v, want ErrMalformedJSON", body, err)
		}
	}
}

func TestLookup_Accessors(t *testing.T) {
	v, err := Lookup([]byte(product), "$.id")
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 42 {
		t.Errorf("Int() = %d, want 42", v.Int())
	}

	v, _ = Lookup([]byte(product), "$.price")
	if v.Float() != 19.99 {
		t.Errorf("Float() = %v, want 19.99", v.Float())
	}

	v, _ = Lookup([]byte(product), "$.active")
	if !v.Bool() {
		t.Error("Bool() = false, want true")
	}

	v, _ = Lookup([]byte(product), "$.tags")
	if !v.IsArray() || v.IsObject() {
		t.Error("tags should be an array")
	}
	if v.Raw() != `["a", "b"]` {
		t.Errorf("Raw() = %q", v.Raw())
	}
}

func TestExtract(t *testing.T) {
	got, err := Extract(product, "$.name")
	if err != nil || got != "Load Test Product 17" {
		t.Errorf("Extract() = %q, %v", got, err)
	}

	got, err = Extract(product, "$.description")
	if err != nil || got != "null" {
		t.Errorf("Extract() null = %q, %v", got, err)
	}

	if _, err := Extract(product, "$.sku"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Extract() missing error = %v, want ErrPathNotFound", err)
	}

	if _, err := Extract(`{"id":`, "$.id"); !errors.Is(err, ErrMalformedJSON) {
		t.Errorf("Extract() malformed error = %v, want ErrMalformedJSON", err)
	}

	if _, err := Extract("", "$.id"); err == nil {
		t.Error("Extract() on empty JSON should fail")
	}
	if _, err := Extract(product, ""); err == nil {
		t.Error("Extract() with empty path should fail")
	}
}

func TestConvertToGjsonPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"$", "@this"},
		{"$.name", "name"},
		{"$.items[0].id", "items.0.id"},
		{"$[0]", "0"},
		{"$['a']['b']", "a.b"},
		{"items.0", "items.0"},
	}

	for _, tt := range tests {
		if got := convertToGjsonPath(tt.path); got != tt.want {
			t.Errorf("convertToGjsonPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
