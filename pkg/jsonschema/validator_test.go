package jsonschema

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

const productSchema = `{
	"type": "object",
	"properties": {
		"id": { "type": "integer" },
		"name": { "type": "string", "minLength": 1 },
		"price": { "type": "number", "minimum": 0 },
		"quantity": { "type": "integer", "minimum": 0 }
	},
	"required": ["id", "name"]
}`

func TestSchema_Validate(t *testing.T) {
	schema, err := Compile(productSchema)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"Valid product", `{"id": 1, "name": "x", "price": 1.5, "quantity": 3}`, false},
		{"Missing required property", `{"name": "x"}`, true},
		{"Wrong type", `{"id": "1", "name": "x"}`, true},
		{"Negative price", `{"id": 1, "name": "x", "price": -1}`, true},
		{"Extra properties allowed", `{"id": 1, "name": "x", "sku": "abc"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var ve ValidationErrors
				if !errors.As(err, &ve) {
					t.Errorf("Validate() error type = %T, want ValidationErrors", err)
				}
				if len(ve) == 0 {
					t.Error("expected at least one validation error")
				}
			}
		})
	}
}

func TestSchema_ValidateInvalidJSON(t *testing.T) {
	schema := MustCompile(productSchema)

	err := schema.Validate([]byte(`{"id":`))
	if !errors.Is(err, ErrInvalidJSON) {
		t.Errorf("Validate() error = %v, want ErrInvalidJSON", err)
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	if _, err := Compile(`{"type": 12}`); err == nil {
		t.Error("Compile() should reject an invalid schema")
	}
	if _, err := Compile(`{not json`); err == nil {
		t.Error("Compile() should reject malformed schema text")
	}
}

func TestSchema_ConcurrentValidate(t *testing.T) {
	schema := MustCompile(productSchema)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := schema.Validate([]byte(`{"id": 1, "name": "x"}`)); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestValidationErrors_Error(t *testing.T) {
	ve := ValidationErrors{errors.New("a"), errors.New("b")}
	if got := ve.Error(); got != "a; b" {
		t.Errorf("Error() = %q, want %q", got, "a; b")
	}
	if got := (ValidationErrors{}).Error(); got != "" {
		t.Errorf("empty Error() = %q", got)
	}

	schema := MustCompile(productSchema)
	err := schema.Validate([]byte(`{"name": ""}`))
	if err == nil || !strings.Contains(err.Error(), "validation error at") {
		t.Errorf("Validate() error = %v", err)
	}
}
