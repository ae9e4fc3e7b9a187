package http

import (
	"context"
	"io"
	"testing"
)

func TestRequest_Build(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		baseURL     string
		headers     map[string]string
		queryParams map[string]string
		body        interface{}
		expectedURL string
		contentType string
	}{
		{
			name:        "Simple GET request",
			method:      "GET",
			path:        "/api/products",
			baseURL:     "http://localhost:8080",
			headers:     map[string]string{"Accept": "application/json"},
			expectedURL: "http://localhost:8080/api/products",
		},
		{
			name:        "Query parameters",
			method:      "GET",
			path:        "/api/products/search",
			baseURL:     "http://localhost:8080",
			queryParams: map[string]string{"name": "widget"},
			expectedURL: "http://localhost:8080/api/products/search?name=widget",
		},
		{
			name:        "Trailing slash in base URL",
			method:      "GET",
			path:        "/api/products",
			baseURL:     "http://localhost:8080/",
			expectedURL: "http://localhost:8080/api/products",
		},
		{
			name:        "Base URL with path prefix",
			method:      "GET",
			path:        "products/1",
			baseURL:     "http://localhost:8080/api",
			expectedURL: "http://localhost:8080/api/products/1",
		},
		{
			name:        "Absolute path ignores base URL",
			method:      "GET",
			path:        "http://other:9000/health",
			baseURL:     "http://localhost:8080",
			expectedURL: "http://other:9000/health",
		},
		{
			name:        "No base URL",
			method:      "GET",
			path:        "http://localhost:8080",
			expectedURL: "http://localhost:8080",
		},
		{
			name:        "JSON body",
			method:      "POST",
			path:        "/api/products",
			baseURL:     "http://localhost:8080",
			body:        map[string]interface{}{"name": "p", "price": 1.5},
			expectedURL: "http://localhost:8080/api/products",
			contentType: "application/json",
		},
		{
			name:        "Explicit content type wins",
			method:      "POST",
			path:        "/api/products",
			baseURL:     "http://localhost:8080",
			headers:     map[string]string{"Content-Type": "application/vnd.api+json"},
			body:        map[string]string{"name": "p"},
			expectedURL: "http://localhost:8080/api/products",
			contentType: "application/vnd.api+json",
		},
		{
			name:        "String body",
			method:      "PUT",
			path:        "/api/products/1",
			baseURL:     "http://localhost:8080",
			body:        `{"name":"p"}`,
			expectedURL: "http://localhost:8080/api/products/1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(tt.method, tt.path)
			for k, v := range tt.headers {
				req.WithHeader(k, v)
			}
			for k, v := range tt.queryParams {
				req.WithQueryParam(k, v)
			}
			if tt.body != nil {
				req.WithBody(tt.body)
			}

			httpReq, err := req.Build(context.Background(), tt.baseURL)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			if httpReq.URL.String() != tt.expectedURL {
				t.Errorf("URL = %v, want %v", httpReq.URL.String(), tt.expectedURL)
			}
			if httpReq.Method != tt.method {
				t.Errorf("Method = %v, want %v", httpReq.Method, tt.method)
			}
			for k, v := range tt.headers {
				if httpReq.Header.Get(k) != v {
					t.Errorf("Header %s = %v, want %v", k, httpReq.Header.Get(k), v)
				}
			}
			if tt.contentType != "" && httpReq.Header.Get("Content-Type") != tt.contentType {
				t.Errorf("Content-Type = %v, want %v", httpReq.Header.Get("Content-Type"), tt.contentType)
			}
			if tt.body != nil {
				b, _ := io.ReadAll(httpReq.Body)
				if len(b) == 0 {
					t.Error("expected a request body")
				}
			}
		})
	}
}

func TestRequest_BuildInvalidURL(t *testing.T) {
	_, err := NewRequest("GET", "/x").Build(context.Background(), "://bad")
	if err == nil {
		t.Error("Build() should fail on an invalid base URL")
	}
}

func TestRequest_StatName(t *testing.T) {
	req := NewRequest("GET", "/api/products/42")
	if got := req.StatName(); got != "GET /api/products/42" {
		t.Errorf("StatName() = %q", got)
	}

	req.WithName("GET /api/products/{id}")
	if got := req.StatName(); got != "GET /api/products/{id}" {
		t.Errorf("StatName() = %q", got)
	}
}
