package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request represents an HTTP request
type Request struct {
	// Name groups requests in per-request statistics. Defaults to
	// "METHOD path" so URLs with ids should set a template name.
	Name        string
	Method      string
	Path        string
	QueryParams url.Values
	Headers     map[string]string
	Body        interface{}
}

// NewRequest creates a new HTTP request
func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		QueryParams: make(url.Values),
		Headers:     make(map[string]string),
	}
}

// WithName sets the statistics name of the request
func (r *Request) WithName(name string) *Request {
	r.Name = name
	return r
}

// WithHeader adds a header to the request
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQueryParam adds a query parameter to the request
func (r *Request) WithQueryParam(key, value string) *Request {
	r.QueryParams.Add(key, value)
	return r
}

// WithBody sets the body of the request
func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

// StatName returns the name used for per-request statistics.
func (r *Request) StatName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Method + " " + r.Path
}

// Build constructs an http.Request bound to ctx. An absolute Path
// ignores baseURL. Bodies that are not a string, []byte or io.Reader are
// sent as JSON unless a Content-Type header is set explicitly.
func (r *Request) Build(ctx context.Context, baseURL string) (*http.Request, error) {
	target, err := r.resolve(baseURL)
	if err != nil {
		return nil, err
	}
	if len(r.QueryParams) > 0 {
		q := target.Query()
		for k, vs := range r.QueryParams {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	body, contentType, err := encodeBody(r.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body of %s: %w", r.StatName(), err)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(b), "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(raw), "application/json", nil
}

func (r *Request) resolve(baseURL string) (*url.URL, error) {
	if strings.HasPrefix(r.Path, "http://") || strings.HasPrefix(r.Path, "https://") || baseURL == "" {
		return url.Parse(r.Path)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	switch {
	case r.Path == "":
	case base.Path == "":
		base.Path = "/" + strings.TrimLeft(r.Path, "/")
	default:
		base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(r.Path, "/")
	}
	return base, nil
}
