package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wesleyorama2/volley/pkg/jsonpath"
)

// TimingInfo stores detailed timing information for an HTTP request.
type TimingInfo struct {
	StartTime time.Time

	DNSLookupTime    time.Duration
	TCPConnectTime   time.Duration
	TLSHandshakeTime time.Duration

	// TimeToFirstByte is measured from the end of the last connection phase
	TimeToFirstByte     time.Duration
	ContentTransferTime time.Duration
	TotalTime           time.Duration
}

// Response is the result of a request. Do always returns one; when no
// response arrived StatusCode is 0 and Err holds the transport error.
type Response struct {
	StatusCode   int
	Status       string
	Headers      http.Header
	ResponseTime time.Duration
	Timing       TimingInfo
	Err          error

	body []byte
}

// Body returns the fully read response body.
func (r *Response) Body() []byte {
	return r.body
}

// BodyString returns the response body as a string.
func (r *Response) BodyString() string {
	return string(r.body)
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.body, v)
}

// JSON looks up a field in the body. An absent field yields a Value with
// Exists false; a malformed body yields jsonpath.ErrMalformedJSON.
func (r *Response) JSON(path string) (jsonpath.Value, error) {
	return jsonpath.Lookup(r.body, path)
}

// GetHeader returns the value of the specified header
func (r *Response) GetHeader(key string) string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get(key)
}

// Failed reports whether the response counts as a failed request.
func (r *Response) Failed() bool {
	return r.Err != nil || r.StatusCode < 200 || r.StatusCode >= 400
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsClientError returns true if the response status code is in the 4xx range
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response status code is in the 5xx range
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}
