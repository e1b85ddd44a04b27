package httpdomain

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-Id"
	HeaderContentType   = "Content-Type"
)

// Request is a replayable description of an API call. The body is held in memory
// so the same request can be sent again after a session refresh.
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    []byte

	retried bool
}

// NewRequest creates a request with initialized header and query maps
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   map[string]string{},
		Headers: map[string]string{},
	}
}

// NewJSONRequest creates a request whose body is v encoded as JSON
func NewJSONRequest(method, path string, v any) (*Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req := NewRequest(method, path)
	req.Body = body
	req.SetHeader(HeaderContentType, "application/json")
	return req, nil
}

// Clone returns a deep copy, including the retry marker
func (r *Request) Clone() *Request {
	out := &Request{
		Method:  r.Method,
		Path:    r.Path,
		Query:   maps.Clone(r.Query),
		Headers: maps.Clone(r.Headers),
		retried: r.retried,
	}
	if out.Query == nil {
		out.Query = map[string]string{}
	}
	if out.Headers == nil {
		out.Headers = map[string]string{}
	}
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return out
}

// SetHeader sets a header using its canonical name
func (r *Request) SetHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[http.CanonicalHeaderKey(key)] = value
}

// Header returns the header value for key, or ""
func (r *Request) Header(key string) string {
	return r.Headers[http.CanonicalHeaderKey(key)]
}

// DelHeader removes a header
func (r *Request) DelHeader(key string) {
	delete(r.Headers, http.CanonicalHeaderKey(key))
}

// SetBearer sets the Authorization header to a bearer credential
func (r *Request) SetBearer(token string) {
	r.SetHeader(HeaderAuthorization, "Bearer "+token)
}

// MarkRetried records that this request has already been replayed once
func (r *Request) MarkRetried() {
	r.retried = true
}

// Retried reports whether the request has already been replayed
func (r *Request) Retried() bool {
	return r.retried
}

// Response is a fully read API response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
