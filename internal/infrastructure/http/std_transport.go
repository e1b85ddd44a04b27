package httpinfra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	httpports "hokz.academy/cli/internal/core/ports/http"
)

// maxBodySize caps how much of a response body is read into memory
const maxBodySize = 8 << 20

// StdTransport sends requests to the marketplace API with net/http. The cookie
// jar it owns carries the refresh session cookie between calls.
type StdTransport struct {
	endpoint httpdomain.BackendEndpoint
	client   *http.Client
	headers  map[string]string
}

// NewStdTransport creates a transport for endpoint with a fresh in-memory cookie jar
func NewStdTransport(endpoint httpdomain.BackendEndpoint) (*StdTransport, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return NewStdTransportWithJar(endpoint, jar)
}

// NewStdTransportWithJar creates a transport that keeps cookies in jar
func NewStdTransportWithJar(endpoint httpdomain.BackendEndpoint, jar http.CookieJar) (*StdTransport, error) {
	if _, err := url.Parse(endpoint.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}

	timeout := endpoint.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	headers := map[string]string{"Accept": "application/json"}
	if endpoint.UserAgent != "" {
		headers["User-Agent"] = endpoint.UserAgent
	}

	return &StdTransport{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout, Jar: jar},
		headers:  headers,
	}, nil
}

// Client returns the underlying HTTP client, sharing the cookie jar
func (t *StdTransport) Client() *http.Client {
	return t.client
}

// Endpoint returns the backend this transport talks to
func (t *StdTransport) Endpoint() httpdomain.BackendEndpoint {
	return t.endpoint
}

// Send performs req. Any non-2xx status is returned as a *domain.StatusError.
func (t *StdTransport) Send(ctx context.Context, req *httpdomain.Request) (*httpdomain.Response, error) {
	fullURL, err := joinURL(t.endpoint.BaseURL, req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range MergeHeaders(t.headers, req.Headers) {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get(httpdomain.HeaderRequestID) == "" {
		httpReq.Header.Set(httpdomain.HeaderRequestID, uuid.NewString())
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	return &httpdomain.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

func joinURL(base, p string, q map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(p)
	if err != nil {
		return "", err
	}
	u.Path = joinPath(u.Path, rel.Path)
	vals := rel.Query()
	for k, v := range q {
		vals.Set(k, v)
	}
	u.RawQuery = vals.Encode()
	return u.String(), nil
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a[len(a)-1] == '/' {
		a = a[:len(a)-1]
	}
	if b[0] != '/' {
		b = "/" + b
	}
	return a + b
}

var _ httpports.Transport = (*StdTransport)(nil)
