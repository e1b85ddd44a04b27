package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Session errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrRefreshFailed    = errors.New("session refresh failed")
	ErrRefreshRejected  = errors.New("refresh endpoint rejected the session")
	ErrRefreshAborted   = errors.New("session refresh aborted")
	ErrNotAuthenticated = errors.New("role is not authenticated")
	ErrInvalidRole      = errors.New("invalid role")
)

// StatusError is returned by a transport when the server answers with a non-2xx status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 256))
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// IsUnauthorized reports whether err carries an HTTP 401 from the server
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
