package httpports

import (
	"context"

	httpdomain "hokz.academy/cli/internal/core/domain/http"
)

// Transport sends one request and returns the fully read response. A non-2xx
// status is reported as a *domain.StatusError.
type Transport interface {
	Send(ctx context.Context, req *httpdomain.Request) (*httpdomain.Response, error)
}

// Dispatcher sends a request with session handling applied.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *httpdomain.Request) (*httpdomain.Response, error)
}
