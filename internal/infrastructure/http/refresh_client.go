package httpinfra

import (
	"context"
	"fmt"
	"net/http"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	"hokz.academy/cli/internal/core/ports"
	httpports "hokz.academy/cli/internal/core/ports/http"
)

// DefaultRefreshPath is the shared refresh endpoint of every role
const DefaultRefreshPath = "/api/auth/refresh"

// RefreshClient calls the refresh endpoint with the session cookie only. It must
// be given the raw transport, never the session coordinator, so the expired bearer
// token is not sent and a 401 here cannot start another refresh.
type RefreshClient struct {
	transport httpports.Transport
	path      string
}

// NewRefreshClient creates a refresher posting to path on transport
func NewRefreshClient(transport httpports.Transport, path string) *RefreshClient {
	if path == "" {
		path = DefaultRefreshPath
	}
	return &RefreshClient{transport: transport, path: path}
}

// Refresh exchanges the session cookie for a new access token
func (c *RefreshClient) Refresh(ctx context.Context) (string, error) {
	req := httpdomain.NewRequest(http.MethodPost, c.path)
	req.DelHeader(httpdomain.HeaderAuthorization)

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("refresh request failed: %w", err)
	}

	var body domain.RefreshResponse
	if err := resp.Decode(&body); err != nil {
		return "", err
	}

	if !body.Success {
		if body.Message != "" {
			return "", fmt.Errorf("%w: %s", domain.ErrRefreshRejected, body.Message)
		}
		return "", domain.ErrRefreshRejected
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrRefreshRejected)
	}

	return body.AccessToken, nil
}

var _ ports.SessionRefresher = (*RefreshClient)(nil)
