package httpdomain

import "time"

// BackendEndpoint describes the marketplace API the client talks to.
type BackendEndpoint struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}
