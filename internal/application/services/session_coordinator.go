package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	"hokz.academy/cli/internal/core/ports"
	httpports "hokz.academy/cli/internal/core/ports/http"
)

// SessionCoordinatorConfig configures the refresh behavior
type SessionCoordinatorConfig struct {
	RefreshTimeout time.Duration     // Upper bound for one refresh call (default: 15 seconds)
	LoginPaths     domain.LoginPaths // Where to send the client when every session is lost
}

// DefaultSessionCoordinatorConfig returns sensible defaults
func DefaultSessionCoordinatorConfig() *SessionCoordinatorConfig {
	return &SessionCoordinatorConfig{
		RefreshTimeout: 15 * time.Second,
		LoginPaths:     domain.DefaultLoginPaths(),
	}
}

// CoordinatorState is a point-in-time view of the refresh state machine
type CoordinatorState struct {
	Refreshing bool
	Parked     int
	Cycles     uint64
}

// SessionCoordinator attaches the active bearer token to outgoing requests and
// turns concurrent 401s into a single refresh call followed by one replay per request.
type SessionCoordinator struct {
	transport httpports.Transport
	refresher ports.SessionRefresher
	navigator ports.Navigator
	stores    ports.CredentialStores
	config    *SessionCoordinatorConfig
	logger    *slog.Logger

	mu         sync.Mutex
	refreshing bool
	pending    []*parkedRequest
	cycles     uint64
}

// parkedRequest waits for the outcome of the refresh that was in flight when it failed.
// Replays of one cycle go out in park order: a request sends only after the
// request parked before it has closed its turn.
type parkedRequest struct {
	requestID string
	outcome   chan refreshOutcome
	after     <-chan struct{} // nil for the first request of a cycle
	turn      chan struct{}
}

type refreshOutcome struct {
	token string
	err   error
}

// NewSessionCoordinator creates a coordinator over the given collaborators
func NewSessionCoordinator(
	transport httpports.Transport,
	refresher ports.SessionRefresher,
	navigator ports.Navigator,
	stores ports.CredentialStores,
	logger *slog.Logger,
	config *SessionCoordinatorConfig,
) *SessionCoordinator {
	if config == nil {
		config = DefaultSessionCoordinatorConfig()
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = DefaultSessionCoordinatorConfig().RefreshTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionCoordinator{
		transport: transport,
		refresher: refresher,
		navigator: navigator,
		stores:    stores,
		config:    config,
		logger:    logger.With(slog.String("component", "session")),
	}
}

// Dispatch sends req with the current bearer token and recovers from an expired session
func (c *SessionCoordinator) Dispatch(ctx context.Context, req *httpdomain.Request) (*httpdomain.Response, error) {
	out := c.AttachToken(req)
	if out.Header(httpdomain.HeaderRequestID) == "" {
		out.SetHeader(httpdomain.HeaderRequestID, uuid.NewString())
	}

	resp, err := c.transport.Send(ctx, out)
	if err == nil {
		return resp, nil
	}
	return c.HandleFailure(ctx, out, err)
}

// AttachToken returns a copy of req carrying the first token found in the user,
// tutor and admin stores, in that order. Without any token the copy is sent as is.
func (c *SessionCoordinator) AttachToken(req *httpdomain.Request) *httpdomain.Request {
	out := req.Clone()
	if token := c.currentToken(); token != "" {
		out.SetBearer(token)
	}
	return out
}

// HandleFailure decides what to do with a failed request. Anything other than a
// first-attempt 401 is returned unchanged. A first-attempt 401 either starts a
// refresh or parks behind the one in flight, and is then replayed once.
func (c *SessionCoordinator) HandleFailure(ctx context.Context, req *httpdomain.Request, failure error) (*httpdomain.Response, error) {
	if !domain.IsUnauthorized(failure) || req.Retried() {
		return nil, failure
	}

	logger := c.logger.With(slog.String("request_id", req.Header(httpdomain.HeaderRequestID)))

	c.mu.Lock()
	if c.refreshing {
		parked := &parkedRequest{
			requestID: req.Header(httpdomain.HeaderRequestID),
			outcome:   make(chan refreshOutcome, 1),
			turn:      make(chan struct{}),
		}
		if n := len(c.pending); n > 0 {
			parked.after = c.pending[n-1].turn
		}
		c.pending = append(c.pending, parked)
		position := len(c.pending)
		c.mu.Unlock()

		logger.Debug("parked behind in-flight refresh", slog.Int("position", position))
		return c.replayParked(ctx, req, parked)
	}
	c.refreshing = true
	c.mu.Unlock()

	logger.Debug("access token rejected, refreshing session", slog.String("path", req.Path))

	token, err := c.refresh(ctx)
	if err != nil {
		logger.Warn("session refresh failed", slog.String("error", err.Error()))
		return nil, failure
	}
	return c.replay(ctx, req, token)
}

// State returns the current refresh state
func (c *SessionCoordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CoordinatorState{
		Refreshing: c.refreshing,
		Parked:     len(c.pending),
		Cycles:     c.cycles,
	}
}

// Private methods

func (c *SessionCoordinator) currentToken() string {
	for _, store := range c.stores.InPriorityOrder() {
		if record := store.Get(); record.HasToken() {
			return record.AccessToken
		}
	}
	return ""
}

// refresh performs one refresh cycle. The deferred settle runs exactly once,
// including when the refresher panics, in which case err still holds ErrRefreshAborted.
func (c *SessionCoordinator) refresh(ctx context.Context) (token string, err error) {
	err = fmt.Errorf("%w: %w", domain.ErrRefreshFailed, domain.ErrRefreshAborted)
	defer func() {
		c.settle(token, err)
	}()

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RefreshTimeout)
	defer cancel()

	token, err = c.refresher.Refresh(refreshCtx)
	if err == nil && token == "" {
		err = domain.ErrRefreshRejected
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRefreshFailed, err)
	}
	return token, nil
}

// settle applies the refresh outcome to the stores, ends the cycle and resolves
// every parked request in the order it was parked.
func (c *SessionCoordinator) settle(token string, err error) {
	if err == nil {
		c.patchAuthenticated(token)
	} else {
		c.clearAll()
	}

	c.mu.Lock()
	parked := c.pending
	c.pending = nil
	c.refreshing = false
	c.cycles++
	c.mu.Unlock()

	for _, p := range parked {
		c.logger.Debug("resolving parked request", slog.String("request_id", p.requestID))
		p.outcome <- refreshOutcome{token: token, err: err}
	}

	c.logger.Info("session refresh settled",
		slog.Bool("success", err == nil),
		slog.Int("parked", len(parked)))

	if err != nil && c.navigator != nil {
		target := c.config.LoginPaths.Resolve(c.navigator.CurrentPath())
		c.logger.Info("redirecting to login", slog.String("target", target))
		c.navigator.Redirect(target)
	}
}

// patchAuthenticated hands the new token to every signed-in role.
func (c *SessionCoordinator) patchAuthenticated(token string) {
	for _, store := range c.stores.InPriorityOrder() {
		if store.Get().IsAuthenticated {
			store.PatchToken(token)
		}
	}
}

func (c *SessionCoordinator) clearAll() {
	for _, store := range c.stores.InPriorityOrder() {
		store.Clear()
	}
}

// replayParked waits for the refresh outcome and then for its turn, so replays
// reach the transport in the order the requests were parked.
func (c *SessionCoordinator) replayParked(ctx context.Context, req *httpdomain.Request, parked *parkedRequest) (*httpdomain.Response, error) {
	defer close(parked.turn)

	result := <-parked.outcome
	if result.err != nil {
		return nil, result.err
	}

	if parked.after != nil {
		select {
		case <-parked.after:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.replay(ctx, req, result.token)
}

func (c *SessionCoordinator) replay(ctx context.Context, req *httpdomain.Request, token string) (*httpdomain.Response, error) {
	req.MarkRetried()
	retry := req.Clone()
	retry.SetBearer(token)
	return c.transport.Send(ctx, retry)
}

var _ httpports.Dispatcher = (*SessionCoordinator)(nil)
