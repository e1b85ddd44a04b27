// Package marketplace is the typed client for the Hokz Academy API
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	"hokz.academy/cli/internal/core/ports"
	httpports "hokz.academy/cli/internal/core/ports/http"
)

// Course is a catalogue entry
type Course struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Tutor  string  `json:"tutor"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating"`
}

// Profile is the account behind a role session
type Profile struct {
	Role  domain.Role `json:"role"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Client calls the marketplace API. Authenticated calls go through the
// dispatcher; login and logout use the bare transport so a rejected password
// never starts a session refresh.
type Client struct {
	dispatcher httpports.Dispatcher
	transport  httpports.Transport
	stores     ports.CredentialStores
	logger     *slog.Logger
}

// NewClient creates a marketplace client
func NewClient(dispatcher httpports.Dispatcher, transport httpports.Transport, stores ports.CredentialStores, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		dispatcher: dispatcher,
		transport:  transport,
		stores:     stores,
		logger:     logger.With(slog.String("component", "marketplace")),
	}
}

// Login signs in as role and stores the returned session
func (c *Client) Login(ctx context.Context, role domain.Role, email, password string) (domain.CredentialRecord, error) {
	store := c.stores.ForRole(role)
	if store == nil {
		return domain.CredentialRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	req, err := httpdomain.NewJSONRequest(http.MethodPost, rolePath(role, "login"), map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return domain.CredentialRecord{}, err
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return domain.CredentialRecord{}, fmt.Errorf("login as %s failed: %w", role, withServerMessage(err))
	}

	var body domain.LoginResponse
	if err := resp.Decode(&body); err != nil {
		return domain.CredentialRecord{}, err
	}
	if !body.Success || body.AccessToken == "" {
		return domain.CredentialRecord{}, fmt.Errorf("login as %s failed: %s", role, body.Message)
	}

	record := body.ToCredential(role)
	store.SetFromLogin(record)
	c.logger.Info("logged in", slog.String("role", role.String()))
	return record, nil
}

// Logout ends the role session on the server and clears it locally. The local
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context, role domain.Role) error {
	store := c.stores.ForRole(role)
	if store == nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}
	defer store.Clear()

	if _, err := c.transport.Send(ctx, httpdomain.NewRequest(http.MethodPost, rolePath(role, "logout"))); err != nil {
		return fmt.Errorf("logout as %s failed: %w", role, err)
	}
	return nil
}

// Profile fetches the account signed in as role
func (c *Client) Profile(ctx context.Context, role domain.Role) (Profile, error) {
	if err := c.requireSession(role); err != nil {
		return Profile{}, err
	}
	return fetch[Profile](ctx, c, rolePath(role, "profile"), nil)
}

// Courses searches the public catalogue
func (c *Client) Courses(ctx context.Context, search string) ([]Course, error) {
	var query map[string]string
	if search != "" {
		query = map[string]string{"search": search}
	}
	return fetch[[]Course](ctx, c, "/api/courses", query)
}

// TeachingCourses lists the courses managed by a tutor or admin session
func (c *Client) TeachingCourses(ctx context.Context, role domain.Role) ([]Course, error) {
	if role == domain.RoleUser {
		return nil, fmt.Errorf("%w: learners have no managed courses", domain.ErrInvalidRole)
	}
	if err := c.requireSession(role); err != nil {
		return nil, err
	}
	return fetch[[]Course](ctx, c, rolePath(role, "courses"), nil)
}

// Cart returns the learner's cart
func (c *Client) Cart(ctx context.Context) ([]Course, error) {
	if err := c.requireSession(domain.RoleUser); err != nil {
		return nil, err
	}
	return fetch[[]Course](ctx, c, rolePath(domain.RoleUser, "cart"), nil)
}

// AddToCart puts a course into the learner's cart and returns the updated cart
func (c *Client) AddToCart(ctx context.Context, courseID string) ([]Course, error) {
	if err := c.requireSession(domain.RoleUser); err != nil {
		return nil, err
	}
	req, err := httpdomain.NewJSONRequest(http.MethodPost, rolePath(domain.RoleUser, "cart"), map[string]string{"courseId": courseID})
	if err != nil {
		return nil, err
	}
	return decode[[]Course](c.dispatcher.Dispatch(ctx, req))
}

// Wishlist returns the learner's wishlist
func (c *Client) Wishlist(ctx context.Context) ([]Course, error) {
	if err := c.requireSession(domain.RoleUser); err != nil {
		return nil, err
	}
	return fetch[[]Course](ctx, c, rolePath(domain.RoleUser, "wishlist"), nil)
}

// Get dispatches an arbitrary GET. path may carry a query string.
func (c *Client) Get(ctx context.Context, path string) (*httpdomain.Response, error) {
	return c.dispatcher.Dispatch(ctx, httpdomain.NewRequest(http.MethodGet, path))
}

// Private helpers

func (c *Client) requireSession(role domain.Role) error {
	store := c.stores.ForRole(role)
	if store == nil || !store.Get().IsAuthenticated {
		return fmt.Errorf("%w: %s", domain.ErrNotAuthenticated, role)
	}
	return nil
}

func fetch[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	req := httpdomain.NewRequest(http.MethodGet, path)
	for k, v := range query {
		req.Query[k] = v
	}
	return decode[T](c.dispatcher.Dispatch(ctx, req))
}

func decode[T any](resp *httpdomain.Response, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, withServerMessage(err)
	}

	var body envelope[T]
	if err := resp.Decode(&body); err != nil {
		return zero, err
	}
	if !body.Success {
		return zero, fmt.Errorf("request rejected: %s", body.Message)
	}
	return body.Data, nil
}

func rolePath(role domain.Role, action string) string {
	return "/api/" + url.PathEscape(role.String()) + "/" + action
}

// withServerMessage adds the API's message field to a status error
func withServerMessage(err error) error {
	var statusErr *domain.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(statusErr.Body, &body) != nil || body.Message == "" {
		return err
	}
	return &serverError{message: body.Message, err: err}
}

type serverError struct {
	message string
	err     error
}

func (e *serverError) Error() string {
	var statusErr *domain.StatusError
	if errors.As(e.err, &statusErr) {
		return fmt.Sprintf("%s (status %d)", e.message, statusErr.StatusCode)
	}
	return e.message
}

func (e *serverError) Unwrap() error { return e.err }
