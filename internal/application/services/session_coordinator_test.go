package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hokz.academy/cli/internal/core/domain"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	"hokz.academy/cli/internal/infrastructure/credentials"
	"hokz.academy/cli/internal/infrastructure/navigation"
)

// Mock session refresher
type MockSessionRefresher struct {
	mock.Mock
}

func (m *MockSessionRefresher) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// refresherFunc adapts a function to ports.SessionRefresher
type refresherFunc func(ctx context.Context) (string, error)

func (f refresherFunc) Refresh(ctx context.Context) (string, error) {
	return f(ctx)
}

// fakeAPI accepts requests carrying the current valid token and answers 401 otherwise
type fakeAPI struct {
	mu      sync.Mutex
	valid   string
	status  int // forced status for every request when non-zero
	sent    []*httpdomain.Request
	netFail error
}

func newFakeAPI(valid string) *fakeAPI {
	return &fakeAPI{valid: valid}
}

func (f *fakeAPI) Send(ctx context.Context, req *httpdomain.Request) (*httpdomain.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, req.Clone())
	valid, status, netFail := f.valid, f.status, f.netFail
	f.mu.Unlock()

	if netFail != nil {
		return nil, netFail
	}
	if status == 0 {
		status = http.StatusOK
		if valid == "" || req.Header(httpdomain.HeaderAuthorization) != "Bearer "+valid {
			status = http.StatusUnauthorized
		}
	}
	if status >= 300 {
		return nil, &domain.StatusError{Method: req.Method, Path: req.Path, StatusCode: status}
	}
	return &httpdomain.Response{StatusCode: status, Body: []byte(`{"success":true}`)}, nil
}

func (f *fakeAPI) setValid(token string) {
	f.mu.Lock()
	f.valid = token
	f.mu.Unlock()
}

func (f *fakeAPI) requests() []*httpdomain.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*httpdomain.Request(nil), f.sent...)
}

// sentWith counts requests sent with the given bearer token
func (f *fakeAPI) sentWith(token string) int {
	n := 0
	for _, req := range f.requests() {
		if req.Header(httpdomain.HeaderAuthorization) == "Bearer "+token {
			n++
		}
	}
	return n
}

// redirectLog collects redirect targets announced by the router
type redirectLog struct {
	mu      sync.Mutex
	targets []string
}

func (l *redirectLog) record(target string) {
	l.mu.Lock()
	l.targets = append(l.targets, target)
	l.mu.Unlock()
}

func (l *redirectLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.targets...)
}

type coordinatorFixture struct {
	api         *fakeAPI
	stores      *credentials.RoleStores
	router      *navigation.Router
	redirects   *redirectLog
	coordinator *SessionCoordinator
}

func newFixture(t *testing.T, refresher interface {
	Refresh(ctx context.Context) (string, error)
}, logger *slog.Logger) *coordinatorFixture {
	t.Helper()

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	f := &coordinatorFixture{
		api:       newFakeAPI("fresh"),
		stores:    credentials.NewRoleStores(),
		router:    navigation.NewRouter("/"),
		redirects: &redirectLog{},
	}
	f.router.OnRedirect(f.redirects.record)
	f.coordinator = NewSessionCoordinator(f.api, refresher, f.router, f.stores.Ports(), logger, nil)
	return f
}

func (f *coordinatorFixture) signIn(roles ...domain.Role) {
	for _, role := range roles {
		f.stores.ForRole(role).SetFromLogin(domain.CredentialRecord{
			AccessToken:     "stale-" + role.String(),
			IsAuthenticated: true,
		})
	}
}

// waitForParked blocks until n requests are parked, or fails after a timeout
func waitForParked(c *SessionCoordinator, n int) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.State().Parked >= n {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for %d parked requests (have %d)", n, c.State().Parked)
}

func TestSessionCoordinator_AttachToken(t *testing.T) {
	tests := []struct {
		name          string
		roles         []domain.Role
		expectedToken string
	}{
		{name: "no session", roles: nil, expectedToken: ""},
		{name: "admin only", roles: []domain.Role{domain.RoleAdmin}, expectedToken: "stale-admin"},
		{name: "tutor wins over admin", roles: []domain.Role{domain.RoleAdmin, domain.RoleTutor}, expectedToken: "stale-tutor"},
		{name: "user wins over tutor", roles: []domain.Role{domain.RoleTutor, domain.RoleUser}, expectedToken: "stale-user"},
		{name: "user wins over everyone", roles: domain.Roles(), expectedToken: "stale-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &MockSessionRefresher{}, nil)
			f.signIn(tt.roles...)

			req := httpdomain.NewRequest(http.MethodGet, "/api/courses")
			out := f.coordinator.AttachToken(req)

			if tt.expectedToken == "" {
				assert.Empty(t, out.Header(httpdomain.HeaderAuthorization))
			} else {
				assert.Equal(t, "Bearer "+tt.expectedToken, out.Header(httpdomain.HeaderAuthorization))
			}
			assert.Empty(t, req.Header(httpdomain.HeaderAuthorization), "original request must not be modified")
		})
	}
}

func TestSessionCoordinator_AttachToken_UsesTokenWithoutAuthenticatedFlag(t *testing.T) {
	f := newFixture(t, &MockSessionRefresher{}, nil)
	f.stores.Tutor.Restore(domain.CredentialRecord{Role: domain.RoleTutor, AccessToken: "tutor-token"})

	out := f.coordinator.AttachToken(httpdomain.NewRequest(http.MethodGet, "/api/tutor/courses"))

	assert.Equal(t, "Bearer tutor-token", out.Header(httpdomain.HeaderAuthorization))
}

func TestSessionCoordinator_Dispatch_SetsRequestID(t *testing.T) {
	refresher := &MockSessionRefresher{}
	f := newFixture(t, refresher, nil)
	f.api.status = http.StatusOK

	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/courses"))
	require.NoError(t, err)

	sent := f.api.requests()
	require.Len(t, sent, 1)
	assert.NotEmpty(t, sent[0].Header(httpdomain.HeaderRequestID))

	req := httpdomain.NewRequest(http.MethodGet, "/api/courses")
	req.SetHeader(httpdomain.HeaderRequestID, "fixed-id")
	_, err = f.coordinator.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", f.api.requests()[1].Header(httpdomain.HeaderRequestID))
}

func TestSessionCoordinator_PassesThroughUnrelatedFailures(t *testing.T) {
	networkErr := errors.New("connection refused")

	tests := []struct {
		name    string
		status  int
		netFail error
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "forbidden", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
		{name: "network failure", netFail: networkErr},
		{name: "unauthorized without status", netFail: fmt.Errorf("proxy: %w", domain.ErrUnauthorized)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &MockSessionRefresher{}
			f := newFixture(t, refresher, nil)
			f.signIn(domain.RoleUser)
			f.api.status = tt.status
			f.api.netFail = tt.netFail

			_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
			require.Error(t, err)

			if tt.netFail != nil {
				assert.ErrorIs(t, err, tt.netFail)
			} else {
				var statusErr *domain.StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.status, statusErr.StatusCode)
			}

			refresher.AssertNotCalled(t, "Refresh", mock.Anything)
			assert.Len(t, f.api.requests(), 1)
			assert.True(t, f.stores.User.Get().IsAuthenticated)
			assert.Empty(t, f.redirects.all())
		})
	}
}

func TestSessionCoordinator_HandleFailure_AlreadyRetriedIsTerminal(t *testing.T) {
	refresher := &MockSessionRefresher{}
	f := newFixture(t, refresher, nil)

	req := httpdomain.NewRequest(http.MethodGet, "/api/user/cart")
	req.MarkRetried()
	failure := &domain.StatusError{Method: http.MethodGet, Path: req.Path, StatusCode: http.StatusUnauthorized}

	_, err := f.coordinator.HandleFailure(context.Background(), req, failure)

	assert.Same(t, failure, err)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything)
}

func TestSessionCoordinator_RefreshSuccessReplaysRequest(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("fresh", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	resp, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	sent := f.api.requests()
	require.Len(t, sent, 2)
	assert.Equal(t, "Bearer stale-user", sent[0].Header(httpdomain.HeaderAuthorization))
	assert.Equal(t, "Bearer fresh", sent[1].Header(httpdomain.HeaderAuthorization))
	assert.Equal(t, sent[0].Header(httpdomain.HeaderRequestID), sent[1].Header(httpdomain.HeaderRequestID))
	assert.True(t, sent[1].Retried())

	assert.Equal(t, "fresh", f.stores.User.Get().AccessToken)
	assert.Equal(t, CoordinatorState{Cycles: 1}, f.coordinator.State())
	refresher.AssertExpectations(t)
}

func TestSessionCoordinator_ReplayKeepsBody(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("fresh", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	req, err := httpdomain.NewJSONRequest(http.MethodPost, "/api/user/cart", map[string]string{"courseId": "c-101"})
	require.NoError(t, err)

	_, err = f.coordinator.Dispatch(context.Background(), req)
	require.NoError(t, err)

	sent := f.api.requests()
	require.Len(t, sent, 2)
	assert.JSONEq(t, `{"courseId":"c-101"}`, string(sent[1].Body))
	assert.Equal(t, "application/json", sent[1].Header(httpdomain.HeaderContentType))
}

func TestSessionCoordinator_SecondUnauthorizedIsNotRetried(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("fresh", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)
	f.api.setValid("") // every token is rejected

	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))

	require.Error(t, err)
	assert.True(t, domain.IsUnauthorized(err))
	assert.Len(t, f.api.requests(), 2, "exactly one replay")
	refresher.AssertNumberOfCalls(t, "Refresh", 1)

	// The refresh itself succeeded, so the session stays
	assert.True(t, f.stores.User.Get().IsAuthenticated)
	redirected := len(f.redirects.all()) > 0
	assert.False(t, redirected)
}

func TestSessionCoordinator_RefreshFailureLogsOutEveryRole(t *testing.T) {
	tests := []struct {
		name           string
		currentPath    string
		roles          []domain.Role
		expectedTarget string
	}{
		{name: "admin area", currentPath: "/admin/courses", roles: domain.Roles(), expectedTarget: "/admin/login"},
		{name: "tutor area", currentPath: "/tutor/dashboard", roles: []domain.Role{domain.RoleTutor}, expectedTarget: "/tutor/login"},
		{name: "user area", currentPath: "/user/cart", roles: []domain.Role{domain.RoleUser}, expectedTarget: "/user/login"},
		{name: "public page", currentPath: "/courses", roles: []domain.Role{domain.RoleUser}, expectedTarget: "/login"},
		{name: "no session at all", currentPath: "/", roles: nil, expectedTarget: "/login"},
		{name: "lookalike prefix", currentPath: "/administrator", roles: []domain.Role{domain.RoleAdmin}, expectedTarget: "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refreshErr := &domain.StatusError{Method: http.MethodPost, Path: "/api/auth/refresh", StatusCode: http.StatusUnauthorized}
			refresher := &MockSessionRefresher{}
			refresher.On("Refresh", mock.Anything).Return("", refreshErr).Once()

			f := newFixture(t, refresher, nil)
			f.signIn(tt.roles...)
			f.router.Navigate(tt.currentPath)

			_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))

			// The triggering request gets its own 401 back
			var statusErr *domain.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, "/api/user/cart", statusErr.Path)
			assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

			for _, store := range f.stores.All() {
				record := store.Get()
				assert.False(t, record.IsAuthenticated, "role %s", store.Role())
				assert.Empty(t, record.AccessToken, "role %s", store.Role())
			}

			assert.Equal(t, []string{tt.expectedTarget}, f.redirects.all())
			assert.Len(t, f.api.requests(), 1, "no replay after a failed refresh")
			assert.False(t, f.coordinator.State().Refreshing)
		})
	}
}

func TestSessionCoordinator_EmptyTokenIsRefreshFailure(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))

	require.Error(t, err)
	assert.False(t, f.stores.User.Get().IsAuthenticated)
	assert.Len(t, f.redirects.all(), 1)
}

func TestSessionCoordinator_PatchesEveryAuthenticatedRole(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("fresh", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser, domain.RoleTutor)
	f.router.Navigate("/tutor/courses")

	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/tutor/courses"))
	require.NoError(t, err)

	assert.Equal(t, "fresh", f.stores.User.Get().AccessToken)
	assert.Equal(t, "fresh", f.stores.Tutor.Get().AccessToken)
	assert.True(t, f.stores.User.Get().IsAuthenticated)
	assert.True(t, f.stores.Tutor.Get().IsAuthenticated)

	admin := f.stores.Admin.Get()
	assert.False(t, admin.IsAuthenticated)
	assert.Empty(t, admin.AccessToken, "signed-out roles are not patched")
}

func TestSessionCoordinator_ConcurrentFailuresShareOneRefresh(t *testing.T) {
	const n = 8

	var calls int
	var mu sync.Mutex
	var f *coordinatorFixture
	refresher := refresherFunc(func(ctx context.Context) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		if err := waitForParked(f.coordinator, n-1); err != nil {
			return "", err
		}
		return "fresh", nil
	})

	f = newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, fmt.Sprintf("/api/courses/%d", i)))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, n, f.api.sentWith("fresh"), "every request replayed once with the new token")

	// Each request id appears exactly twice: the first attempt and the replay
	perID := map[string]int{}
	for _, req := range f.api.requests() {
		perID[req.Header(httpdomain.HeaderRequestID)]++
	}
	assert.Len(t, perID, n)
	for id, count := range perID {
		assert.Equal(t, 2, count, "request %s", id)
	}

	assert.Equal(t, CoordinatorState{Cycles: 1}, f.coordinator.State())
}

func TestSessionCoordinator_ConcurrentFailuresRejectTogether(t *testing.T) {
	const n = 6

	var f *coordinatorFixture
	refresher := refresherFunc(func(ctx context.Context) (string, error) {
		if err := waitForParked(f.coordinator, n-1); err != nil {
			return "", err
		}
		return "", domain.ErrRefreshRejected
	})

	f = newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser, domain.RoleAdmin)
	f.router.Navigate("/user/wishlist")

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/wishlist"))
		}(i)
	}
	wg.Wait()

	var parked, triggering int
	for _, err := range errs {
		require.Error(t, err)
		switch {
		case errors.Is(err, domain.ErrRefreshFailed):
			parked++
			assert.ErrorIs(t, err, domain.ErrRefreshRejected)
		case domain.IsUnauthorized(err):
			triggering++
		}
	}
	assert.Equal(t, n-1, parked)
	assert.Equal(t, 1, triggering)

	for _, store := range f.stores.All() {
		assert.False(t, store.Get().IsAuthenticated)
	}
	assert.Equal(t, []string{"/user/login"}, f.redirects.all(), "one redirect per failed cycle")
	assert.Len(t, f.api.requests(), n, "nothing is replayed")
}

func TestSessionCoordinator_ParkedRequestsReplayInParkOrder(t *testing.T) {
	const n = 20

	started := make(chan struct{})
	release := make(chan struct{})
	refresher := refresherFunc(func(ctx context.Context) (string, error) {
		close(started)
		<-release
		return "fresh", nil
	})
	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	var wg sync.WaitGroup
	errs := make([]error, n+1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[n] = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/trigger"))
	}()
	<-started

	expected := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("/api/user/p%02d", i)
		expected = append(expected, path)

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, path))
		}(i)
		require.NoError(t, waitForParked(f.coordinator, i+1))
	}

	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	var replayed []string
	for _, req := range f.api.requests() {
		if req.Header(httpdomain.HeaderAuthorization) == "Bearer fresh" && req.Path != "/api/user/trigger" {
			replayed = append(replayed, req.Path)
		}
	}
	assert.Equal(t, expected, replayed)
}

func TestSessionCoordinator_RefresherPanicStillSettles(t *testing.T) {
	var f *coordinatorFixture
	var calls int
	refresher := refresherFunc(func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			if err := waitForParked(f.coordinator, 1); err != nil {
				return "", err
			}
			panic("refresher exploded")
		}
		return "fresh", nil
	})
	f = newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	recovered := make(chan any, 1)
	go func() {
		defer func() { recovered <- recover() }()
		_, _ = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	}()
	require.Eventually(t, func() bool { return f.coordinator.State().Refreshing }, 5*time.Second, time.Millisecond)

	// This request parks behind the refresh that is about to panic
	parkedErr := make(chan error, 1)
	go func() {
		_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
		parkedErr <- err
	}()

	select {
	case err := <-parkedErr:
		assert.ErrorIs(t, err, domain.ErrRefreshAborted)
	case <-time.After(5 * time.Second):
		t.Fatal("parked request never settled")
	}
	assert.Equal(t, "refresher exploded", <-recovered)

	state := f.coordinator.State()
	assert.False(t, state.Refreshing)
	assert.Zero(t, state.Parked)
	assert.Equal(t, uint64(1), state.Cycles)
	assert.False(t, f.stores.User.Get().IsAuthenticated)

	// A new cycle can start afterwards
	f.signIn(domain.RoleUser)
	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), f.coordinator.State().Cycles)
}

func TestSessionCoordinator_RefreshIgnoresCallerCancellation(t *testing.T) {
	var refreshCtxErr error
	var hasDeadline bool
	refresher := refresherFunc(func(ctx context.Context) (string, error) {
		refreshCtxErr = ctx.Err()
		_, hasDeadline = ctx.Deadline()
		return "fresh", nil
	})

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.coordinator.Dispatch(ctx, httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	require.NoError(t, err)

	assert.NoError(t, refreshCtxErr)
	assert.True(t, hasDeadline, "refresh is bounded by the refresh timeout")
	assert.Equal(t, "fresh", f.stores.User.Get().AccessToken)
}

func TestSessionCoordinator_SequentialCyclesRefreshAgain(t *testing.T) {
	refresher := &MockSessionRefresher{}
	refresher.On("Refresh", mock.Anything).Return("fresh", nil).Once()
	refresher.On("Refresh", mock.Anything).Return("fresher", nil).Once()

	f := newFixture(t, refresher, nil)
	f.signIn(domain.RoleUser)

	_, err := f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	require.NoError(t, err)

	// The server expires the token again
	f.api.setValid("fresher")
	_, err = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/user/cart"))
	require.NoError(t, err)

	assert.Equal(t, "fresher", f.stores.User.Get().AccessToken)
	assert.Equal(t, uint64(2), f.coordinator.State().Cycles)
	refresher.AssertExpectations(t)
}

func TestNewSessionCoordinator_Defaults(t *testing.T) {
	c := NewSessionCoordinator(newFakeAPI(""), &MockSessionRefresher{}, nil, credentials.NewRoleStores().Ports(), nil,
		&SessionCoordinatorConfig{LoginPaths: domain.DefaultLoginPaths()})

	assert.Equal(t, 15*time.Second, c.config.RefreshTimeout)
	assert.NotNil(t, c.logger)
}

// Property: for any burst of concurrent first-attempt 401s, one refresh call is
// made, every request settles, and the outcome is applied to every request.
func TestSessionCoordinator_Property_SingleFlight(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(rt, "requests")
		succeed := rapid.Bool().Draw(rt, "refreshSucceeds")
		roles := rapid.SliceOfDistinct(rapid.SampledFrom(domain.Roles()), func(r domain.Role) domain.Role { return r }).Draw(rt, "roles")

		var mu sync.Mutex
		calls := 0
		var f *coordinatorFixture
		refresher := refresherFunc(func(ctx context.Context) (string, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			if err := waitForParked(f.coordinator, n-1); err != nil {
				return "", err
			}
			if !succeed {
				return "", domain.ErrRefreshRejected
			}
			return "fresh", nil
		})
		f = newFixture(t, refresher, nil)
		f.signIn(roles...)

		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.coordinator.Dispatch(context.Background(), httpdomain.NewRequest(http.MethodGet, "/api/courses"))
			}(i)
		}
		wg.Wait()

		if calls != 1 {
			rt.Fatalf("expected exactly one refresh call, got %d", calls)
		}
		if state := f.coordinator.State(); state.Refreshing || state.Parked != 0 {
			rt.Fatalf("coordinator not idle after settle: %+v", state)
		}

		if succeed {
			for i, err := range errs {
				if err != nil {
					rt.Fatalf("request %d failed: %v", i, err)
				}
			}
			if got := f.api.sentWith("fresh"); got != n {
				rt.Fatalf("expected %d replays with the new token, got %d", n, got)
			}
			for _, role := range roles {
				if token := f.stores.ForRole(role).Get().AccessToken; token != "fresh" {
					rt.Fatalf("role %s not patched: %q", role, token)
				}
			}
			return
		}

		for i, err := range errs {
			if err == nil {
				rt.Fatalf("request %d succeeded after a failed refresh", i)
			}
		}
		for _, store := range f.stores.All() {
			if store.Get().IsAuthenticated {
				rt.Fatalf("role %s still authenticated", store.Role())
			}
		}
		if len(f.redirects.all()) != 1 {
			rt.Fatalf("expected one redirect, got %v", f.redirects.all())
		}
	})
}
