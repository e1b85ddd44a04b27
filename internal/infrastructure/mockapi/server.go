// Package mockapi is a local stand-in for the Hokz Academy marketplace API. It
// implements the auth surface the client depends on (role logins, the shared
// refresh endpoint, logout) plus a few protected catalogue routes.
package mockapi

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hokz.academy/cli/internal/core/domain"
)

// RefreshCookieName is the cookie carrying the refresh session id
const RefreshCookieName = "refreshToken"

// Account is a seeded login
type Account struct {
	Role     domain.Role `json:"role"`
	Email    string      `json:"email"`
	Password string      `json:"-"`
	Name     string      `json:"name"`
}

// Course is a catalogue entry
type Course struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Tutor  string  `json:"tutor"`
	Price  float64 `json:"price"`
	Rating float64 `json:"rating"`
}

// Config configures the mock server
type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Accounts   []Account
	Courses    []Course
	Logger     *slog.Logger
}

// DefaultConfig returns a config with demo accounts and courses
func DefaultConfig() Config {
	return Config{
		Secret:     "hokz-mock-secret",
		AccessTTL:  time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Accounts: []Account{
			{Role: domain.RoleUser, Email: "user@hokz.academy", Password: "user123", Name: "Demo Learner"},
			{Role: domain.RoleTutor, Email: "tutor@hokz.academy", Password: "tutor123", Name: "Demo Tutor"},
			{Role: domain.RoleAdmin, Email: "admin@hokz.academy", Password: "admin123", Name: "Demo Admin"},
		},
		Courses: []Course{
			{ID: "c-101", Title: "Go for Backend Engineers", Tutor: "tutor@hokz.academy", Price: 49, Rating: 4.8},
			{ID: "c-102", Title: "Practical React", Tutor: "tutor@hokz.academy", Price: 39, Rating: 4.5},
			{ID: "c-103", Title: "MongoDB Fundamentals", Tutor: "tutor@hokz.academy", Price: 29, Rating: 4.2},
		},
	}
}

// refreshSession is one browser session; several roles can be signed in on it
type refreshSession struct {
	roles     map[domain.Role]string // role -> account email
	expiresAt time.Time
}

// Server is the mock marketplace API
type Server struct {
	config Config
	logger *slog.Logger
	router chi.Router
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*refreshSession
	carts    map[string][]string

	generation   atomic.Int64
	refreshCalls atomic.Int64
	failRefresh  atomic.Bool
}

// New creates a mock server from config
func New(config Config) *Server {
	defaults := DefaultConfig()
	if config.Secret == "" {
		config.Secret = defaults.Secret
	}
	if config.AccessTTL <= 0 {
		config.AccessTTL = defaults.AccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = defaults.RefreshTTL
	}
	if config.Accounts == nil {
		config.Accounts = defaults.Accounts
	}
	if config.Courses == nil {
		config.Courses = defaults.Courses
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		logger:   logger.With(slog.String("component", "mockapi")),
		now:      time.Now,
		sessions: make(map[string]*refreshSession),
		carts:    make(map[string][]string),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RefreshCalls returns how many times the refresh endpoint was called
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// ExpireAccessTokens invalidates every access token issued so far
func (s *Server) ExpireAccessTokens() {
	s.generation.Add(1)
}

// FailRefresh makes the refresh endpoint answer 401 while enabled
func (s *Server) FailRefresh(enabled bool) {
	s.failRefresh.Store(enabled)
}

// RevokeSessions drops every refresh session
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	s.sessions = make(map[string]*refreshSession)
	s.mu.Unlock()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/refresh", s.handleRefresh)
		r.Get("/courses", s.handleCourses)

		r.Route("/{role}", func(r chi.Router) {
			r.Use(s.roleParam)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireRole)
				r.Get("/profile", s.handleProfile)
				r.Get("/cart", s.handleCart)
				r.Post("/cart", s.handleAddToCart)
				r.Get("/wishlist", s.handleWishlist)
				r.Get("/courses", s.handleRoleCourses)
			})
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "http",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("dur", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}
