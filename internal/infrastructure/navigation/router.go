package navigation

import (
	"sync"

	"hokz.academy/cli/internal/core/ports"
)

// Router tracks where the client is and notifies listeners of redirects
type Router struct {
	mu        sync.RWMutex
	current   string
	listeners []func(target string)
}

// NewRouter creates a router positioned at path
func NewRouter(path string) *Router {
	if path == "" {
		path = "/"
	}
	return &Router{current: path}
}

// CurrentPath returns the path the client is on
func (r *Router) CurrentPath() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Navigate moves the client to path
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	r.current = path
	r.mu.Unlock()
}

// Redirect moves the client to target and notifies listeners
func (r *Router) Redirect(target string) {
	r.mu.Lock()
	r.current = target
	listeners := append([]func(string){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(target)
	}
}

// OnRedirect registers fn to be called on every redirect
func (r *Router) OnRedirect(fn func(target string)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

var _ ports.Navigator = (*Router)(nil)
