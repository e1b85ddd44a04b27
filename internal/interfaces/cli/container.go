package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"hokz.academy/cli/internal/application/marketplace"
	"hokz.academy/cli/internal/application/services"
	"hokz.academy/cli/internal/config"
	"hokz.academy/cli/internal/infrastructure/credentials"
	"hokz.academy/cli/internal/infrastructure/navigation"
)

// Runtime is the wired client a command works with
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Client      *marketplace.Client
	Coordinator *services.SessionCoordinator
	Stores      *credentials.RoleStores
	Router      *navigation.Router
	HTTPClient  *http.Client

	// ClearCookies forgets the refresh session cookie; nil when cookies are not persisted
	ClearCookies func() error
	// Close flushes pending session writes
	Close func() error
}

// CLIContainer holds all the dependencies for CLI commands
type CLIContainer struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// LoadConfig and Bootstrap are provided by the DI container
	LoadConfig func(path string) (*config.Config, error)
	Bootstrap  func(ctx context.Context, cfg *config.Config) (*Runtime, error)

	config  *config.Config
	runtime *Runtime

	mu       sync.Mutex
	redirect string
}

// Config returns the configuration loaded for the running command
func (c *CLIContainer) Config() *config.Config {
	return c.config
}

// Runtime builds the client on first use
func (c *CLIContainer) Runtime(ctx context.Context) (*Runtime, error) {
	if c.runtime != nil {
		return c.runtime, nil
	}
	if c.config == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	rt, err := c.Bootstrap(ctx, c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	if rt.Router != nil {
		rt.Router.OnRedirect(c.noteRedirect)
	}
	c.runtime = rt
	return rt, nil
}

func (c *CLIContainer) noteRedirect(target string) {
	c.mu.Lock()
	c.redirect = target
	c.mu.Unlock()
}

// lastRedirect returns where the client was sent after losing every session
func (c *CLIContainer) lastRedirect() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.redirect, c.redirect != ""
}

// Shutdown releases the runtime if one was built
func (c *CLIContainer) Shutdown() error {
	if c.runtime == nil || c.runtime.Close == nil {
		return nil
	}
	err := c.runtime.Close()
	c.runtime = nil
	return err
}
