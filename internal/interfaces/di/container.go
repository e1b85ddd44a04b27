package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"hokz.academy/cli/internal/application/marketplace"
	"hokz.academy/cli/internal/application/services"
	"hokz.academy/cli/internal/config"
	httpdomain "hokz.academy/cli/internal/core/domain/http"
	"hokz.academy/cli/internal/core/ports"
	"hokz.academy/cli/internal/infrastructure/credentials"
	httpinfra "hokz.academy/cli/internal/infrastructure/http"
	"hokz.academy/cli/internal/infrastructure/logging"
	"hokz.academy/cli/internal/infrastructure/navigation"
	"hokz.academy/cli/internal/interfaces/cli"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Session state
	Stores      *credentials.RoleStores
	Snapshotter ports.CredentialSnapshotter
	Persister   *credentials.Persister
	CookieJar   *credentials.FileCookieJar

	// Transport and session handling
	Transport   *httpinfra.StdTransport
	Refresher   *httpinfra.RefreshClient
	Router      *navigation.Router
	Coordinator *services.SessionCoordinator

	// API
	Client     *marketplace.Client
	HTTPClient *http.Client

	redis redis.UniversalClient
}

// NewContainer creates and configures the dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*Container, error) {
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	container := &Container{
		Config: cfg,
		Logger: logger,
	}

	if err := container.initializeComponents(ctx); err != nil {
		container.Shutdown()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return container, nil
}

// initializeComponents initializes all components with proper dependencies
func (c *Container) initializeComponents(ctx context.Context) error {
	cfg := c.Config

	// 1. Credential stores, restored from the configured backend
	c.Stores = credentials.NewRoleStores()

	snapshotter, err := c.newSnapshotter()
	if err != nil {
		return err
	}
	c.Snapshotter = snapshotter

	c.Persister, err = credentials.Persist(ctx, c.Stores, c.Snapshotter, c.Logger)
	if err != nil {
		// Start signed out rather than refusing to run
		c.Logger.Warn("failed to restore sessions", slog.String("error", err.Error()))
		c.Persister, err = credentials.Persist(ctx, c.Stores, credentials.NopSnapshotter{}, c.Logger)
		if err != nil {
			return err
		}
	}

	// 2. Transport, with the refresh cookie kept next to the sessions
	endpoint := httpdomain.BackendEndpoint{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout,
	}
	if cfg.Session.Backend == config.BackendMemory {
		c.Transport, err = httpinfra.NewStdTransport(endpoint)
	} else {
		c.CookieJar, err = credentials.NewFileCookieJar(cfg.Session.Dir, cfg.Session.Secret, cfg.API.BaseURL, c.Logger)
		if err != nil {
			return err
		}
		c.Transport, err = httpinfra.NewStdTransportWithJar(endpoint, c.CookieJar)
	}
	if err != nil {
		return err
	}

	// 3. Session coordination
	c.Refresher = httpinfra.NewRefreshClient(c.Transport, cfg.Auth.RefreshPath)
	c.Router = navigation.NewRouter("/")
	c.Coordinator = services.NewSessionCoordinator(
		c.Transport,
		c.Refresher,
		c.Router,
		c.Stores.Ports(),
		c.Logger,
		&services.SessionCoordinatorConfig{
			RefreshTimeout: cfg.Auth.RefreshTimeout,
			LoginPaths:     cfg.Navigation.LoginPaths(),
		},
	)

	// 4. API clients
	c.Client = marketplace.NewClient(c.Coordinator, c.Transport, c.Stores.Ports(), c.Logger)
	c.HTTPClient = &http.Client{Transport: httpinfra.NewRoundTripperWithAuth(c.Coordinator)}

	return nil
}

func (c *Container) newSnapshotter() (ports.CredentialSnapshotter, error) {
	session := c.Config.Session

	switch session.Backend {
	case config.BackendMemory:
		return credentials.NopSnapshotter{}, nil

	case config.BackendFile:
		snap, err := credentials.NewFileSnapshotter(session.Dir, session.Secret)
		if err != nil {
			return nil, fmt.Errorf("failed to open session file: %w", err)
		}
		return snap, nil

	case config.BackendRedis:
		c.redis = redis.NewClient(&redis.Options{
			Addr:     session.Redis.Addr,
			Password: session.Redis.Password,
			DB:       session.Redis.DB,
		})
		return credentials.NewRedisSnapshotter(c.redis, session.Redis.KeyPrefix, session.Redis.TTL), nil
	}

	return nil, fmt.Errorf("unknown session backend %q", session.Backend)
}

// Runtime exposes the container to CLI commands
func (c *Container) Runtime() *cli.Runtime {
	rt := &cli.Runtime{
		Config:      c.Config,
		Logger:      c.Logger,
		Client:      c.Client,
		Coordinator: c.Coordinator,
		Stores:      c.Stores,
		Router:      c.Router,
		HTTPClient:  c.HTTPClient,
		Close:       c.Shutdown,
	}
	if c.CookieJar != nil {
		rt.ClearCookies = c.CookieJar.Clear
	}
	return rt
}

// Shutdown flushes pending session writes and closes connections
func (c *Container) Shutdown() error {
	if c.Persister != nil {
		c.Persister.Close()
		c.Persister = nil
	}
	if c.redis != nil {
		err := c.redis.Close()
		c.redis = nil
		if err != nil {
			return fmt.Errorf("failed to close redis: %w", err)
		}
	}
	return nil
}

// NewCLIContainer wires the CLI to this package's bootstrap
func NewCLIContainer(in io.Reader, out, errOut io.Writer) *cli.CLIContainer {
	return &cli.CLIContainer{
		In:         in,
		Out:        out,
		Err:        errOut,
		LoadConfig: config.Load,
		Bootstrap: func(ctx context.Context, cfg *config.Config) (*cli.Runtime, error) {
			container, err := NewContainer(ctx, cfg, errOut)
			if err != nil {
				return nil, err
			}
			return container.Runtime(), nil
		},
	}
}
