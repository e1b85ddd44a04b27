// Package config loads the CLI configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"hokz.academy/cli/internal/core/domain"
)

// EnvConfigPath names the variable holding an explicit config file path
const EnvConfigPath = "HOKZ_CONFIG"

// Session backends
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the root configuration.
// Sources, highest priority first:
//  1. the path given with --config
//  2. the path in HOKZ_CONFIG
//  3. ~/.hokz/config.yaml when it exists
//  4. environment variables only
//
// Environment variables are applied on top of whichever file was read.
type Config struct {
	API        APIConfig        `yaml:"api" env-prefix:"HOKZ_API_"`
	Auth       AuthConfig       `yaml:"auth" env-prefix:"HOKZ_AUTH_"`
	Navigation NavigationConfig `yaml:"navigation" env-prefix:"HOKZ_NAV_"`
	Session    SessionConfig    `yaml:"session" env-prefix:"HOKZ_SESSION_"`
	Log        LogConfig        `yaml:"log" env-prefix:"HOKZ_LOG_"`
	Mock       MockConfig       `yaml:"mock" env-prefix:"HOKZ_MOCK_"`
}

// APIConfig points the client at the marketplace backend
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8787"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"30s"`
	UserAgent string        `yaml:"user_agent" env:"USER_AGENT" env-default:"hokz-cli"`
}

// AuthConfig configures session refresh
type AuthConfig struct {
	RefreshPath    string        `yaml:"refresh_path" env:"REFRESH_PATH" env-default:"/api/auth/refresh"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"REFRESH_TIMEOUT" env-default:"15s"`
}

// NavigationConfig holds the login entry points used after a failed refresh
type NavigationConfig struct {
	AdminLogin string `yaml:"admin_login" env:"ADMIN_LOGIN" env-default:"/admin/login"`
	TutorLogin string `yaml:"tutor_login" env:"TUTOR_LOGIN" env-default:"/tutor/login"`
	UserLogin  string `yaml:"user_login" env:"USER_LOGIN" env-default:"/user/login"`
	Entry      string `yaml:"entry" env:"ENTRY" env-default:"/login"`
}

// LoginPaths converts the navigation settings into domain login paths
func (n NavigationConfig) LoginPaths() domain.LoginPaths {
	return domain.LoginPaths{
		Admin: n.AdminLogin,
		Tutor: n.TutorLogin,
		User:  n.UserLogin,
		Entry: n.Entry,
	}
}

// SessionConfig selects where credential records survive between runs
type SessionConfig struct {
	Backend string      `yaml:"backend" env:"BACKEND" env-default:"file"`
	Dir     string      `yaml:"dir" env:"DIR" env-default:"~/.hokz"`
	Secret  string      `yaml:"secret" env:"SECRET"`
	Redis   RedisConfig `yaml:"redis" env-prefix:"REDIS_"`
}

// RedisConfig configures the redis session backend
type RedisConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR" env-default:"localhost:6379"`
	Password  string        `yaml:"password" env:"PASSWORD"`
	DB        int           `yaml:"db" env:"DB" env-default:"0"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX" env-default:"hokz"`
	TTL       time.Duration `yaml:"ttl" env:"TTL" env-default:"168h"`
}

// LogConfig configures the stderr logger
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"FORMAT" env-default:"text"`
}

// MockConfig configures `hokz mock-server`
type MockConfig struct {
	Addr      string        `yaml:"addr" env:"ADDR" env-default:"127.0.0.1:8787"`
	Secret    string        `yaml:"secret" env:"SECRET" env-default:"hokz-mock-secret"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"ACCESS_TTL" env-default:"1m"`
}

// DefaultPath returns ~/.hokz/config.yaml, or "" when the home directory is unknown
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hokz", "config.yaml")
}

// MustLoad is Load that panics on error
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration following the source priority documented on Config
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", p, err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return validated(&cfg)
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return readFile(envPath)
	}
	if p := DefaultPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			return readFile(p)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	return validated(&cfg)
}

func validated(cfg *Config) (*Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the client cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL))
	}
	if !strings.HasPrefix(c.Auth.RefreshPath, "/") {
		errs = append(errs, fmt.Errorf("auth.refresh_path %q must start with /", c.Auth.RefreshPath))
	}
	if c.Auth.RefreshTimeout <= 0 {
		errs = append(errs, errors.New("auth.refresh_timeout must be positive"))
	}

	switch c.Session.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Session.Redis.Addr == "" {
			errs = append(errs, errors.New("session.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}

	return errors.Join(errs...)
}
