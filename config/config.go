package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/habedi/sessiond/pkg/validation"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is where the optional YAML config file is looked up.
var DefaultPath = filepath.Join(os.Getenv("HOME"), ".sessiond", "config.yaml")

type Config struct {
	Env      string         `yaml:"env" env:"SESSIOND_ENV" env-default:"local"`
	LogLevel string         `yaml:"log_level" env:"SESSIOND_LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Provider ProviderConfig `yaml:"provider"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	// SignOutPolicy is retain or delete.
	SignOutPolicy string `yaml:"signout_policy" env:"SESSIOND_SIGNOUT_POLICY" env-default:"retain"`
	HookSecret    string `yaml:"hook_secret" env:"SESSIOND_HOOK_SECRET"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr" env:"SESSIOND_HTTP_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SESSIOND_HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SESSIOND_HTTP_WRITE_TIMEOUT" env-default:"10s"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver" env:"SESSIOND_STORE_DRIVER" env-default:"sqlite"`
	Path          string        `yaml:"path" env:"SESSIOND_STORE_PATH"`
	MongoURI      string        `yaml:"mongo_uri" env:"SESSIOND_MONGO_URI"`
	MongoDatabase string        `yaml:"mongo_database" env:"SESSIOND_MONGO_DATABASE" env-default:"sessiond"`
	Timeout       time.Duration `yaml:"timeout" env:"SESSIOND_STORE_TIMEOUT" env-default:"5s"`
}

type ProviderConfig struct {
	URL           string        `yaml:"url" env:"SESSIOND_PROVIDER_URL"`
	APIKey        string        `yaml:"api_key" env:"SESSIOND_PROVIDER_API_KEY"`
	JWTSecret     string        `yaml:"jwt_secret" env:"SESSIOND_PROVIDER_JWT_SECRET"`
	Timeout       time.Duration `yaml:"timeout" env:"SESSIOND_PROVIDER_TIMEOUT" env-default:"10s"`
	OAuthProvider string        `yaml:"oauth_provider" env:"SESSIOND_OAUTH_PROVIDER" env-default:"google"`
	Scopes        []string      `yaml:"scopes" env:"SESSIOND_OAUTH_SCOPES" env-separator:" "`
	RedirectURL   string        `yaml:"redirect_url" env:"SESSIOND_REDIRECT_URL" env-default:"http://localhost:8080/auth/callback"`
	// RateLimit caps provider requests per second; 0 disables the cap.
	RateLimit float64 `yaml:"rate_limit" env:"SESSIOND_PROVIDER_RATE_LIMIT"`
}

type RefreshConfig struct {
	SingleFlight bool          `yaml:"single_flight" env:"SESSIOND_REFRESH_SINGLE_FLIGHT"`
	Window       time.Duration `yaml:"window" env:"SESSIOND_REFRESH_WINDOW" env-default:"5m"`
	SweepWorkers int           `yaml:"sweep_workers" env:"SESSIOND_SWEEP_WORKERS" env-default:"4"`
}

// Load reads path when it exists and overlays the environment. An empty
// path uses DefaultPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
	cfg.SignOutPolicy = strings.ToLower(cfg.SignOutPolicy)
	return &cfg, nil
}

// Validate checks the settings every command relies on. Provider settings
// are checked separately by RequireProvider since offline commands do not
// need them.
func (c *Config) Validate() error {
	if err := validation.ValidateStoreDriver(c.Store.Driver); err != nil {
		return err
	}
	if c.Store.Driver == "mongodb" {
		if err := validation.ValidateNonEmptyString("store.mongo_uri", c.Store.MongoURI); err != nil {
			return err
		}
	}
	if err := validation.ValidatePositiveDuration("store.timeout", c.Store.Timeout); err != nil {
		return err
	}
	if err := validation.ValidateSignOutPolicy(c.SignOutPolicy); err != nil {
		return err
	}
	if err := validation.ValidateWorkerCount(c.Refresh.SweepWorkers); err != nil {
		return err
	}
	if c.Provider.RateLimit < 0 {
		return fmt.Errorf("provider.rate_limit cannot be negative, got %v", c.Provider.RateLimit)
	}
	if c.Refresh.Window < 0 {
		return fmt.Errorf("refresh.window cannot be negative, got %s", c.Refresh.Window)
	}
	return nil
}

// RequireProvider checks the settings needed to talk to the identity provider.
func (c *Config) RequireProvider() error {
	if err := validation.ValidateURL("provider.url", c.Provider.URL); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration("provider.timeout", c.Provider.Timeout)
}

// StorePath returns the sqlite database path, falling back to def.
func (c *Config) StorePath(def string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return def
}
