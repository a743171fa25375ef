// ABOUTME: Application configuration stored under the XDG data directory
// ABOUTME: Loads config.json and .env, then applies PAGEN_ADMIN_* environment overrides
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/harperreed/pagen-admin/charm"
	"github.com/harperreed/pagen-admin/store"
)

// AppName names the data directory and the default database file.
const AppName = "pagen-admin"

// Backend names.
const (
	BackendSQLite  = "sqlite"
	BackendFixture = "fixture"
	BackendCharm   = "charm"
	BackendRemote  = "remote"
)

// Backends lists every supported backend.
var Backends = []string{BackendSQLite, BackendFixture, BackendCharm, BackendRemote}

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every setting the surfaces need to build a workspace.
type Config struct {
	Backend        string        `json:"backend"`
	DBPath         string        `json:"db_path,omitempty"`
	RemoteURL      string        `json:"remote_url,omitempty"`
	RemoteTimeout  time.Duration `json:"remote_timeout,omitempty"`
	ListenAddr     string        `json:"listen_addr,omitempty"`
	LogLevel       string        `json:"log_level,omitempty"`
	LogFormat      string        `json:"log_format,omitempty"`
	FixtureLatency store.Latency `json:"fixture_latency"`
	Charm          charm.Config  `json:"charm"`
}

// Dir returns the XDG-compliant data directory.
func Dir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend:        BackendSQLite,
		DBPath:         filepath.Join(Dir(), AppName+".db"),
		RemoteTimeout:  10 * time.Second,
		ListenAddr:     "localhost:8080",
		LogLevel:       "info",
		LogFormat:      "text",
		FixtureLatency: store.DefaultLatency(),
		Charm:          *charm.DefaultConfig(),
	}
}

// Load reads the config at path (the default location when empty).
// A missing or unparseable file yields defaults. A .env file in the working
// directory is loaded first so its values take part in the overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = Path()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg Config
		if jsonErr := json.Unmarshal(data, &fileCfg); jsonErr == nil {
			cfg.merge(fileCfg)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) merge(f Config) {
	if f.Backend != "" {
		c.Backend = f.Backend
	}
	if f.DBPath != "" {
		c.DBPath = f.DBPath
	}
	if f.RemoteURL != "" {
		c.RemoteURL = f.RemoteURL
	}
	if f.RemoteTimeout != 0 {
		c.RemoteTimeout = f.RemoteTimeout
	}
	if f.ListenAddr != "" {
		c.ListenAddr = f.ListenAddr
	}
	if f.LogLevel != "" {
		c.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		c.LogFormat = f.LogFormat
	}
	if f.FixtureLatency != (store.Latency{}) {
		c.FixtureLatency = f.FixtureLatency
	}
	if f.Charm != (charm.Config{}) {
		c.Charm = f.Charm.WithDefaults()
	}
}

// applyEnv applies environment variable overrides:
// - PAGEN_ADMIN_BACKEND
// - PAGEN_ADMIN_DB_PATH
// - PAGEN_ADMIN_REMOTE_URL
// - PAGEN_ADMIN_LISTEN_ADDR
// - PAGEN_ADMIN_LOG_LEVEL
// - PAGEN_ADMIN_LOG_FORMAT
// - PAGEN_ADMIN_FIXTURE_LATENCY (one duration for every operation)
// - PAGEN_ADMIN_CHARM_HOST
// - PAGEN_ADMIN_CHARM_AUTO_SYNC.
func (c *Config) applyEnv() error {
	if v := os.Getenv("PAGEN_ADMIN_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("PAGEN_ADMIN_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PAGEN_ADMIN_REMOTE_URL"); v != "" {
		c.RemoteURL = v
	}
	if v := os.Getenv("PAGEN_ADMIN_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("PAGEN_ADMIN_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PAGEN_ADMIN_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("PAGEN_ADMIN_FIXTURE_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PAGEN_ADMIN_FIXTURE_LATENCY: %w", ErrInvalidConfig)
		}
		c.FixtureLatency = store.Latency{List: d, Get: d, Create: d, Update: d, Delete: d}
	}
	if v := os.Getenv("PAGEN_ADMIN_CHARM_HOST"); v != "" {
		c.Charm.Host = v
	}
	if v := os.Getenv("PAGEN_ADMIN_CHARM_AUTO_SYNC"); v != "" {
		c.Charm.AutoSync = v == "true" || v == "1"
	}
	return nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("unknown backend %q: %w", c.Backend, ErrInvalidConfig)
	}
	if c.Backend == BackendRemote && c.RemoteURL == "" {
		return fmt.Errorf("remote backend needs remote_url: %w", ErrInvalidConfig)
	}
	return nil
}

// Save writes the config to path (the default location when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
