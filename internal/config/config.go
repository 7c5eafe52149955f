package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // Location must resolve on hosts without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is prepended to every environment variable name, e.g. CRM_ADDR.
const EnvPrefix = "CRM_"

// Defaults
const (
	DefaultAddr          = ":8080"
	DefaultEndpoint      = "/exec"
	DefaultDBPath        = "leads.db"
	DefaultTimezone      = "Asia/Kolkata"
	DefaultRateLimit     = 120
	DefaultSlowQueryMs   = 50
	DefaultSlowRequestMs = 200
	DefaultShutdownSecs  = 10
	DefaultLocale        = "en-IN"
	DefaultCurrency      = "₹"
	DefaultRetrySecs     = 60
	DefaultMaxAttempts   = 8
)

var (
	ErrInvalidEnv       = errors.New("env must be development or production")
	ErrInvalidEndpoint  = errors.New("endpoint must start with /")
	ErrInvalidCSRFKey   = errors.New("csrf key must be 64 hex characters")
	ErrInvalidLogFormat = errors.New("log format must be text or json")
	ErrMissingFrom      = errors.New("notify.from is required when a Resend API key is set")
)

// Config is the service configuration. Values come from an optional TOML
// file, then CRM_* environment variables, then defaults for anything unset.
type Config struct {
	Env      string       `toml:"env" env:"ENV"`
	Addr     string       `toml:"addr" env:"ADDR"`
	Endpoint string       `toml:"endpoint" env:"ENDPOINT"`
	Timezone string       `toml:"timezone" env:"TIMEZONE"`
	DB       DBConfig     `toml:"db" envPrefix:"DB_"`
	HTTP     HTTPConfig   `toml:"http" envPrefix:"HTTP_"`
	Log      LogConfig    `toml:"log" envPrefix:"LOG_"`
	Notify   NotifyConfig `toml:"notify" envPrefix:"NOTIFY_"`
}

// DBConfig locates the SQLite file and sets the slow query threshold.
type DBConfig struct {
	Path        string `toml:"path" env:"PATH"`
	SlowQueryMs int    `toml:"slow_query_ms" env:"SLOW_QUERY_MS"`
}

// HTTPConfig tunes the server and its middleware chain.
type HTTPConfig struct {
	AllowedOrigins  []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	CSRFKey         string   `toml:"csrf_key" env:"CSRF_KEY"`
	RatePerMinute   int      `toml:"rate_per_minute" env:"RATE_PER_MINUTE"`
	SlowRequestMs   int      `toml:"slow_request_ms" env:"SLOW_REQUEST_MS"`
	ShutdownSeconds int      `toml:"shutdown_seconds" env:"SHUTDOWN_SECONDS"`
	PerfEnabled     bool     `toml:"perf_enabled" env:"PERF_ENABLED"`
}

// LogConfig selects the slog handler and its level.
type LogConfig struct {
	Level     slog.Level `toml:"level" env:"LEVEL"`
	Format    string     `toml:"format" env:"FORMAT"`
	AddSource bool       `toml:"add_source" env:"ADD_SOURCE"`
}

// NotifyConfig controls slab achievement emails. Empty Recipients disables them.
type NotifyConfig struct {
	ResendAPIKey string   `toml:"resend_api_key" env:"RESEND_API_KEY"`
	From         string   `toml:"from" env:"FROM"`
	Recipients   []string `toml:"recipients" env:"RECIPIENTS" envSeparator:","`
	Locale       string   `toml:"locale" env:"LOCALE"`
	Currency     string   `toml:"currency" env:"CURRENCY"`

	// Undelivered notifications are retried from the outbox.
	RetrySeconds int `toml:"retry_seconds" env:"RETRY_SECONDS"`
	MaxAttempts  int `toml:"max_attempts" env:"MAX_ATTEMPTS"`
}

// RetryInterval is how often the outbox worker runs.
func (n NotifyConfig) RetryInterval() time.Duration {
	return time.Duration(n.RetrySeconds) * time.Second
}

// Load reads path (skipped when empty) and overlays the environment.
// PRE: none
// POST: Returns a validated config with defaults applied, or an error
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.DB.Path == "" {
		c.DB.Path = DefaultDBPath
	}
	if c.DB.SlowQueryMs <= 0 {
		c.DB.SlowQueryMs = DefaultSlowQueryMs
	}
	if c.HTTP.RatePerMinute <= 0 {
		c.HTTP.RatePerMinute = DefaultRateLimit
	}
	if c.HTTP.SlowRequestMs <= 0 {
		c.HTTP.SlowRequestMs = DefaultSlowRequestMs
	}
	if c.HTTP.ShutdownSeconds <= 0 {
		c.HTTP.ShutdownSeconds = DefaultShutdownSecs
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Notify.Locale == "" {
		c.Notify.Locale = DefaultLocale
	}
	if c.Notify.Currency == "" {
		c.Notify.Currency = DefaultCurrency
	}
	if c.Notify.RetrySeconds <= 0 {
		c.Notify.RetrySeconds = DefaultRetrySecs
	}
	if c.Notify.MaxAttempts <= 0 {
		c.Notify.MaxAttempts = DefaultMaxAttempts
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "production" {
		return ErrInvalidEnv
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		return ErrInvalidEndpoint
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.CSRFKey(); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return ErrInvalidLogFormat
	}
	if c.Notify.ResendAPIKey != "" && c.Notify.From == "" {
		return ErrMissingFrom
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location resolves Timezone. Calendar days for "today" and contests are
// computed in this zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CSRFKey decodes the configured key. A nil key means CSRF protection is off.
func (c *Config) CSRFKey() ([]byte, error) {
	if c.HTTP.CSRFKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.HTTP.CSRFKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidCSRFKey
	}
	return key, nil
}

// ShutdownTimeout is how long in-flight requests get after a stop signal.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.HTTP.ShutdownSeconds) * time.Second
}

// NewLogger builds the service logger writing to w.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
