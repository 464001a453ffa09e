// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, QAMETRIC_ prefix)
//  2. Config file (~/.qametric/config.yaml or ./config.yaml)
//  3. Default values
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrapped with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIToken indicates the QA API token is missing.
	ErrMissingAPIToken = errors.New("missing QA API token")

	// ErrInvalidBaseURL indicates the QA API base URL is malformed.
	ErrInvalidBaseURL = errors.New("invalid QA API base URL")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTurns indicates the agent turn limit is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidMaxMessages indicates the memory bound is out of range.
	ErrInvalidMaxMessages = errors.New("invalid max messages")

	// ErrInvalidCacheBackend indicates an unknown cache backend.
	ErrInvalidCacheBackend = errors.New("invalid cache backend")

	// ErrInvalidCacheTTL indicates a non-positive cache TTL.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL")

	// ErrMissingRedisAddr indicates the redis backend was selected without
	// an address.
	ErrMissingRedisAddr = errors.New("missing redis address")
)

// Cache backend identifiers used in CacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

const (
	// DefaultModelName is the default generation model.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultMaxMessages is the default conversation memory bound per user.
	DefaultMaxMessages = 20

	// MaxAllowedMessages caps the memory bound to prevent unbounded growth.
	MaxAllowedMessages = 1000

	// DefaultMaxTurns is the default agentic loop turn limit.
	DefaultMaxTurns = 5
)

// QAConfig holds connection settings for the external test-management API.
type QAConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	Token   string `mapstructure:"token" json:"token"` // SENSITIVE: masked in MarshalJSON
}

// CacheConfig holds settings for the tool result cache.
type CacheConfig struct {
	Backend   string `mapstructure:"backend" json:"backend"` // "memory" (default) or "redis"
	RedisAddr string `mapstructure:"redis_addr" json:"redis_addr"`

	// Per-resource TTLs in seconds. Projects change rarely and get the
	// longest TTL; results churn constantly and get the shortest.
	ProjectsTTLSeconds int `mapstructure:"projects_ttl_seconds" json:"projects_ttl_seconds"`
	CasesTTLSeconds    int `mapstructure:"cases_ttl_seconds" json:"cases_ttl_seconds"`
	RunsTTLSeconds     int `mapstructure:"runs_ttl_seconds" json:"runs_ttl_seconds"`
	ResultsTTLSeconds  int `mapstructure:"results_ttl_seconds" json:"results_ttl_seconds"`
}

// TracingConfig holds OTLP trace export settings. Disabled by default;
// when enabled, spans are exported over OTLP HTTP to Endpoint.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (tokens, API keys), update MarshalJSON.
type Config struct {
	// Model configuration
	ModelName string `mapstructure:"model_name" json:"model_name"`
	MaxTurns  int    `mapstructure:"max_turns" json:"max_turns"`

	// Conversation memory bound per user session
	MaxMessages int `mapstructure:"max_messages" json:"max_messages"`

	// Verbose enables debug-level diagnostics on the orchestrator path.
	Verbose bool `mapstructure:"verbose" json:"verbose"`

	// External QA API
	QA QAConfig `mapstructure:"qa" json:"qa"`

	// Tool result cache
	Cache CacheConfig `mapstructure:"cache" json:"cache"`

	// Trace export
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".qametric")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults plus env cover it.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("max_turns", DefaultMaxTurns)
	viper.SetDefault("max_messages", DefaultMaxMessages)
	viper.SetDefault("verbose", false)

	viper.SetDefault("qa.base_url", "https://api.qase.io/v1")

	viper.SetDefault("cache.backend", CacheBackendMemory)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.projects_ttl_seconds", 600)
	viper.SetDefault("cache.cases_ttl_seconds", 300)
	viper.SetDefault("cache.runs_ttl_seconds", 120)
	viper.SetDefault("cache.results_ttl_seconds", 60)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")

	viper.SetDefault("server_addr", "127.0.0.1:3500")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables with the QAMETRIC_ prefix.
// Nested keys use underscores: QAMETRIC_QA_TOKEN, QAMETRIC_CACHE_BACKEND.
func bindEnvVariables() {
	viper.SetEnvPrefix("QAMETRIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// Validate checks the configuration for internal consistency. It does not
// verify credentials against external services.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}
	if c.MaxTurns <= 0 || c.MaxTurns > 50 {
		return fmt.Errorf("%w: %d (must be 1-50)", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.MaxMessages <= 0 || c.MaxMessages > MaxAllowedMessages {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidMaxMessages, c.MaxMessages, MaxAllowedMessages)
	}

	if c.QA.BaseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrInvalidBaseURL)
	}
	if u, err := url.Parse(c.QA.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.QA.BaseURL)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheBackend, c.Cache.Backend)
	}

	for _, ttl := range []struct {
		name    string
		seconds int
	}{
		{"projects", c.Cache.ProjectsTTLSeconds},
		{"cases", c.Cache.CasesTTLSeconds},
		{"runs", c.Cache.RunsTTLSeconds},
		{"results", c.Cache.ResultsTTLSeconds},
	} {
		if ttl.seconds <= 0 {
			return fmt.Errorf("%w: %s TTL must be positive, got %d", ErrInvalidCacheTTL, ttl.name, ttl.seconds)
		}
	}

	return nil
}

// MarshalJSON masks sensitive fields so the config can be logged safely.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // Avoid recursion
	masked := alias(*c)
	if masked.QA.Token != "" {
		masked.QA.Token = "***"
	}
	return json.Marshal(masked)
}
