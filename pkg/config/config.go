// Package config loads server configuration from YAML files with
// environment variable expansion and duration parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete rustymail-mcp configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	SSE     SSEConfig     `yaml:"sse"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// AllowedOrigins extends the built-in localhost allow-list. Entries are
	// matched exactly against the Origin header.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxBodyBytes caps the size of a POST body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// SessionConfig holds session lifecycle timing
type SessionConfig struct {
	TTL           time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TTLRaw           string `yaml:"ttl"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// SSEConfig holds SSE channel timing
type SSEConfig struct {
	HeartbeatInterval time.Duration `yaml:"-"`
	// EventBuffer is the per-channel buffered event capacity.
	EventBuffer int `yaml:"event_buffer"`

	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"` // otlp-grpc, otlp-http, noop
	Endpoint   string  `yaml:"endpoint"`
	Insecure   bool    `yaml:"insecure"`
	SampleRate float64 `yaml:"sample_rate"`
}

// Default returns a configuration with working defaults: localhost-only
// origins, 10 minute session TTL, 1 minute sweep, 30 second heartbeats.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:     ":3000",
			MaxBodyBytes: 1 << 20,
		},
		Session: SessionConfig{
			TTL:           10 * time.Minute,
			SweepInterval: time.Minute,
		},
		SSE: SSEConfig{
			HeartbeatInterval: 30 * time.Second,
			EventBuffer:       100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlp-http",
			SampleRate: 1.0,
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values, and unset fields
// fall back to Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be positive")
	}
	if c.SSE.HeartbeatInterval <= 0 {
		return fmt.Errorf("sse.heartbeat_interval must be positive")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	switch c.Tracing.Exporter {
	case "", "otlp-grpc", "otlp-http", "noop":
	default:
		return fmt.Errorf("tracing.exporter %q is not supported", c.Tracing.Exporter)
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TTLRaw != "" {
		cfg.Session.TTL, err = time.ParseDuration(cfg.Session.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session.ttl %q: %w", cfg.Session.TTLRaw, err)
		}
	}

	if cfg.Session.SweepIntervalRaw != "" {
		cfg.Session.SweepInterval, err = time.ParseDuration(cfg.Session.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing session.sweep_interval %q: %w", cfg.Session.SweepIntervalRaw, err)
		}
	}

	if cfg.SSE.HeartbeatIntervalRaw != "" {
		cfg.SSE.HeartbeatInterval, err = time.ParseDuration(cfg.SSE.HeartbeatIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sse.heartbeat_interval %q: %w", cfg.SSE.HeartbeatIntervalRaw, err)
		}
	}

	return nil
}
