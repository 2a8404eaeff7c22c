// Package config provides YAML configuration loading and validation for the
// dashboard server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the dashboard server.
type Config struct {
	// ListenAddr is the HTTP/WebSocket listen address. Defaults to ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`

	// Auth configures the login credentials and token signing.
	Auth AuthConfig `yaml:"auth"`

	// Ticker configures the periodic telemetry producers.
	Ticker TickerConfig `yaml:"ticker"`

	// Limits bounds the in-memory logs and per-session buffering.
	Limits LimitsConfig `yaml:"limits"`

	// SeedRules is the number of synthetic rules the store starts with.
	// Defaults to 25; 0 is valid and starts with an empty rule set.
	SeedRules *int `yaml:"seed_rules"`

	// AuditLog is the path of the append-only mutation audit trail. Empty
	// disables auditing.
	AuditLog string `yaml:"audit_log"`
}

// AuthConfig holds the token secret, token lifetime, and user set.
type AuthConfig struct {
	// Secret signs session tokens (HS256). Defaults to a development
	// secret; the server warns loudly when the default is in use.
	Secret string `yaml:"secret"`

	// TokenTTL is the token lifetime. Defaults to 24h.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// Users is the static login set. Defaults to the single demo operator
	// account when omitted.
	Users []UserConfig `yaml:"users"`
}

// UserConfig is one login principal.
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// TickerConfig holds the three independent tick periods.
type TickerConfig struct {
	// EventInterval is the period between synthetic events. Defaults to 2s.
	EventInterval time.Duration `yaml:"event_interval"`

	// StatisticsInterval is the statistics recompute period. Defaults to 5s.
	StatisticsInterval time.Duration `yaml:"statistics_interval"`

	// MetricsInterval is the traffic-metrics recompute period. Defaults to 10s.
	MetricsInterval time.Duration `yaml:"metrics_interval"`
}

// LimitsConfig bounds memory use.
type LimitsConfig struct {
	// EventLogCapacity caps the event log. Defaults to 500.
	EventLogCapacity int `yaml:"event_log_capacity"`

	// AlertLogCapacity caps the alert log. Defaults to 100.
	AlertLogCapacity int `yaml:"alert_log_capacity"`

	// SendBuffer is the per-session outbound channel depth. Defaults to 64.
	SendBuffer int `yaml:"send_buffer"`
}

// DefaultSecret is the development signing secret used when none is
// configured.
const DefaultSecret = "firewall_soc_dev_secret"

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all fields. It returns a typed error describing
// the first validation failure encountered.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in zero-value optional fields.
func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = DefaultSecret
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if len(cfg.Auth.Users) == 0 {
		cfg.Auth.Users = []UserConfig{
			{Username: "admin@soc.local", Password: "firewall123", Role: "admin"},
		}
	}
	if cfg.Ticker.EventInterval == 0 {
		cfg.Ticker.EventInterval = 2 * time.Second
	}
	if cfg.Ticker.StatisticsInterval == 0 {
		cfg.Ticker.StatisticsInterval = 5 * time.Second
	}
	if cfg.Ticker.MetricsInterval == 0 {
		cfg.Ticker.MetricsInterval = 10 * time.Second
	}
	if cfg.Limits.EventLogCapacity == 0 {
		cfg.Limits.EventLogCapacity = 500
	}
	if cfg.Limits.AlertLogCapacity == 0 {
		cfg.Limits.AlertLogCapacity = 100
	}
	if cfg.Limits.SendBuffer == 0 {
		cfg.Limits.SendBuffer = 64
	}
	if cfg.SeedRules == nil {
		n := 25
		cfg.SeedRules = &n
	}
}

// validate checks that all fields hold acceptable values.
func validate(cfg *Config) error {
	var errs []error

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Auth.TokenTTL < 0 {
		errs = append(errs, errors.New("auth.token_ttl must not be negative"))
	}
	for i, u := range cfg.Auth.Users {
		prefix := fmt.Sprintf("auth.users[%d]", i)
		if u.Username == "" {
			errs = append(errs, fmt.Errorf("%s: username is required", prefix))
		}
		if u.Password == "" {
			errs = append(errs, fmt.Errorf("%s: password is required", prefix))
		}
	}
	if cfg.Ticker.EventInterval < 0 || cfg.Ticker.StatisticsInterval < 0 || cfg.Ticker.MetricsInterval < 0 {
		errs = append(errs, errors.New("ticker intervals must not be negative"))
	}
	if cfg.Limits.EventLogCapacity < 0 || cfg.Limits.AlertLogCapacity < 0 || cfg.Limits.SendBuffer < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}
	if cfg.SeedRules != nil && *cfg.SeedRules < 0 {
		errs = append(errs, errors.New("seed_rules must not be negative"))
	}

	return errors.Join(errs...)
}
