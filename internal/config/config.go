// Package config loads and validates the trader runtime configuration.
//
// Config files are YAML with ${VAR} environment expansion. Loading is
// split into Load (parse), LoadWithDefaults (fill optional fields), and
// LoadAndValidate (reject bad values).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a trader instance.
type Config struct {
	Environment string         `yaml:"environment"` // "live" or "sandbox"
	API         APIConfig      `yaml:"api"`
	Streamer    StreamerConfig `yaml:"streamer"`
	Orders      OrdersConfig   `yaml:"orders"`
}

// APIConfig holds brokerage REST API settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"` // empty = derived from environment
	Timeout time.Duration `yaml:"timeout"`
}

// StreamerConfig holds quote streaming session settings.
type StreamerConfig struct {
	URL string `yaml:"url"` // empty = use the URL the token endpoint returns

	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	AuthTimeout       time.Duration `yaml:"auth_timeout"`
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	KeepaliveTimeout  time.Duration `yaml:"keepalive_timeout"`

	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // 0 = unlimited

	BufferSize         int `yaml:"buffer_size"`          // transport inbound message buffer
	DeliveryBufferSize int `yaml:"delivery_buffer_size"` // per-consumer delivery channel buffer
}

// OrdersConfig holds order construction policy settings.
type OrdersConfig struct {
	// AllowPlainEquityActions permits Buy/Sell (without open/close) on
	// equity and future legs. Options always require open/close actions.
	AllowPlainEquityActions bool `yaml:"allow_plain_equity_actions"`
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
