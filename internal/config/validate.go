package config

import (
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Environment != EnvLive && c.Environment != EnvSandbox {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvLive, EnvSandbox, c.Environment)
	}

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	s := c.Streamer
	if s.URL != "" && !strings.HasPrefix(s.URL, "ws://") && !strings.HasPrefix(s.URL, "wss://") {
		return fmt.Errorf("streamer.url must be a ws(s) URL, got %q", s.URL)
	}
	if s.ConnectTimeout <= 0 {
		return fmt.Errorf("streamer.connect_timeout must be positive")
	}
	if s.AuthTimeout <= 0 {
		return fmt.Errorf("streamer.auth_timeout must be positive")
	}
	if s.KeepaliveInterval <= 0 {
		return fmt.Errorf("streamer.keepalive_interval must be positive")
	}
	if s.KeepaliveTimeout <= s.KeepaliveInterval {
		return fmt.Errorf("streamer.keepalive_timeout (%v) must exceed keepalive_interval (%v)",
			s.KeepaliveTimeout, s.KeepaliveInterval)
	}
	if s.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("streamer.reconnect_base_delay must be positive")
	}
	if s.ReconnectMaxDelay < s.ReconnectBaseDelay {
		return fmt.Errorf("streamer.reconnect_max_delay (%v) cannot be below reconnect_base_delay (%v)",
			s.ReconnectMaxDelay, s.ReconnectBaseDelay)
	}
	if s.MaxReconnectAttempts < 0 {
		return fmt.Errorf("streamer.max_reconnect_attempts cannot be negative")
	}
	if s.BufferSize < 1 {
		return fmt.Errorf("streamer.buffer_size must be >= 1")
	}
	if s.DeliveryBufferSize < 1 {
		return fmt.Errorf("streamer.delivery_buffer_size must be >= 1")
	}

	return nil
}
