package config

import "time"

// Environments understood by the runtime.
const (
	EnvLive    = "live"
	EnvSandbox = "sandbox"
)

// Default values for optional configuration fields.
const (
	DefaultLiveBaseURL    = "https://api.tastyworks.com"
	DefaultSandboxBaseURL = "https://api.cert.tastyworks.com"

	DefaultAPITimeout = 30 * time.Second

	DefaultConnectTimeout    = 15 * time.Second
	DefaultAuthTimeout       = 10 * time.Second
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultKeepaliveTimeout  = 60 * time.Second

	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 60 * time.Second
	DefaultMaxReconnectAttempts = 0 // unlimited

	DefaultBufferSize         = 10000
	DefaultDeliveryBufferSize = 256
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvSandbox
	}

	if c.API.BaseURL == "" {
		switch c.Environment {
		case EnvLive:
			c.API.BaseURL = DefaultLiveBaseURL
		default:
			c.API.BaseURL = DefaultSandboxBaseURL
		}
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	if c.Streamer.ConnectTimeout == 0 {
		c.Streamer.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Streamer.AuthTimeout == 0 {
		c.Streamer.AuthTimeout = DefaultAuthTimeout
	}
	if c.Streamer.KeepaliveInterval == 0 {
		c.Streamer.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Streamer.KeepaliveTimeout == 0 {
		c.Streamer.KeepaliveTimeout = DefaultKeepaliveTimeout
	}
	if c.Streamer.ReconnectBaseDelay == 0 {
		c.Streamer.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Streamer.ReconnectMaxDelay == 0 {
		c.Streamer.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Streamer.BufferSize == 0 {
		c.Streamer.BufferSize = DefaultBufferSize
	}
	if c.Streamer.DeliveryBufferSize == 0 {
		c.Streamer.DeliveryBufferSize = DefaultDeliveryBufferSize
	}
}
