package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	WS       WSConfig       `mapstructure:"ws" yaml:"ws"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Invite   InviteConfig   `mapstructure:"invite" yaml:"invite"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// WSConfig controls the signaling WebSocket endpoint.
type WSConfig struct {
	// ReadLimit caps a single inbound frame in bytes.
	ReadLimit int64 `mapstructure:"read_limit" yaml:"read_limit"`
	// UserIDParam is the query parameter carrying the presence key at connect time.
	UserIDParam string `mapstructure:"user_id_param" yaml:"user_id_param"`
	// InsecureSkipOrigin disables the Origin check on upgrade.
	InsecureSkipOrigin bool `mapstructure:"insecure_skip_origin" yaml:"insecure_skip_origin"`
	// RateLimit caps inbound messages per connection per minute; 0 disables it.
	RateLimit int `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RegistryConfig controls the connection registry.
type RegistryConfig struct {
	Shards int `mapstructure:"shards" yaml:"shards"`
}

// InviteConfig controls invite fan-out behaviour.
type InviteConfig struct {
	EnforceDeclaredCount bool `mapstructure:"enforce_declared_count" yaml:"enforce_declared_count"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		WS: WSConfig{
			ReadLimit:          50 * 1024,
			UserIDParam:        "userId",
			InsecureSkipOrigin: true,
		},
		Registry: RegistryConfig{
			Shards: 32,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.WS.ReadLimit != 0 {
		c.WS.ReadLimit = other.WS.ReadLimit
	}
	if other.WS.UserIDParam != "" {
		c.WS.UserIDParam = other.WS.UserIDParam
	}
	if other.WS.RateLimit != 0 {
		c.WS.RateLimit = other.WS.RateLimit
	}
	if other.Registry.Shards != 0 {
		c.Registry.Shards = other.Registry.Shards
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.WS.ReadLimit <= 0 {
		return fmt.Errorf("ws.read_limit must be positive, got %d", c.WS.ReadLimit)
	}
	if c.WS.UserIDParam == "" {
		return errors.New("ws.user_id_param is required")
	}
	if c.WS.RateLimit < 0 {
		return fmt.Errorf("ws.rate_limit must not be negative, got %d", c.WS.RateLimit)
	}
	if n := c.Registry.Shards; n <= 0 || n&(n-1) != 0 {
		return fmt.Errorf("registry.shards must be a positive power of two, got %d", n)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
