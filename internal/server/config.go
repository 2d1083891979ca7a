// Package server provides configuration loading with runtime defaults and
// rate-limiting parameters for the chat room service.
package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the server settings, populated from the environment.
type Config struct {
	Port            string        `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"512"`
	SendBufferSize  int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST" default:"5"`
	RateLimitRefill time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	TLSCertFile     string        `envconfig:"TLS_CERT_FILE"`
	TLSKeyFile      string        `envconfig:"TLS_KEY_FILE"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// NewConfig returns a Config with every field at its documented default.
func NewConfig() *Config {
	return &Config{
		Port:            ":8080",
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  512,
		SendBufferSize:  256,
		RateLimitBurst:  5,
		RateLimitRefill: time.Second,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewConfigFromEnv loads the configuration from environment variables,
// falling back to defaults for anything unset.
func NewConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.sanitize()
	return &cfg, nil
}

// sanitize clamps nonsensical values back to their defaults.
func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = 256
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 5
	}
	if c.RateLimitRefill <= 0 {
		c.RateLimitRefill = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (c *Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}
