// Package server provides configuration helpers that define runtime defaults
// and validation for the roomcast service.
package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server configuration. Fields are populated from the
// environment via LoadConfig; zero or out-of-range values are replaced by the
// defaults in sanitize.
type Config struct {
	// Port is the listen address, e.g. ":8080".
	Port string `env:"SERVER_PORT" envDefault:":8080"`

	// DefaultRoom seeds the room registry at startup.
	DefaultRoom string `env:"DEFAULT_ROOM" envDefault:"lobby"`

	// BroadcastBuffer is the per-subscriber pending message capacity.
	BroadcastBuffer int `env:"BROADCAST_BUFFER" envDefault:"1024"`

	// AllowedOrigins lists origins accepted for WebSocket upgrades.
	// "*" allows any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`

	// MaxMessageSize bounds a single WebSocket frame in bytes.
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" envDefault:"66560"`

	// RateLimit throttles per-connection WebSocket submissions.
	RateLimit RateLimitConfig

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and hub.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// SSEKeepAlive is the interval between keep-alive comments on idle
	// event streams. Zero disables keep-alives.
	SSEKeepAlive time.Duration `env:"SSE_KEEPALIVE" envDefault:"30s"`

	// RejectFeedback, when true, makes POST /message report the rejection
	// reason to the sender instead of dropping silently. Silent drop is the
	// default so spammers get no signal.
	RejectFeedback bool `env:"REJECT_FEEDBACK" envDefault:"false"`

	// StaticDir, when set, is served at / for the bundled web client.
	StaticDir string `env:"STATIC_DIR"`
}

// RateLimitConfig defines the parameters for per-connection message rate
// limiting.
type RateLimitConfig struct {
	Burst          int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
}

// NewConfig returns a Config populated with default values for all settings.
func NewConfig() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		// Only reachable with a broken struct tag; defaults never fail.
		panic(fmt.Sprintf("server: default config: %v", err))
	}
	cfg.sanitize()
	return cfg
}

// LoadConfig builds a Config from the environment, falling back to defaults
// for unset variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	if c.Port == "" {
		c.Port = ":8080"
	}
	if c.DefaultRoom == "" {
		c.DefaultRoom = "lobby"
	}
	if c.BroadcastBuffer <= 0 {
		c.BroadcastBuffer = DefaultHubCapacity
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 66560
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 5
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.SSEKeepAlive < 0 {
		c.SSEKeepAlive = 0
	}
}
