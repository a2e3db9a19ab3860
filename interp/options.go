package interp

import (
	"log/slog"
	"time"
)

// HostOption configures the Host at creation time.
type HostOption func(*hostConfig)

type hostConfig struct {
	logger      *slog.Logger
	initTimeout time.Duration
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		initTimeout: 60 * time.Second,
	}
}

// WithLogger sets the logger used for load progress and session events.
func WithLogger(logger *slog.Logger) HostOption {
	return func(c *hostConfig) {
		c.logger = logger
	}
}

// WithInitTimeout bounds how long a single runtime initialization may take.
// Zero disables the bound.
func WithInitTimeout(d time.Duration) HostOption {
	return func(c *hostConfig) {
		c.initTimeout = d
	}
}
