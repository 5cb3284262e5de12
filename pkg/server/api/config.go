package api

import (
	"errors"
	"time"
)

// Sentinel errors for configuration validation
var (
	// ErrInvalidTimeout is returned when a timeout value is invalid (negative).
	ErrInvalidTimeout = errors.New("invalid timeout: must be >= 0")
	// ErrInvalidThreshold is returned when the unhealthy queue depth is not positive.
	ErrInvalidThreshold = errors.New("invalid health threshold: must be > 0")
)

// Config holds API-level configuration.
type Config struct {
	// HandlerTimeout is the maximum duration for an API handler to complete.
	// It is applied only if the request context doesn't already have a
	// deadline, so middleware or callers can set shorter ones.
	//
	// Default: 30 seconds
	HandlerTimeout time.Duration

	// UnhealthyQueueDepth is the queue depth at which /health reports
	// Unhealthy. An empty queue is Healthy, anything between is Degraded.
	//
	// Default: 10
	UnhealthyQueueDepth int
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		HandlerTimeout:      30 * time.Second,
		UnhealthyQueueDepth: 10,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.HandlerTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.UnhealthyQueueDepth <= 0 {
		return ErrInvalidThreshold
	}
	return nil
}
