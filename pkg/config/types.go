// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for textstream.
// It aggregates all other specific configuration structs.
type Config struct {
	Log    LogConfig    `description:"Logging configuration" koanf:"log" yaml:"log"`
	Server ServerConfig `description:"Server configuration" koanf:"server" yaml:"server"`
	Jobs   JobsConfig   `description:"Job processing configuration" koanf:"jobs" yaml:"jobs"`
	Health HealthConfig `description:"Health check configuration" koanf:"health" yaml:"health"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level" koanf:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" koanf:"format" yaml:"format" validate:"omitempty,oneof=json text"`
	File   string `description:"Log file path" koanf:"file" yaml:"file"`
}

// ServerConfig holds configuration for the HTTP and push transport.
// Used by 'textstream server start'.
type ServerConfig struct {
	// Network settings
	Addr string `description:"Server listen address" koanf:"addr" yaml:"addr" validate:"required"`
	Port int    `description:"Server listen port" koanf:"port" yaml:"port" validate:"min=1,max=65535"`

	// HTTP timeouts
	ReadTimeout     time.Duration `description:"HTTP read timeout" koanf:"read_timeout" yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `description:"HTTP write timeout" koanf:"write_timeout" yaml:"write_timeout" validate:"gte=0"`
	HandlerTimeout  time.Duration `description:"API handler timeout" koanf:"handler_timeout" yaml:"handler_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `description:"Graceful shutdown timeout" koanf:"shutdown_timeout" yaml:"shutdown_timeout" validate:"gt=0"`

	// Browser origins allowed to call the API and open the push connection
	AllowedOrigins []string `description:"CORS allowed origins" koanf:"allowed_origins" yaml:"allowed_origins"`

	RateLimit RateLimitConfig `description:"Rate limit for starting jobs" koanf:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig configures the token bucket in front of the start endpoint.
// A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `description:"Sustained start requests per second (0 disables)" koanf:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int     `description:"Maximum burst of start requests" koanf:"burst" yaml:"burst" validate:"gte=0"`
}

// JobsConfig holds queue and worker pool settings.
type JobsConfig struct {
	MaxQueueSize          int `description:"Maximum number of queued jobs" koanf:"max_queue_size" yaml:"max_queue_size" validate:"min=1"`
	MinDelayMilliseconds  int `description:"Minimum delay between streamed characters" koanf:"min_delay_ms" yaml:"min_delay_ms" validate:"gte=0"`
	MaxDelayMilliseconds  int `description:"Maximum delay between streamed characters" koanf:"max_delay_ms" yaml:"max_delay_ms" validate:"gtefield=MinDelayMilliseconds"`
	MaxParallelOperations int `description:"Maximum number of jobs processed at once" koanf:"max_parallel" yaml:"max_parallel" validate:"min=1"`
}

// MinDelay returns MinDelayMilliseconds as a duration.
func (c JobsConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelayMilliseconds) * time.Millisecond
}

// MaxDelay returns MaxDelayMilliseconds as a duration.
func (c JobsConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMilliseconds) * time.Millisecond
}

// HealthConfig holds queue depth thresholds for /health.
// An empty queue is healthy, a depth below UnhealthyQueueDepth is degraded.
type HealthConfig struct {
	UnhealthyQueueDepth int `description:"Queue depth at which /health reports unhealthy" koanf:"unhealthy_queue_depth" yaml:"unhealthy_queue_depth" validate:"min=1"`
}
