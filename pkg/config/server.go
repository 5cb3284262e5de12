package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DefaultServerConfig returns the default server configuration.
// These are sensible defaults for local development and can be overridden
// via flags, environment variables, or config files.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "127.0.0.1",
		Port:            5000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		HandlerTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		AllowedOrigins:  []string{"http://localhost:4200", "http://localhost:8080"},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// DefaultJobsConfig returns the default queue and worker pool settings.
func DefaultJobsConfig() JobsConfig {
	return JobsConfig{
		MaxQueueSize:          1000,
		MinDelayMilliseconds:  1000,
		MaxDelayMilliseconds:  5000,
		MaxParallelOperations: 5,
	}
}

// DefaultHealthConfig returns the default /health thresholds.
func DefaultHealthConfig() HealthConfig {
	return HealthConfig{UnhealthyQueueDepth: 10}
}

// BindServerFlags binds server-specific flags to the provided FlagSet.
// These flags will be used by the 'textstream server start' command.
//
// Flags are namespaced after their config keys so that koanf picks them up
// directly. Example: --server.port, --jobs.max_parallel
func BindServerFlags(flags *pflag.FlagSet) {
	defaults := DefaultServerConfig()
	jobs := DefaultJobsConfig()

	flags.String("server.addr", defaults.Addr, "Server listen address (use 0.0.0.0 for all interfaces)")
	flags.Int("server.port", defaults.Port, "Server listen port")
	flags.Duration("server.read_timeout", defaults.ReadTimeout, "HTTP read timeout")
	flags.Duration("server.write_timeout", defaults.WriteTimeout, "HTTP write timeout")
	flags.Duration("server.shutdown_timeout", defaults.ShutdownTimeout, "Time allowed for in-flight jobs to finish on shutdown")
	flags.StringSlice("server.allowed_origins", defaults.AllowedOrigins, "Origins allowed by CORS and the push endpoint")
	flags.Float64("server.rate_limit.requests_per_second", defaults.RateLimit.RequestsPerSecond, "Sustained job start rate (0 disables limiting)")
	flags.Int("server.rate_limit.burst", defaults.RateLimit.Burst, "Job start burst size")

	flags.Int("jobs.max_queue_size", jobs.MaxQueueSize, "Maximum number of queued jobs")
	flags.Int("jobs.max_parallel", jobs.MaxParallelOperations, "Maximum number of jobs processed at once")
	flags.Int("jobs.min_delay_ms", jobs.MinDelayMilliseconds, "Minimum delay between streamed characters in milliseconds")
	flags.Int("jobs.max_delay_ms", jobs.MaxDelayMilliseconds, "Maximum delay between streamed characters in milliseconds")
}
