package server

import (
	"errors"
	"fmt"
)

const (
	errorCodeInvalidPort        = "SERVER_INVALID_PORT"
	errorCodeInvalidConcurrency = "SERVER_INVALID_CONCURRENCY"
	errorCodeInvalidQueueSize   = "SERVER_INVALID_QUEUE_SIZE"
	errorCodeInvalidDelay       = "SERVER_INVALID_DELAY"
	errorCodeConfigUnavailable  = "SERVER_CONFIG_UNAVAILABLE"
	errorCodeInvalidConfig      = "SERVER_INVALID_CONFIG"
	errorCodeAppInitFailed      = "SERVER_INIT_FAILED"
	errorCodeRuntimeFailed      = "SERVER_RUNTIME_FAILED"
)

var (
	// ErrInvalidPort indicates an invalid port flag value.
	ErrInvalidPort = errors.New("invalid port")
	// ErrInvalidConcurrency indicates an invalid max parallel operations value.
	ErrInvalidConcurrency = errors.New("invalid max parallel operations")
	// ErrInvalidQueueSize indicates a non-positive queue size.
	ErrInvalidQueueSize = errors.New("invalid queue size")
	// ErrInvalidDelay indicates a negative or inverted delay window.
	ErrInvalidDelay = errors.New("invalid delay window")
	// ErrConfigUnavailable indicates the CLI context lacked a config manager.
	ErrConfigUnavailable = errors.New("config manager unavailable")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a server error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewInvalidPortError formats an invalid port error with context.
func NewInvalidPortError(port int) error {
	return WithErrorCode(fmt.Errorf("%w: invalid port %d: must be between 1 and 65535", ErrInvalidPort, port), errorCodeInvalidPort)
}

// NewInvalidConcurrencyError formats an invalid max parallel error.
func NewInvalidConcurrencyError(parallel int) error {
	return WithErrorCode(fmt.Errorf("%w: %d: must be at least 1", ErrInvalidConcurrency, parallel), errorCodeInvalidConcurrency)
}

// NewInvalidQueueSizeError formats an invalid queue size error.
func NewInvalidQueueSizeError(size int) error {
	return WithErrorCode(fmt.Errorf("%w: %d: must be at least 1", ErrInvalidQueueSize, size), errorCodeInvalidQueueSize)
}

// NewInvalidDelayError formats an invalid delay window error.
func NewInvalidDelayError(minMs, maxMs int) error {
	return WithErrorCode(fmt.Errorf("%w: [%dms, %dms]: need 0 <= min <= max", ErrInvalidDelay, minMs, maxMs), errorCodeInvalidDelay)
}

// WrapInvalidConfig annotates server config validation errors.
func WrapInvalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("invalid server configuration: %w", err), errorCodeInvalidConfig)
}

// WrapAppInit annotates server app creation failures.
func WrapAppInit(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeAppInitFailed)
}

// WrapRuntime annotates server runtime failures.
func WrapRuntime(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeRuntimeFailed)
}

// ErrorCode resolves a server error to its error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrInvalidPort):
		return errorCodeInvalidPort
	case errors.Is(err, ErrInvalidConcurrency):
		return errorCodeInvalidConcurrency
	case errors.Is(err, ErrInvalidQueueSize):
		return errorCodeInvalidQueueSize
	case errors.Is(err, ErrInvalidDelay):
		return errorCodeInvalidDelay
	case errors.Is(err, ErrConfigUnavailable):
		return errorCodeConfigUnavailable
	default:
		return errorCodeRuntimeFailed
	}
}

func isUsageError(err error) bool {
	return errors.Is(err, ErrInvalidPort) ||
		errors.Is(err, ErrInvalidConcurrency) ||
		errors.Is(err, ErrInvalidQueueSize) ||
		errors.Is(err, ErrInvalidDelay)
}

// ExitCode maps server errors to CLI exit codes.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case isUsageError(err), ErrorCode(err) == errorCodeInvalidConfig:
		return 2
	case ErrorCode(err) == errorCodeAppInitFailed:
		return 7
	default:
		return 1
	}
}

// HTTPStatus maps server errors to HTTP status codes.
func HTTPStatus(err error) int {
	if err == nil {
		return 200
	}
	if isUsageError(err) || ErrorCode(err) == errorCodeInvalidConfig {
		return 400
	}
	return 500
}

// Suggestions provides CLI hints for server errors.
func Suggestions(err error) []string {
	if err == nil {
		return nil
	}

	switch ErrorCode(err) {
	case errorCodeInvalidPort:
		return []string{
			"Use a port between 1 and 65535",
			"Example:                 textstream server start --server.port 5000",
		}
	case errorCodeInvalidConcurrency:
		return []string{
			"Allow at least one job to run at a time",
			"Example:                 textstream server start --jobs.max_parallel 5",
		}
	case errorCodeInvalidQueueSize:
		return []string{
			"Set the queue size to at least 1",
			"Example:                 textstream server start --jobs.max_queue_size 1000",
		}
	case errorCodeInvalidDelay:
		return []string{
			"Keep min_delay_ms at or below max_delay_ms, both non-negative",
			"Example:                 textstream server start --jobs.min_delay_ms 1000 --jobs.max_delay_ms 5000",
		}
	case errorCodeConfigUnavailable:
		return []string{
			"Run via the textstream CLI so the config manager initializes",
			"Avoid calling server start from custom scripts without init",
		}
	case errorCodeInvalidConfig:
		return []string{
			"Check configuration values in the config file and TEXTSTREAM_* variables",
			"Inspect the effective values with: textstream config show",
		}
	case errorCodeAppInitFailed:
		return []string{
			"Retry with debug logging: textstream server start --debug",
			"Review configuration for invalid values",
		}
	case errorCodeRuntimeFailed:
		return []string{
			"Check server logs for runtime errors",
			"Ensure no other process is using the selected port",
		}
	default:
		return nil
	}
}
