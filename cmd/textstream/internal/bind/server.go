package bind

import (
	"github.com/spf13/cobra"

	srv "github.com/textstream/textstream/pkg/server"
)

// ServerOptions holds the flag values of the server start command.
type ServerOptions struct {
	Addr         string
	Port         int
	MaxQueueSize int
	MaxParallel  int
	MinDelayMs   int
	MaxDelayMs   int
}

// BindServerOptions extracts and validates server command flags.
//
// Flags read:
//   - --server.addr: Server listen address (e.g., "127.0.0.1", "0.0.0.0")
//   - --server.port: Server listen port (1-65535)
//   - --jobs.max_queue_size: Maximum queued jobs (>= 1)
//   - --jobs.max_parallel: Jobs processed at once (>= 1)
//   - --jobs.min_delay_ms / --jobs.max_delay_ms: Per-character delay window
//
// The effective configuration, which also includes file and environment
// values, is validated separately by the caller.
func BindServerOptions(cmd *cobra.Command) (ServerOptions, error) {
	addr, _ := cmd.Flags().GetString("server.addr")
	port, _ := cmd.Flags().GetInt("server.port")
	queueSize, _ := cmd.Flags().GetInt("jobs.max_queue_size")
	parallel, _ := cmd.Flags().GetInt("jobs.max_parallel")
	minDelay, _ := cmd.Flags().GetInt("jobs.min_delay_ms")
	maxDelay, _ := cmd.Flags().GetInt("jobs.max_delay_ms")

	if port < 1 || port > 65535 {
		return ServerOptions{}, srv.NewInvalidPortError(port)
	}
	if queueSize < 1 {
		return ServerOptions{}, srv.NewInvalidQueueSizeError(queueSize)
	}
	if parallel < 1 {
		return ServerOptions{}, srv.NewInvalidConcurrencyError(parallel)
	}
	if minDelay < 0 || maxDelay < minDelay {
		return ServerOptions{}, srv.NewInvalidDelayError(minDelay, maxDelay)
	}

	return ServerOptions{
		Addr:         addr,
		Port:         port,
		MaxQueueSize: queueSize,
		MaxParallel:  parallel,
		MinDelayMs:   minDelay,
		MaxDelayMs:   maxDelay,
	}, nil
}
