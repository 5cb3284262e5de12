// Package server provides the Cobra commands for the textstream server lifecycle.
// It wires CLI flags to the server runtime and handles the start/status commands.
package server

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/textstream/textstream/cmd/textstream/internal/bind"
	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/appctx"
	"github.com/textstream/textstream/pkg/config"
	serversvc "github.com/textstream/textstream/pkg/server"
	"github.com/textstream/textstream/pkg/server/app"
)

// newStartServerCommand creates and returns the 'textstream server start' command.
//
// The server runs until interrupted (SIGINT/SIGTERM), then stops accepting
// requests, drains running jobs and closes push connections. SIGHUP or an
// edit of the config file reloads the delay window without a restart.
//
// Example usage:
//
//	textstream server start
//	textstream server start --server.addr 0.0.0.0 --server.port 8080
//	textstream server start --jobs.max_parallel 10 --jobs.max_delay_ms 2000
func newStartServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the textstream server",
		Long: `Start the textstream server process.

The server accepts text over HTTP, queues a processing job per browser tab
and streams the encoded result back one character at a time over the
/processingHub websocket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			if _, err := bind.BindServerOptions(cmd); err != nil {
				return fail(formatter, err)
			}

			cfgMgr, ok := appctx.Config(cmd.Context())
			if !ok {
				return fail(formatter, serversvc.ErrConfigUnavailable)
			}

			cfg := cfgMgr.Get()
			if err := cfg.Validate(); err != nil {
				return fail(formatter, serversvc.WrapInvalidConfig(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.With().Str("component", "server").Logger()
			serverApp, err := app.New(ctx, cfg, &app.Deps{Config: cfgMgr, Logger: log.Logger})
			if err != nil {
				return fail(formatter, serversvc.WrapAppInit(err))
			}

			apply := func(next config.Config) {
				if err := serverApp.ApplyJobsConfig(next.Jobs); err != nil {
					logger.Error().Err(err).Msg("Ignoring reloaded jobs configuration")
				}
			}
			if path := cfgMgr.Path(); path != "" {
				if err := cfgMgr.Watch(ctx, path, apply); err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("Config file watch disabled")
				}
			}
			serversvc.ReloadOnSignal(ctx, func() {
				if err := cfgMgr.Reload(); err != nil {
					logger.Error().Err(err).Msg("Config reload failed")
					return
				}
				apply(cfgMgr.Get())
			})

			if err := serverApp.Run(ctx); err != nil {
				return fail(formatter, serversvc.WrapRuntime(err))
			}
			return nil
		},
	}

	config.BindServerFlags(cmd.Flags())

	return cmd
}

// fail prints err with suggestions and returns it so main can pick the exit code.
func fail(formatter format.Formatter, err error) error {
	_ = formatter.PrintTotalFailureSummary("start server", err, serversvc.ErrorCode(err))
	return format.Reported(err)
}

