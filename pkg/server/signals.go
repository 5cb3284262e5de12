//go:build !windows
// +build !windows

package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// ReloadOnSignal calls reload every time the process receives SIGHUP until
// ctx is done.
func ReloadOnSignal(ctx context.Context, reload func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	go func() {
		defer signal.Stop(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				log.Info().Str("signal", sig.String()).Msg("Reloading configuration")
				reload()
			}
		}
	}()
}
