//go:build windows
// +build windows

package server

import "context"

// ReloadOnSignal is a no-op on Windows, which has no SIGHUP.
func ReloadOnSignal(ctx context.Context, reload func()) {}
