package app

import (
	"github.com/rs/zerolog"

	"github.com/textstream/textstream/pkg/config"
	"github.com/textstream/textstream/pkg/event"
)

// Deps holds dependencies for the server application.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Config manager for runtime configuration (optional)
	Config *config.Manager

	// Bus carries connection lifecycle events between the hub and the
	// job service. A fresh bus is created when nil.
	Bus event.EventBus

	// Logger is the base logger. Each component adds its own "component"
	// field, so it must not carry one already.
	Logger zerolog.Logger
}
