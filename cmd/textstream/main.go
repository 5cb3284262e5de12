package main

import (
	"fmt"
	"os"

	"github.com/textstream/textstream/cmd/textstream/commands"
	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/server"
)

// main runs the textstream CLI and exits with a code derived from the error.
//
// Exit codes:
//   - 0: Success
//   - 1: General error (default)
//   - 2: Invalid usage or configuration
//   - 7: Server initialization failed
func main() {
	command := commands.NewCommand()

	if err := command.Execute(); err != nil {
		if !format.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(server.ExitCode(err))
	}
}
