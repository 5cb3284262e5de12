package server

import (
	"github.com/spf13/cobra"
)

const cliExecutable = "server"

// NewCommand returns the server command group.
func NewCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   cliExecutable,
		Short: "Run and inspect the textstream server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	command.SuggestionsMinimumDistance = 1

	command.AddCommand(newStartServerCommand())
	command.AddCommand(newStatusCommand())

	return command
}
