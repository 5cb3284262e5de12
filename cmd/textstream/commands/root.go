package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	serverCmd "github.com/textstream/textstream/cmd/textstream/commands/server"
	"github.com/textstream/textstream/pkg/appctx"
	"github.com/textstream/textstream/pkg/config"
	"github.com/textstream/textstream/pkg/logging"
	"github.com/textstream/textstream/pkg/paths"
	serversvc "github.com/textstream/textstream/pkg/server"
)

const cliExecutable = "textstream"

// NewCommand constructs the top-level textstream CLI command, wiring global
// flags, configuration loading and logging setup.
func NewCommand() *cobra.Command {
	var (
		configFile string
		logCloser  io.Closer
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "textstream encodes text and streams the result character by character",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile == "" {
				configFile = paths.DefaultConfigFile()
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return serversvc.WrapInvalidConfig(fmt.Errorf("load configuration: %w", err))
			}

			cfg := mgr.Get()
			closer, err := logging.ConfigureGlobalLogging(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
			if err != nil {
				return err
			}
			logCloser = closer

			cmd.SetContext(appctx.WithConfig(cmd.Context(), mgr))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/textstream/textstream.yaml when present)")
	cmd.PersistentFlags().StringP("output", "o", "table", "Output format: table | json")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress summaries")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(serverCmd.NewCommand())
	cmd.AddCommand(newStreamCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}
