package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/appctx"
	serversvc "github.com/textstream/textstream/pkg/server"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
TEXTSTREAM_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			mgr, ok := appctx.Config(cmd.Context())
			if !ok {
				_ = formatter.PrintError(serversvc.ErrConfigUnavailable)
				return format.Reported(serversvc.ErrConfigUnavailable)
			}
			cfg := mgr.Get()

			if formatter.IsJSON() {
				return formatter.PrintJSON(cfg)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	return cmd
}
