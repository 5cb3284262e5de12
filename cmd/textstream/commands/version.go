package commands

import (
	"io"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/version"
)

var versionTemplate = `Version:      {{.Version}}
Commit:       {{.Commit}}
Built:        {{.BuildDate}}
Go version:   {{.GoVersion}}
OS/Arch:      {{.Platform}}
`

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)
			info := version.Get()

			switch {
			case short:
				_, err := io.WriteString(cmd.OutOrStdout(), info.Version+"\n")
				return err
			case formatter.IsJSON():
				return formatter.PrintJSON(info)
			default:
				return printVersion(cmd.OutOrStdout(), info)
			}
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}

func printVersion(w io.Writer, info version.Struct) error {
	tmpl, err := template.New("version").Parse(versionTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, info)
}
