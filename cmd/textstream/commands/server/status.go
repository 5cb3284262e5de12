package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/client"
)

func newStatusCommand() *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue statistics of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			c, err := client.New(serverURL)
			if err != nil {
				_ = formatter.PrintError(err)
				return format.Reported(err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, err := c.Status(ctx)
			if err != nil {
				err = fmt.Errorf("query %s: %w", serverURL, err)
				_ = formatter.PrintError(err)
				return format.Reported(err)
			}

			if formatter.IsJSON() {
				return formatter.PrintJSON(status)
			}
			return formatter.PrintTable([]string{"Metric", "Value"}, [][]string{
				{"queue depth", strconv.Itoa(status.QueueDepth)},
				{"queue capacity", strconv.Itoa(status.QueueCapacity)},
				{"active jobs", strconv.Itoa(status.ActiveJobs)},
				{"running jobs", strconv.Itoa(status.RunningJobs)},
				{"processed", strconv.FormatInt(status.Processed, 10)},
				{"connections", strconv.Itoa(status.Connections)},
			})
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:5000", "Server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	return cmd
}
