package bind

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// ErrInputRequired is returned when the stream command gets no text.
	ErrInputRequired = errors.New("input cannot be empty")
	// ErrTabRequired is returned when --tab is blank.
	ErrTabRequired = errors.New("tab id is required")
)

// StreamOptions holds the validated arguments of the stream command.
type StreamOptions struct {
	Input     string
	ServerURL string
	TabID     string
	Timeout   time.Duration
}

// BindStreamOptions joins args into the input text and reads the stream flags.
func BindStreamOptions(cmd *cobra.Command, args []string) (StreamOptions, error) {
	serverURL, _ := cmd.Flags().GetString("server")
	tabID, _ := cmd.Flags().GetString("tab")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	input := strings.Join(args, " ")
	if strings.TrimSpace(input) == "" {
		return StreamOptions{}, ErrInputRequired
	}
	if strings.TrimSpace(tabID) == "" {
		return StreamOptions{}, ErrTabRequired
	}

	return StreamOptions{
		Input:     input,
		ServerURL: serverURL,
		TabID:     tabID,
		Timeout:   timeout,
	}, nil
}
