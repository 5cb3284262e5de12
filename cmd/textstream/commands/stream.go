package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/textstream/textstream/cmd/textstream/internal/bind"
	"github.com/textstream/textstream/cmd/textstream/internal/format"
	"github.com/textstream/textstream/pkg/client"
	"github.com/textstream/textstream/pkg/server/hub"
	"github.com/textstream/textstream/pkg/server/jobs"
)

// cancelGrace bounds the wait for ProcessingCancelled after a cancel request.
const cancelGrace = 10 * time.Second

func newStreamCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream <text>...",
		Short: "Submit text to a server and print the result as it streams",
		Long: `Connect to a running server, submit the text as a job for one tab and print
each character of the encoded result as it arrives. Ctrl+C cancels the job.`,
		Example: `  textstream stream Hello
  textstream stream --server http://10.0.0.5:5000 --tab docs "some longer text"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			opts, err := bind.BindStreamOptions(cmd, args)
			if err != nil {
				_ = formatter.PrintError(err)
				return format.Reported(err)
			}

			c, err := client.New(opts.ServerURL)
			if err != nil {
				_ = formatter.PrintError(err)
				return format.Reported(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}

			out := cmd.OutOrStdout()
			if formatter.IsJSON() {
				out = io.Discard
			}
			status := newStatusPrinter(cmd.ErrOrStderr(), formatter.IsJSON())

			res, err := runStream(ctx, c, opts, out, status)
			if err != nil {
				_ = formatter.PrintError(err)
				return format.Reported(err)
			}

			if formatter.IsJSON() {
				return formatter.PrintJSON(res)
			}
			return nil
		},
	}

	cmd.Flags().String("server", "http://127.0.0.1:5000", "Server base URL")
	cmd.Flags().String("tab", "cli", "Tab id the job is registered under")
	cmd.Flags().Duration("timeout", 0, "Cancel the job after this long (0 waits forever)")

	return cmd
}

type streamResult struct {
	JobID   string        `json:"jobId"`
	Output  string        `json:"output"`
	Length  int           `json:"length"`
	Outcome string        `json:"outcome"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// runStream connects, starts the job and copies ReceiveCharacter payloads to
// out until a terminal event. When ctx ends first the job is cancelled and
// the cancellation event is awaited.
func runStream(ctx context.Context, c *client.Client, opts bind.StreamOptions, out io.Writer, status *statusPrinter) (streamResult, error) {
	started := time.Now()

	stream, err := c.Connect(ctx)
	if err != nil {
		return streamResult{}, err
	}
	defer func() { _ = stream.Close() }()

	frames := make(chan hub.Frame)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			f, err := stream.Next()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- f:
			case <-done:
				return
			}
		}
	}()

	session := stream.Session(opts.TabID)
	jobID, err := c.Start(ctx, opts.Input, session)
	if err != nil {
		return streamResult{}, fmt.Errorf("start job: %w", err)
	}

	res := streamResult{JobID: jobID}
	var output strings.Builder
	var grace <-chan time.Time
	stopping := ctx.Done()

	for {
		select {
		case <-stopping:
			stopping = nil
			status.info("Cancelling job %s", jobID)
			cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, cerr := c.Cancel(cancelCtx, session)
			cancel()
			if cerr != nil {
				return res, fmt.Errorf("cancel job: %w", cerr)
			}
			grace = time.After(cancelGrace)

		case <-grace:
			return res, fmt.Errorf("job %s did not confirm cancellation within %s", jobID, cancelGrace)

		case err := <-readErr:
			return res, fmt.Errorf("push connection lost: %w", err)

		case f := <-frames:
			if f.TabID != opts.TabID || (f.JobID != "" && f.JobID != jobID) {
				continue
			}
			switch jobs.EventName(f.Event) {
			case jobs.EventJobStarted:
				status.info("Job %s started", jobID)
			case jobs.EventOutputLength:
				res.Length = cast.ToInt(f.Data)
				status.info("Streaming %d characters", res.Length)
			case jobs.EventReceiveCharacter:
				ch := cast.ToString(f.Data)
				output.WriteString(ch)
				_, _ = io.WriteString(out, ch)
			case jobs.EventComplete, jobs.EventCancelled:
				_, _ = io.WriteString(out, "\n")
				res.Output = output.String()
				res.Elapsed = time.Since(started)
				if f.Event == string(jobs.EventComplete) {
					res.Outcome = "completed"
					status.success("Completed in %s", res.Elapsed.Round(time.Millisecond))
				} else {
					res.Outcome = "cancelled"
					status.warn("Cancelled after %d of %d characters", len([]rune(res.Output)), res.Length)
				}
				return res, nil
			}
		}
	}
}

// statusPrinter writes styled progress lines next to the streamed output.
type statusPrinter struct {
	w       io.Writer
	quiet   bool
	plain   lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
}

func newStatusPrinter(w io.Writer, quiet bool) *statusPrinter {
	r := lipgloss.NewRenderer(w)
	return &statusPrinter{
		w:       w,
		quiet:   quiet,
		plain:   r.NewStyle().Foreground(lipgloss.Color("75")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (p *statusPrinter) line(style lipgloss.Style, msg string, args ...any) {
	if p == nil || p.quiet || p.w == nil {
		return
	}
	_, _ = fmt.Fprintln(p.w, style.Render(fmt.Sprintf(msg, args...)))
}

func (p *statusPrinter) info(msg string, args ...any)    { p.line(p.plain, msg, args...) }
func (p *statusPrinter) success(msg string, args ...any) { p.line(p.ok, msg, args...) }
func (p *statusPrinter) warn(msg string, args ...any)    { p.line(p.warning, msg, args...) }
