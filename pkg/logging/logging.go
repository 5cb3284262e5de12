// pkg/logging/logging.go
package logging

import (
	"fmt"
	"io"
	stdLog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// logWriter stores the current log writer globally
	logWriter io.Writer = os.Stderr
)

// stdLogWriter reformats stdlog output (net/http server errors and the like)
// into zerolog events.
type stdLogWriter struct {
	logger zerolog.Logger
}

func (w *stdLogWriter) Write(p []byte) (n int, err error) {
	message := strings.TrimSuffix(string(p), "\n")

	// Example stdlog output: "2025/05/23 14:40:15 server.go:3195: http: TLS handshake error"
	parts := strings.SplitN(message, " ", 4)
	if len(parts) >= 4 {
		stdTime, err := time.Parse("2006/01/02 15:04:05", parts[0]+" "+parts[1])
		if err == nil {
			w.logger.Debug().
				Str("file", strings.TrimSuffix(parts[2], ":")).
				Time("time", stdTime).
				Msg(parts[3])
			return len(p), nil
		}
	}

	w.logger.Debug().Msg(message)
	return len(p), nil
}

// init installs a quiet default logger until ConfigureGlobalLogging runs.
func init() {
	log.Logger = zerolog.New(consoleWriter(logWriter)).With().Timestamp().Logger().Level(zerolog.ErrorLevel)
}

// ConfigureGlobalLogging configures the global logger from the log section of
// the configuration. format is "json" or "text". When file is non-empty log
// output is appended to it and the returned closer must be closed on exit.
func ConfigureGlobalLogging(levelStr, format, file string) (io.Closer, error) {
	level := parseLogLevel(levelStr)

	var closer io.Closer = nopCloser{}
	out := getLogWriter()
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", file, err)
		}
		out, closer = f, f
	}

	ConfigureGlobal(level, newWriter(out, format))
	return closer, nil
}

// ConfigureGlobal sets the global level and replaces log.Logger. With no
// writer the current log writer is used in text format.
func ConfigureGlobal(level zerolog.Level, w ...io.Writer) {
	zerolog.SetGlobalLevel(level)

	out := io.Writer(consoleWriter(getLogWriter()))
	if len(w) > 0 && w[0] != nil {
		out = w[0]
	}

	logContext := zerolog.New(out).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logContext = logContext.Caller()
	}

	log.Logger = logContext.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	stdLog.SetFlags(0)
	stdLog.SetOutput(&stdLogWriter{logger: WithLevelOverride(log.Logger, zerolog.DebugLevel)})
}

// NewLogger returns a logger tagged with component that writes to the
// global log writer.
func NewLogger(component string, level zerolog.Level) zerolog.Logger {
	return NewLoggerWithWriter(component, level, getLogWriter())
}

// NewLoggerWithWriter returns a JSON logger tagged with component.
func NewLoggerWithWriter(component string, level zerolog.Level, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(levelString string) zerolog.Level {
	if levelString == "" {
		levelString = "info"
	}

	level, err := zerolog.ParseLevel(strings.ToLower(levelString))
	if err != nil {
		log.Error().Err(err).
			Str("logLevel", levelString).
			Msg("Invalid log level provided. Defaulting to info level.")
		return zerolog.InfoLevel
	}
	return level
}

func newWriter(out io.Writer, format string) io.Writer {
	if strings.EqualFold(format, "json") {
		return out
	}
	return consoleWriter(out)
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// getLogWriter returns the configured log writer
func getLogWriter() io.Writer {
	return logWriter
}

// SetLogWriter sets the global log writer
func SetLogWriter(w io.Writer) {
	logWriter = w
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// LevelOverrideHook assigns a level to NoLevel events and drops everything
// below a minimum severity.
type LevelOverrideHook struct {
	minSeverity zerolog.Level
	targetLevel zerolog.Level
}

// NewLevelOverrideHook creates a new LevelOverrideHook instance.
func NewLevelOverrideHook(minSeverity, targetLevel zerolog.Level) *LevelOverrideHook {
	return &LevelOverrideHook{
		minSeverity: minSeverity,
		targetLevel: targetLevel,
	}
}

// Run implements zerolog.Hook.
func (h LevelOverrideHook) Run(e *zerolog.Event, currentLevel zerolog.Level, _ string) {
	if h.minSeverity > h.targetLevel {
		e.Discard()
		return
	}

	if currentLevel == zerolog.NoLevel {
		e.Str("level", h.targetLevel.String())
	}
}

// WithLevelOverride configures a logger to handle NoLevel events and level filtering.
func WithLevelOverride(logger zerolog.Logger, targetLevel zerolog.Level) zerolog.Logger {
	return logger.Hook(NewLevelOverrideHook(logger.GetLevel(), targetLevel))
}
