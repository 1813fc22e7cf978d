package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wrenfold/bulbsync/internal/infrastructure/config"
)

// Logger wraps slog.Logger with bulbsync-specific functionality.
//
// Every logger created by New carries the service identity and build
// version as default attributes, and shares a mutable level so verbosity
// can be raised at runtime without rebuilding handlers.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a new Logger with the given configuration.
//
// Output format is JSON by default (text for development), writing to
// stdout unless stderr is configured. The service name and version are
// attached to every record.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version for the default version attribute
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	level := &slog.LevelVar{}
	level.Set(parseLevel(cfg.Level))

	handler := buildHandler(cfg, level).WithAttrs([]slog.Attr{
		slog.String("service", "bulbsync"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
	}
}

// buildHandler constructs the slog handler for the configured format
// and output destination.
func buildHandler(cfg config.LoggingConfig, level slog.Leveler) slog.Handler {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(output, opts)
	}
	return slog.NewJSONHandler(output, opts)
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn, error
// Defaults to info if unrecognised.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level at runtime. The change applies to
// this logger and every Component/With child derived from it, since
// they share the underlying level variable.
func (l *Logger) SetLevel(level string) {
	if l.level != nil {
		l.level.Set(parseLevel(level))
	}
}

// Component returns a child logger tagged with the given subsystem
// name. Every subsystem wired in cmd/bulbsyncd gets its own component
// tag so records can be filtered per subsystem.
//
// Example:
//
//	poller.SetLogger(log.Component("poller"))
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// With returns a new Logger with additional default attributes.
//
// Parameters:
//   - args: Key-value pairs to add as default attributes
//
// Returns:
//   - *Logger: New logger with added attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
	}
}

// Default creates a default logger for use before configuration is loaded.
//
// This logger outputs to stdout in JSON format at info level.
// It should only be used during early startup before config is available.
//
// Returns:
//   - *Logger: Default logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
