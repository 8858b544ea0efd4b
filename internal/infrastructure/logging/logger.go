package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/graydb/internal/infrastructure/config"
)

const serviceName = "graydb"

// Logger is a slog.Logger carrying the service and version fields.
//
// It satisfies dbal.Logger, so a *Logger can be handed straight to
// dbal.WithLogger. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to stdout, or to stderr when cfg.Output
// says so.
func New(cfg config.LoggingConfig, version string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(out, cfg, version)
}

// NewWithWriter creates a Logger writing to w; cfg.Output is ignored.
//
// The CLI keeps query results on stdout and diagnostics on stderr with it;
// tests use it to capture entries.
//
// Parameters:
//   - w: Destination for log entries
//   - cfg: Level and format ("json" unless "text")
//   - version: Value of the version field
//
// Returns:
//   - *Logger: Configured logger ready for use
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{slog.New(h).With("service", serviceName, "version", version)}
}

// parseLevel accepts anything slog.Level understands ("warn", "DEBUG+2")
// plus "warning". Unknown levels fall back to info.
func parseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// With returns a Logger with extra default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// ForDriver tags entries from one database connection:
//
//	log.ForDriver("sqlite3").Warn("attribute rejected")
//	// ... component=dbal driver=sqlite3
func (l *Logger) ForDriver(driver string) *Logger {
	return l.With("component", "dbal", "driver", driver)
}

// Default is the logger used before configuration is loaded: JSON on
// stderr at info.
func Default() *Logger {
	return NewWithWriter(os.Stderr, config.LoggingConfig{Level: "info"}, "dev")
}

// Discard drops every entry.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}
