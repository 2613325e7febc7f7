// Package logging builds the slog loggers used by the appsched command.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Swind/go-app-scheduler/core"
)

// NewLogger returns a logger on stderr. Apps may print to stdout, so log
// lines stay on a separate stream.
func NewLogger(level slog.Level, format string) *slog.Logger {
	return NewLoggerWithWriter(level, format, os.Stderr)
}

// NewLoggerWithWriter returns a logger on w. format is "json" or "text";
// anything else means text.
func NewLoggerWithWriter(level slog.Level, format string, w io.Writer) *slog.Logger {
	return slog.New(newHandler(w, format, &slog.HandlerOptions{Level: level}))
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ForComponent wraps l as a core.Logger tagged with component=name.
func ForComponent(l *slog.Logger, name string) core.Logger {
	if l == nil {
		l = slog.Default()
	}
	return core.NewSlogLogger(l.With("component", name))
}

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel maps a config level name to slog.Level, case-insensitively.
// Unknown names log at info.
func ParseLevel(s string) slog.Level {
	if level, ok := levels[strings.ToLower(s)]; ok {
		return level
	}
	return slog.LevelInfo
}
