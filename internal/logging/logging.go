package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a JSON slog.Logger writing to stdout at the given level.
func NewLogger(levelString string) *slog.Logger {
	return New(os.Stdout, levelString)
}

// New creates a JSON slog.Logger writing to w. Unknown levels fall back to info.
func New(w io.Writer, levelString string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(levelString),
	})
	return slog.New(handler)
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(levelString string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelString)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
