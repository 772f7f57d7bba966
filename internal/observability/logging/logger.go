package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide logger. The service attribute keeps
// api and worker lines distinguishable once both ship into one pipeline. A
// level string that parses to nothing falls back to info and says so, since
// a misspelled LOG_LEVEL would otherwise silently change verbosity.
func NewJSONLogger(service, level string) *slog.Logger {
	parsed, known := parseLevel(level)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parsed,
	})
	logger := slog.New(handler).With("service", service)
	if !known {
		logger.Warn("unknown_log_level", "value", level, "fallback", "info")
	}
	return logger
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
