// Package util provides shared helpers for logging and rate limiting.
package util

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"quantlab/internal/config"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Unrecognised strings default to info.
func ParseLevel(level string) slog.Level {
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

// NewLogger creates a structured logger writing to out. Format "text"
// selects slog's text handler; anything else is JSON.
func NewLogger(out io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

// NewLoggerFromConfig builds the service logger. Output always goes to
// stdout; when cfg.File is set it is also written to a rotating file. The
// returned close function releases the file and is safe to call when no
// file is configured.
func NewLoggerFromConfig(cfg config.Logging) (*slog.Logger, func() error) {
	if cfg.File == "" {
		return NewLogger(os.Stdout, cfg.Level, cfg.Format), func() error { return nil }
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	w := io.MultiWriter(os.Stdout, rotator)
	return NewLogger(w, cfg.Level, cfg.Format), rotator.Close
}
