package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// NewLogger returns a configured slog.Logger based on configuration. When
// LOG_FILE is set, records go to stdout and to a rotating file.
func NewLogger(cfg *Config) *slog.Logger {
	if InTestMode() {
		return newLogger(io.Discard, "pretty", "error")
	}
	var out io.Writer = os.Stdout
	format, level := "pretty", "info"
	if cfg != nil {
		format, level = cfg.LogFormat, cfg.LogLevel
		if cfg.LogFile != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err == nil {
				out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
					Filename:   cfg.LogFile,
					MaxSize:    logMaxSizeMB,
					MaxBackups: logMaxBackups,
					MaxAge:     logMaxAgeDays,
					Compress:   true,
				})
			}
		}
	}
	return newLogger(out, format, level)
}

func newLogger(out io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
