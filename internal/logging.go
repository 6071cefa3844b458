package internal

import (
	"io"
	"log/slog"
	"strings"
)

// InitLogging installs a text handler writing to w as the process default
// logger. level is one of debug, info, warn or error; anything else means info.
// Commands that print results on stdout pass os.Stderr.
func InitLogging(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
