package utils

import (
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
// Unknown levels fall back to info.
func NewLogger(level string, json bool) *slog.Logger {
	handlerLevel, ok := levelNames[strings.ToLower(level)]
	if !ok {
		handlerLevel = slog.LevelInfo
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: handlerLevel})
	}

	return slog.New(handler)
}

// ErrAttr wraps an error as a slog attribute under the conventional "error" key.
func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}
