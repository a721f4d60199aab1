package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel selects the log level: debug, info, warn, error or off.
const EnvLogLevel = "ETL_LOG_LEVEL"

// levelOff is above every level slog emits.
const levelOff = slog.Level(100)

// Initialize installs the job logger as the slog default.
func Initialize(name string) {
	slog.SetDefault(NewLogger(os.Stderr, name))
}

// NewLogger returns a text logger writing to w, tagged with the job name as source.
func NewLogger(w io.Writer, name string) *slog.Logger {
	level := getLogLevel()
	if level == levelOff {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("source", name)
}

func getLogLevel() slog.Level {
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off":
		return levelOff
	default:
		return slog.LevelInfo
	}
}
