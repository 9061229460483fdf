package render

import (
	"log/slog"
	"os"
)

// logLevel controls the log level for resource lifetime logging.
// Default is LevelInfo, which suppresses Debug messages.
var logLevel = new(slog.LevelVar)

// SetVerbose enables or disables debug logging of handle creation, release,
// and compile/link diagnostics.
// Call this from main() after parsing flags.
func SetVerbose(v bool) {
	if v {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelInfo)
	}
}

// Verbose reports whether debug logging is enabled.
func Verbose() bool {
	return logLevel.Level() <= slog.LevelDebug
}

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

// SetLogger replaces the logger used by the package.
// The handler should respect LogLevel if SetVerbose is to have any effect.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// LogLevel returns the level variable shared by the package logger.
func LogLevel() *slog.LevelVar {
	return logLevel
}
