// Package logging is the relay's process-wide fallback logger: a thin
// slog wrapper for the call sites (CLI startup, config reload, the
// relay's own internal debug trace) that don't carry a component-
// scoped *slog.Logger of their own the way the audit logger and
// reaper do.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil)).With("component", "cdprelay")

// SetOutput swaps the underlying handler, so a caller (tests, or a
// server wanting JSON logs) can redirect or reformat output.
func SetOutput(h slog.Handler) {
	logger = slog.New(h).With("component", "cdprelay")
}

// Info logs an info-level message.
func Info(v ...any) {
	logger.Info(fmt.Sprint(v...))
}

// Infof logs a formatted info-level message.
func Infof(format string, v ...any) {
	logger.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs a formatted error.
func Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...))
}

// Debugf logs a formatted debug-level message.
func Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(format, v...))
}
