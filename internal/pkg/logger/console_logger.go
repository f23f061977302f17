package logger

import (
	"log/slog"
	"os"
)

// ConsoleLogger writes text records to stdout.
type ConsoleLogger struct {
	slogLogger
}

// NewConsoleLogger creates a new console logger with the specified log level.
func NewConsoleLogger(level string) Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &ConsoleLogger{slogLogger{logger: slog.New(handler)}}
}
