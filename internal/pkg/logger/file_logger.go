package logger

import (
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLogger writes JSON records to a size-rotated file.
type FileLogger struct {
	slogLogger
	writer *lumberjack.Logger
}

// NewFileLogger creates a new file logger with rotation settings.
func NewFileLogger(level string, filePath string, maxSize int, maxBackups int, maxAge int) *FileLogger {
	writer := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return &FileLogger{
		slogLogger: slogLogger{logger: slog.New(handler)},
		writer:     writer,
	}
}

// Close closes the underlying log file.
func (l *FileLogger) Close() error {
	return l.writer.Close()
}
