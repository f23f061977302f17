package logger

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
)

var (
	loggerInstance Logger
	loggerErr      error
	loggerOnce     sync.Once
)

// constructors builds a logger per config.LoggerSettings.LogType.
var constructors = map[string]func(s *config.LoggerSettings) Logger{
	config.LogTypeConsole: func(s *config.LoggerSettings) Logger {
		return NewConsoleLogger(s.LogLevel)
	},
	config.LogTypeFile: func(s *config.LoggerSettings) Logger {
		return NewFileLogger(s.LogLevel, s.FilePath, s.MaxSize, s.MaxBackups, s.MaxAge)
	},
}

// InitLogger builds the process-wide logger from the logger section of the
// signer configuration. Only the first call takes effect.
func InitLogger(settings *config.LoggerSettings) error {
	loggerOnce.Do(func() {
		loggerInstance, loggerErr = newLogger(settings)
	})
	return loggerErr
}

// GetLogger returns the logger set up by InitLogger.
func GetLogger() (Logger, error) {
	if loggerInstance == nil {
		return nil, errors.New("logger not initialized: call InitLogger first")
	}
	return loggerInstance, nil
}

// CloseLogger flushes and closes the log file of a file logger. It is a
// no-op for console loggers and before InitLogger.
func CloseLogger() error {
	if c, ok := loggerInstance.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newLogger(s *config.LoggerSettings) (Logger, error) {
	if s == nil {
		return nil, errors.New("logger settings cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger settings: %w", err)
	}
	build, ok := constructors[s.LogType]
	if !ok {
		return nil, fmt.Errorf("unsupported log type: %s", s.LogType)
	}
	return build(s), nil
}
