//go:build unit
// +build unit

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
)

func resetLoggerSingleton() {
	loggerInstance = nil
	loggerErr = nil
	loggerOnce = sync.Once{}
}

// loadSignerConfig writes yaml as the signer configuration file and loads it.
func loadSignerConfig(t *testing.T, yaml string) *config.SignerConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	cfg, err := config.InitializeSignerConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestInitLogger_FromSignerConfig(t *testing.T) {
	logDir := t.TempDir()
	logPath := filepath.Join(logDir, "signer.log")

	tests := []struct {
		name     string
		yaml     string
		env      map[string]string
		wantFile bool
		logged   []string
		dropped  []string
	}{
		{
			name: "defaults to console",
			yaml: "database:\n  dsn: \":memory:\"\n",
		},
		{
			name: "rotating file",
			yaml: fmt.Sprintf(`
logger:
  log_level: debug
  log_type: file
  file_path: %s
  max_size: 10
  max_backups: 3
  max_age: 28
database:
  dsn: ":memory:"
`, logPath),
			wantFile: true,
			logged:   []string{"token 0 activated", "key k-1 generated"},
		},
		{
			name: "level overridden from environment",
			yaml: fmt.Sprintf(`
logger:
  log_type: file
  file_path: %s
  max_size: 10
  max_backups: 3
  max_age: 28
database:
  dsn: ":memory:"
`, filepath.Join(logDir, "warn.log")),
			env:      map[string]string{"SIGNER_LOGGER_LOG_LEVEL": config.LogLevelWarning},
			wantFile: true,
			logged:   []string{"key k-1 generated"},
			dropped:  []string{"token 0 activated"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetLoggerSingleton)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := loadSignerConfig(t, tt.yaml)

			require.NoError(t, InitLogger(&cfg.Logger))
			log, err := GetLogger()
			require.NoError(t, err)

			if !tt.wantFile {
				assert.IsType(t, &ConsoleLogger{}, log)
				assert.NoError(t, CloseLogger())
				return
			}

			require.IsType(t, &FileLogger{}, log)
			log.Info("token 0 activated")
			log.Warn("key k-1 generated")
			require.NoError(t, CloseLogger())

			content, err := os.ReadFile(cfg.Logger.FilePath)
			require.NoError(t, err)
			for _, msg := range tt.logged {
				assert.Contains(t, string(content), `"msg":"`+msg+`"`)
			}
			for _, msg := range tt.dropped {
				assert.NotContains(t, string(content), msg)
			}
		})
	}
}

func TestInitLogger_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings *config.LoggerSettings
	}{
		{name: "nil settings"},
		{name: "unknown level", settings: &config.LoggerSettings{LogLevel: "verbose", LogType: config.LogTypeConsole}},
		{name: "unknown type", settings: &config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: "syslog"}},
		{name: "file without rotation", settings: &config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeFile, FilePath: "/tmp/signer.log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetLoggerSingleton)

			err := InitLogger(tt.settings)
			require.Error(t, err)

			log, getErr := GetLogger()
			assert.Error(t, getErr)
			assert.Nil(t, log)

			// the failure sticks for the lifetime of the process
			assert.Equal(t, err, InitLogger(&config.LoggerSettings{LogLevel: config.LogLevelInfo, LogType: config.LogTypeConsole}))
		})
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	t.Cleanup(resetLoggerSingleton)

	log, err := GetLogger()
	assert.Nil(t, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
	assert.NoError(t, CloseLogger())
}

func TestInitLogger_FirstCallWins(t *testing.T) {
	t.Cleanup(resetLoggerSingleton)

	require.NoError(t, InitLogger(&config.LoggerSettings{LogLevel: config.LogLevelError, LogType: config.LogTypeConsole}))
	first, err := GetLogger()
	require.NoError(t, err)

	require.NoError(t, InitLogger(&config.LoggerSettings{
		LogLevel:   config.LogLevelDebug,
		LogType:    config.LogTypeFile,
		FilePath:   filepath.Join(t.TempDir(), "ignored.log"),
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}))
	second, err := GetLogger()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.IsType(t, &ConsoleLogger{}, second)
}

func TestParseLevel(t *testing.T) {
	for level, want := range levels {
		assert.Equal(t, want, parseLevel(level), level)
	}
	assert.Equal(t, parseLevel(config.LogLevelInfo), parseLevel("unknown"))
}
