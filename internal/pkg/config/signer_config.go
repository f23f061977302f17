package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SignerConfig is the root configuration of the signer service and CLI.
type SignerConfig struct {
	Port          string                `mapstructure:"port"`
	Logger        LoggerSettings        `mapstructure:"logger"`
	Database      DatabaseSettings      `mapstructure:"database"`
	SoftwareToken SoftwareTokenSettings `mapstructure:"software_token"`
	PKCS11        PKCS11Settings        `mapstructure:"pkcs11"`
	Signer        SignerSettings        `mapstructure:"signer"`
}

// Validate checks every settings section.
func (c *SignerConfig) Validate() error {
	validators := []interface{ Validate() error }{
		&c.Logger,
		&c.Database,
		&c.SoftwareToken,
		&c.PKCS11,
		&c.Signer,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InitializeSignerConfig reads the YAML file at path, applies SIGNER_*
// environment overrides (e.g. SIGNER_DATABASE_DSN) and validates the result.
func InitializeSignerConfig(path string) (*SignerConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SIGNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg SignerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("logger.log_level", LogLevelInfo)
	v.SetDefault("logger.log_type", LogTypeConsole)
	v.SetDefault("database.type", SqliteDbType)
	v.SetDefault("database.name", "signer")
	v.SetDefault("software_token.algorithm", "RSA")
	v.SetDefault("software_token.key_size", 2048)
	v.SetDefault("signer.lock_timeout", DefaultLockTimeout)
	v.SetDefault("signer.device_refresh_interval", DefaultDeviceRefreshInterval)
	v.SetDefault("signer.cert_validity", 20*365*24*time.Hour)
}
