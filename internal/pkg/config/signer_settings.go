package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by InitializeSignerConfig when a value is not configured.
const (
	DefaultLockTimeout           = 30 * time.Second
	DefaultDeviceRefreshInterval = 60 * time.Second
	DefaultPort                  = "5500"
)

// SignerSettings tunes the signing coordinator.
type SignerSettings struct {
	// LockTimeout bounds how long an operation waits for its token's slot.
	LockTimeout time.Duration `mapstructure:"lock_timeout" validate:"gt=0"`
	// DeviceRefreshInterval is the reconcile period. Zero disables it.
	DeviceRefreshInterval time.Duration `mapstructure:"device_refresh_interval" validate:"min=0"`
	// CertValidity is the lifetime of certificates issued by SignCertificate.
	CertValidity time.Duration `mapstructure:"cert_validity" validate:"min=0"`
}

// Validate checks that all fields in SignerSettings are valid
func (s *SignerSettings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for SignerSettings: %w", err)
	}
	return nil
}
