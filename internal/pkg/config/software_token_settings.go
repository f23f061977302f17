package config

import (
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/pkg/validators"
	"github.com/go-playground/validator/v10"
)

// SoftwareTokenSettings configures the PIN-protected keystore on disk.
type SoftwareTokenSettings struct {
	Enabled bool `mapstructure:"enabled"`
	// Directory holds the PIN verifier and the encrypted key files.
	Directory string `mapstructure:"directory" validate:"required_if=Enabled true"`
	Algorithm string `mapstructure:"algorithm" validate:"omitempty,oneof=RSA ECDSA"`
	KeySize   uint32 `mapstructure:"key_size" validate:"omitempty,keySizeValidation"`
	// PinMaxAttempts locks the token after that many wrong PINs. Zero
	// means unlimited.
	PinMaxAttempts int `mapstructure:"pin_max_attempts" validate:"min=0"`
}

// Validate checks that all fields in SoftwareTokenSettings are valid
func (s *SoftwareTokenSettings) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("keySizeValidation", validators.KeySizeValidation); err != nil {
		return fmt.Errorf("failed to register key size validation: %w", err)
	}

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for SoftwareTokenSettings: %w", err)
	}
	return nil
}
