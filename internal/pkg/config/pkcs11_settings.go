package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// PKCS11ModuleSettings describes one vendor PKCS#11 library.
type PKCS11ModuleSettings struct {
	Name                string `mapstructure:"name" validate:"required"`
	LibraryPath         string `mapstructure:"library_path" validate:"required"`
	BatchSigningEnabled bool   `mapstructure:"batch_signing_enabled"`
	ReadOnly            bool   `mapstructure:"read_only"`
	// KeyLabelPrefix narrows key enumeration to objects created by the signer.
	KeyLabelPrefix string `mapstructure:"key_label_prefix"`
}

// PKCS11Settings lists the hardware modules to enumerate.
type PKCS11Settings struct {
	Modules []PKCS11ModuleSettings `mapstructure:"modules" validate:"dive"`
}

// Validate checks that all fields in PKCS11Settings are valid
func (s *PKCS11Settings) Validate() error {
	validate := validator.New()

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for PKCS11Settings: %w", err)
	}

	seen := make(map[string]struct{}, len(s.Modules))
	for _, m := range s.Modules {
		if _, ok := seen[m.Name]; ok {
			return fmt.Errorf("duplicate pkcs11 module name %q", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}
