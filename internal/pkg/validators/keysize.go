package validators

import (
	"github.com/go-playground/validator/v10"
)

// KeySizeValidation validates the key size against the sibling Algorithm
// field (RSA or ECDSA) of a software token key template.
func KeySizeValidation(fl validator.FieldLevel) bool {
	algorithm := fl.Parent().FieldByName("Algorithm").String()
	keySize := fl.Field().Uint()

	switch algorithm {
	case "RSA":
		return keySize == 1024 || keySize == 2048 || keySize == 3072 || keySize == 4096
	case "ECDSA":
		return keySize == 256 || keySize == 384 || keySize == 521
	default:
		return false
	}
}
