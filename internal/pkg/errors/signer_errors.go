package errors

import "fmt"

// Translation codes that override a Code's default.
const (
	TranslationKeyNotFoundForCert     = "key_not_found_for_certificate"
	TranslationCertWithHashNotFound   = "certificate_with_hash_not_found"
	TranslationAuthCertUnderSoftToken = "auth_cert_under_softtoken"
	TranslationKeyUsageMismatch       = "key_usage_mismatch"
	TranslationPinLocked              = "pin_locked"
	TranslationMemberTokenNotActive   = "member_token_not_active"
	TranslationMemberHasNoCert        = "member_has_no_certificate"
)

// ErrTokenNotFound reports an unknown token ID.
func ErrTokenNotFound(op Op, tokenID string) error {
	return New(TokenNotFound, op, fmt.Sprintf("Token '%s' not found", tokenID))
}

// ErrKeyNotFound reports an unknown key ID.
func ErrKeyNotFound(op Op, keyID string) error {
	return New(KeyNotFound, op, fmt.Sprintf("Key '%s' not found", keyID))
}

// ErrCertNotFound reports an unknown certificate ID.
func ErrCertNotFound(op Op, certID string) error {
	return New(CertNotFound, op, fmt.Sprintf("Certificate with id '%s' not found", certID))
}

// ErrCertWithHashNotFound reports that no active certificate has the hash.
func ErrCertWithHashNotFound(op Op, hash string) error {
	return New(CertNotFound, op, fmt.Sprintf("Certificate with hash '%s' not found", hash),
		WithTranslation(TranslationCertWithHashNotFound))
}

// ErrCsrNotFound reports an unknown certificate request ID.
func ErrCsrNotFound(op Op, csrID string) error {
	return New(CsrNotFound, op, fmt.Sprintf("Certificate request '%s' not found", csrID))
}

// ErrTokenNotActive reports a token that must be logged in first.
func ErrTokenNotActive(op Op, tokenID string) error {
	return New(TokenNotActive, op, fmt.Sprintf("Token '%s' not active", tokenID))
}

// ErrTokenNotAvailable reports a token whose device is absent.
func ErrTokenNotAvailable(op Op, tokenID string) error {
	return New(TokenNotAvailable, op, fmt.Sprintf("Token '%s' not available", tokenID))
}
