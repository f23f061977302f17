package signer

// TokenType distinguishes hardware (PKCS#11) tokens from the software token.
type TokenType string

// Token types
const (
	TokenTypeSoftware TokenType = "software"
	TokenTypeHardware TokenType = "hardware"
)

// SoftwareTokenID is the stable ID of the single software token.
const SoftwareTokenID = "0"

// TokenState is the activation state of a token.
type TokenState string

// Token states
const (
	TokenStateUninitialized TokenState = "UNINITIALIZED"
	// TokenStateInitialized means the token is initialized but logged out.
	TokenStateInitialized TokenState = "INITIALIZED"
	TokenStateActive      TokenState = "ACTIVE"
	TokenStateUnknown     TokenState = "UNKNOWN"
)

// PinState reports the outcome of the last PIN verification.
type PinState string

// PIN states
const (
	PinStateOK        PinState = "OK"
	PinStateIncorrect PinState = "INCORRECT"
	PinStateFinalTry  PinState = "FINAL_TRY"
	PinStateLocked    PinState = "LOCKED"
)

// KeyUsage restricts which certificates a key may carry.
type KeyUsage string

// Key usages. The empty usage is unrestricted.
const (
	KeyUsageUnrestricted   KeyUsage = ""
	KeyUsageSigning        KeyUsage = "SIGNING"
	KeyUsageAuthentication KeyUsage = "AUTHENTICATION"
)

// CertStatus is the registration status of a certificate.
type CertStatus string

// Certificate statuses. Devices may report other values.
const (
	CertStatusSaved         CertStatus = "saved"
	CertStatusRegInProgress CertStatus = "registration in progress"
	CertStatusRegistered    CertStatus = "registered"
	CertStatusDelInProgress CertStatus = "deletion in progress"
	CertStatusDeleted       CertStatus = "deleted"
)

// CertRequestFormat is the encoding of a generated PKCS#10 request.
type CertRequestFormat string

// Certificate request formats
const (
	CertRequestFormatPEM CertRequestFormat = "PEM"
	CertRequestFormatDER CertRequestFormat = "DER"
)
