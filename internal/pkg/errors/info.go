package errors

// Info contains details of the specific error code
type Info struct {
	// Kind specifies the kind of error (unknown, parameter, not found, etc).
	Kind Kind

	// Fault is the stable, caller-visible fault code.
	Fault string

	// Translation is the default localization key. It is overridden per
	// error with WithTranslation.
	Translation string
}

// errorCodeInfo provides a map of unique Codes (IDs) to their
// corresponding Kind, fault code and default translation code.
var errorCodeInfo = map[Code]Info{
	Unknown: {
		Kind:  Other,
		Fault: "Signer.UnknownError",
	},
	InternalError: {
		Kind:  Internal,
		Fault: "Signer.InternalError",
	},
	InvalidParameter: {
		Kind:        Parameter,
		Fault:       "Signer.InvalidParameter",
		Translation: "invalid_parameter",
	},
	TokenNotFound: {
		Kind:        NotFound,
		Fault:       "Signer.TokenNotFound",
		Translation: "token_not_found",
	},
	KeyNotFound: {
		Kind:        NotFound,
		Fault:       "Signer.KeyNotFound",
		Translation: "key_not_found",
	},
	CertNotFound: {
		Kind:        NotFound,
		Fault:       "Signer.CertNotFound",
		Translation: "cert_with_id_not_found",
	},
	CsrNotFound: {
		Kind:        NotFound,
		Fault:       "Signer.CsrNotFound",
		Translation: "csr_not_found",
	},
	WrongCertUsage: {
		Kind:        Parameter,
		Fault:       "Signer.WrongCertUsage",
		Translation: "wrong_cert_usage",
	},
	AuthFailed: {
		Kind:        Auth,
		Fault:       "Signer.AuthenticationFailed",
		Translation: "pin_incorrect",
	},
	AlreadyInitialized: {
		Kind:        Conflict,
		Fault:       "Signer.TokenAlreadyInitialized",
		Translation: "token_already_initialized",
	},
	TokenNotActive: {
		Kind:        State,
		Fault:       "Signer.TokenNotActive",
		Translation: "token_not_active",
	},
	TokenNotAvailable: {
		Kind:        State,
		Fault:       "Signer.TokenNotAvailable",
		Translation: "token_not_available",
	},
	KeyInUse: {
		Kind:        Conflict,
		Fault:       "Signer.KeyInUse",
		Translation: "key_in_use",
	},
	CertificateExists: {
		Kind:        Conflict,
		Fault:       "Signer.CertificateExists",
		Translation: "certificate_already_exists",
	},
	CannotSign: {
		Kind:  Internal,
		Fault: "Signer.CannotSign.InternalError",
	},
	Timeout: {
		Kind:        Timeouts,
		Fault:       "Signer.Timeout",
		Translation: "timeout",
	},
}
