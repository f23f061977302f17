package errors

// Code specifies a code for the error.
type Code uint32

// String will return the Code's Info.Fault
func (c Code) String() string {
	return c.Info().Fault
}

// Info will look up the Code's Info. If the Info is not found, it will return
// Info for an Unknown Code.
func (c Code) Info() Info {
	if info, ok := errorCodeInfo[c]; ok {
		return info
	}
	return errorCodeInfo[Unknown]
}

const (
	Unknown Code = 0 // Unknown will be equal to a zero value for Codes

	InternalError      Code = 1
	InvalidParameter   Code = 2
	TokenNotFound      Code = 3
	KeyNotFound        Code = 4
	CertNotFound       Code = 5
	CsrNotFound        Code = 6
	WrongCertUsage     Code = 7
	AuthFailed         Code = 8
	AlreadyInitialized Code = 9
	TokenNotActive     Code = 10
	TokenNotAvailable  Code = 11
	KeyInUse           Code = 12
	CertificateExists  Code = 13
	CannotSign         Code = 14
	Timeout            Code = 15
)
