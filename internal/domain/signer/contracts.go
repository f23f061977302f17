package signer

import (
	"context"
	"time"
)

// TokenService manages token lifecycle and activation.
type TokenService interface {
	// ListTokens returns every known token ordered by ID. Device status
	// failures are reported as TokenStateUnknown.
	ListTokens(ctx context.Context) ([]TokenInfo, error)
	GetToken(ctx context.Context, tokenID string) (*TokenInfo, error)
	GetTokenForKeyID(ctx context.Context, keyID string) (*TokenInfo, error)
	GetTokenAndKeyIDForCertRequestID(ctx context.Context, csrID string) (*TokenInfoAndKeyID, error)

	// InitSoftwareToken sets the PIN of the uninitialized software token.
	InitSoftwareToken(ctx context.Context, pin string) error
	ActivateToken(ctx context.Context, tokenID, pin string) error
	// DeactivateToken logs the token out. Deactivating an inactive token
	// succeeds.
	DeactivateToken(ctx context.Context, tokenID string) error
	UpdateTokenPin(ctx context.Context, tokenID, oldPin, newPin string) error
	SetTokenFriendlyName(ctx context.Context, tokenID, name string) error
	IsHSMOperational(ctx context.Context) (bool, error)
}

// KeyService manages keys on tokens.
type KeyService interface {
	GenerateKey(ctx context.Context, tokenID, label string) (*KeyInfo, error)
	SetKeyFriendlyName(ctx context.Context, keyID, name string) error
	// DeleteKey removes the key from its device and the registry. Without
	// force it refuses keys that still carry an active certificate.
	DeleteKey(ctx context.Context, keyID string, force bool) error
	GetSignMechanism(ctx context.Context, keyID string) (string, error)
	IsTokenBatchSigningEnabled(ctx context.Context, keyID string) (bool, error)
	FindKey(ctx context.Context, tokenFriendlyName, keyFriendlyName string) (*KeyInfo, error)
}

// CertService manages certificates and certificate requests.
type CertService interface {
	GenerateCertRequest(ctx context.Context, params CertRequestParams) (*GeneratedCertRequest, error)
	RegenerateCertRequest(ctx context.Context, csrID string, format CertRequestFormat) (*GeneratedCertRequest, error)
	DeleteCertRequest(ctx context.Context, csrID string) error
	// GenerateSelfSignedCert returns the DER certificate and attaches it to
	// the key.
	GenerateSelfSignedCert(ctx context.Context, params SelfSignedCertParams) ([]byte, error)
	// ImportCert attaches a certificate to the key holding its public key
	// and returns that key's ID.
	ImportCert(ctx context.Context, cert []byte, initialStatus CertStatus, memberID *MemberID) (string, error)
	ActivateCert(ctx context.Context, certID string) error
	DeactivateCert(ctx context.Context, certID string) error
	DeleteCert(ctx context.Context, certID string) error
	SetCertStatus(ctx context.Context, certID string, status CertStatus) error
	GetCertForHash(ctx context.Context, hash string) (*CertificateInfo, error)
	GetKeyIDForCertHash(ctx context.Context, hash string) (*KeyIDInfo, error)
	GetTokenAndKeyIDForCertHash(ctx context.Context, hash string) (*TokenInfoAndKeyID, error)
	GetMemberCerts(ctx context.Context, memberID MemberID) ([]CertificateInfo, error)
}

// SigningService signs digests and issues certificates with registered keys.
type SigningService interface {
	Sign(ctx context.Context, keyID, algorithmID string, digest []byte) ([]byte, error)
	// SignCertificate issues a certificate over publicKey (PKIX DER) signed
	// by the key.
	SignCertificate(ctx context.Context, keyID, algorithmID, subjectName string, publicKey []byte) ([]byte, error)
}

// OcspService caches OCSP responses by certificate hash.
type OcspService interface {
	// SetOcspResponses upserts responses[i] under hashes[i].
	SetOcspResponses(ctx context.Context, hashes []string, responses [][]byte) error
	// GetOcspResponses returns one slot per hash, nil when unknown.
	GetOcspResponses(ctx context.Context, hashes []string) ([][]byte, error)
}

// MemberService resolves the signing material of a member.
type MemberService interface {
	GetMemberSigningInfo(ctx context.Context, memberID MemberID) (*MemberSigningInfo, error)
}

// OcspResponse is a cached OCSP response.
type OcspResponse struct {
	CertHash   string
	Response   []byte
	NextUpdate *time.Time
}

// OcspRepository persists cached OCSP responses.
type OcspRepository interface {
	Upsert(ctx context.Context, responses []OcspResponse) error
	List(ctx context.Context) ([]OcspResponse, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
