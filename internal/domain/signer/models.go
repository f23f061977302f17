package signer

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// TokenInfo is a read-only view of a token and the keys it holds, ordered by
// key ID.
type TokenInfo struct {
	ID                  string     `json:"id"`
	Type                TokenType  `json:"type"`
	FriendlyName        string     `json:"friendlyName"`
	Label               string     `json:"label"`
	SerialNumber        string     `json:"serialNumber"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	Model               string     `json:"model,omitempty"`
	State               TokenState `json:"state"`
	PinState            PinState   `json:"pinState"`
	Available           bool       `json:"available"`
	ReadOnly            bool       `json:"readOnly"`
	BatchSigningEnabled bool       `json:"batchSigningEnabled"`
	Keys                []KeyInfo  `json:"keys"`
}

// IsActive reports whether the token is logged in.
func (t *TokenInfo) IsActive() bool {
	return t.State == TokenStateActive
}

// KeyInfo is a read-only view of a key with its certificates and pending
// certificate requests.
type KeyInfo struct {
	ID            string            `json:"id"`
	TokenID       string            `json:"tokenId"`
	FriendlyName  string            `json:"friendlyName"`
	Label         string            `json:"label"`
	Usage         KeyUsage          `json:"usage,omitempty"`
	SignMechanism string            `json:"signMechanism"`
	PublicKey     []byte            `json:"publicKey,omitempty"`
	Available     bool              `json:"available"`
	Certs         []CertificateInfo `json:"certs"`
	CertRequests  []CertRequestInfo `json:"certRequests"`
}

// CanSign reports whether certificates on the key may be used for signing.
func (k *KeyInfo) CanSign() bool {
	return k.Usage == KeyUsageSigning || k.Usage == KeyUsageUnrestricted
}

// CertificateInfo describes a certificate attached to a key.
type CertificateInfo struct {
	ID                   string     `json:"id"`
	KeyID                string     `json:"keyId"`
	MemberID             *MemberID  `json:"memberId,omitempty"`
	Certificate          []byte     `json:"certificate"`
	Status               CertStatus `json:"status"`
	Hash                 string     `json:"hash"`
	Active               bool       `json:"active"`
	ActivatedAt          time.Time  `json:"activatedAt,omitempty"`
	SavedToConfiguration bool       `json:"savedToConfiguration"`
}

// CertRequestInfo describes a certificate signing request kept for a key.
type CertRequestInfo struct {
	ID          string            `json:"id"`
	KeyID       string            `json:"keyId"`
	MemberID    *MemberID         `json:"memberId,omitempty"`
	Usage       KeyUsage          `json:"usage"`
	SubjectName string            `json:"subjectName"`
	Format      CertRequestFormat `json:"format"`
}

// TokenInfoAndKeyID pairs a token view with one of its key IDs.
type TokenInfoAndKeyID struct {
	Token TokenInfo `json:"token"`
	KeyID string    `json:"keyId"`
}

// KeyIDInfo is returned by certificate hash lookups.
type KeyIDInfo struct {
	KeyID         string `json:"keyId"`
	SignMechanism string `json:"signMechanism"`
}

// GeneratedCertRequest carries the encoded bytes of a PKCS#10 request.
type GeneratedCertRequest struct {
	ID     string            `json:"id"`
	Bytes  []byte            `json:"bytes"`
	Format CertRequestFormat `json:"format"`
}

// MemberSigningInfo is the resolved signing material for a member.
type MemberSigningInfo struct {
	KeyID         string `json:"keyId"`
	CertID        string `json:"certId"`
	Cert          []byte `json:"cert"`
	CertHash      string `json:"certHash"`
	SignMechanism string `json:"signMechanism"`
}

// CertRequestParams are the inputs of GenerateCertRequest.
type CertRequestParams struct {
	KeyID       string            `validate:"required"`
	MemberID    *MemberID         `validate:"omitempty"`
	Usage       KeyUsage          `validate:"required,oneof=SIGNING AUTHENTICATION"`
	SubjectName string            `validate:"required"`
	Format      CertRequestFormat `validate:"required,oneof=PEM DER"`
}

// Validate for validating CertRequestParams struct
func (p *CertRequestParams) Validate() error {
	return validateStruct(p)
}

// SelfSignedCertParams are the inputs of GenerateSelfSignedCert.
type SelfSignedCertParams struct {
	KeyID       string    `validate:"required"`
	MemberID    *MemberID `validate:"omitempty"`
	Usage       KeyUsage  `validate:"required,oneof=SIGNING AUTHENTICATION"`
	SubjectName string    `validate:"required"`
	NotBefore   time.Time `validate:"required"`
	NotAfter    time.Time `validate:"required,gtfield=NotBefore"`
}

// Validate for validating SelfSignedCertParams struct
func (p *SelfSignedCertParams) Validate() error {
	return validateStruct(p)
}

func validateStruct(s interface{}) error {
	validate := validator.New()

	err := validate.Struct(s)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			var messages []string
			for _, fieldErr := range validationErrors {
				messages = append(messages, fmt.Sprintf("Field: %s, Tag: %s", fieldErr.Field(), fieldErr.Tag()))
			}
			return fmt.Errorf("validation failed: %v", messages)
		}
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
