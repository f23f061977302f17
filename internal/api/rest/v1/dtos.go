package v1

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	FaultCode       string `json:"faultCode"`
	TranslationCode string `json:"translationCode,omitempty"`
	Message         string `json:"message"`
}

// InfoResponse is the body of successful requests without a result.
type InfoResponse struct {
	Message string `json:"message"`
}

// PinRequest carries the PIN of initSoftwareToken and activateToken.
type PinRequest struct {
	Pin string `json:"pin" validate:"required"`
}

// Validate for validating PinRequest struct
func (r *PinRequest) Validate() error {
	return validateStruct(r)
}

// UpdatePinRequest is the body of PUT /tokens/:id/pin.
type UpdatePinRequest struct {
	OldPin string `json:"oldPin" validate:"required"`
	NewPin string `json:"newPin" validate:"required"`
}

// Validate for validating UpdatePinRequest struct
func (r *UpdatePinRequest) Validate() error {
	return validateStruct(r)
}

// FriendlyNameRequest renames a token or key.
type FriendlyNameRequest struct {
	Name string `json:"name" validate:"required"`
}

// Validate for validating FriendlyNameRequest struct
func (r *FriendlyNameRequest) Validate() error {
	return validateStruct(r)
}

// GenerateKeyRequest is the body of POST /tokens/:id/keys.
type GenerateKeyRequest struct {
	Label string `json:"label"`
}

// CertRequestRequest is the body of POST /keys/:id/csrs.
type CertRequestRequest struct {
	MemberID    *signer.MemberID `json:"memberId,omitempty"`
	Usage       string           `json:"usage" validate:"required,oneof=SIGNING AUTHENTICATION"`
	SubjectName string           `json:"subjectName" validate:"required"`
	Format      string           `json:"format" validate:"omitempty,oneof=PEM DER"`
}

// Validate for validating CertRequestRequest struct
func (r *CertRequestRequest) Validate() error {
	return validateStruct(r)
}

// Params converts the request for keyID.
func (r *CertRequestRequest) Params(keyID string) signer.CertRequestParams {
	format := signer.CertRequestFormat(r.Format)
	if format == "" {
		format = signer.CertRequestFormatDER
	}
	return signer.CertRequestParams{
		KeyID:       keyID,
		MemberID:    r.MemberID,
		Usage:       signer.KeyUsage(r.Usage),
		SubjectName: r.SubjectName,
		Format:      format,
	}
}

// RegenerateCertRequestRequest is the body of POST /csrs/:id/regenerate.
type RegenerateCertRequestRequest struct {
	Format string `json:"format" validate:"required,oneof=PEM DER"`
}

// Validate for validating RegenerateCertRequestRequest struct
func (r *RegenerateCertRequestRequest) Validate() error {
	return validateStruct(r)
}

// SelfSignedCertRequest is the body of POST /keys/:id/self-signed.
type SelfSignedCertRequest struct {
	MemberID    *signer.MemberID `json:"memberId,omitempty"`
	Usage       string           `json:"usage" validate:"required,oneof=SIGNING AUTHENTICATION"`
	SubjectName string           `json:"subjectName" validate:"required"`
	NotBefore   time.Time        `json:"notBefore" validate:"required"`
	NotAfter    time.Time        `json:"notAfter" validate:"required,gtfield=NotBefore"`
}

// Validate for validating SelfSignedCertRequest struct
func (r *SelfSignedCertRequest) Validate() error {
	return validateStruct(r)
}

// Params converts the request for keyID.
func (r *SelfSignedCertRequest) Params(keyID string) signer.SelfSignedCertParams {
	return signer.SelfSignedCertParams{
		KeyID:       keyID,
		MemberID:    r.MemberID,
		Usage:       signer.KeyUsage(r.Usage),
		SubjectName: r.SubjectName,
		NotBefore:   r.NotBefore,
		NotAfter:    r.NotAfter,
	}
}

// SignRequest is the body of POST /keys/:id/sign. Digest is base64 in JSON.
type SignRequest struct {
	AlgorithmID string `json:"algorithmId" validate:"required"`
	Digest      []byte `json:"digest" validate:"required"`
}

// Validate for validating SignRequest struct
func (r *SignRequest) Validate() error {
	return validateStruct(r)
}

// SignCertificateRequest is the body of POST /keys/:id/sign-certificate.
type SignCertificateRequest struct {
	AlgorithmID string `json:"algorithmId" validate:"required"`
	SubjectName string `json:"subjectName" validate:"required"`
	PublicKey   []byte `json:"publicKey" validate:"required"`
}

// Validate for validating SignCertificateRequest struct
func (r *SignCertificateRequest) Validate() error {
	return validateStruct(r)
}

// ImportCertRequest is the body of POST /certs/import.
type ImportCertRequest struct {
	Certificate   []byte           `json:"certificate" validate:"required"`
	InitialStatus string           `json:"initialStatus"`
	MemberID      *signer.MemberID `json:"memberId,omitempty"`
}

// Validate for validating ImportCertRequest struct
func (r *ImportCertRequest) Validate() error {
	return validateStruct(r)
}

// CertStatusRequest is the body of PUT /certs/:id/status.
type CertStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Validate for validating CertStatusRequest struct
func (r *CertStatusRequest) Validate() error {
	return validateStruct(r)
}

// SetOcspResponsesRequest is the body of PUT /ocsp.
type SetOcspResponsesRequest struct {
	Hashes    []string `json:"hashes"`
	Responses [][]byte `json:"responses"`
}

// OcspQueryRequest is the body of POST /ocsp/query.
type OcspQueryRequest struct {
	Hashes []string `json:"hashes"`
}

// OcspResponsesResponse holds one slot per queried hash; unknown hashes are null.
type OcspResponsesResponse struct {
	Responses [][]byte `json:"responses"`
}

// SignatureResponse carries a raw signature.
type SignatureResponse struct {
	Signature []byte `json:"signature"`
}

// CertificateResponse carries a DER certificate.
type CertificateResponse struct {
	Certificate []byte `json:"certificate"`
}

// ImportCertResponse names the key a certificate was attached to.
type ImportCertResponse struct {
	KeyID string `json:"keyId"`
}

// SignMechanismResponse is returned by GET /keys/:id/sign-mechanism.
type SignMechanismResponse struct {
	SignMechanism string `json:"signMechanism"`
}

// BatchSigningResponse is returned by GET /keys/:id/batch-signing.
type BatchSigningResponse struct {
	BatchSigningEnabled bool `json:"batchSigningEnabled"`
}

// OperationalResponse is returned by GET /hsm/operational.
type OperationalResponse struct {
	Operational bool `json:"operational"`
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
