package models

import (
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// OcspResponseModel is the GORM database model for cached OCSP responses
type OcspResponseModel struct {
	CertHash   string `gorm:"primaryKey;type:varchar(64)"`
	Response   []byte `gorm:"not null"`
	NextUpdate *time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (OcspResponseModel) TableName() string {
	return "ocsp_responses"
}

// ToDomain converts GORM model to domain entity
func (m *OcspResponseModel) ToDomain() signer.OcspResponse {
	return signer.OcspResponse{
		CertHash:   m.CertHash,
		Response:   m.Response,
		NextUpdate: m.NextUpdate,
	}
}

// FromDomain converts domain entity to GORM model
func (m *OcspResponseModel) FromDomain(r signer.OcspResponse) {
	m.CertHash = r.CertHash
	m.Response = r.Response
	m.NextUpdate = r.NextUpdate
}

