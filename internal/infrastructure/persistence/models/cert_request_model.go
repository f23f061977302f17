package models

import (
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
)

// CertRequestModel is the GORM database model for certificate requests
type CertRequestModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(255)"`
	KeyID       string    `gorm:"not null;index;type:varchar(255)"`
	MemberID    string    `gorm:"type:varchar(512)"`
	Usage       string    `gorm:"type:varchar(20)"`
	SubjectName string    `gorm:"type:varchar(1024)"`
	Format      string    `gorm:"type:varchar(10)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (CertRequestModel) TableName() string {
	return "cert_requests"
}

// ToRecord converts GORM model to a registry record
func (m *CertRequestModel) ToRecord() registry.CertRequest {
	return registry.CertRequest{
		ID:          m.ID,
		KeyID:       m.KeyID,
		MemberID:    parseMemberColumn(m.MemberID),
		Usage:       signer.KeyUsage(m.Usage),
		SubjectName: m.SubjectName,
		Format:      signer.CertRequestFormat(m.Format),
		CreatedAt:   m.CreatedAt,
	}
}

// FromRecord converts a registry record to GORM model
func (m *CertRequestModel) FromRecord(r registry.CertRequest) {
	m.ID = r.ID
	m.KeyID = r.KeyID
	m.MemberID = memberColumn(r.MemberID)
	m.Usage = string(r.Usage)
	m.SubjectName = r.SubjectName
	m.Format = string(r.Format)
	m.CreatedAt = r.CreatedAt
}
