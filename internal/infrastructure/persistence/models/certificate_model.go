package models

import (
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
)

// CertificateModel is the GORM database model for certificates
type CertificateModel struct {
	ID                   string `gorm:"primaryKey;type:varchar(255)"`
	KeyID                string `gorm:"not null;index;type:varchar(255)"`
	MemberID             string `gorm:"index;type:varchar(512)"`
	DER                  []byte `gorm:"not null"`
	Status               string `gorm:"type:varchar(50)"`
	Hash                 string `gorm:"not null;index;type:varchar(64)"`
	Active               bool
	ActivatedAt          *time.Time
	SavedToConfiguration bool
	CreatedAt            time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (CertificateModel) TableName() string {
	return "certificates"
}

// ToRecord converts GORM model to a registry record
func (m *CertificateModel) ToRecord() registry.Cert {
	c := registry.Cert{
		ID:                   m.ID,
		KeyID:                m.KeyID,
		MemberID:             parseMemberColumn(m.MemberID),
		DER:                  m.DER,
		Status:               signer.CertStatus(m.Status),
		Hash:                 m.Hash,
		Active:               m.Active,
		SavedToConfiguration: m.SavedToConfiguration,
		CreatedAt:            m.CreatedAt,
	}
	if m.ActivatedAt != nil {
		c.ActivatedAt = *m.ActivatedAt
	}
	return c
}

// FromRecord converts a registry record to GORM model
func (m *CertificateModel) FromRecord(c registry.Cert) {
	m.ID = c.ID
	m.KeyID = c.KeyID
	m.MemberID = memberColumn(c.MemberID)
	m.DER = c.DER
	m.Status = string(c.Status)
	m.Hash = c.Hash
	m.Active = c.Active
	m.ActivatedAt = nil
	if !c.ActivatedAt.IsZero() {
		activatedAt := c.ActivatedAt
		m.ActivatedAt = &activatedAt
	}
	m.SavedToConfiguration = c.SavedToConfiguration
	m.CreatedAt = c.CreatedAt
}
