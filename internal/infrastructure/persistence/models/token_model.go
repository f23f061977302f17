package models

import (
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
)

// TokenModel is the GORM database model for tokens
type TokenModel struct {
	ID                  string `gorm:"primaryKey;type:varchar(255)"`
	Type                string `gorm:"not null;type:varchar(20)"`
	FriendlyName        string `gorm:"type:varchar(255)"`
	Label               string `gorm:"type:varchar(255)"`
	SerialNumber        string `gorm:"type:varchar(255)"`
	Manufacturer        string `gorm:"type:varchar(255)"`
	Model               string `gorm:"type:varchar(255)"`
	State               string `gorm:"type:varchar(20)"`
	PinState            string `gorm:"type:varchar(20)"`
	Available           bool
	ReadOnly            bool
	BatchSigningEnabled bool
}

// TableName specifies the table name for GORM
func (TokenModel) TableName() string {
	return "tokens"
}

// ToRecord converts GORM model to a registry record
func (m *TokenModel) ToRecord() registry.Token {
	return registry.Token{
		ID:                  m.ID,
		Type:                signer.TokenType(m.Type),
		FriendlyName:        m.FriendlyName,
		Label:               m.Label,
		SerialNumber:        m.SerialNumber,
		Manufacturer:        m.Manufacturer,
		Model:               m.Model,
		State:               signer.TokenState(m.State),
		PinState:            signer.PinState(m.PinState),
		Available:           m.Available,
		ReadOnly:            m.ReadOnly,
		BatchSigningEnabled: m.BatchSigningEnabled,
	}
}

// FromRecord converts a registry record to GORM model
func (m *TokenModel) FromRecord(t registry.Token) {
	m.ID = t.ID
	m.Type = string(t.Type)
	m.FriendlyName = t.FriendlyName
	m.Label = t.Label
	m.SerialNumber = t.SerialNumber
	m.Manufacturer = t.Manufacturer
	m.Model = t.Model
	m.State = string(t.State)
	m.PinState = string(t.PinState)
	m.Available = t.Available
	m.ReadOnly = t.ReadOnly
	m.BatchSigningEnabled = t.BatchSigningEnabled
}
