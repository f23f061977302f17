package models

import (
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
)

// KeyModel is the GORM database model for keys
type KeyModel struct {
	ID            string `gorm:"primaryKey;type:varchar(255)"`
	TokenID       string `gorm:"not null;index;type:varchar(255)"`
	FriendlyName  string `gorm:"type:varchar(255)"`
	Label         string `gorm:"type:varchar(255)"`
	Usage         string `gorm:"type:varchar(20)"`
	SignMechanism string `gorm:"type:varchar(50)"`
	PublicKey     []byte
	Available     bool
}

// TableName specifies the table name for GORM
func (KeyModel) TableName() string {
	return "keys"
}

// ToRecord converts GORM model to a registry record
func (m *KeyModel) ToRecord() registry.Key {
	return registry.Key{
		ID:            m.ID,
		TokenID:       m.TokenID,
		FriendlyName:  m.FriendlyName,
		Label:         m.Label,
		Usage:         signer.KeyUsage(m.Usage),
		SignMechanism: m.SignMechanism,
		PublicKey:     m.PublicKey,
		Available:     m.Available,
	}
}

// FromRecord converts a registry record to GORM model
func (m *KeyModel) FromRecord(k registry.Key) {
	m.ID = k.ID
	m.TokenID = k.TokenID
	m.FriendlyName = k.FriendlyName
	m.Label = k.Label
	m.Usage = string(k.Usage)
	m.SignMechanism = k.SignMechanism
	m.PublicKey = k.PublicKey
	m.Available = k.Available
}
