package registry

import (
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// Token is the registry record of a token. Keys reference it by ID.
type Token struct {
	ID                  string
	Type                signer.TokenType
	FriendlyName        string
	Label               string
	SerialNumber        string
	Manufacturer        string
	Model               string
	State               signer.TokenState
	PinState            signer.PinState
	Available           bool
	ReadOnly            bool
	BatchSigningEnabled bool
}

// Key is the registry record of a key held by a token.
type Key struct {
	ID            string
	TokenID       string
	FriendlyName  string
	Label         string
	Usage         signer.KeyUsage
	SignMechanism string
	// PublicKey is PKIX DER. It is never modified in place.
	PublicKey []byte
	Available bool
}

// Cert is the registry record of a certificate attached to a key.
type Cert struct {
	ID                   string
	KeyID                string
	MemberID             *signer.MemberID
	DER                  []byte
	Status               signer.CertStatus
	Hash                 string
	Active               bool
	ActivatedAt          time.Time
	SavedToConfiguration bool
	CreatedAt            time.Time
}

// CertRequest is the registry record of a certificate signing request.
type CertRequest struct {
	ID          string
	KeyID       string
	MemberID    *signer.MemberID
	Usage       signer.KeyUsage
	SubjectName string
	Format      signer.CertRequestFormat
	CreatedAt   time.Time
}

// Records is a flat set of registry records.
type Records struct {
	Tokens       []Token
	Keys         []Key
	Certs        []Cert
	CertRequests []CertRequest
}

// Changeset lists the records written and the IDs removed by one Update.
type Changeset struct {
	Upserts             Records
	DeletedTokens       []string
	DeletedKeys         []string
	DeletedCerts        []string
	DeletedCertRequests []string
}

// Empty reports whether the changeset carries no change.
func (c *Changeset) Empty() bool {
	return len(c.Upserts.Tokens) == 0 && len(c.Upserts.Keys) == 0 &&
		len(c.Upserts.Certs) == 0 && len(c.Upserts.CertRequests) == 0 &&
		len(c.DeletedTokens) == 0 && len(c.DeletedKeys) == 0 &&
		len(c.DeletedCerts) == 0 && len(c.DeletedCertRequests) == 0
}
