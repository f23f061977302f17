//go:build unit
// +build unit

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
)

func TestTokenModel_RoundTrip(t *testing.T) {
	token := registry.Token{
		ID:                  "softhsm-1234",
		Type:                signer.TokenTypeHardware,
		FriendlyName:        "HSM",
		Label:               "signer",
		SerialNumber:        "1234",
		State:               signer.TokenStateInitialized,
		PinState:            signer.PinStateOK,
		Available:           true,
		BatchSigningEnabled: true,
	}

	model := &TokenModel{}
	model.FromRecord(token)
	assert.Equal(t, "hardware", model.Type)
	assert.Equal(t, token, model.ToRecord())
}

func TestKeyModel_RoundTrip(t *testing.T) {
	key := registry.Key{
		ID:            "AB01",
		TokenID:       "0",
		Usage:         signer.KeyUsageSigning,
		SignMechanism: "CKM_RSA_PKCS",
		PublicKey:     []byte{0x30, 0x01},
		Available:     true,
	}

	model := &KeyModel{}
	model.FromRecord(key)
	assert.Equal(t, key, model.ToRecord())
}

func TestCertificateModel_RoundTrip(t *testing.T) {
	member := signer.MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "123"}
	tests := []struct {
		name string
		cert registry.Cert
	}{
		{
			name: "with member and activation time",
			cert: registry.Cert{
				ID:          "c1",
				KeyID:       "k1",
				MemberID:    &member,
				DER:         []byte{1},
				Status:      signer.CertStatusRegistered,
				Hash:        "ab",
				Active:      true,
				ActivatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "without member",
			cert: registry.Cert{
				ID:        "c2",
				KeyID:     "k1",
				DER:       []byte{2},
				Status:    signer.CertStatusSaved,
				Hash:      "cd",
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &CertificateModel{}
			model.FromRecord(tt.cert)
			assert.Equal(t, tt.cert.ActivatedAt.IsZero(), model.ActivatedAt == nil)
			assert.Equal(t, tt.cert, model.ToRecord())
		})
	}
}

func TestCertRequestModel_RoundTrip(t *testing.T) {
	member := signer.MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "123", SubsystemCode: "sub"}
	req := registry.CertRequest{
		ID:          "r1",
		KeyID:       "k1",
		MemberID:    &member,
		Usage:       signer.KeyUsageSigning,
		SubjectName: "CN=test",
		Format:      signer.CertRequestFormatPEM,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	model := &CertRequestModel{}
	model.FromRecord(req)
	assert.Equal(t, "EE/GOV/123/sub", model.MemberID)
	assert.Equal(t, req, model.ToRecord())
}

func TestOcspResponseModel_ToDomain(t *testing.T) {
	next := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	model := &OcspResponseModel{CertHash: "ab", Response: []byte{9}, NextUpdate: &next}

	resp := model.ToDomain()
	assert.Equal(t, "ab", resp.CertHash)
	assert.Equal(t, []byte{9}, resp.Response)
	assert.Equal(t, &next, resp.NextUpdate)

	back := &OcspResponseModel{}
	back.FromDomain(resp)
	assert.Equal(t, model.CertHash, back.CertHash)
}

func TestParseMemberColumn_Invalid(t *testing.T) {
	assert.Nil(t, parseMemberColumn(""))
	assert.Nil(t, parseMemberColumn("not-a-member"))
}
