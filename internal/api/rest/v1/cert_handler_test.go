//go:build unit
// +build unit

package v1

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
)

type certHandlerMocks struct {
	tokens  *MockTokenService
	certs   *MockCertService
	members *MockMemberService
}

func newTestCertHandler() (CertHandler, certHandlerMocks) {
	m := certHandlerMocks{
		tokens:  new(MockTokenService),
		certs:   new(MockCertService),
		members: new(MockMemberService),
	}
	return NewCertHandler(m.tokens, m.certs, m.members), m
}

const testMemberJSON = `{"xroadInstance":"EE","memberClass":"GOV","memberCode":"1234"}`

var testMemberID = signer.MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234"}

func TestCertHandler_CertRequests(t *testing.T) {
	handler, m := newTestCertHandler()
	m.certs.On("RegenerateCertRequest", mock.Anything, "csr-1", signer.CertRequestFormatPEM).
		Return(&signer.GeneratedCertRequest{ID: "csr-1", Format: signer.CertRequestFormatPEM}, nil)
	m.certs.On("DeleteCertRequest", mock.Anything, "csr-1").Return(nil)
	m.certs.On("DeleteCertRequest", mock.Anything, "csr-2").Return(signererrors.ErrCsrNotFound("test", "csr-2"))
	m.tokens.On("GetTokenAndKeyIDForCertRequestID", mock.Anything, "csr-1").
		Return(&signer.TokenInfoAndKeyID{Token: signer.TokenInfo{ID: "0"}, KeyID: "key-1"}, nil)

	c, w := newTestContext("POST", "/csrs/csr-1/regenerate", `{"format":"PEM"}`, "id", "csr-1")
	handler.RegenerateCertRequest(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("DELETE", "/csrs/csr-1", "", "id", "csr-1")
	handler.DeleteCertRequest(c)
	assert.Equal(t, http.StatusNoContent, w.Code)

	c, w = newTestContext("DELETE", "/csrs/csr-2", "", "id", "csr-2")
	handler.DeleteCertRequest(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newTestContext("GET", "/csrs/csr-1/token", "", "id", "csr-1")
	handler.GetCertRequestToken(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key-1")

	m.certs.AssertExpectations(t)
	m.tokens.AssertExpectations(t)
}

func TestCertHandler_Import(t *testing.T) {
	der := []byte{0x30, 0x82}
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{name: "success", wantStatus: http.StatusCreated, wantBody: "key-1"},
		{
			name:       "duplicate",
			serviceErr: signererrors.New(signererrors.CertificateExists, "test", "Certificate already exists"),
			wantStatus: http.StatusConflict,
			wantBody:   "certificate_already_exists",
		},
		{
			name: "no matching key",
			serviceErr: signererrors.New(signererrors.KeyNotFound, "test", "Could not find key that has public key that matches the public key of certificate",
				signererrors.WithTranslation(signererrors.TranslationKeyNotFoundForCert)),
			wantStatus: http.StatusNotFound,
			wantBody:   signererrors.TranslationKeyNotFoundForCert,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, m := newTestCertHandler()
			keyID := ""
			if tt.serviceErr == nil {
				keyID = "key-1"
			}
			m.certs.On("ImportCert", mock.Anything, der, signer.CertStatusRegistered, &testMemberID).Return(keyID, tt.serviceErr)

			body := `{"certificate":"` + base64.StdEncoding.EncodeToString(der) + `","initialStatus":"registered","memberId":` + testMemberJSON + `}`
			c, w := newTestContext("POST", "/certs/import", body)
			handler.Import(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			m.certs.AssertExpectations(t)
		})
	}
}

func TestCertHandler_Lifecycle(t *testing.T) {
	handler, m := newTestCertHandler()
	m.certs.On("ActivateCert", mock.Anything, "cert-1").Return(nil)
	m.certs.On("DeactivateCert", mock.Anything, "cert-1").Return(nil)
	m.certs.On("SetCertStatus", mock.Anything, "cert-1", signer.CertStatusRegistered).Return(nil)
	m.certs.On("DeleteCert", mock.Anything, "cert-1").Return(nil)

	c, w := newTestContext("POST", "/certs/cert-1/activate", "", "id", "cert-1")
	handler.Activate(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("POST", "/certs/cert-1/deactivate", "", "id", "cert-1")
	handler.Deactivate(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("PUT", "/certs/cert-1/status", `{"status":"registered"}`, "id", "cert-1")
	handler.SetStatus(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newTestContext("DELETE", "/certs/cert-1", "", "id", "cert-1")
	handler.DeleteByID(c)
	assert.Equal(t, http.StatusNoContent, w.Code)

	m.certs.AssertExpectations(t)
}

func TestCertHandler_HashLookups(t *testing.T) {
	handler, m := newTestCertHandler()
	m.certs.On("GetCertForHash", mock.Anything, "abc").Return(&signer.CertificateInfo{ID: "cert-1"}, nil)
	m.certs.On("GetKeyIDForCertHash", mock.Anything, "abc").Return(&signer.KeyIDInfo{KeyID: "key-1"}, nil)
	m.certs.On("GetTokenAndKeyIDForCertHash", mock.Anything, "def").
		Return(nil, signererrors.ErrCertWithHashNotFound("test", "def"))

	c, w := newTestContext("GET", "/certs/hash/abc", "", "hash", "abc")
	handler.GetByHash(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cert-1")

	c, w = newTestContext("GET", "/certs/hash/abc/key", "", "hash", "abc")
	handler.GetKeyByHash(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key-1")

	c, w = newTestContext("GET", "/certs/hash/def/token-and-key", "", "hash", "def")
	handler.GetTokenAndKeyByHash(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, signererrors.TranslationCertWithHashNotFound, decodeError(t, w).TranslationCode)

	m.certs.AssertExpectations(t)
}

func TestCertHandler_Members(t *testing.T) {
	handler, m := newTestCertHandler()
	m.certs.On("GetMemberCerts", mock.Anything, testMemberID).Return(nil, nil)
	m.members.On("GetMemberSigningInfo", mock.Anything, testMemberID).
		Return(&signer.MemberSigningInfo{KeyID: "key-1", CertID: "cert-1"}, nil)

	c, w := newTestContext("POST", "/members/certs", testMemberJSON)
	handler.GetMemberCerts(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	c, w = newTestContext("POST", "/members/signing-info", testMemberJSON)
	handler.GetMemberSigningInfo(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cert-1")

	c, w = newTestContext("POST", "/members/signing-info", `{"xroadInstance":"EE"}`)
	handler.GetMemberSigningInfo(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.certs.AssertExpectations(t)
	m.members.AssertExpectations(t)
}
