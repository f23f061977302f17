//go:build unit
// +build unit

package v1

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// MockTokenService is a mock implementation of signer.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) ListTokens(ctx context.Context) ([]signer.TokenInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]signer.TokenInfo), args.Error(1)
}

func (m *MockTokenService) GetToken(ctx context.Context, tokenID string) (*signer.TokenInfo, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.TokenInfo), args.Error(1)
}

func (m *MockTokenService) GetTokenForKeyID(ctx context.Context, keyID string) (*signer.TokenInfo, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.TokenInfo), args.Error(1)
}

func (m *MockTokenService) GetTokenAndKeyIDForCertRequestID(ctx context.Context, csrID string) (*signer.TokenInfoAndKeyID, error) {
	args := m.Called(ctx, csrID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.TokenInfoAndKeyID), args.Error(1)
}

func (m *MockTokenService) InitSoftwareToken(ctx context.Context, pin string) error {
	args := m.Called(ctx, pin)
	return args.Error(0)
}

func (m *MockTokenService) ActivateToken(ctx context.Context, tokenID, pin string) error {
	args := m.Called(ctx, tokenID, pin)
	return args.Error(0)
}

func (m *MockTokenService) DeactivateToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenService) UpdateTokenPin(ctx context.Context, tokenID, oldPin, newPin string) error {
	args := m.Called(ctx, tokenID, oldPin, newPin)
	return args.Error(0)
}

func (m *MockTokenService) SetTokenFriendlyName(ctx context.Context, tokenID, name string) error {
	args := m.Called(ctx, tokenID, name)
	return args.Error(0)
}

func (m *MockTokenService) IsHSMOperational(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockKeyService is a mock implementation of signer.KeyService
type MockKeyService struct {
	mock.Mock
}

func (m *MockKeyService) GenerateKey(ctx context.Context, tokenID, label string) (*signer.KeyInfo, error) {
	args := m.Called(ctx, tokenID, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.KeyInfo), args.Error(1)
}

func (m *MockKeyService) SetKeyFriendlyName(ctx context.Context, keyID, name string) error {
	args := m.Called(ctx, keyID, name)
	return args.Error(0)
}

func (m *MockKeyService) DeleteKey(ctx context.Context, keyID string, force bool) error {
	args := m.Called(ctx, keyID, force)
	return args.Error(0)
}

func (m *MockKeyService) GetSignMechanism(ctx context.Context, keyID string) (string, error) {
	args := m.Called(ctx, keyID)
	return args.String(0), args.Error(1)
}

func (m *MockKeyService) IsTokenBatchSigningEnabled(ctx context.Context, keyID string) (bool, error) {
	args := m.Called(ctx, keyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockKeyService) FindKey(ctx context.Context, tokenFriendlyName, keyFriendlyName string) (*signer.KeyInfo, error) {
	args := m.Called(ctx, tokenFriendlyName, keyFriendlyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.KeyInfo), args.Error(1)
}

// MockCertService is a mock implementation of signer.CertService
type MockCertService struct {
	mock.Mock
}

func (m *MockCertService) GenerateCertRequest(ctx context.Context, params signer.CertRequestParams) (*signer.GeneratedCertRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.GeneratedCertRequest), args.Error(1)
}

func (m *MockCertService) RegenerateCertRequest(ctx context.Context, csrID string, format signer.CertRequestFormat) (*signer.GeneratedCertRequest, error) {
	args := m.Called(ctx, csrID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.GeneratedCertRequest), args.Error(1)
}

func (m *MockCertService) DeleteCertRequest(ctx context.Context, csrID string) error {
	args := m.Called(ctx, csrID)
	return args.Error(0)
}

func (m *MockCertService) GenerateSelfSignedCert(ctx context.Context, params signer.SelfSignedCertParams) ([]byte, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCertService) ImportCert(ctx context.Context, cert []byte, initialStatus signer.CertStatus, memberID *signer.MemberID) (string, error) {
	args := m.Called(ctx, cert, initialStatus, memberID)
	return args.String(0), args.Error(1)
}

func (m *MockCertService) ActivateCert(ctx context.Context, certID string) error {
	args := m.Called(ctx, certID)
	return args.Error(0)
}

func (m *MockCertService) DeactivateCert(ctx context.Context, certID string) error {
	args := m.Called(ctx, certID)
	return args.Error(0)
}

func (m *MockCertService) DeleteCert(ctx context.Context, certID string) error {
	args := m.Called(ctx, certID)
	return args.Error(0)
}

func (m *MockCertService) SetCertStatus(ctx context.Context, certID string, status signer.CertStatus) error {
	args := m.Called(ctx, certID, status)
	return args.Error(0)
}

func (m *MockCertService) GetCertForHash(ctx context.Context, hash string) (*signer.CertificateInfo, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.CertificateInfo), args.Error(1)
}

func (m *MockCertService) GetKeyIDForCertHash(ctx context.Context, hash string) (*signer.KeyIDInfo, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.KeyIDInfo), args.Error(1)
}

func (m *MockCertService) GetTokenAndKeyIDForCertHash(ctx context.Context, hash string) (*signer.TokenInfoAndKeyID, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.TokenInfoAndKeyID), args.Error(1)
}

func (m *MockCertService) GetMemberCerts(ctx context.Context, memberID signer.MemberID) ([]signer.CertificateInfo, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]signer.CertificateInfo), args.Error(1)
}

// MockSigningService is a mock implementation of signer.SigningService
type MockSigningService struct {
	mock.Mock
}

func (m *MockSigningService) Sign(ctx context.Context, keyID, algorithmID string, digest []byte) ([]byte, error) {
	args := m.Called(ctx, keyID, algorithmID, digest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSigningService) SignCertificate(ctx context.Context, keyID, algorithmID, subjectName string, publicKey []byte) ([]byte, error) {
	args := m.Called(ctx, keyID, algorithmID, subjectName, publicKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockOcspService is a mock implementation of signer.OcspService
type MockOcspService struct {
	mock.Mock
}

func (m *MockOcspService) SetOcspResponses(ctx context.Context, hashes []string, responses [][]byte) error {
	args := m.Called(ctx, hashes, responses)
	return args.Error(0)
}

func (m *MockOcspService) GetOcspResponses(ctx context.Context, hashes []string) ([][]byte, error) {
	args := m.Called(ctx, hashes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

// MockMemberService is a mock implementation of signer.MemberService
type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) GetMemberSigningInfo(ctx context.Context, memberID signer.MemberID) (*signer.MemberSigningInfo, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signer.MemberSigningInfo), args.Error(1)
}

// newMockServices returns a Services whose members are fresh mocks.
func newMockServices() (Services, *MockTokenService, *MockKeyService, *MockCertService, *MockSigningService, *MockOcspService, *MockMemberService) {
	tokens := new(MockTokenService)
	keys := new(MockKeyService)
	certs := new(MockCertService)
	signing := new(MockSigningService)
	ocsp := new(MockOcspService)
	members := new(MockMemberService)
	return Services{
		Tokens:  tokens,
		Keys:    keys,
		Certs:   certs,
		Signing: signing,
		Ocsp:    ocsp,
		Members: members,
	}, tokens, keys, certs, signing, ocsp, members
}
