package cryptography

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// ecdsaProcessor struct that implements the ECDSAProcessor interface
type ecdsaProcessor struct {
	logger logger.Logger
}

// NewECDSAProcessor creates and returns a new instance of ecdsaProcessor
func NewECDSAProcessor(logger logger.Logger) (cryptoalg.ECDSAProcessor, error) {
	return &ecdsaProcessor{
		logger: logger,
	}, nil
}

// GenerateKeys generates an ECDSA key pair on the specified elliptic curve.
func (e *ecdsaProcessor) GenerateKeys(curve elliptic.Curve) (*ecdsa.PrivateKey, *ecdsa.PublicKey, error) {
	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate elliptic curve keys: %w", err)
	}
	e.logger.Debug("Generated EC key pair on ", curve.Params().Name)
	return privateKey, &privateKey.PublicKey, nil
}

// SignDigest signs a precomputed digest and returns an ASN.1 signature.
func (e *ecdsaProcessor) SignDigest(privateKey *ecdsa.PrivateKey, digest []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key cannot be nil")
	}
	if privateKey.D == nil || privateKey.D.Sign() == 0 {
		return nil, fmt.Errorf("invalid private key: D cannot be zero")
	}

	signature, err := ecdsa.SignASN1(rand.Reader, privateKey, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return signature, nil
}

// VerifyDigest checks an ASN.1 signature over digest.
func (e *ecdsaProcessor) VerifyDigest(publicKey *ecdsa.PublicKey, digest, signature []byte) bool {
	if publicKey == nil {
		return false
	}
	return ecdsa.VerifyASN1(publicKey, digest, signature)
}

// CurveForSize maps a key size in bits to a NIST curve.
func CurveForSize(bits int) (elliptic.Curve, error) {
	switch bits {
	case 256:
		return elliptic.P256(), nil
	case 384:
		return elliptic.P384(), nil
	case 521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("unsupported curve size %d", bits)
	}
}
