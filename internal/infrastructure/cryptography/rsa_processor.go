package cryptography

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// rsaProcessor struct that implements the RSAProcessor interface
type rsaProcessor struct {
	logger logger.Logger
}

// NewRSAProcessor creates and returns a new instance of rsaProcessor
func NewRSAProcessor(logger logger.Logger) (cryptoalg.RSAProcessor, error) {
	return &rsaProcessor{
		logger: logger,
	}, nil
}

// GenerateKeys generates an RSA key pair with the specified bit size.
func (r *rsaProcessor) GenerateKeys(keySize int) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA keys: %w", err)
	}
	r.logger.Debug("Generated RSA key pair of ", keySize, " bits")
	return privateKey, &privateKey.PublicKey, nil
}

// SignDigest signs a precomputed digest with PKCS#1 v1.5 or PSS.
func (r *rsaProcessor) SignDigest(privateKey *rsa.PrivateKey, hash crypto.Hash, digest []byte, pss bool) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("private key cannot be nil")
	}

	var (
		signature []byte
		err       error
	)
	if pss {
		if len(digest) != hash.Size() {
			return nil, fmt.Errorf("digest length %d does not match %s", len(digest), hash)
		}
		signature, err = rsa.SignPSS(rand.Reader, privateKey, hash, digest, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       hash,
		})
	} else {
		var info []byte
		if info, err = DigestInfo(hash, digest); err != nil {
			return nil, err
		}
		signature, err = rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.Hash(0), info)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	return signature, nil
}

// VerifyDigest checks a signature produced by SignDigest.
func (r *rsaProcessor) VerifyDigest(publicKey *rsa.PublicKey, hash crypto.Hash, digest, signature []byte, pss bool) error {
	if publicKey == nil {
		return errors.New("public key cannot be nil")
	}
	if pss {
		return rsa.VerifyPSS(publicKey, hash, digest, signature, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
			Hash:       hash,
		})
	}
	info, err := DigestInfo(hash, digest)
	if err != nil {
		return err
	}
	return rsa.VerifyPKCS1v15(publicKey, crypto.Hash(0), info, signature)
}
