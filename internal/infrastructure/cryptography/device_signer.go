package cryptography

import (
	"crypto"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
)

// SignFunc signs a digest with a device-held key.
type SignFunc func(alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error)

// DeviceSigner exposes a device-held key as a crypto.Signer so it can drive
// crypto/x509 request and certificate builders.
type DeviceSigner struct {
	public crypto.PublicKey
	keyAlg cryptoalg.KeyAlgorithm
	sign   SignFunc
}

// NewDeviceSigner creates a signer for the PKIX DER public key.
func NewDeviceSigner(publicKeyDER []byte, sign SignFunc) (*DeviceSigner, error) {
	pub, keyAlg, err := cryptoalg.ParsePublicKey(publicKeyDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return &DeviceSigner{public: pub, keyAlg: keyAlg, sign: sign}, nil
}

// Public returns the public half of the key.
func (s *DeviceSigner) Public() crypto.PublicKey {
	return s.public
}

// KeyAlgorithm returns the key algorithm.
func (s *DeviceSigner) KeyAlgorithm() cryptoalg.KeyAlgorithm {
	return s.keyAlg
}

// Sign implements crypto.Signer.
func (s *DeviceSigner) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	_, pss := opts.(*rsa.PSSOptions)
	alg, ok := cryptoalg.SignAlgorithmFor(s.keyAlg, opts.HashFunc(), pss)
	if !ok {
		return nil, fmt.Errorf("no %s algorithm for hash %s", s.keyAlg, opts.HashFunc())
	}
	return s.sign(alg, digest)
}
