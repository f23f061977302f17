package cryptoalg

import (
	"crypto"
	"crypto/rsa"
)

// RSAProcessor handles RSA key pairs for software-backed tokens.
type RSAProcessor interface {
	// GenerateKeys generates an RSA key pair with the specified bit size.
	GenerateKeys(keySize int) (*rsa.PrivateKey, *rsa.PublicKey, error)

	// SignDigest signs a precomputed digest with PKCS#1 v1.5 over the
	// DigestInfo of whatever digest is given, or with PSS (salt length equal
	// to the hash size) when pss is set. PSS requires a digest of hash size.
	SignDigest(privateKey *rsa.PrivateKey, hash crypto.Hash, digest []byte, pss bool) ([]byte, error)

	// VerifyDigest checks a signature produced by SignDigest.
	VerifyDigest(publicKey *rsa.PublicKey, hash crypto.Hash, digest, signature []byte, pss bool) error
}
