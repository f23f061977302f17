package cryptoalg

import (
	"crypto/ecdsa"
	"crypto/elliptic"
)

// ECDSAProcessor handles elliptic curve key pairs for software-backed tokens.
type ECDSAProcessor interface {
	// GenerateKeys generates an ECDSA key pair on the specified curve.
	GenerateKeys(curve elliptic.Curve) (*ecdsa.PrivateKey, *ecdsa.PublicKey, error)

	// SignDigest signs a precomputed digest and returns an ASN.1 signature.
	SignDigest(privateKey *ecdsa.PrivateKey, digest []byte) ([]byte, error)

	// VerifyDigest checks an ASN.1 signature over digest.
	VerifyDigest(publicKey *ecdsa.PublicKey, digest, signature []byte) bool
}
