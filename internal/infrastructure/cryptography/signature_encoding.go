package cryptography

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
)

// Hash algorithm identifiers used in PKCS#1 v1.5 DigestInfo.
var digestAlgorithmOIDs = map[crypto.Hash]asn1.ObjectIdentifier{
	crypto.SHA256: {2, 16, 840, 1, 101, 3, 4, 2, 1},
	crypto.SHA384: {2, 16, 840, 1, 101, 3, 4, 2, 2},
	crypto.SHA512: {2, 16, 840, 1, 101, 3, 4, 2, 3},
}

type digestInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	Digest    []byte
}

// DigestInfo wraps digest in the DER DigestInfo structure for hash, as
// signed by CKM_RSA_PKCS. The digest is taken as supplied; its length is
// not checked against hash.
func DigestInfo(hash crypto.Hash, digest []byte) ([]byte, error) {
	oid, ok := digestAlgorithmOIDs[hash]
	if !ok {
		return nil, fmt.Errorf("unsupported hash %s", hash)
	}
	if len(digest) == 0 {
		return nil, errors.New("digest cannot be empty")
	}
	return asn1.Marshal(digestInfo{
		Algorithm: pkix.AlgorithmIdentifier{Algorithm: oid, Parameters: asn1.NullRawValue},
		Digest:    digest,
	})
}

type ecdsaSignature struct {
	R, S *big.Int
}

// ECDSARawToASN1 converts the r||s encoding returned by CKM_ECDSA into the
// ASN.1 form expected by crypto/x509.
func ECDSARawToASN1(raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, errors.New("invalid raw ECDSA signature length")
	}
	half := len(raw) / 2
	return asn1.Marshal(ecdsaSignature{
		R: new(big.Int).SetBytes(raw[:half]),
		S: new(big.Int).SetBytes(raw[half:]),
	})
}

var (
	oidNamedCurveP256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}
	oidNamedCurveP384 = asn1.ObjectIdentifier{1, 3, 132, 0, 34}
	oidNamedCurveP521 = asn1.ObjectIdentifier{1, 3, 132, 0, 35}
)

func curveForOID(oid asn1.ObjectIdentifier) (elliptic.Curve, bool) {
	switch {
	case oid.Equal(oidNamedCurveP256):
		return elliptic.P256(), true
	case oid.Equal(oidNamedCurveP384):
		return elliptic.P384(), true
	case oid.Equal(oidNamedCurveP521):
		return elliptic.P521(), true
	}
	return nil, false
}

// ECPublicKeyFromAttributes builds a public key from the DER CKA_EC_PARAMS
// (named curve OID) and CKA_EC_POINT (octet string) attribute values.
func ECPublicKeyFromAttributes(ecParams, ecPoint []byte) (*ecdsa.PublicKey, error) {
	var oid asn1.ObjectIdentifier
	if _, err := asn1.Unmarshal(ecParams, &oid); err != nil {
		return nil, fmt.Errorf("failed to parse EC params: %w", err)
	}
	curve, ok := curveForOID(oid)
	if !ok {
		return nil, fmt.Errorf("unsupported curve %s", oid)
	}

	var point []byte
	if rest, err := asn1.Unmarshal(ecPoint, &point); err != nil || len(rest) > 0 {
		point = ecPoint
	}
	x, y := elliptic.Unmarshal(curve, point) //nolint:staticcheck // point format is fixed by PKCS#11
	if x == nil && !bytes.Equal(point, ecPoint) {
		// some modules return the bare point
		x, y = elliptic.Unmarshal(curve, ecPoint) //nolint:staticcheck
	}
	if x == nil {
		return nil, errors.New("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
