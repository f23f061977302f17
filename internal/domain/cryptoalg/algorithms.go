package cryptoalg

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"sort"
)

// KeyAlgorithm is the public key algorithm of a key.
type KeyAlgorithm string

// Key algorithms
const (
	KeyAlgorithmRSA   KeyAlgorithm = "RSA"
	KeyAlgorithmECDSA KeyAlgorithm = "ECDSA"
)

// PKCS#11 sign mechanism names reported for keys.
const (
	MechanismRSAPKCS    = "CKM_RSA_PKCS"
	MechanismRSAPKCSPSS = "CKM_RSA_PKCS_PSS"
	MechanismECDSA      = "CKM_ECDSA"
)

// SignAlgorithm describes a signature algorithm the signer accepts by ID.
type SignAlgorithm struct {
	ID           string
	Hash         crypto.Hash
	KeyAlgorithm KeyAlgorithm
	PSS          bool
	X509         x509.SignatureAlgorithm
}

// Mechanism returns the PKCS#11 mechanism used to produce the signature.
func (a SignAlgorithm) Mechanism() string {
	switch {
	case a.KeyAlgorithm == KeyAlgorithmECDSA:
		return MechanismECDSA
	case a.PSS:
		return MechanismRSAPKCSPSS
	default:
		return MechanismRSAPKCS
	}
}

var signAlgorithms = map[string]SignAlgorithm{
	"SHA256withRSA":        {ID: "SHA256withRSA", Hash: crypto.SHA256, KeyAlgorithm: KeyAlgorithmRSA, X509: x509.SHA256WithRSA},
	"SHA384withRSA":        {ID: "SHA384withRSA", Hash: crypto.SHA384, KeyAlgorithm: KeyAlgorithmRSA, X509: x509.SHA384WithRSA},
	"SHA512withRSA":        {ID: "SHA512withRSA", Hash: crypto.SHA512, KeyAlgorithm: KeyAlgorithmRSA, X509: x509.SHA512WithRSA},
	"SHA256withRSAandMGF1": {ID: "SHA256withRSAandMGF1", Hash: crypto.SHA256, KeyAlgorithm: KeyAlgorithmRSA, PSS: true, X509: x509.SHA256WithRSAPSS},
	"SHA384withRSAandMGF1": {ID: "SHA384withRSAandMGF1", Hash: crypto.SHA384, KeyAlgorithm: KeyAlgorithmRSA, PSS: true, X509: x509.SHA384WithRSAPSS},
	"SHA512withRSAandMGF1": {ID: "SHA512withRSAandMGF1", Hash: crypto.SHA512, KeyAlgorithm: KeyAlgorithmRSA, PSS: true, X509: x509.SHA512WithRSAPSS},
	"SHA256withECDSA":      {ID: "SHA256withECDSA", Hash: crypto.SHA256, KeyAlgorithm: KeyAlgorithmECDSA, X509: x509.ECDSAWithSHA256},
	"SHA384withECDSA":      {ID: "SHA384withECDSA", Hash: crypto.SHA384, KeyAlgorithm: KeyAlgorithmECDSA, X509: x509.ECDSAWithSHA384},
	"SHA512withECDSA":      {ID: "SHA512withECDSA", Hash: crypto.SHA512, KeyAlgorithm: KeyAlgorithmECDSA, X509: x509.ECDSAWithSHA512},
}

// SignAlgorithmByID looks up a signature algorithm by its ID.
func SignAlgorithmByID(id string) (SignAlgorithm, bool) {
	a, ok := signAlgorithms[id]
	return a, ok
}

// SignAlgorithmIDs lists the supported algorithm IDs in sorted order.
func SignAlgorithmIDs() []string {
	ids := make([]string, 0, len(signAlgorithms))
	for id := range signAlgorithms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SignAlgorithmFor finds the algorithm matching a key algorithm, hash and
// padding, as requested by crypto.Signer callers.
func SignAlgorithmFor(keyAlg KeyAlgorithm, hash crypto.Hash, pss bool) (SignAlgorithm, bool) {
	for _, a := range signAlgorithms {
		if a.KeyAlgorithm == keyAlg && a.Hash == hash && a.PSS == pss {
			return a, true
		}
	}
	return SignAlgorithm{}, false
}

// DefaultSignAlgorithm is used for CSRs and self-signed certificates.
func DefaultSignAlgorithm(keyAlg KeyAlgorithm) SignAlgorithm {
	if keyAlg == KeyAlgorithmECDSA {
		return signAlgorithms["SHA256withECDSA"]
	}
	return signAlgorithms["SHA256withRSA"]
}

// KeyAlgorithmOf reports the algorithm of a public key.
func KeyAlgorithmOf(pub crypto.PublicKey) (KeyAlgorithm, bool) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return KeyAlgorithmRSA, true
	case *ecdsa.PublicKey:
		return KeyAlgorithmECDSA, true
	default:
		return "", false
	}
}

// SignMechanismFor returns the default mechanism for keys of keyAlg.
func SignMechanismFor(keyAlg KeyAlgorithm) string {
	if keyAlg == KeyAlgorithmECDSA {
		return MechanismECDSA
	}
	return MechanismRSAPKCS
}

// ParsePublicKey decodes a PKIX DER public key and reports its algorithm.
func ParsePublicKey(der []byte) (crypto.PublicKey, KeyAlgorithm, error) {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, "", err
	}
	alg, ok := KeyAlgorithmOf(pub)
	if !ok {
		return nil, "", x509.ErrUnsupportedAlgorithm
	}
	return pub, alg, nil
}
