package cryptography

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

const (
	pemTypeCertRequest = "CERTIFICATE REQUEST"
	pemTypeCertificate = "CERTIFICATE"
)

// CertHash returns the lowercase hex SHA-256 of a DER certificate.
func CertHash(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}

// ParseCertificate accepts a DER or PEM encoded certificate.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != pemTypeCertificate {
			return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
		}
		data = block.Bytes
	}
	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}

// UsageOf infers the key usage a certificate was issued for. Non-repudiation
// marks a signing certificate; a bare digital signature marks an
// authentication certificate.
func UsageOf(cert *x509.Certificate) signer.KeyUsage {
	switch {
	case cert.KeyUsage&x509.KeyUsageContentCommitment != 0:
		return signer.KeyUsageSigning
	case cert.KeyUsage&x509.KeyUsageDigitalSignature != 0:
		return signer.KeyUsageAuthentication
	default:
		return signer.KeyUsageUnrestricted
	}
}

func x509KeyUsage(usage signer.KeyUsage) x509.KeyUsage {
	switch usage {
	case signer.KeyUsageSigning:
		return x509.KeyUsageContentCommitment
	case signer.KeyUsageAuthentication:
		return x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	default:
		return x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment
	}
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	return serial, nil
}

// BuildCertRequest creates a PKCS#10 request for subject signed by key.
func BuildCertRequest(key *DeviceSigner, subject string, format signer.CertRequestFormat) ([]byte, error) {
	rawSubject, err := MarshalDistinguishedName(subject)
	if err != nil {
		return nil, err
	}
	template := &x509.CertificateRequest{
		RawSubject:         rawSubject,
		SignatureAlgorithm: cryptoalg.DefaultSignAlgorithm(key.KeyAlgorithm()).X509,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}
	return EncodeCertRequest(der, format)
}

// EncodeCertRequest renders a DER request in the requested format.
func EncodeCertRequest(der []byte, format signer.CertRequestFormat) ([]byte, error) {
	switch format {
	case signer.CertRequestFormatDER:
		return der, nil
	case signer.CertRequestFormatPEM:
		return pem.EncodeToMemory(&pem.Block{Type: pemTypeCertRequest, Bytes: der}), nil
	default:
		return nil, fmt.Errorf("unsupported certificate request format %q", format)
	}
}

// BuildSelfSignedCert creates a self-signed DER certificate for key.
func BuildSelfSignedCert(key *DeviceSigner, subject string, usage signer.KeyUsage, notBefore, notAfter time.Time) ([]byte, error) {
	rawSubject, err := MarshalDistinguishedName(subject)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		RawSubject:            rawSubject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509KeyUsage(usage),
		BasicConstraintsValid: true,
		SignatureAlgorithm:    cryptoalg.DefaultSignAlgorithm(key.KeyAlgorithm()).X509,
	}
	if usage == signer.KeyUsageAuthentication {
		template.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth, x509.ExtKeyUsageServerAuth}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to create self-signed certificate: %w", err)
	}
	return der, nil
}

// IssueCertificate creates a certificate over subjectKey signed by issuerKey
// with alg. rawIssuer is the DER issuer name, usually the RawSubject of the
// issuer's own certificate.
func IssueCertificate(issuerKey *DeviceSigner, alg cryptoalg.SignAlgorithm, rawIssuer []byte, subject string, subjectKey crypto.PublicKey, validity time.Duration) ([]byte, error) {
	if alg.KeyAlgorithm != issuerKey.KeyAlgorithm() {
		return nil, fmt.Errorf("algorithm %s does not match %s key", alg.ID, issuerKey.KeyAlgorithm())
	}
	rawSubject, err := MarshalDistinguishedName(subject)
	if err != nil {
		return nil, err
	}
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:       serial,
		RawSubject:         rawSubject,
		NotBefore:          now.Add(-time.Minute),
		NotAfter:           now.Add(validity),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		SignatureAlgorithm: alg.X509,
	}
	parent := &x509.Certificate{RawSubject: rawIssuer, PublicKey: issuerKey.Public()}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, subjectKey, issuerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to issue certificate: %w", err)
	}
	return der, nil
}
