package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// signingService implements the SigningService interface
type signingService struct {
	registry     *registry.Registry
	coordinator  *Coordinator
	certValidity time.Duration
	logger       logger.Logger
}

// NewSigningService creates a new signingService instance
func NewSigningService(registry *registry.Registry, coordinator *Coordinator, settings config.SignerSettings, logger logger.Logger) (signer.SigningService, error) {
	validity := settings.CertValidity
	if validity <= 0 {
		validity = 20 * 365 * 24 * time.Hour
	}
	return &signingService{
		registry:     registry,
		coordinator:  coordinator,
		certValidity: validity,
		logger:       logger,
	}, nil
}

func cannotSign(op signererrors.Op, msg string, err error) error {
	opts := []signererrors.Option{}
	if err != nil {
		opts = append(opts, signererrors.WithWrap(err))
	}
	return signererrors.New(signererrors.CannotSign, op, msg, opts...)
}

// prepare resolves the key, its token and the algorithm of a signing call.
func (s *signingService) prepare(op signererrors.Op, keyID, algorithmID string) (registry.Key, registry.Token, cryptoalg.SignAlgorithm, error) {
	k, t, err := lookupKey(s.registry.Snapshot(), op, keyID)
	if err != nil {
		return registry.Key{}, registry.Token{}, cryptoalg.SignAlgorithm{}, err
	}
	alg, ok := cryptoalg.SignAlgorithmByID(algorithmID)
	if !ok {
		return registry.Key{}, registry.Token{}, cryptoalg.SignAlgorithm{},
			cannotSign(op, fmt.Sprintf("Unknown sign algorithm id: %s", algorithmID), nil)
	}
	_, keyAlg, err := cryptoalg.ParsePublicKey(k.PublicKey)
	if err != nil {
		return registry.Key{}, registry.Token{}, cryptoalg.SignAlgorithm{},
			cannotSign(op, fmt.Sprintf("Key '%s' has no usable public key", keyID), err)
	}
	if keyAlg != alg.KeyAlgorithm {
		return registry.Key{}, registry.Token{}, cryptoalg.SignAlgorithm{},
			cannotSign(op, fmt.Sprintf("Sign algorithm %s does not match %s key '%s'", algorithmID, keyAlg, keyID), nil)
	}
	if err := requireUsable(op, t); err != nil {
		return registry.Key{}, registry.Token{}, cryptoalg.SignAlgorithm{}, err
	}
	return k, t, alg, nil
}

// signingFailure maps device failures to CannotSign, keeping token state
// and availability errors as they are.
func signingFailure(op signererrors.Op, tokenID string, err error) error {
	mapped := deviceError(op, tokenID, err)
	if signererrors.Match(signererrors.InternalError, mapped) {
		return cannotSign(op, err.Error(), err)
	}
	return mapped
}

// Sign signs a precomputed digest with the key
func (s *signingService) Sign(ctx context.Context, keyID, algorithmID string, digest []byte) ([]byte, error) {
	const op = "SigningService.Sign"

	k, t, alg, err := s.prepare(op, keyID, algorithmID)
	if err != nil {
		return nil, err
	}
	if len(digest) == 0 {
		return nil, signererrors.New(signererrors.InvalidParameter, op, "Digest cannot be empty")
	}
	// PSS encodes the digest length into the signature; PKCS#1 v1.5 and
	// ECDSA sign the digest as supplied.
	if alg.PSS && len(digest) != alg.Hash.Size() {
		return nil, signererrors.New(signererrors.InvalidParameter, op,
			fmt.Sprintf("Digest length %d does not match %s", len(digest), algorithmID))
	}

	var signature []byte
	err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
		sig, err := dev.Sign(k.ID, alg, digest)
		if err != nil {
			return signingFailure(op, t.ID, err)
		}
		signature = sig
		return nil
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}
	return signature, nil
}

// issuerName is the DER subject of the key's most recent certificate, or
// subjectName when the key has none.
func (s *signingService) issuerName(keyID, subjectName string) ([]byte, error) {
	certs := s.registry.Snapshot().CertsOf(keyID)
	for i := len(certs) - 1; i >= 0; i-- {
		parsed, err := cryptography.ParseCertificate(certs[i].DER)
		if err == nil {
			return parsed.RawSubject, nil
		}
	}
	return cryptography.MarshalDistinguishedName(subjectName)
}

// SignCertificate issues a certificate over publicKey signed by the key
func (s *signingService) SignCertificate(ctx context.Context, keyID, algorithmID, subjectName string, publicKey []byte) ([]byte, error) {
	const op = "SigningService.SignCertificate"

	k, t, alg, err := s.prepare(op, keyID, algorithmID)
	if err != nil {
		return nil, err
	}
	subjectKey, _, err := cryptoalg.ParsePublicKey(publicKey)
	if err != nil {
		return nil, invalidParameter(op, err)
	}
	if _, err := cryptography.ParseDistinguishedName(subjectName); err != nil {
		return nil, invalidParameter(op, err)
	}
	issuer, err := s.issuerName(k.ID, subjectName)
	if err != nil {
		return nil, invalidParameter(op, err)
	}

	var der []byte
	err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
		ds, err := deviceSigner(dev, k)
		if err != nil {
			return cannotSign(op, err.Error(), err)
		}
		der, err = cryptography.IssueCertificate(ds, alg, issuer, subjectName, subjectKey, s.certValidity)
		if err != nil {
			return signingFailure(op, t.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}

	s.logger.Info("Issued certificate for '", subjectName, "' with key ", k.ID)
	return der, nil
}
