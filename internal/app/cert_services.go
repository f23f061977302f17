package app

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// certService implements the CertService interface
type certService struct {
	registry    *registry.Registry
	coordinator *Coordinator
	logger      logger.Logger
	now         func() time.Time
}

// NewCertService creates a new certService instance
func NewCertService(registry *registry.Registry, coordinator *Coordinator, logger logger.Logger) (signer.CertService, error) {
	return &certService{
		registry:    registry,
		coordinator: coordinator,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// deviceSigner exposes key, held by dev, as a crypto.Signer.
func deviceSigner(dev device.Device, key registry.Key) (*cryptography.DeviceSigner, error) {
	return cryptography.NewDeviceSigner(key.PublicKey, func(alg cryptoalg.SignAlgorithm, digest []byte) ([]byte, error) {
		return dev.Sign(key.ID, alg, digest)
	})
}

// checkUsage enforces that authentication keys live on the software token
// and that a key serves a single usage.
func checkUsage(op signererrors.Op, t registry.Token, k registry.Key, usage signer.KeyUsage) error {
	if usage == signer.KeyUsageAuthentication && t.Type == signer.TokenTypeHardware {
		return signererrors.New(signererrors.WrongCertUsage, op,
			fmt.Sprintf("Authentication certificate requests can only be created under software tokens (key '%s')", k.ID),
			signererrors.WithTranslation(signererrors.TranslationAuthCertUnderSoftToken))
	}
	if usage != signer.KeyUsageUnrestricted && k.Usage != signer.KeyUsageUnrestricted && k.Usage != usage {
		return signererrors.New(signererrors.WrongCertUsage, op,
			fmt.Sprintf("Key '%s' is used for %s, not %s", k.ID, k.Usage, usage),
			signererrors.WithTranslation(signererrors.TranslationKeyUsageMismatch))
	}
	return nil
}

func validateMember(op signererrors.Op, m *signer.MemberID) error {
	if m == nil {
		return nil
	}
	if err := m.Validate(); err != nil {
		return invalidParameter(op, err)
	}
	return nil
}

// fixUsage re-checks usage against the key as it is inside tx and records
// it the first time the key is used.
func fixUsage(op signererrors.Op, tx *registry.Tx, t registry.Token, keyID string, usage signer.KeyUsage) error {
	k, ok := tx.Key(keyID)
	if !ok {
		return signererrors.ErrKeyNotFound(op, keyID)
	}
	if err := checkUsage(op, t, k, usage); err != nil {
		return err
	}
	if k.Usage != signer.KeyUsageUnrestricted || usage == signer.KeyUsageUnrestricted {
		return nil
	}
	k.Usage = usage
	return tx.PutKey(k)
}

// putChildError maps registry write failures of a key's child record.
func putChildError(op signererrors.Op, keyID string, err error) error {
	if errors.Is(err, registry.ErrParentNotFound) {
		return signererrors.ErrKeyNotFound(op, keyID)
	}
	return err
}

// GenerateCertRequest creates a PKCS#10 request signed by the key
func (s *certService) GenerateCertRequest(ctx context.Context, params signer.CertRequestParams) (*signer.GeneratedCertRequest, error) {
	const op = "CertService.GenerateCertRequest"

	if err := params.Validate(); err != nil {
		return nil, invalidParameter(op, err)
	}
	if err := validateMember(op, params.MemberID); err != nil {
		return nil, err
	}
	if _, err := cryptography.ParseDistinguishedName(params.SubjectName); err != nil {
		return nil, invalidParameter(op, err)
	}
	k, t, err := lookupKey(s.registry.Snapshot(), op, params.KeyID)
	if err != nil {
		return nil, err
	}
	if err := checkUsage(op, t, k, params.Usage); err != nil {
		return nil, err
	}
	if err := requireUsable(op, t); err != nil {
		return nil, err
	}

	req := registry.CertRequest{
		ID:          uuid.NewString(),
		KeyID:       k.ID,
		MemberID:    params.MemberID,
		Usage:       params.Usage,
		SubjectName: params.SubjectName,
		Format:      params.Format,
		CreatedAt:   s.now().UTC(),
	}

	var csr []byte
	err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
		ds, err := deviceSigner(dev, k)
		if err != nil {
			return err
		}
		if csr, err = cryptography.BuildCertRequest(ds, params.SubjectName, params.Format); err != nil {
			return deviceError(op, t.ID, err)
		}
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if err := fixUsage(op, tx, t, k.ID, params.Usage); err != nil {
				return err
			}
			return putChildError(op, k.ID, tx.PutCertRequest(req))
		})
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}

	s.logger.Info("Generated certificate request ", req.ID, " for key ", k.ID)
	return &signer.GeneratedCertRequest{ID: req.ID, Bytes: csr, Format: params.Format}, nil
}

// RegenerateCertRequest re-creates the bytes of an existing request
func (s *certService) RegenerateCertRequest(ctx context.Context, csrID string, format signer.CertRequestFormat) (*signer.GeneratedCertRequest, error) {
	const op = "CertService.RegenerateCertRequest"

	if format != signer.CertRequestFormatPEM && format != signer.CertRequestFormatDER {
		return nil, signererrors.New(signererrors.InvalidParameter, op, fmt.Sprintf("Unsupported format '%s'", format))
	}
	snap := s.registry.Snapshot()
	req, ok := snap.CertRequest(csrID)
	if !ok {
		return nil, signererrors.ErrCsrNotFound(op, csrID)
	}
	k, t, err := lookupKey(snap, op, req.KeyID)
	if err != nil {
		return nil, err
	}
	if err := requireUsable(op, t); err != nil {
		return nil, err
	}

	var csr []byte
	err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
		ds, err := deviceSigner(dev, k)
		if err != nil {
			return err
		}
		if csr, err = cryptography.BuildCertRequest(ds, req.SubjectName, format); err != nil {
			return deviceError(op, t.ID, err)
		}
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.CertRequest(csrID)
			if !ok {
				return signererrors.ErrCsrNotFound(op, csrID)
			}
			cur.Format = format
			return tx.PutCertRequest(cur)
		})
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}
	return &signer.GeneratedCertRequest{ID: csrID, Bytes: csr, Format: format}, nil
}

// DeleteCertRequest removes a certificate request
func (s *certService) DeleteCertRequest(ctx context.Context, csrID string) error {
	const op = "CertService.DeleteCertRequest"

	snap := s.registry.Snapshot()
	req, ok := snap.CertRequest(csrID)
	if !ok {
		return signererrors.ErrCsrNotFound(op, csrID)
	}
	_, t, err := lookupKey(snap, op, req.KeyID)
	if err != nil {
		return err
	}

	err = s.coordinator.Lock(ctx, t.ID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if _, ok := tx.CertRequest(csrID); !ok {
				return signererrors.ErrCsrNotFound(op, csrID)
			}
			tx.DeleteCertRequest(csrID)
			return nil
		})
	})
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Deleted certificate request ", csrID)
	return nil
}

// GenerateSelfSignedCert creates a self-signed certificate for the key and
// attaches it as a saved, active certificate
func (s *certService) GenerateSelfSignedCert(ctx context.Context, params signer.SelfSignedCertParams) ([]byte, error) {
	const op = "CertService.GenerateSelfSignedCert"

	if err := params.Validate(); err != nil {
		return nil, invalidParameter(op, err)
	}
	if err := validateMember(op, params.MemberID); err != nil {
		return nil, err
	}
	if _, err := cryptography.ParseDistinguishedName(params.SubjectName); err != nil {
		return nil, invalidParameter(op, err)
	}
	k, t, err := lookupKey(s.registry.Snapshot(), op, params.KeyID)
	if err != nil {
		return nil, err
	}
	if err := checkUsage(op, t, k, params.Usage); err != nil {
		return nil, err
	}
	if err := requireUsable(op, t); err != nil {
		return nil, err
	}

	var der []byte
	err = s.coordinator.Do(ctx, t.ID, func(dev device.Device) error {
		ds, err := deviceSigner(dev, k)
		if err != nil {
			return err
		}
		der, err = cryptography.BuildSelfSignedCert(ds, params.SubjectName, params.Usage, params.NotBefore, params.NotAfter)
		if err != nil {
			return deviceError(op, t.ID, err)
		}
		now := s.now().UTC()
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if err := fixUsage(op, tx, t, k.ID, params.Usage); err != nil {
				return err
			}
			err := tx.PutCert(registry.Cert{
				ID:          uuid.NewString(),
				KeyID:       k.ID,
				MemberID:    params.MemberID,
				DER:         der,
				Status:      signer.CertStatusSaved,
				Hash:        cryptography.CertHash(der),
				Active:      true,
				ActivatedAt: now,
				CreatedAt:   now,
			})
			if errors.Is(err, registry.ErrHashConflict) {
				return signererrors.New(signererrors.CertificateExists, op, "Certificate already exists", signererrors.WithWrap(err))
			}
			return putChildError(op, k.ID, err)
		})
	})
	if err != nil {
		return nil, signererrors.Wrap(err, op)
	}

	s.logger.Info("Generated self-signed certificate for key ", k.ID)
	return der, nil
}

// ImportCert attaches a certificate to the key holding its public key and
// drops the key's requests for the same member
func (s *certService) ImportCert(ctx context.Context, certBytes []byte, initialStatus signer.CertStatus, memberID *signer.MemberID) (string, error) {
	const op = "CertService.ImportCert"

	if err := validateMember(op, memberID); err != nil {
		return "", err
	}
	cert, err := cryptography.ParseCertificate(certBytes)
	if err != nil {
		return "", invalidParameter(op, err)
	}
	if initialStatus == "" {
		initialStatus = signer.CertStatusSaved
	}
	pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
	if err != nil {
		return "", invalidParameter(op, err)
	}

	snap := s.registry.Snapshot()
	hash := cryptography.CertHash(cert.Raw)
	if _, exists := snap.CertByHash(hash); exists {
		return "", signererrors.New(signererrors.CertificateExists, op,
			fmt.Sprintf("Certificate with hash '%s' already exists", hash))
	}
	k, ok := snap.KeyByPublicKey(pub)
	if !ok {
		return "", signererrors.New(signererrors.KeyNotFound, op,
			"Could not find key that has public key that matches the public key of certificate",
			signererrors.WithTranslation(signererrors.TranslationKeyNotFoundForCert))
	}
	t, err := lookupToken(snap, op, k.TokenID)
	if err != nil {
		return "", err
	}
	usage := cryptography.UsageOf(cert)
	if err := checkUsage(op, t, k, usage); err != nil {
		return "", err
	}

	now := s.now().UTC()
	record := registry.Cert{
		ID:        uuid.NewString(),
		KeyID:     k.ID,
		MemberID:  memberID,
		DER:       cert.Raw,
		Status:    initialStatus,
		Hash:      hash,
		CreatedAt: now,
	}
	if initialStatus == signer.CertStatusRegistered {
		record.Active = true
		record.ActivatedAt = now
	}

	err = s.coordinator.Lock(ctx, t.ID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if err := fixUsage(op, tx, t, k.ID, usage); err != nil {
				return err
			}
			if err := tx.PutCert(record); err != nil {
				if errors.Is(err, registry.ErrHashConflict) {
					return signererrors.New(signererrors.CertificateExists, op,
						fmt.Sprintf("Certificate with hash '%s' already exists", hash), signererrors.WithWrap(err))
				}
				return putChildError(op, k.ID, err)
			}
			for _, req := range tx.CertRequestsOf(k.ID) {
				if sameMember(req.MemberID, memberID) {
					tx.DeleteCertRequest(req.ID)
				}
			}
			return nil
		})
	})
	if err != nil {
		return "", signererrors.Wrap(err, op)
	}

	s.logger.Info("Imported certificate ", record.ID, " for key ", k.ID)
	return k.ID, nil
}

// updateCert applies fn to a certificate under its token's slot.
func (s *certService) updateCert(ctx context.Context, op signererrors.Op, certID string, fn func(c *registry.Cert)) error {
	snap := s.registry.Snapshot()
	c, ok := snap.Cert(certID)
	if !ok {
		return signererrors.ErrCertNotFound(op, certID)
	}
	_, t, err := lookupKey(snap, op, c.KeyID)
	if err != nil {
		return err
	}

	err = s.coordinator.Lock(ctx, t.ID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			cur, ok := tx.Cert(certID)
			if !ok {
				return signererrors.ErrCertNotFound(op, certID)
			}
			fn(&cur)
			return tx.PutCert(cur)
		})
	})
	return signererrors.Wrap(err, op)
}

// ActivateCert marks a certificate active
func (s *certService) ActivateCert(ctx context.Context, certID string) error {
	return s.updateCert(ctx, "CertService.ActivateCert", certID, func(c *registry.Cert) {
		if !c.Active {
			c.Active = true
			c.ActivatedAt = s.now().UTC()
		}
	})
}

// DeactivateCert marks a certificate inactive
func (s *certService) DeactivateCert(ctx context.Context, certID string) error {
	return s.updateCert(ctx, "CertService.DeactivateCert", certID, func(c *registry.Cert) {
		c.Active = false
	})
}

// SetCertStatus changes the registration status of a certificate
func (s *certService) SetCertStatus(ctx context.Context, certID string, status signer.CertStatus) error {
	const op = "CertService.SetCertStatus"

	if status == "" {
		return signererrors.New(signererrors.InvalidParameter, op, "Status must not be empty")
	}
	return s.updateCert(ctx, op, certID, func(c *registry.Cert) {
		c.Status = status
	})
}

// DeleteCert removes a certificate from its key
func (s *certService) DeleteCert(ctx context.Context, certID string) error {
	const op = "CertService.DeleteCert"

	snap := s.registry.Snapshot()
	c, ok := snap.Cert(certID)
	if !ok {
		return signererrors.ErrCertNotFound(op, certID)
	}
	_, t, err := lookupKey(snap, op, c.KeyID)
	if err != nil {
		return err
	}

	err = s.coordinator.Lock(ctx, t.ID, func() error {
		return s.registry.Update(ctx, func(tx *registry.Tx) error {
			if _, ok := tx.Cert(certID); !ok {
				return signererrors.ErrCertNotFound(op, certID)
			}
			tx.DeleteCert(certID)
			return nil
		})
	})
	if err != nil {
		return signererrors.Wrap(err, op)
	}

	s.logger.Info("Deleted certificate ", certID)
	return nil
}

// activeCertByHash returns the active certificate with hash and its key.
func activeCertByHash(snap *registry.Snapshot, op signererrors.Op, hash string) (registry.Cert, registry.Key, registry.Token, error) {
	c, ok := snap.CertByHash(hash)
	if !ok || !c.Active {
		return registry.Cert{}, registry.Key{}, registry.Token{}, signererrors.ErrCertWithHashNotFound(op, hash)
	}
	k, t, err := lookupKey(snap, op, c.KeyID)
	if err != nil {
		return registry.Cert{}, registry.Key{}, registry.Token{}, err
	}
	return c, k, t, nil
}

// GetCertForHash returns the active certificate with the given hash
func (s *certService) GetCertForHash(_ context.Context, hash string) (*signer.CertificateInfo, error) {
	const op = "CertService.GetCertForHash"

	c, _, _, err := activeCertByHash(s.registry.Snapshot(), op, hash)
	if err != nil {
		return nil, err
	}
	info := c.Info()
	return &info, nil
}

// GetKeyIDForCertHash returns the key of the active certificate with the given hash
func (s *certService) GetKeyIDForCertHash(_ context.Context, hash string) (*signer.KeyIDInfo, error) {
	const op = "CertService.GetKeyIDForCertHash"

	_, k, _, err := activeCertByHash(s.registry.Snapshot(), op, hash)
	if err != nil {
		return nil, err
	}
	return &signer.KeyIDInfo{KeyID: k.ID, SignMechanism: k.SignMechanism}, nil
}

// GetTokenAndKeyIDForCertHash returns the token and key of the active
// certificate with the given hash
func (s *certService) GetTokenAndKeyIDForCertHash(_ context.Context, hash string) (*signer.TokenInfoAndKeyID, error) {
	const op = "CertService.GetTokenAndKeyIDForCertHash"

	snap := s.registry.Snapshot()
	_, k, t, err := activeCertByHash(snap, op, hash)
	if err != nil {
		return nil, err
	}
	info, _ := snap.TokenInfo(t.ID)
	return &signer.TokenInfoAndKeyID{Token: info, KeyID: k.ID}, nil
}

// GetMemberCerts returns the certificates bound to a member
func (s *certService) GetMemberCerts(_ context.Context, memberID signer.MemberID) ([]signer.CertificateInfo, error) {
	const op = "CertService.GetMemberCerts"

	if err := validateMember(op, &memberID); err != nil {
		return nil, err
	}
	var out []signer.CertificateInfo
	for _, c := range s.registry.Snapshot().Certs() {
		if c.MemberID != nil && *c.MemberID == memberID {
			out = append(out, c.Info())
		}
	}
	return out, nil
}
