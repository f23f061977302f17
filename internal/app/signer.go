package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Signer bundles the signer services over one registry and coordinator.
type Signer struct {
	Tokens  signer.TokenService
	Keys    signer.KeyService
	Certs   signer.CertService
	Signing signer.SigningService
	Ocsp    *OcspCache
	Members signer.MemberService

	Registry    *registry.Registry
	Coordinator *Coordinator
	Reconciler  *Reconciler

	providers       []device.Provider
	refreshInterval time.Duration
	logger          logger.Logger
}

// NewSigner wires the services. store and ocspRepo may be nil for an
// in-memory signer.
func NewSigner(
	settings config.SignerSettings,
	store registry.Store,
	ocspRepo signer.OcspRepository,
	providers []device.Provider,
	logger logger.Logger,
	opt ...CoordinatorOption,
) (*Signer, error) {
	reg := registry.New(store, logger)
	coord := NewCoordinator(settings, logger, opt...)

	tokens, err := NewTokenService(reg, coord, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}
	keys, err := NewKeyService(reg, coord, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create key service: %w", err)
	}
	certs, err := NewCertService(reg, coord, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cert service: %w", err)
	}
	signing, err := NewSigningService(reg, coord, settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create signing service: %w", err)
	}
	ocsp, err := NewOcspCache(ocspRepo, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCSP cache: %w", err)
	}
	members, err := NewMemberService(reg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create member service: %w", err)
	}

	return &Signer{
		Tokens:          tokens,
		Keys:            keys,
		Certs:           certs,
		Signing:         signing,
		Ocsp:            ocsp,
		Members:         members,
		Registry:        reg,
		Coordinator:     coord,
		Reconciler:      NewReconciler(providers, reg, coord, logger),
		providers:       providers,
		refreshInterval: settings.DeviceRefreshInterval,
		logger:          logger,
	}, nil
}

// Start loads persisted state and runs the first reconcile. Reconcile
// failures are logged; the signer starts with whatever devices answered.
func (s *Signer) Start(ctx context.Context) error {
	if err := s.Registry.Load(ctx); err != nil {
		return err
	}
	if err := s.Ocsp.Load(ctx); err != nil {
		return fmt.Errorf("failed to load OCSP responses: %w", err)
	}
	if err := s.Reconciler.Reconcile(ctx); err != nil {
		s.logger.Warn("Initial device reconcile incomplete: ", err)
	}
	return nil
}

// Run reconciles devices and purges expired OCSP responses every refresh
// interval until ctx is done. A zero interval returns immediately.
func (s *Signer) Run(ctx context.Context) {
	if s.refreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reconciler.Reconcile(ctx); err != nil {
				s.logger.Warn("Device reconcile incomplete: ", err)
			}
			if err := s.Ocsp.PurgeExpired(ctx); err != nil {
				s.logger.Warn("Failed to purge expired OCSP responses: ", err)
			}
		}
	}
}

// Close releases all providers.
func (s *Signer) Close() error {
	var result *multierror.Error
	for _, p := range s.providers {
		if err := p.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("provider %s: %w", p.Name(), err))
		}
	}
	return result.ErrorOrNil()
}
