// Package bootstrap assembles a signer from its configuration. Both the
// server and the CLI start from here.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/MGTheTrain/crypto-signer/internal/app"
	"github.com/MGTheTrain/crypto-signer/internal/domain/device"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/cryptography"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/persistence"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/softtoken"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Runtime is a started signer and the database behind it.
type Runtime struct {
	Signer *app.Signer
	db     *gorm.DB
	logger logger.Logger
}

// New opens and migrates the database, creates the device providers and
// starts a signer over them. The caller must Close the runtime.
func New(ctx context.Context, cfg *config.SignerConfig, log logger.Logger) (*Runtime, error) {
	db, err := persistence.NewDBConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create db connection: %w", err)
	}
	if err := persistence.Migrate(db); err != nil {
		_ = persistence.CloseDB(db)
		return nil, err
	}
	log.Info("Database migrations completed successfully")

	rt, err := newRuntime(ctx, cfg, db, log)
	if err != nil {
		_ = persistence.CloseDB(db)
		return nil, err
	}
	return rt, nil
}

func newRuntime(ctx context.Context, cfg *config.SignerConfig, db *gorm.DB, log logger.Logger) (*Runtime, error) {
	store, err := persistence.NewGormSignerStore(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer store: %w", err)
	}
	ocspRepo, err := persistence.NewGormOcspRepository(db, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCSP repository: %w", err)
	}

	providers, err := Providers(cfg, log)
	if err != nil {
		return nil, err
	}

	s, err := app.NewSigner(cfg.Signer, store, ocspRepo, providers, log)
	if err != nil {
		closeProviders(providers)
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to start signer: %w", err)
	}
	return &Runtime{Signer: s, db: db, logger: log}, nil
}

// Providers creates the software token provider and one PKCS#11 provider
// per configured module. A module that fails to load is logged and
// skipped so the remaining tokens stay usable.
func Providers(cfg *config.SignerConfig, log logger.Logger) ([]device.Provider, error) {
	soft, err := softtoken.NewProvider(cfg.SoftwareToken, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create software token: %w", err)
	}
	providers := []device.Provider{soft}

	for _, module := range cfg.PKCS11.Modules {
		p, err := cryptography.NewPKCS11Provider(module, log)
		if err != nil {
			log.Error(fmt.Sprintf("Failed to load PKCS#11 module %s: %v", module.Name, err))
			continue
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func closeProviders(providers []device.Provider) {
	for _, p := range providers {
		_ = p.Close()
	}
}

// Close logs out of all devices and closes the database.
func (r *Runtime) Close() error {
	var result *multierror.Error
	if err := r.Signer.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := persistence.CloseDB(r.db); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
