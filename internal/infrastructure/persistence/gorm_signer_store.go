package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/persistence/models"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

type gormSignerStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormSignerStore creates a new GORM-based registry.Store implementation
func NewGormSignerStore(db *gorm.DB, logger logger.Logger) (registry.Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &gormSignerStore{
		db:     db,
		logger: logger,
	}, nil
}

func (s *gormSignerStore) Load(ctx context.Context) (*registry.Records, error) {
	db := s.db.WithContext(ctx)

	var tokens []models.TokenModel
	if err := db.Order("id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}
	var keys []models.KeyModel
	if err := db.Order("id").Find(&keys).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch keys: %w", err)
	}
	var certs []models.CertificateModel
	if err := db.Order("created_at, id").Find(&certs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch certificates: %w", err)
	}
	var requests []models.CertRequestModel
	if err := db.Order("created_at, id").Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch certificate requests: %w", err)
	}

	records := &registry.Records{
		Tokens:       make([]registry.Token, 0, len(tokens)),
		Keys:         make([]registry.Key, 0, len(keys)),
		Certs:        make([]registry.Cert, 0, len(certs)),
		CertRequests: make([]registry.CertRequest, 0, len(requests)),
	}
	for i := range tokens {
		records.Tokens = append(records.Tokens, tokens[i].ToRecord())
	}
	for i := range keys {
		records.Keys = append(records.Keys, keys[i].ToRecord())
	}
	for i := range certs {
		records.Certs = append(records.Certs, certs[i].ToRecord())
	}
	for i := range requests {
		records.CertRequests = append(records.CertRequests, requests[i].ToRecord())
	}
	return records, nil
}

// Save removes children before parents and writes parents before children,
// all in one transaction.
func (s *gormSignerStore) Save(ctx context.Context, changes *registry.Changeset) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(changes.DeletedCertRequests) > 0 {
			if err := tx.Where("id IN ?", changes.DeletedCertRequests).Delete(&models.CertRequestModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete certificate requests: %w", err)
			}
		}
		if len(changes.DeletedCerts) > 0 {
			if err := tx.Where("id IN ?", changes.DeletedCerts).Delete(&models.CertificateModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete certificates: %w", err)
			}
		}
		if len(changes.DeletedKeys) > 0 {
			if err := tx.Where("id IN ?", changes.DeletedKeys).Delete(&models.KeyModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}
		if len(changes.DeletedTokens) > 0 {
			if err := tx.Where("id IN ?", changes.DeletedTokens).Delete(&models.TokenModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete tokens: %w", err)
			}
		}

		for _, t := range changes.Upserts.Tokens {
			model := &models.TokenModel{}
			model.FromRecord(t)
			if err := upsert(tx, model); err != nil {
				return fmt.Errorf("failed to save token %s: %w", t.ID, err)
			}
		}
		for _, k := range changes.Upserts.Keys {
			model := &models.KeyModel{}
			model.FromRecord(k)
			if err := upsert(tx, model); err != nil {
				return fmt.Errorf("failed to save key %s: %w", k.ID, err)
			}
		}
		for _, c := range changes.Upserts.Certs {
			model := &models.CertificateModel{}
			model.FromRecord(c)
			if err := upsert(tx, model); err != nil {
				return fmt.Errorf("failed to save certificate %s: %w", c.ID, err)
			}
		}
		for _, r := range changes.Upserts.CertRequests {
			model := &models.CertRequestModel{}
			model.FromRecord(r)
			if err := upsert(tx, model); err != nil {
				return fmt.Errorf("failed to save certificate request %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug(fmt.Sprintf("Saved registry changes: %d tokens, %d keys, %d certificates, %d certificate requests written",
		len(changes.Upserts.Tokens), len(changes.Upserts.Keys), len(changes.Upserts.Certs), len(changes.Upserts.CertRequests)))
	return nil
}

func upsert(tx *gorm.DB, model interface{}) error {
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error
}
