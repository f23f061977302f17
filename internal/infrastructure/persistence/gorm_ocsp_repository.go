package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/persistence/models"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

type gormOcspRepository struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormOcspRepository creates a new GORM-based OcspRepository implementation
func NewGormOcspRepository(db *gorm.DB, logger logger.Logger) (signer.OcspRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &gormOcspRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *gormOcspRepository) Upsert(ctx context.Context, responses []signer.OcspResponse) error {
	if len(responses) == 0 {
		return nil
	}

	modelList := make([]*models.OcspResponseModel, len(responses))
	for i, resp := range responses {
		modelList[i] = &models.OcspResponseModel{}
		modelList[i].FromDomain(resp)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cert_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{"response", "next_update", "updated_at"}),
		}).
		Create(&modelList).Error
	if err != nil {
		return fmt.Errorf("failed to save OCSP responses: %w", err)
	}

	r.logger.Debug("Saved ", len(responses), " OCSP responses")
	return nil
}

func (r *gormOcspRepository) List(ctx context.Context) ([]signer.OcspResponse, error) {
	var modelList []*models.OcspResponseModel
	if err := r.db.WithContext(ctx).Order("cert_hash").Find(&modelList).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch OCSP responses: %w", err)
	}

	domainList := make([]signer.OcspResponse, len(modelList))
	for i, model := range modelList {
		domainList[i] = model.ToDomain()
	}
	return domainList, nil
}

func (r *gormOcspRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("next_update IS NOT NULL AND next_update < ?", now).
		Delete(&models.OcspResponseModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired OCSP responses: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		r.logger.Info("Deleted ", result.RowsAffected, " expired OCSP responses")
	}
	return result.RowsAffected, nil
}
