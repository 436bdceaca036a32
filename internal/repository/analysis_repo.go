package repository

import (
	"context"

	"market-advisor/internal/model"
	"market-advisor/pkg/utils"

	"gorm.io/gorm"
)

type AnalysisRepository interface {
	CreateBulk(ctx context.Context, records []model.AnalysisRecord, opts ...utils.DBOption) error
	FindRecent(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error)
}

type analysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) CreateBulk(ctx context.Context, records []model.AnalysisRecord, opts ...utils.DBOption) error {
	if len(records) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(&records).Error
}

func (r *analysisRepository) FindRecent(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error) {
	var records []model.AnalysisRecord
	db := r.db.WithContext(ctx).Order("timestamp DESC").Limit(limit)
	if asset != "" {
		db = db.Where("asset = ?", asset)
	}
	if err := db.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
