package repository

import (
	"market-advisor/config"
	"market-advisor/pkg/cache"
	"market-advisor/pkg/logger"

	"gorm.io/gorm"
)

type Repository struct {
	ScheduleRepo  ScheduleRepository
	AnalysisRepo  AnalysisRepository
	PriceRepo     PriceRepository
	SentimentRepo SentimentRepository
	AIRepo        AIRepository
}

func NewRepository(cfg *config.Config, inmemoryCache cache.Cache, db *gorm.DB, log *logger.Logger) (*Repository, error) {
	aiRepo, err := NewGeminiAIRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return &Repository{
		ScheduleRepo:  NewScheduleRepository(db),
		AnalysisRepo:  NewAnalysisRepository(db),
		PriceRepo:     NewYahooPriceRepository(cfg, log, inmemoryCache),
		SentimentRepo: NewNewsSentimentRepository(cfg, log, inmemoryCache),
		AIRepo:        aiRepo,
	}, nil
}
