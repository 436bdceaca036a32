package service

import (
	"market-advisor/config"
	"market-advisor/internal/repository"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/notify"
)

type Service struct {
	AnalyzerService AnalyzerService
	BatchService    BatchService
	ScheduleService ScheduleService
	Scheduler       SchedulerService
}

func NewService(cfg *config.Config, log *logger.Logger, repo *repository.Repository, notifier notify.Notifier) *Service {
	analyzerSvc := NewAnalyzerService(cfg, log, repo.PriceRepo, repo.SentimentRepo, repo.AIRepo)
	batchSvc := NewBatchService(cfg, log, analyzerSvc, NewMarketSummaryAggregator(), repo.AnalysisRepo)
	scheduleSvc := NewScheduleService(cfg, log, repo.ScheduleRepo)
	schedulerSvc := NewSchedulerService(cfg, log, repo.ScheduleRepo, scheduleSvc, batchSvc, notifier)

	return &Service{
		AnalyzerService: analyzerSvc,
		BatchService:    batchSvc,
		ScheduleService: scheduleSvc,
		Scheduler:       schedulerSvc,
	}
}
