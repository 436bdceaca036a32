package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gorm.io/datatypes"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/internal/repository"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/utils"
)

// BatchService fans a set of assets out across the analyzer with bounded
// concurrency and collects results in input order.
type BatchService interface {
	AnalyzeMany(ctx context.Context, assets []string, timeframeDays int, riskTolerance string) (*dto.BatchResult, error)
	RecentAnalyses(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error)
}

type batchCoordinator struct {
	cfg          *config.Config
	log          *logger.Logger
	analyzer     AnalyzerService
	aggregator   MarketSummaryAggregator
	analysisRepo repository.AnalysisRepository
}

func NewBatchService(
	cfg *config.Config,
	log *logger.Logger,
	analyzer AnalyzerService,
	aggregator MarketSummaryAggregator,
	analysisRepo repository.AnalysisRepository,
) BatchService {
	return &batchCoordinator{
		cfg:          cfg,
		log:          log,
		analyzer:     analyzer,
		aggregator:   aggregator,
		analysisRepo: analysisRepo,
	}
}

// outcome holds either a result or a failure for one input slot.
type outcome struct {
	result  *dto.AssetResult
	failure *dto.AssetFailure
}

func (b *batchCoordinator) AnalyzeMany(ctx context.Context, assets []string, timeframeDays int, riskTolerance string) (*dto.BatchResult, error) {
	assets = dedupeAssets(assets)
	if len(assets) == 0 {
		return nil, dto.ErrEmptyAssetSet
	}

	b.log.InfoContext(ctx, "Starting batch analysis",
		logger.IntField("asset_count", len(assets)),
		logger.IntField("timeframe_days", timeframeDays),
	)

	maxConcurrency := b.cfg.Analyzer.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	outcomes := make([]outcome, len(assets))
	semaphore := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	for i, asset := range assets {
		wg.Add(1)
		semaphore <- struct{}{}
		idx, name := i, asset
		utils.GoSafe(func() {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcomes[idx] = b.analyzeOne(ctx, name, timeframeDays, riskTolerance)
		})
	}
	wg.Wait()

	batch := &dto.BatchResult{
		Successful: []dto.AssetResult{},
		Failed:     []dto.AssetFailure{},
	}
	for _, out := range outcomes {
		if out.result != nil {
			batch.Successful = append(batch.Successful, *out.result)
		} else if out.failure != nil {
			batch.Failed = append(batch.Failed, *out.failure)
		}
	}

	if len(batch.Successful) > 0 {
		summary := b.aggregator.Summarize(batch.Successful)
		batch.MarketSummary = &summary
		b.persistResults(ctx, batch.Successful)
	}

	b.log.InfoContext(ctx, "Batch analysis completed",
		logger.IntField("successful", len(batch.Successful)),
		logger.IntField("failed", len(batch.Failed)),
	)

	return batch, nil
}

// analyzeOne always fills its slot. A panicking analyzer is recorded as an
// internal failure so the batch still accounts for every input asset.
func (b *batchCoordinator) analyzeOne(ctx context.Context, asset string, timeframeDays int, riskTolerance string) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			b.log.ErrorContext(ctx, "Asset analysis panicked",
				logger.StringField("asset", asset),
				logger.StringField("panic", fmt.Sprintf("%v", r)),
			)
			out = outcome{failure: &dto.AssetFailure{
				Asset:     asset,
				ErrorKind: dto.FailureInternal,
				Message:   fmt.Sprintf("internal error: %v", r),
			}}
		}
	}()

	result, err := b.analyzer.Analyze(ctx, asset, timeframeDays, riskTolerance)
	if err != nil {
		b.log.WarnContext(ctx, "Asset analysis failed",
			logger.StringField("asset", asset),
			logger.ErrorField(err),
		)
		return outcome{failure: &dto.AssetFailure{
			Asset:     asset,
			ErrorKind: dto.FailureKindOf(err),
			Message:   err.Error(),
		}}
	}
	return outcome{result: result}
}

// RecentAnalyses returns stored analyses for an asset, newest first.
func (b *batchCoordinator) RecentAnalyses(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return b.analysisRepo.FindRecent(ctx, strings.ToLower(strings.TrimSpace(asset)), limit)
}

// persistResults stores successful analyses for later retrieval. Storage
// errors are logged and never fail the batch.
func (b *batchCoordinator) persistResults(ctx context.Context, results []dto.AssetResult) {
	if b.analysisRepo == nil {
		return
	}
	records := make([]model.AnalysisRecord, 0, len(results))
	for _, r := range results {
		technicalJSON, err := json.Marshal(r.Technical)
		if err != nil {
			continue
		}
		sentimentJSON, err := json.Marshal(r.Sentiment)
		if err != nil {
			continue
		}
		resultJSON, err := json.Marshal(r)
		if err != nil {
			continue
		}
		records = append(records, model.AnalysisRecord{
			Asset:         r.Asset,
			AssetType:     string(r.AssetType),
			Symbol:        r.Symbol,
			CurrentPrice:  r.CurrentPrice,
			Decision:      r.Decision,
			Confidence:    r.Confidence,
			RiskLevel:     r.RiskLevel,
			TimeframeDays: r.TimeframeDays,
			Technical:     datatypes.JSON(technicalJSON),
			Sentiment:     datatypes.JSON(sentimentJSON),
			Result:        datatypes.JSON(resultJSON),
			Timestamp:     r.Timestamp,
		})
	}
	if err := b.analysisRepo.CreateBulk(ctx, records); err != nil {
		b.log.ErrorContext(ctx, "Failed to persist analysis records", logger.ErrorField(err))
	}
}

// dedupeAssets normalizes names and drops duplicates, keeping first
// occurrence order.
func dedupeAssets(assets []string) []string {
	seen := make(map[string]struct{}, len(assets))
	deduped := make([]string, 0, len(assets))
	for _, asset := range assets {
		name := strings.ToLower(strings.TrimSpace(asset))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		deduped = append(deduped, name)
	}
	return deduped
}
