package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/internal/repository"
	"market-advisor/internal/technical"
	"market-advisor/pkg/logger"
)

// AnalyzerService runs the four-stage pipeline (price history, technical
// indicators, news sentiment, AI decision) for a single asset.
type AnalyzerService interface {
	Analyze(ctx context.Context, asset string, timeframeDays int, riskTolerance string) (*dto.AssetResult, error)
}

type assetAnalyzer struct {
	cfg           *config.Config
	log           *logger.Logger
	priceRepo     repository.PriceRepository
	sentimentRepo repository.SentimentRepository
	aiRepo        repository.AIRepository
}

func NewAnalyzerService(
	cfg *config.Config,
	log *logger.Logger,
	priceRepo repository.PriceRepository,
	sentimentRepo repository.SentimentRepository,
	aiRepo repository.AIRepository,
) AnalyzerService {
	return &assetAnalyzer{
		cfg:           cfg,
		log:           log,
		priceRepo:     priceRepo,
		sentimentRepo: sentimentRepo,
		aiRepo:        aiRepo,
	}
}

func (a *assetAnalyzer) Analyze(ctx context.Context, asset string, timeframeDays int, riskTolerance string) (*dto.AssetResult, error) {
	if timeframeDays <= 0 {
		timeframeDays = 30
	}
	if riskTolerance == "" {
		riskTolerance = dto.RiskToleranceModerate
	}

	symbol, assetType, ok := dto.ResolveAsset(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", dto.ErrUnknownAsset, asset)
	}

	a.log.DebugContext(ctx, "Starting asset analysis",
		logger.StringField("asset", asset),
		logger.StringField("symbol", symbol),
		logger.IntField("timeframe_days", timeframeDays),
	)

	// Stage 1: price history. Fatal for the asset when missing.
	history, err := a.fetchHistory(ctx, symbol, timeframeDays)
	if err != nil {
		return nil, err
	}

	// Stage 2: technical indicators from the history.
	snapshot := technical.Compute(history, timeframeDays)
	currentPrice := history[len(history)-1].Close

	// Stage 3: sentiment. A failure degrades to the neutral placeholder
	// instead of aborting the pipeline.
	sentiment := a.fetchSentiment(ctx, asset, timeframeDays)

	// Stage 4: AI decision synthesis.
	decision, err := a.synthesize(ctx, dto.DecisionInput{
		Asset:         asset,
		AssetType:     assetType,
		CurrentPrice:  currentPrice,
		Technical:     snapshot,
		Sentiment:     sentiment,
		TimeframeDays: timeframeDays,
		RiskTolerance: riskTolerance,
	})
	if err != nil {
		return nil, err
	}

	result := &dto.AssetResult{
		Asset:         asset,
		AssetType:     assetType,
		Symbol:        symbol,
		CurrentPrice:  currentPrice,
		Technical:     snapshot,
		Sentiment:     sentiment,
		Decision:      decision.Decision,
		Confidence:    decision.Confidence,
		Reasoning:     decision.Reasoning,
		TargetPrice:   decision.TargetPrice,
		StopLoss:      decision.StopLoss,
		PositionSize:  decision.PositionSize,
		RiskLevel:     decision.RiskLevel,
		TimeframeDays: timeframeDays,
		RiskTolerance: riskTolerance,
		Timestamp:     time.Now().UTC(),
	}

	a.log.InfoContext(ctx, "Asset analysis completed",
		logger.StringField("asset", asset),
		logger.StringField("decision", result.Decision),
		logger.Float64Field("confidence", result.Confidence),
	)

	return result, nil
}

func (a *assetAnalyzer) fetchHistory(ctx context.Context, symbol string, timeframeDays int) ([]dto.PricePoint, error) {
	stageCtx, cancel := context.WithTimeout(ctx, a.cfg.Analyzer.StageTimeout)
	defer cancel()

	history, err := a.priceRepo.GetHistory(stageCtx, symbol, timeframeDays)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: price fetch timed out for %s", dto.ErrNoPriceData, symbol)
		}
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: empty history for %s", dto.ErrNoPriceData, symbol)
	}
	return history, nil
}

func (a *assetAnalyzer) fetchSentiment(ctx context.Context, asset string, timeframeDays int) dto.SentimentSnapshot {
	stageCtx, cancel := context.WithTimeout(ctx, a.cfg.Analyzer.StageTimeout)
	defer cancel()

	sentiment, err := a.sentimentRepo.GetSentiment(stageCtx, asset, timeframeDays)
	if err != nil || sentiment == nil {
		a.log.WarnContext(ctx, "Sentiment unavailable, proceeding with neutral placeholder",
			logger.StringField("asset", asset),
			logger.ErrorField(err),
		)
		return dto.SentimentSnapshot{
			Score:    dto.NeutralSentimentScore,
			Degraded: true,
		}
	}
	return *sentiment
}

func (a *assetAnalyzer) synthesize(ctx context.Context, input dto.DecisionInput) (*dto.DecisionOutput, error) {
	decision, err := a.aiRepo.SynthesizeDecision(ctx, input)
	if err != nil {
		if errors.Is(err, dto.ErrDecisionSynthesisFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", dto.ErrDecisionSynthesisFailed, err)
	}
	if decision == nil {
		return nil, fmt.Errorf("%w: empty decision", dto.ErrDecisionSynthesisFailed)
	}
	return decision, nil
}
