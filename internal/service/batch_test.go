package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-advisor/internal/dto"
)

func resultFor(asset string, decision string, confidence float64) *dto.AssetResult {
	return &dto.AssetResult{
		Asset:      asset,
		Decision:   decision,
		Confidence: confidence,
		RiskLevel:  dto.RiskMedium,
		Timestamp:  time.Now().UTC(),
	}
}

func TestBatchCoordinator_AnalyzeMany(t *testing.T) {
	t.Run("empty asset set fails fast", func(t *testing.T) {
		svc := NewBatchService(testConfig(), testLogger(), &stubAnalyzer{}, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		_, err := svc.AnalyzeMany(context.Background(), nil, 30, "")
		assert.ErrorIs(t, err, dto.ErrEmptyAssetSet)

		_, err = svc.AnalyzeMany(context.Background(), []string{"  ", ""}, 30, "")
		assert.ErrorIs(t, err, dto.ErrEmptyAssetSet)
	})

	t.Run("results preserve input order", func(t *testing.T) {
		// Later inputs finish first to prove ordering is by input, not
		// completion.
		delays := map[string]time.Duration{"gold": 30 * time.Millisecond, "silver": 15 * time.Millisecond, "apple": 0}
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			time.Sleep(delays[asset])
			return resultFor(asset, dto.DecisionHold, 0.5), nil
		}}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver", "apple"}, 30, "")
		require.NoError(t, err)
		require.Len(t, batch.Successful, 3)

		assert.Equal(t, "gold", batch.Successful[0].Asset)
		assert.Equal(t, "silver", batch.Successful[1].Asset)
		assert.Equal(t, "apple", batch.Successful[2].Asset)
		assert.Empty(t, batch.Failed)
	})

	t.Run("failures are isolated per asset", func(t *testing.T) {
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			switch asset {
			case "silver":
				return nil, fmt.Errorf("%w: no bars", dto.ErrNoPriceData)
			case "tesla":
				return nil, fmt.Errorf("%w: model refused", dto.ErrDecisionSynthesisFailed)
			default:
				return resultFor(asset, dto.DecisionBuy, 0.7), nil
			}
		}}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver", "tesla", "apple"}, 30, "")
		require.NoError(t, err)

		require.Len(t, batch.Successful, 2)
		require.Len(t, batch.Failed, 2)
		assert.Equal(t, "gold", batch.Successful[0].Asset)
		assert.Equal(t, "apple", batch.Successful[1].Asset)
		assert.Equal(t, "silver", batch.Failed[0].Asset)
		assert.Equal(t, dto.FailureNoPriceData, batch.Failed[0].ErrorKind)
		assert.Equal(t, "tesla", batch.Failed[1].Asset)
		assert.Equal(t, dto.FailureDecisionSynthesis, batch.Failed[1].ErrorKind)
	})

	t.Run("panicking analyzer recorded as internal failure", func(t *testing.T) {
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			if asset == "silver" {
				panic("nil snapshot")
			}
			return resultFor(asset, dto.DecisionBuy, 0.7), nil
		}}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver", "apple"}, 30, "")
		require.NoError(t, err)

		require.Len(t, batch.Successful, 2)
		require.Len(t, batch.Failed, 1)
		assert.Equal(t, "silver", batch.Failed[0].Asset)
		assert.Equal(t, dto.FailureInternal, batch.Failed[0].ErrorKind)
		assert.Contains(t, batch.Failed[0].Message, "nil snapshot")
	})

	t.Run("summary present only with at least one success", func(t *testing.T) {
		failing := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			return nil, dto.ErrNoPriceData
		}}
		svc := NewBatchService(testConfig(), testLogger(), failing, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver"}, 30, "")
		require.NoError(t, err)
		assert.Nil(t, batch.MarketSummary)
		assert.Len(t, batch.Failed, 2)

		succeeding := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			return resultFor(asset, dto.DecisionBuy, 0.6), nil
		}}
		svc = NewBatchService(testConfig(), testLogger(), succeeding, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err = svc.AnalyzeMany(context.Background(), []string{"gold"}, 30, "")
		require.NoError(t, err)
		require.NotNil(t, batch.MarketSummary)
		assert.Equal(t, 1, batch.MarketSummary.AssetsAnalyzed)
	})

	t.Run("duplicate assets analyzed once", func(t *testing.T) {
		var callsMu sync.Mutex
		calls := map[string]int{}
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			callsMu.Lock()
			calls[asset]++
			callsMu.Unlock()
			return resultFor(asset, dto.DecisionHold, 0.5), nil
		}}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), &fakeAnalysisRepo{})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold", "Gold", " gold "}, 30, "")
		require.NoError(t, err)

		assert.Len(t, batch.Successful, 1)
		assert.Equal(t, 1, calls["gold"])
	})

	t.Run("successful results are persisted", func(t *testing.T) {
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			if asset == "silver" {
				return nil, dto.ErrNoPriceData
			}
			return resultFor(asset, dto.DecisionBuy, 0.7), nil
		}}
		repo := &fakeAnalysisRepo{}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), repo)

		_, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver", "apple"}, 30, "")
		require.NoError(t, err)

		assert.Len(t, repo.records, 2)
	})

	t.Run("persistence failure does not fail the batch", func(t *testing.T) {
		analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
			return resultFor(asset, dto.DecisionBuy, 0.7), nil
		}}
		svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), &fakeAnalysisRepo{err: fmt.Errorf("db down")})

		batch, err := svc.AnalyzeMany(context.Background(), []string{"gold"}, 30, "")
		require.NoError(t, err)
		assert.Len(t, batch.Successful, 1)
	})
}

func TestBatchCoordinator_RecentAnalyses(t *testing.T) {
	repo := &fakeAnalysisRepo{}
	analyzer := &stubAnalyzer{fn: func(ctx context.Context, asset string, _ int, _ string) (*dto.AssetResult, error) {
		return resultFor(asset, dto.DecisionBuy, 0.7), nil
	}}
	svc := NewBatchService(testConfig(), testLogger(), analyzer, NewMarketSummaryAggregator(), repo)

	_, err := svc.AnalyzeMany(context.Background(), []string{"gold", "silver"}, 30, "")
	require.NoError(t, err)

	records, err := svc.RecentAnalyses(context.Background(), "Gold ", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "gold", records[0].Asset)
}
