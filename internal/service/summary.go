package service

import (
	"math"
	"sort"
	"time"

	"market-advisor/internal/dto"
)

// MarketSummaryAggregator condenses a batch of per-asset results into a
// single market view. It is pure and deterministic over its input.
type MarketSummaryAggregator interface {
	Summarize(results []dto.AssetResult) dto.MarketSummary
}

type marketSummaryAggregator struct{}

func NewMarketSummaryAggregator() MarketSummaryAggregator {
	return &marketSummaryAggregator{}
}

func (m *marketSummaryAggregator) Summarize(results []dto.AssetResult) dto.MarketSummary {
	summary := dto.MarketSummary{
		OverallSentiment: dto.SentimentNeutral,
		AssetsAnalyzed:   len(results),
		TopOpportunities: []string{},
		TopRisks:         []string{},
		Timestamp:        time.Now().UTC(),
	}
	if len(results) == 0 {
		return summary
	}

	var buyCount, sellCount int
	var confidenceSum float64
	for _, r := range results {
		confidenceSum += r.Confidence
		switch r.Decision {
		case dto.DecisionBuy:
			buyCount++
		case dto.DecisionSell:
			sellCount++
		}
	}

	if buyCount > sellCount {
		summary.OverallSentiment = dto.SentimentBullish
	} else if sellCount > buyCount {
		summary.OverallSentiment = dto.SentimentBearish
	}
	summary.MarketConfidence = math.Round(confidenceSum/float64(len(results))*100) / 100

	summary.TopOpportunities = topAssets(results, 3, func(r dto.AssetResult) bool {
		return r.Decision == dto.DecisionBuy
	})
	summary.TopRisks = topAssets(results, 3, func(r dto.AssetResult) bool {
		return r.Decision == dto.DecisionSell || r.RiskLevel == dto.RiskHigh
	})

	return summary
}

// topAssets picks up to limit assets matching the filter, ranked by
// confidence. Ties keep their input order.
func topAssets(results []dto.AssetResult, limit int, match func(dto.AssetResult) bool) []string {
	picked := make([]dto.AssetResult, 0, len(results))
	for _, r := range results {
		if match(r) {
			picked = append(picked, r)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Confidence > picked[j].Confidence
	})
	if len(picked) > limit {
		picked = picked[:limit]
	}
	assets := make([]string, 0, len(picked))
	for _, r := range picked {
		assets = append(assets, r.Asset)
	}
	return assets
}
