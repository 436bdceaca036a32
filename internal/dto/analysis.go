package dto

import "time"

type AssetType string

const (
	AssetTypeCommodity AssetType = "commodity"
	AssetTypeStock     AssetType = "stock"
)

const (
	DecisionBuy  = "BUY"
	DecisionSell = "SELL"
	DecisionHold = "HOLD"

	PositionSmall  = "SMALL"
	PositionMedium = "MEDIUM"
	PositionLarge  = "LARGE"

	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"

	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

const (
	RiskToleranceConservative   = "conservative"
	RiskToleranceModerate       = "moderate"
	RiskToleranceAggressive     = "aggressive"
	RiskToleranceVeryAggressive = "very_aggressive"
)

const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// NeutralSentimentScore is the placeholder used when the sentiment stage cannot
// produce usable output. The pipeline proceeds with degraded quality.
const NeutralSentimentScore = 50.0

// TechnicalSnapshot carries the indicator set computed from price history.
// Pointer members are absent when the history is too short to compute them.
type TechnicalSnapshot struct {
	TrendScore      float64  `json:"trend_score"`
	Volatility      float64  `json:"volatility_pct"`
	RSI             float64  `json:"rsi"`
	SMA20           *float64 `json:"sma_20,omitempty"`
	SMA50           *float64 `json:"sma_50,omitempty"`
	MACD            *float64 `json:"macd,omitempty"`
	MACDSignal      *float64 `json:"macd_signal,omitempty"`
	Momentum5D      float64  `json:"momentum_5d"`
	PriceChangePct  float64  `json:"price_change_pct"`
	SupportLevel    *float64 `json:"support_level,omitempty"`
	ResistanceLevel *float64 `json:"resistance_level,omitempty"`
	DataPoints      int      `json:"data_points"`
}

type ArticleSentiment struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
}

// SentimentSnapshot is the normalized output of the sentiment stage.
// Degraded is set when the stage failed and the neutral placeholder is in use.
type SentimentSnapshot struct {
	Score        float64            `json:"score"`
	ArticleCount int                `json:"article_count"`
	Articles     []ArticleSentiment `json:"articles,omitempty"`
	Degraded     bool               `json:"degraded,omitempty"`
}

// AssetResult is one asset's full pipeline output.
type AssetResult struct {
	Asset         string            `json:"asset"`
	AssetType     AssetType         `json:"asset_type"`
	Symbol        string            `json:"symbol"`
	CurrentPrice  float64           `json:"current_price"`
	Technical     TechnicalSnapshot `json:"technical"`
	Sentiment     SentimentSnapshot `json:"sentiment"`
	Decision      string            `json:"decision"`
	Confidence    float64           `json:"confidence"`
	Reasoning     string            `json:"reasoning"`
	TargetPrice   *float64          `json:"target_price,omitempty"`
	StopLoss      *float64          `json:"stop_loss,omitempty"`
	PositionSize  string            `json:"position_size"`
	RiskLevel     string            `json:"risk_level"`
	TimeframeDays int               `json:"timeframe_days"`
	RiskTolerance string            `json:"risk_tolerance"`
	Timestamp     time.Time         `json:"timestamp"`
}

type AssetFailure struct {
	Asset     string      `json:"asset"`
	ErrorKind FailureKind `json:"error_kind"`
	Message   string      `json:"message"`
}

// BatchResult is the outcome of analyzing a set of assets. Successful and Failed
// preserve the input asset ordering and together cover the input set exactly.
type BatchResult struct {
	Successful    []AssetResult  `json:"successful"`
	Failed        []AssetFailure `json:"failed"`
	MarketSummary *MarketSummary `json:"market_summary,omitempty"`
}

type MarketSummary struct {
	OverallSentiment string    `json:"overall_sentiment"`
	MarketConfidence float64   `json:"market_confidence"`
	TopOpportunities []string  `json:"top_opportunities"`
	TopRisks         []string  `json:"top_risks"`
	AssetsAnalyzed   int       `json:"assets_analyzed"`
	Timestamp        time.Time `json:"timestamp"`
}

// PricePoint is one bar of daily price history, oldest first in a series.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// DecisionInput is what the AI decision stage receives: the technical and
// sentiment snapshots plus the caller's risk tolerance.
type DecisionInput struct {
	Asset         string
	AssetType     AssetType
	CurrentPrice  float64
	Technical     TechnicalSnapshot
	Sentiment     SentimentSnapshot
	TimeframeDays int
	RiskTolerance string
}

// DecisionOutput carries the synthesized trading decision fields.
type DecisionOutput struct {
	Decision     string   `json:"decision"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	TargetPrice  *float64 `json:"target_price,omitempty"`
	StopLoss     *float64 `json:"stop_loss,omitempty"`
	PositionSize string   `json:"position_size"`
	RiskLevel    string   `json:"risk_level"`
}

// SchedulerStatus is the runtime view of the scheduler loop.
type SchedulerStatus struct {
	Running          bool       `json:"running"`
	TotalSchedules   int64      `json:"total_schedules"`
	EnabledSchedules int64      `json:"enabled_schedules"`
	NextScheduledRun *time.Time `json:"next_scheduled_run,omitempty"`
}
