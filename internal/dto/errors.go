package dto

import "errors"

// Typed analysis errors. Per-asset errors are captured into BatchResult.Failed;
// batch-level errors propagate to the caller.
var (
	ErrNoPriceData               = errors.New("no price data available")
	ErrNoSentimentData           = errors.New("no sentiment data available")
	ErrDecisionSynthesisFailed   = errors.New("decision synthesis failed")
	ErrUnknownAsset              = errors.New("unknown asset")
	ErrEmptyAssetSet             = errors.New("asset set is empty")
	ErrScheduleNotFound          = errors.New("schedule not found")
	ErrInvalidScheduleDefinition = errors.New("invalid schedule definition")
)

type FailureKind string

const (
	FailureNoPriceData       FailureKind = "NO_PRICE_DATA"
	FailureNoSentimentData   FailureKind = "NO_SENTIMENT_DATA"
	FailureDecisionSynthesis FailureKind = "DECISION_SYNTHESIS_FAILED"
	FailureUnknownAsset      FailureKind = "UNKNOWN_ASSET"
	FailureInternal          FailureKind = "INTERNAL"
)

// FailureKindOf maps a pipeline error onto its failure kind for reporting.
func FailureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrNoPriceData):
		return FailureNoPriceData
	case errors.Is(err, ErrNoSentimentData):
		return FailureNoSentimentData
	case errors.Is(err, ErrDecisionSynthesisFailed):
		return FailureDecisionSynthesis
	case errors.Is(err, ErrUnknownAsset):
		return FailureUnknownAsset
	default:
		return FailureInternal
	}
}
