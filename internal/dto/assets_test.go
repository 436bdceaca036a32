package dto

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAsset(t *testing.T) {
	tests := []struct {
		name       string
		asset      string
		wantSymbol string
		wantType   AssetType
		wantOK     bool
	}{
		{name: "known commodity", asset: "gold", wantSymbol: "GC=F", wantType: AssetTypeCommodity, wantOK: true},
		{name: "known stock", asset: "apple", wantSymbol: "AAPL", wantType: AssetTypeStock, wantOK: true},
		{name: "case and spacing normalized", asset: "  Gold ", wantSymbol: "GC=F", wantType: AssetTypeCommodity, wantOK: true},
		{name: "unknown asset", asset: "unobtainium", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbol, assetType, ok := ResolveAsset(tt.asset)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSymbol, symbol)
				assert.Equal(t, tt.wantType, assetType)
			}
		})
	}
}

func TestAvailableAssets(t *testing.T) {
	assets := AvailableAssets()

	assert.Contains(t, assets["commodities"], "gold")
	assert.Contains(t, assets["stocks"], "apple")
}

func TestFailureKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want FailureKind
	}{
		{err: ErrNoPriceData, want: FailureNoPriceData},
		{err: fmt.Errorf("wrapped: %w", ErrNoPriceData), want: FailureNoPriceData},
		{err: ErrNoSentimentData, want: FailureNoSentimentData},
		{err: ErrDecisionSynthesisFailed, want: FailureDecisionSynthesis},
		{err: ErrUnknownAsset, want: FailureUnknownAsset},
		{err: errors.New("something else"), want: FailureInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FailureKindOf(tt.err))
	}
}
