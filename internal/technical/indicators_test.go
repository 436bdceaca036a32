package technical

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"market-advisor/internal/dto"
)

func historyFromCloses(closes []float64) []dto.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]dto.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = dto.PricePoint{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
		}
	}
	return points
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   float64
		isNaN  bool
	}{
		{
			name:   "average of last period closes",
			closes: []float64{1, 2, 3, 4, 5},
			period: 3,
			want:   4,
		},
		{
			name:   "history shorter than period",
			closes: []float64{1, 2},
			period: 5,
			isNaN:  true,
		},
		{
			name:   "period equals history length",
			closes: []float64{2, 4, 6},
			period: 3,
			want:   4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.closes, tt.period)
			if tt.isNaN {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{
			name:   "too short series is neutral",
			closes: []float64{100, 101},
			want:   50,
		},
		{
			name:   "flat series is neutral",
			closes: []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100},
			want:   50,
		},
		{
			name:   "all gains saturates at 100",
			closes: risingCloses(16),
			want:   100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RSI(tt.closes, 14), 1e-9)
		})
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106, 108, 107, 109}
	got := RSI(closes, 14)
	assert.Greater(t, got, 50.0)
	assert.Less(t, got, 100.0)
}

func TestMACD(t *testing.T) {
	_, _, ok := MACD(risingCloses(10))
	assert.False(t, ok, "needs at least the slow span")

	macd, signal, ok := MACD(risingCloses(60))
	assert.True(t, ok)
	// A steadily rising series keeps the fast EMA above the slow EMA.
	assert.Greater(t, macd, 0.0)
	assert.Greater(t, signal, 0.0)
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility([]float64{100, 101}))

	flat := []float64{100, 100, 100, 100, 100}
	assert.InDelta(t, 0.0, AnnualizedVolatility(flat), 1e-9)

	choppy := []float64{100, 110, 95, 112, 90, 115}
	assert.Greater(t, AnnualizedVolatility(choppy), 0.0)
}

func TestCompute_RisingTrend(t *testing.T) {
	history := historyFromCloses(risingCloses(60))
	snap := Compute(history, 30)

	assert.Equal(t, 60, snap.DataPoints)
	assert.NotNil(t, snap.SMA20)
	assert.NotNil(t, snap.SMA50)
	assert.NotNil(t, snap.MACD)
	assert.NotNil(t, snap.MACDSignal)
	assert.NotNil(t, snap.SupportLevel)
	assert.NotNil(t, snap.ResistanceLevel)
	assert.Greater(t, snap.PriceChangePct, 0.0)
	assert.Greater(t, snap.Momentum5D, 0.0)
	assert.Greater(t, snap.TrendScore, 50.0)
	assert.LessOrEqual(t, snap.TrendScore, 100.0)
}

func TestCompute_FallingTrend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	snap := Compute(historyFromCloses(closes), 30)

	assert.Less(t, snap.PriceChangePct, 0.0)
	assert.Less(t, snap.TrendScore, 50.0)
	assert.GreaterOrEqual(t, snap.TrendScore, 0.0)
}

func TestCompute_ShortHistory(t *testing.T) {
	snap := Compute(historyFromCloses([]float64{100, 101, 102}), 30)

	assert.Equal(t, 3, snap.DataPoints)
	assert.Nil(t, snap.SMA20)
	assert.Nil(t, snap.SMA50)
	assert.Nil(t, snap.MACD)
	assert.Equal(t, 50.0, snap.RSI)
}

func TestCompute_SupportResistanceWindow(t *testing.T) {
	history := historyFromCloses(risingCloses(60))
	snap := Compute(history, 30)

	// Window covers the last 30 bars only.
	window := history[30:]
	assert.InDelta(t, window[0].Low, *snap.SupportLevel, 1e-9)
	assert.InDelta(t, window[len(window)-1].High, *snap.ResistanceLevel, 1e-9)
}
