// Package technical computes price-history indicators and the composite
// 0-100 trend score consumed by the decision stage.
package technical

import (
	"math"

	"market-advisor/internal/dto"
)

const (
	rsiPeriod      = 14
	macdFastPeriod = 12
	macdSlowPeriod = 26
	macdSignalSpan = 9
	tradingDays    = 252
)

// Compute derives the full indicator snapshot from daily price history.
// History must be ordered oldest first. Indicators whose window exceeds the
// available history are left nil.
func Compute(history []dto.PricePoint, timeframeDays int) dto.TechnicalSnapshot {
	closes := make([]float64, len(history))
	for i, p := range history {
		closes[i] = p.Close
	}

	snap := dto.TechnicalSnapshot{
		DataPoints: len(history),
		RSI:        RSI(closes, rsiPeriod),
		Volatility: AnnualizedVolatility(closes),
		Momentum5D: momentum(closes, 5),
	}

	if len(closes) >= 2 {
		window := closes
		if timeframeDays > 0 && len(closes) > timeframeDays {
			window = closes[len(closes)-timeframeDays:]
		}
		snap.PriceChangePct = (window[len(window)-1]/window[0] - 1) * 100
	}

	if sma := SMA(closes, 20); !math.IsNaN(sma) {
		snap.SMA20 = &sma
	}
	if sma := SMA(closes, 50); !math.IsNaN(sma) {
		snap.SMA50 = &sma
	}
	if macd, signal, ok := MACD(closes); ok {
		snap.MACD = &macd
		snap.MACDSignal = &signal
	}
	if support, resistance, ok := supportResistance(history, timeframeDays); ok {
		snap.SupportLevel = &support
		snap.ResistanceLevel = &resistance
	}

	snap.TrendScore = trendScore(closes, snap)
	return snap
}

// SMA returns the simple moving average of the last period closes, or NaN when
// the history is shorter than the period.
func SMA(closes []float64, period int) float64 {
	if len(closes) < period || period <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average series for the given span.
func EMA(closes []float64, span int) []float64 {
	if len(closes) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RSI computes the relative strength index over the given period. A flat or
// too-short series yields the neutral 50.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50
	}

	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}

	rs := (gains / float64(period)) / (losses / float64(period))
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line and its signal line, computed from 12/26 EMAs
// with a 9-period signal. ok is false when history is shorter than the slow span.
func MACD(closes []float64) (macd, signal float64, ok bool) {
	if len(closes) < macdSlowPeriod {
		return 0, 0, false
	}

	fast := EMA(closes, macdFastPeriod)
	slow := EMA(closes, macdSlowPeriod)

	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = fast[i] - slow[i]
	}

	signalSeries := EMA(line, macdSignalSpan)
	return line[len(line)-1], signalSeries[len(signalSeries)-1], true
}

// AnnualizedVolatility is the standard deviation of daily returns scaled to a
// trading year, as a percentage.
func AnnualizedVolatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDays) * 100
}

func momentum(closes []float64, days int) float64 {
	if len(closes) <= days || closes[len(closes)-1-days] == 0 {
		return 0
	}
	return (closes[len(closes)-1]/closes[len(closes)-1-days] - 1) * 100
}

func supportResistance(history []dto.PricePoint, timeframeDays int) (support, resistance float64, ok bool) {
	if len(history) == 0 {
		return 0, 0, false
	}

	window := history
	if timeframeDays > 0 && len(history) > timeframeDays {
		window = history[len(history)-timeframeDays:]
	}

	support = window[0].Low
	resistance = window[0].High
	for _, p := range window[1:] {
		if p.Low < support {
			support = p.Low
		}
		if p.High > resistance {
			resistance = p.High
		}
	}
	return support, resistance, true
}

// trendScore folds the indicator components into a 0-100 score, 50 neutral.
func trendScore(closes []float64, snap dto.TechnicalSnapshot) float64 {
	score := 50.0

	// Recent price direction.
	if snap.PriceChangePct > 0 {
		score += 10
	} else if snap.PriceChangePct < 0 {
		score -= 10
	}

	// Short-term momentum, capped at ±10.
	score += math.Max(math.Min(snap.Momentum5D*0.5, 10), -10)

	// RSI extremes argue against the prevailing move.
	if snap.RSI >= 70 {
		score -= 5
	} else if snap.RSI <= 30 {
		score += 5
	}

	if snap.MACD != nil && snap.MACDSignal != nil {
		if *snap.MACD > *snap.MACDSignal {
			score += 7
		} else if *snap.MACD < *snap.MACDSignal {
			score -= 7
		}
	}

	if snap.SMA20 != nil && len(closes) > 0 {
		last := closes[len(closes)-1]
		if last > *snap.SMA20 {
			score += 5
		} else if last < *snap.SMA20 {
			score -= 5
		}
	}

	if snap.SMA20 != nil && snap.SMA50 != nil {
		if *snap.SMA20 > *snap.SMA50 {
			score += 8
		} else if *snap.SMA20 < *snap.SMA50 {
			score -= 8
		}
	}

	return math.Round(math.Max(0, math.Min(100, score))*100) / 100
}
