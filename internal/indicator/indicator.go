// Package indicator computes the statistics published in indicator and
// monitoring stores from a close price window ordered oldest to newest.
package indicator

import (
	"math"

	"marketshm/internal/model/enum"
)

const (
	RSIPeriod        = 14
	SMAPeriod        = 20
	EMAPeriod        = 20
	VolatilityPeriod = 20
)

// Trim drops the zero closes at both ends of a window: leading rows that were
// never filled and a newest candle without trades yet.
func Trim(closes []float64) []float64 {
	lo, hi := 0, len(closes)
	for lo < hi && closes[lo] == 0 {
		lo++
	}
	for hi > lo && closes[hi-1] == 0 {
		hi--
	}
	return closes[lo:hi]
}

// SMA is the mean of the last period closes.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	var sum float64
	for _, v := range closes[len(closes)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// EMA seeds with the SMA of the first period closes and smooths the rest
// with alpha 2/(period+1).
func EMA(closes []float64, period int) (float64, bool) {
	seed, ok := SMA(closes[:min(len(closes), period)], period)
	if !ok {
		return 0, false
	}
	alpha := 2 / float64(period+1)
	ema := seed
	for _, v := range closes[period:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, true
}

// RSI uses Wilder smoothing and needs period+1 closes.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		gain, loss = accumulate(gain, loss, closes[i]-closes[i-1])
	}
	gain /= float64(period)
	loss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		g, l := accumulate(0, 0, closes[i]-closes[i-1])
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
	}

	switch {
	case loss == 0 && gain == 0:
		return 50, true
	case loss == 0:
		return 100, true
	}
	rs := gain / loss
	return 100 - 100/(1+rs), true
}

func accumulate(gain, loss, delta float64) (float64, float64) {
	if delta > 0 {
		return gain + delta, loss
	}
	return gain, loss - delta
}

// Volatility is the population standard deviation of the last period log
// returns.
func Volatility(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) <= period {
		return 0, false
	}
	window := closes[len(closes)-period-1:]
	returns := make([]float64, period)
	var mean float64
	for i := 1; i < len(window); i++ {
		if window[i-1] <= 0 || window[i] <= 0 {
			return 0, false
		}
		returns[i-1] = math.Log(window[i] / window[i-1])
		mean += returns[i-1]
	}
	mean /= float64(period)

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(period)), true
}

// Compute returns every statistic that the window is long enough for.
// StatPrice is the newest close.
func Compute(closes []float64) map[enum.Stat]float64 {
	closes = Trim(closes)
	out := make(map[enum.Stat]float64, enum.StatCount)
	if len(closes) == 0 {
		return out
	}
	out[enum.StatPrice] = closes[len(closes)-1]

	if v, ok := RSI(closes, RSIPeriod); ok {
		out[enum.StatRSI14] = v
	}
	if v, ok := SMA(closes, SMAPeriod); ok {
		out[enum.StatSMA20] = v
	}
	if v, ok := EMA(closes, EMAPeriod); ok {
		out[enum.StatEMA20] = v
	}
	if v, ok := Volatility(closes, VolatilityPeriod); ok {
		out[enum.StatVolatility20] = v
	}
	return out
}
