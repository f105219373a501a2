package market

import "math"

// RSI computes Wilder's-smoothed relative strength index over closes.
// Returns 50 (neutral) when there is not enough data, matching spec.md
// §4.2's "returns 50 when insufficient data" edge case.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) <= period {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain = (avgGain*float64(period-1) + change) / float64(period)
			avgLoss = (avgLoss * float64(period-1)) / float64(period)
		} else {
			avgGain = (avgGain * float64(period-1)) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + (-change)) / float64(period)
		}
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// EMA computes a standard exponential moving average seeded by the
// simple average of the first `period` closes.
func EMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closes[i]
	}
	ema := sum / float64(period)
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = (closes[i]-ema)*multiplier + ema
	}
	return ema
}

// emaSeries returns the EMA value at every index >= period-1, used to
// build the MACD signal line (an EMA of the MACD line itself).
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out = append(out, ema)
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}

// MACDResult is the {line, signal, histogram} triple spec.md §4.2 requires.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes the standard 12/26/9 MACD. Returns zeros when there is
// not enough data for either the slow EMA or the signal line.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if len(closes) < slow+signal {
		return MACDResult{}
	}
	macdLine := make([]float64, 0, len(closes)-slow+1)
	for end := slow; end <= len(closes); end++ {
		window := closes[:end]
		macdLine = append(macdLine, EMA(window, fast)-EMA(window, slow))
	}
	signalSeries := emaSeries(macdLine, signal)
	if len(signalSeries) == 0 {
		return MACDResult{}
	}
	line := macdLine[len(macdLine)-1]
	sig := signalSeries[len(signalSeries)-1]
	return MACDResult{Line: line, Signal: sig, Histogram: line - sig}
}

// BollingerResult is the {upper, middle, lower, position} tuple; position
// is clamped into [0,1] even when price trades outside the bands.
type BollingerResult struct {
	Upper    float64
	Middle   float64
	Lower    float64
	Position float64
}

// Bollinger computes Bollinger Bands over the trailing `period` closes.
func Bollinger(closes []float64, period int, stdDevMult float64) BollingerResult {
	if period <= 0 || len(closes) < period {
		return BollingerResult{Position: 0.5}
	}
	window := closes[len(closes)-period:]
	mean := 0.0
	for _, c := range window {
		mean += c
	}
	mean /= float64(period)
	variance := 0.0
	for _, c := range window {
		d := c - mean
		variance += d * d
	}
	variance /= float64(period)
	stddev := math.Sqrt(variance)
	upper := mean + stdDevMult*stddev
	lower := mean - stdDevMult*stddev
	pos := 0.5
	if upper > lower {
		pos = (closes[len(closes)-1] - lower) / (upper - lower)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return BollingerResult{Upper: upper, Middle: mean, Lower: lower, Position: pos}
}

// ATR computes Wilder's-smoothed average true range.
func ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n <= period || len(highs) != n || len(lows) != n {
		return 0
	}
	trs := make([]float64, n)
	for i := 1; i < n; i++ {
		high, low, prevClose := highs[i], lows[i], closes[i-1]
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)
		trs[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trs[i]
	}
	atr := sum / float64(period)
	for i := period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + trs[i]) / float64(period)
	}
	return atr
}

// VolumeRatio divides the latest volume by the mean of the prior `period`
// bars. Returns 1 (neutral) when there is not enough history.
func VolumeRatio(volumes []float64, period int) float64 {
	if period <= 0 || len(volumes) <= period {
		return 1
	}
	last := volumes[len(volumes)-1]
	prior := volumes[len(volumes)-1-period : len(volumes)-1]
	sum := 0.0
	for _, v := range prior {
		sum += v
	}
	mean := sum / float64(len(prior))
	if mean == 0 {
		return 1
	}
	return last / mean
}

// Composite computes the full indicator bundle for a candle series plus
// a bias score in [-4,+4] and its tag, per spec.md §4.2.
func Composite(candles []Candle) Indicators {
	if len(candles) == 0 {
		return Indicators{BollPosition: 0.5, VolumeRatio: 1, BiasTag: "neutral"}
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	rsi := RSI(closes, 14)
	macd := MACD(closes, 12, 26, 9)
	boll := Bollinger(closes, 20, 2)
	atr := ATR(highs, lows, closes, 14)
	volRatio := VolumeRatio(volumes, 20)

	bias := 0
	if rsi >= 60 {
		bias++
	} else if rsi <= 40 {
		bias--
	}
	if macd.Histogram > 0 {
		bias++
	} else if macd.Histogram < 0 {
		bias--
	}
	if boll.Position >= 0.7 {
		bias++
	} else if boll.Position <= 0.3 {
		bias--
	}
	if volRatio >= 1.5 {
		if bias >= 0 {
			bias++
		} else {
			bias--
		}
	}
	if bias > 4 {
		bias = 4
	}
	if bias < -4 {
		bias = -4
	}
	tag := "neutral"
	if bias >= 2 {
		tag = "bullish"
	} else if bias <= -2 {
		tag = "bearish"
	}

	return Indicators{
		RSI:          rsi,
		MACDLine:     macd.Line,
		MACDSignal:   macd.Signal,
		MACDHist:     macd.Histogram,
		BollUpper:    boll.Upper,
		BollMiddle:   boll.Middle,
		BollLower:    boll.Lower,
		BollPosition: boll.Position,
		ATR:          atr,
		VolumeRatio:  volRatio,
		Bias:         bias,
		BiasTag:      tag,
	}
}
