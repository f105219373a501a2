package market

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// CandleSource is the upstream market source contract from SPEC_FULL.md
// §6: "fetch_candles(pair, interval_minutes) -> ordered candle series".
type CandleSource interface {
	FetchCandles(ctx context.Context, pair string, intervalMinutes int, count int) ([]Candle, error)
}

// TickerSource is the upstream "fetch_ticker(pair)" contract.
type TickerSource interface {
	FetchTicker(ctx context.Context, pair string) (Ticker, error)
}

// Source bundles both upstream reads the cache depends on.
type Source interface {
	CandleSource
	TickerSource
}

var timeframeMinutes = map[string]int{
	"5m":  5,
	"15m": 15,
	"1h":  60,
	"4h":  240,
	"1d":  1440,
}

// TimeframeOrder is the fixed fetch order the cache issues concurrent
// reads in, per spec.md §4.1.
var TimeframeOrder = []string{"5m", "15m", "1h", "4h", "1d"}

// SyntheticSource is a deterministic, seedable random-walk generator
// implementing Source. It stands in for the exchange-fed upstream the
// real deployment wires in (spec.md's Non-goals exclude a live exchange
// client), grounded on the teacher's synthesized-fallback code paths in
// its own candle builders (BuildDataFromKlines).
type SyntheticSource struct {
	rng        *rand.Rand
	startPrice float64
	volatility float64
	drift      float64
}

// NewSyntheticSource seeds a generator around startPrice with a fixed
// per-candle volatility and drift (applied once per candle, whatever the
// requested interval), used by tests and by the default
// cmd/arenad wiring when no live feed is configured.
func NewSyntheticSource(seed int64, startPrice, volatility, drift float64) *SyntheticSource {
	return &SyntheticSource{
		rng:        rand.New(rand.NewSource(seed)),
		startPrice: startPrice,
		volatility: volatility,
		drift:      drift,
	}
}

func (s *SyntheticSource) FetchCandles(_ context.Context, _ string, intervalMinutes int, count int) ([]Candle, error) {
	out := make([]Candle, 0, count)
	price := s.startPrice
	now := time.Now().Unix()
	step := int64(intervalMinutes * 60)
	for i := count - 1; i >= 0; i-- {
		open := price
		shock := s.rng.NormFloat64() * s.volatility
		close := open * (1 + s.drift + shock)
		if close <= 0 {
			close = open * 0.99
		}
		high := math.Max(open, close) * (1 + math.Abs(s.rng.NormFloat64())*s.volatility*0.5)
		low := math.Min(open, close) * (1 - math.Abs(s.rng.NormFloat64())*s.volatility*0.5)
		volume := 1000 + s.rng.Float64()*5000
		out = append(out, Candle{
			TimeSec: now - int64(i)*step,
			Open:    open,
			High:    high,
			Low:     low,
			Close:   close,
			VWAP:    (open + high + low + close) / 4,
			Volume:  volume,
			Count:   int(volume / 10),
		})
		price = close
	}
	return out, nil
}

func (s *SyntheticSource) FetchTicker(ctx context.Context, pair string) (Ticker, error) {
	candles, err := s.FetchCandles(ctx, pair, 1, 1440)
	if err != nil {
		return Ticker{}, err
	}
	last := candles[len(candles)-1].Close
	high, low := last, last
	var vol float64
	for _, c := range candles {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
		vol += c.Volume
	}
	spread := last * 0.0005
	return Ticker{
		Bid:       last - spread,
		Ask:       last + spread,
		Last:      last,
		Open24h:   candles[0].Open,
		High24h:   high,
		Low24h:    low,
		Volume24h: vol,
	}, nil
}
