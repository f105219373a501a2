package market

import "time"

// Candle is a single OHLCV bar for one timeframe.
type Candle struct {
	TimeSec int64   `json:"time_sec"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	VWAP    float64 `json:"vwap"`
	Volume  float64 `json:"volume"`
	Count   int     `json:"count"`
}

// Ticker is a top-of-book / 24h summary for the pair.
type Ticker struct {
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	Last     float64 `json:"last"`
	Open24h  float64 `json:"open_24h"`
	High24h  float64 `json:"high_24h"`
	Low24h   float64 `json:"low_24h"`
	Volume24h float64 `json:"volume_24h"`
}

// Indicators is the computed indicator bundle for one timeframe series,
// grounded on the composite bias in spec.md §4.2.
type Indicators struct {
	RSI          float64 `json:"rsi"`
	MACDLine     float64 `json:"macd_line"`
	MACDSignal   float64 `json:"macd_signal"`
	MACDHist     float64 `json:"macd_hist"`
	BollUpper    float64 `json:"boll_upper"`
	BollMiddle   float64 `json:"boll_middle"`
	BollLower    float64 `json:"boll_lower"`
	BollPosition float64 `json:"boll_position"`
	ATR          float64 `json:"atr"`
	VolumeRatio  float64 `json:"volume_ratio"`
	Bias         int     `json:"bias"`     // [-4, +4]
	BiasTag      string  `json:"bias_tag"` // bullish | bearish | neutral
}

// TimeframeView bundles a candle series with its computed indicators.
type TimeframeView struct {
	Timeframe  string       `json:"timeframe"` // 5m, 15m, 1h, 4h, 1d
	Candles    []Candle     `json:"candles"`
	Indicators Indicators   `json:"indicators"`
}

// BTCTrend is the reference-pair tag included in the decision engine's
// tier-2 model prompt; the tier-1 regime bonus does not read it.
type BTCTrend string

const (
	BTCTrendBull    BTCTrend = "bull"
	BTCTrendBear    BTCTrend = "bear"
	BTCTrendNeutral BTCTrend = "neut"
)

// Recommendation is the cache's own baseline call, independent of any
// agent's strategy; agents may agree, ignore, or fade it.
type Recommendation struct {
	Action     string  `json:"action"` // LONG | SHORT | WAIT
	Confidence float64 `json:"confidence"`
}

// Snapshot is the immutable, shared-by-reference market view produced by
// one cache fetch. Every agent in a tick reads the identical value.
type Snapshot struct {
	Pair           string                    `json:"pair"`
	FetchedAt      time.Time                 `json:"fetched_at"`
	Last           float64                   `json:"last"`
	Bid            float64                   `json:"bid"`
	Ask            float64                   `json:"ask"`
	High24h        float64                   `json:"high_24h"`
	Low24h         float64                   `json:"low_24h"`
	Volume24h      float64                   `json:"volume_24h"`
	Timeframes     map[string]*TimeframeView `json:"timeframes"`
	BTCTrend       BTCTrend                  `json:"btc_trend"`
	BTCChange24h   float64                   `json:"btc_change_24h"`
	Recommendation Recommendation            `json:"recommendation"`
}

// PrevClose returns the most recent fully-closed candle's close on the
// given timeframe. The market-shock check (spec.md §4.6) does not call
// it; the event detector keeps its own ring of tick prices.
func (s *Snapshot) PrevClose(timeframe string) (float64, bool) {
	tf, ok := s.Timeframes[timeframe]
	if !ok || len(tf.Candles) < 2 {
		return 0, false
	}
	return tf.Candles[len(tf.Candles)-2].Close, true
}
