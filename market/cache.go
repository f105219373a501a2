package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultRefreshInterval = 30 * time.Second

// Cache is the process-wide market data cache described in spec.md
// §4.1: a single fetched snapshot shared by every agent in a tick, with
// no tearing and no history beyond the last fetch.
type Cache struct {
	mu              sync.RWMutex
	pair            string
	btcPair         string
	source          Source
	refreshInterval time.Duration
	last            *Snapshot
}

// New constructs a cache instance. Tests construct their own isolated
// instance; production wiring registers one at process startup and
// reuses it, per spec.md §9's "one per process" singleton note.
func New(pair, btcPair string, source Source) *Cache {
	return &Cache{
		pair:            pair,
		btcPair:         btcPair,
		source:          source,
		refreshInterval: defaultRefreshInterval,
	}
}

var (
	processCacheMu sync.Mutex
	processCache   *Cache
)

// Register installs c as the process-wide singleton, returning the
// previously registered instance (or nil). Safe to call again across a
// hot reload; callers that want strict single-assignment should check
// the returned value.
func Register(c *Cache) *Cache {
	processCacheMu.Lock()
	defer processCacheMu.Unlock()
	prev := processCache
	processCache = c
	return prev
}

// Instance returns the process-wide singleton, or nil if none has been
// registered yet.
func Instance() *Cache {
	processCacheMu.Lock()
	defer processCacheMu.Unlock()
	return processCache
}

// Peek returns the last cached snapshot without fetching, or nil.
func (c *Cache) Peek() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Fetch returns the cached snapshot if it is fresher than the refresh
// interval and forceRefresh is false. Otherwise it issues concurrent
// reads for every timeframe plus both tickers, computes indicators,
// stores, and returns the new snapshot. On any upstream failure the
// whole refresh fails and the previous snapshot (if any) is retained.
func (c *Cache) Fetch(ctx context.Context, forceRefresh bool) (*Snapshot, error) {
	c.mu.RLock()
	cached := c.last
	c.mu.RUnlock()
	if !forceRefresh && cached != nil && time.Since(cached.FetchedAt) < c.refreshInterval {
		return cached, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	views := make(map[string]*TimeframeView, len(TimeframeOrder))
	var viewsMu sync.Mutex
	for _, tf := range TimeframeOrder {
		tf := tf
		g.Go(func() error {
			minutes, ok := timeframeMinutes[tf]
			if !ok {
				return fmt.Errorf("market: unknown timeframe %q", tf)
			}
			candles, err := c.source.FetchCandles(gctx, c.pair, minutes, 200)
			if err != nil {
				return fmt.Errorf("market: fetch candles %s: %w", tf, err)
			}
			view := &TimeframeView{Timeframe: tf, Candles: candles, Indicators: Composite(candles)}
			viewsMu.Lock()
			views[tf] = view
			viewsMu.Unlock()
			return nil
		})
	}

	var ticker Ticker
	g.Go(func() error {
		t, err := c.source.FetchTicker(gctx, c.pair)
		if err != nil {
			return fmt.Errorf("market: fetch ticker %s: %w", c.pair, err)
		}
		ticker = t
		return nil
	})

	var btcTicker Ticker
	var btcPrevClose float64
	if c.btcPair != "" {
		g.Go(func() error {
			t, err := c.source.FetchTicker(gctx, c.btcPair)
			if err != nil {
				return fmt.Errorf("market: fetch ticker %s: %w", c.btcPair, err)
			}
			btcTicker = t
			btcPrevClose = t.Open24h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("pair", c.pair).Msg("market cache refresh failed, retaining previous snapshot")
		return nil, err
	}

	btcTrend := BTCTrendNeutral
	btcChange := 0.0
	if c.btcPair != "" && btcPrevClose > 0 {
		btcChange = (btcTicker.Last - btcPrevClose) / btcPrevClose * 100
		switch {
		case btcChange >= 1:
			btcTrend = BTCTrendBull
		case btcChange <= -1:
			btcTrend = BTCTrendBear
		}
	}

	snap := &Snapshot{
		Pair:         c.pair,
		FetchedAt:    time.Now(),
		Last:         ticker.Last,
		Bid:          ticker.Bid,
		Ask:          ticker.Ask,
		High24h:      ticker.High24h,
		Low24h:       ticker.Low24h,
		Volume24h:    ticker.Volume24h,
		Timeframes:   views,
		BTCTrend:     btcTrend,
		BTCChange24h: btcChange,
	}
	snap.Recommendation = baseRecommendation(snap)

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()
	return snap, nil
}

// baseRecommendation derives the cache's own LONG/SHORT/WAIT call from
// the 1h timeframe's bias, independent of any agent strategy.
func baseRecommendation(snap *Snapshot) Recommendation {
	view, ok := snap.Timeframes["1h"]
	if !ok {
		return Recommendation{Action: "WAIT", Confidence: 50}
	}
	ind := view.Indicators
	confidence := 50.0 + float64(ind.Bias)*8
	if confidence > 95 {
		confidence = 95
	}
	if confidence < 30 {
		confidence = 30
	}
	switch {
	case ind.Bias >= 2:
		return Recommendation{Action: "LONG", Confidence: confidence}
	case ind.Bias <= -2:
		return Recommendation{Action: "SHORT", Confidence: confidence}
	default:
		return Recommendation{Action: "WAIT", Confidence: confidence}
	}
}
