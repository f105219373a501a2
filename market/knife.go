package market

import (
	"sync"
	"time"
)

// KnifePhase is one state of the per-timeframe "falling/rising knife"
// detector described in spec.md §3 and §9.
type KnifePhase string

const (
	KnifeNone         KnifePhase = "none"
	KnifeImpulse      KnifePhase = "impulse"
	KnifeCapitulation KnifePhase = "capitulation"
	KnifeStabilizing  KnifePhase = "stabilizing"
	KnifeConfirming   KnifePhase = "confirming"
	KnifeSafe         KnifePhase = "safe"
)

// KnifeExpireCandles and KnifeExpireInactivity are the dual TTLs spec.md
// §3 mandates: a knife state expires after whichever comes first.
const (
	KnifeExpireCandles    = 48
	KnifeExpireInactivity = 6 * time.Hour
)

// KnifeState is the per-pair, per-timeframe FSM value. BrokenLevel is the
// key level (support or resistance) that was broken; BreakCandleIndex is
// the index (within the series passed to Observe) where the break was
// first detected; ImpulseVolumeBaseline is the average volume observed
// at break time, used to judge whether later bars are still "hot".
type KnifeState struct {
	Phase                 KnifePhase
	Direction             string // down | up
	BrokenLevel           float64
	BreakCandleIndex      int
	ImpulseVolumeBaseline float64
	CandlesSinceBreak     int
	LastActivity          time.Time
}

func (k KnifeState) expired(now time.Time) bool {
	if k.Phase == KnifeNone {
		return false
	}
	if k.CandlesSinceBreak >= KnifeExpireCandles {
		return true
	}
	if !k.LastActivity.IsZero() && now.Sub(k.LastActivity) >= KnifeExpireInactivity {
		return true
	}
	return false
}

// KnifeTracker maintains KnifeState per timeframe for a single pair.
type KnifeTracker struct {
	mu     sync.Mutex
	states map[string]KnifeState
}

// NewKnifeTracker constructs an empty tracker.
func NewKnifeTracker() *KnifeTracker {
	return &KnifeTracker{states: make(map[string]KnifeState)}
}

// State returns the current knife state for a timeframe (zero value if
// none has been observed, or if it has expired).
func (t *KnifeTracker) State(timeframe string) KnifeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[timeframe]
	if !ok {
		return KnifeState{Phase: KnifeNone}
	}
	if st.expired(time.Now()) {
		delete(t.states, timeframe)
		return KnifeState{Phase: KnifeNone}
	}
	return st
}

// breakThreshold is the minimum single-candle move, as a fraction of the
// candle's open, that counts as a level break.
const breakThreshold = 0.015

// Observe advances the knife FSM for one timeframe given its latest
// candle series (oldest first) and the series' volume-ratio indicator.
// It is intentionally simple: each call re-derives the state from the
// tail of the series rather than requiring strict incremental feeding,
// so callers may call it every tick with the cache's current view.
func (t *KnifeTracker) Observe(timeframe string, candles []Candle, volumeRatio float64) KnifeState {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	cur, ok := t.states[timeframe]
	if ok && cur.expired(now) {
		ok = false
		cur = KnifeState{}
	}

	if len(candles) < 2 {
		return cur
	}
	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	move := 0.0
	if prev.Close != 0 {
		move = (last.Close - prev.Close) / prev.Close
	}

	if !ok || cur.Phase == KnifeNone {
		switch {
		case move <= -breakThreshold:
			cur = KnifeState{
				Phase:                 KnifeImpulse,
				Direction:             "down",
				BrokenLevel:           prev.Close,
				BreakCandleIndex:      len(candles) - 1,
				ImpulseVolumeBaseline: last.Volume,
				CandlesSinceBreak:     0,
				LastActivity:          now,
			}
			t.states[timeframe] = cur
		case move >= breakThreshold:
			cur = KnifeState{
				Phase:                 KnifeImpulse,
				Direction:             "up",
				BrokenLevel:           prev.Close,
				BreakCandleIndex:      len(candles) - 1,
				ImpulseVolumeBaseline: last.Volume,
				CandlesSinceBreak:     0,
				LastActivity:          now,
			}
			t.states[timeframe] = cur
		}
		return cur
	}

	cur.CandlesSinceBreak++
	stillHot := volumeRatio >= 1.3
	continuing := (cur.Direction == "down" && move <= -breakThreshold/2) ||
		(cur.Direction == "up" && move >= breakThreshold/2)
	reversing := (cur.Direction == "down" && move >= breakThreshold/2) ||
		(cur.Direction == "up" && move <= -breakThreshold/2)

	switch cur.Phase {
	case KnifeImpulse:
		if continuing {
			cur.Phase = KnifeCapitulation
			cur.LastActivity = now
		} else if !stillHot {
			cur.Phase = KnifeStabilizing
		}
	case KnifeCapitulation:
		if !stillHot && !continuing {
			cur.Phase = KnifeStabilizing
		} else if continuing {
			cur.LastActivity = now
		}
	case KnifeStabilizing:
		if reversing {
			cur.Phase = KnifeConfirming
			cur.LastActivity = now
		} else if continuing {
			cur.Phase = KnifeCapitulation
			cur.LastActivity = now
		}
	case KnifeConfirming:
		if reversing {
			cur.LastActivity = now
		} else if cur.CandlesSinceBreak > 6 {
			cur.Phase = KnifeSafe
		}
	case KnifeSafe:
		// terminal until TTL expiry resets to none
	}

	t.states[timeframe] = cur
	return cur
}

// GatePenalty returns the confidence-threshold bump and margin-size
// multiplier tier-1 entry rules should apply when a proposed entry is
// counter-trend to an active knife break (spec.md §9 open question,
// resolved in SPEC_FULL.md §4.10).
func GatePenalty(state KnifeState, proposedSide string, basePenalty float64) (thresholdBump float64, marginMultiplier float64) {
	if state.Phase != KnifeImpulse && state.Phase != KnifeCapitulation {
		return 0, 1
	}
	counterTrend := (state.Direction == "down" && proposedSide == "long") ||
		(state.Direction == "up" && proposedSide == "short")
	if !counterTrend {
		return 0, 1
	}
	return basePenalty, 0.5
}
