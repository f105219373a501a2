// Package strategy holds the agent strategy configuration tree and the
// validator that turns an arbitrary externally supplied blob into a
// guaranteed-safe StrategyConfig (spec.md §4.4).
package strategy

// TimeframeWeights assigns relative importance to each timeframe's bias.
// Validate normalises them to sum to 100; the tier-1 rules read only the
// 1h view and do not consult these weights.
type TimeframeWeights struct {
	D1  float64 `json:"1d"`
	H4  float64 `json:"4h"`
	H1  float64 `json:"1h"`
	M15 float64 `json:"15m"`
	M5  float64 `json:"5m"`
}

// RegimePreference weights how much an agent favors trending, ranging,
// or volatile market conditions when computing its regime bonus.
type RegimePreference struct {
	Trending float64 `json:"trending"`
	Ranging  float64 `json:"ranging"`
	Volatile float64 `json:"volatile"`
}

// MarginBounds is the cautious-to-full margin-percent interpolation band
// an entry's confidence is mapped onto (spec.md §4.5 tier 1).
type MarginBounds struct {
	Cautious float64 `json:"cautious"`
	Full     float64 `json:"full"`
}

// RSIThresholds is an {oversold, overbought} pair. Config uses it for the
// RSI levels, which Validate clamps but the tier-1 rules do not read, and
// for the entry-confidence band.
type RSIThresholds struct {
	Oversold   float64 `json:"oversold"`
	Overbought float64 `json:"overbought"`
}

// Meta holds free-form descriptive strings filled with defaults when an
// externally supplied strategy omits them.
type Meta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
}

// Config is the fully validated, safe-to-execute strategy a decision
// engine consults every tick. Every field here has passed through
// Validate and therefore satisfies spec.md §4.4's constraints.
type Config struct {
	Meta Meta `json:"meta"`

	TimeframeWeights TimeframeWeights `json:"timeframe_weights"`
	RegimePreference RegimePreference `json:"regime_preference"`

	Leverage int `json:"leverage"`

	EntryMargin   MarginBounds  `json:"entry_margin"`
	EntryConfidence RSIThresholds `json:"entry_confidence_band"` // reuses {oversold,overbought} as {min,max}

	MaxDCACount int     `json:"max_dca_count"`
	MaxHours    float64 `json:"max_hours"`

	RSI RSIThresholds `json:"rsi_thresholds"`

	// Safety rails; always forced by the validator regardless of input.
	UseStopLoss      bool `json:"use_stop_loss"`
	AcceptLiquidation bool `json:"accept_liquidation"`
	UseFixedTP       bool `json:"use_fixed_tp"`

	// KnifeGatePenalty is the confidence-threshold bump applied to
	// counter-trend entries while a knife break is active, per
	// SPEC_FULL.md §4.10.
	KnifeGatePenalty float64 `json:"knife_gate_penalty"`

	// DCASizeFraction is the fraction of the base entry sizing used
	// when DCA-ing in, per spec.md §4.5 position rule (iv).
	DCASizeFraction float64 `json:"dca_size_fraction"`
}

// Default returns the built-in default strategy every external blob is
// deep-merged onto before validation, grounded on the teacher's
// GetDefaultStrategyConfig pattern.
func Default() Config {
	return Config{
		Meta: Meta{
			Name:        "Balanced",
			Description: "Balanced rule-based strategy across all timeframes",
			Personality: "measured and risk-aware",
		},
		TimeframeWeights: TimeframeWeights{D1: 10, H4: 20, H1: 35, M15: 25, M5: 10},
		RegimePreference: RegimePreference{Trending: 1.0, Ranging: 0.6, Volatile: 0.4},
		Leverage:         10,
		EntryMargin:      MarginBounds{Cautious: 6, Full: 15},
		EntryConfidence:  RSIThresholds{Oversold: 50, Overbought: 75},
		MaxDCACount:      2,
		MaxHours:         8,
		RSI:              RSIThresholds{Oversold: 30, Overbought: 70},
		UseStopLoss:      false,
		AcceptLiquidation: true,
		UseFixedTP:       false,
		KnifeGatePenalty: 15,
		DCASizeFraction:  0.5,
	}
}
