package roster

// avatarShapes is the fixed 8-element shape list agents are assigned
// from round-robin, per spec.md §4.9.
var avatarShapes = []string{
	"circle", "square", "triangle", "diamond", "hexagon", "star", "pentagon", "octagon",
}

// CommentaryTriggers is the fixed trigger set spec.md §4.9 names.
// Templates missing for any of these are left empty; the orchestrator
// falls back to a generic built-in at emission time.
var CommentaryTriggers = []string{"on_entry", "on_exit_profit", "on_exit_loss", "on_death", "on_rival_death"}

// archetype is a named partial strategy tree plus a display personality
// and static commentary, deep-merged onto strategy.Default() by the
// validator.
type archetype struct {
	id          string
	name        string
	personality string
	partial     map[string]any
	commentary  map[string]string
}

var archetypes = []archetype{
	{
		id: "scalper", name: "Scalper", personality: "twitchy and impatient, chases small fast gains",
		partial: map[string]any{
			"timeframe_weights": map[string]any{"5m": 45, "15m": 30, "1h": 15, "4h": 7, "1d": 3},
			"max_hours":         2.0,
			"max_dca_count":     1,
			"entry_confidence_band": map[string]any{"oversold": 55, "overbought": 70},
		},
		commentary: map[string]string{
			"on_entry":       "In and out, no time to waste.",
			"on_exit_profit": "Quick flip, nice.",
		},
	},
	{
		id: "momentum", name: "Momentum Rider", personality: "rides the wave, hates standing still",
		partial: map[string]any{
			"timeframe_weights":  map[string]any{"5m": 10, "15m": 20, "1h": 35, "4h": 25, "1d": 10},
			"regime_preference":  map[string]any{"trending": 1.0, "ranging": 0.3, "volatile": 0.6},
			"max_hours":          6.0,
			"knife_gate_penalty": 10.0,
		},
		commentary: map[string]string{
			"on_entry":        "The trend is my friend.",
			"on_rival_death":  "One less wave to surf against.",
		},
	},
	{
		id: "mean-reversion", name: "Mean Reverter", personality: "calm contrarian, buys fear and sells greed",
		partial: map[string]any{
			"rsi_thresholds":     map[string]any{"oversold": 25, "overbought": 75},
			"regime_preference":  map[string]any{"trending": 0.3, "ranging": 1.0, "volatile": 0.4},
			"max_dca_count":      3,
			"dca_size_fraction":  0.6,
		},
		commentary: map[string]string{
			"on_exit_loss": "The mean always wins eventually.",
		},
	},
	{
		id: "trend-follower", name: "Trend Follower", personality: "methodical, never fights the tape",
		partial: map[string]any{
			"timeframe_weights": map[string]any{"5m": 5, "15m": 10, "1h": 25, "4h": 35, "1d": 25},
			"max_hours":         10.0,
			"regime_preference": map[string]any{"trending": 1.0, "ranging": 0.2, "volatile": 0.3},
		},
		commentary: map[string]string{
			"on_entry": "Following the footprints of the big players.",
		},
	},
	{
		id: "breakout", name: "Breakout Hunter", personality: "loves a clean break, gated hard by knife risk",
		partial: map[string]any{
			"knife_gate_penalty": 25.0,
			"entry_confidence_band": map[string]any{"oversold": 60, "overbought": 80},
			"max_hours":          4.0,
		},
		commentary: map[string]string{
			"on_entry": "Level broken, I'm in.",
			"on_death": "Got caught on the wrong side of a knife.",
		},
	},
	{
		id: "contrarian", name: "Contrarian", personality: "suspicious of the crowd, fades the obvious move",
		partial: map[string]any{
			"regime_preference":   map[string]any{"trending": 0.4, "ranging": 0.8, "volatile": 1.0},
			"accept_liquidation":  true,
			"max_dca_count":       2,
		},
		commentary: map[string]string{
			"on_exit_profit": "Told you the crowd was wrong.",
		},
	},
}
