package strategy

import (
	"encoding/json"
	"fmt"
)

// Result bundles a validated Config with the corrections made while
// producing it. Errors denote structural defects in the input (bad
// types, unparseable blob); warnings denote values that were clamped
// or normalised. Neither list blocks producing a usable Config — the
// validator never rejects, per spec.md §4.4.
type Result struct {
	Config   Config
	Errors   []string
	Warnings []string
}

// Validate deep-merges raw onto Default() and enforces every constraint
// in spec.md §4.4. sessionLeverage and sessionDurationHours come from
// the immutable session config and are authoritative over anything the
// blob requests.
func Validate(raw map[string]interface{}, sessionLeverage int, sessionDurationHours float64) Result {
	var res Result

	base := toMap(Default())
	merged := deepMerge(base, raw)

	mergedBytes, err := json.Marshal(merged)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("strategy: re-marshal merged config: %v", err))
		res.Config = Default()
	} else {
		// Decoding onto Default() keeps the default for any field whose
		// input has the wrong type; every other input field still applies
		// and goes through the checks below.
		cfg := Default()
		if err := json.Unmarshal(mergedBytes, &cfg); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("strategy: decode merged config: %v", err))
		}
		res.Config = cfg
	}

	cfg := &res.Config

	// Meta strings.
	if cfg.Meta.Name == "" {
		cfg.Meta.Name = Default().Meta.Name
		res.Warnings = append(res.Warnings, "meta.name defaulted")
	}
	if cfg.Meta.Description == "" {
		cfg.Meta.Description = Default().Meta.Description
	}
	if cfg.Meta.Personality == "" {
		cfg.Meta.Personality = Default().Meta.Personality
	}

	// Timeframe weights must sum to 100; auto-normalise otherwise.
	sum := cfg.TimeframeWeights.D1 + cfg.TimeframeWeights.H4 + cfg.TimeframeWeights.H1 +
		cfg.TimeframeWeights.M15 + cfg.TimeframeWeights.M5
	if sum <= 0 {
		cfg.TimeframeWeights = Default().TimeframeWeights
		res.Warnings = append(res.Warnings, "timeframe_weights all-zero, reset to default")
	} else if sum < 99.99 || sum > 100.01 {
		scale := 100 / sum
		cfg.TimeframeWeights.D1 *= scale
		cfg.TimeframeWeights.H4 *= scale
		cfg.TimeframeWeights.H1 *= scale
		cfg.TimeframeWeights.M15 *= scale
		cfg.TimeframeWeights.M5 *= scale
		res.Warnings = append(res.Warnings, "timeframe_weights normalised to sum 100")
	}

	// Leverage is forced to the session-uniform value.
	if sessionLeverage <= 0 {
		sessionLeverage = 10
	}
	if cfg.Leverage != sessionLeverage {
		cfg.Leverage = sessionLeverage
		res.Warnings = append(res.Warnings, "leverage forced to session-uniform value")
	}

	// Margin-percent fields clamped to the [5,20] band spec.md §4.3 requires
	// open_position to operate within.
	cfg.EntryMargin.Cautious, _ = clamp(cfg.EntryMargin.Cautious, 5, 20, &res, "entry_margin.cautious")
	cfg.EntryMargin.Full, _ = clamp(cfg.EntryMargin.Full, 5, 20, &res, "entry_margin.full")
	if cfg.EntryMargin.Cautious > cfg.EntryMargin.Full {
		cfg.EntryMargin.Cautious, cfg.EntryMargin.Full = cfg.EntryMargin.Full, cfg.EntryMargin.Cautious
		res.Warnings = append(res.Warnings, "entry_margin bounds swapped to keep cautious <= full")
	}

	// Entry-confidence fields clamped to [40,95].
	cfg.EntryConfidence.Oversold, _ = clamp(cfg.EntryConfidence.Oversold, 40, 95, &res, "entry_confidence_band.min")
	cfg.EntryConfidence.Overbought, _ = clamp(cfg.EntryConfidence.Overbought, 40, 95, &res, "entry_confidence_band.max")

	// max_dca_count clamped to [0,3].
	if cfg.MaxDCACount < 0 {
		cfg.MaxDCACount = 0
		res.Warnings = append(res.Warnings, "max_dca_count clamped to 0")
	} else if cfg.MaxDCACount > 3 {
		cfg.MaxDCACount = 3
		res.Warnings = append(res.Warnings, "max_dca_count clamped to 3")
	}

	// max_hours clamped to [0.5, session_duration_hours].
	if sessionDurationHours <= 0 {
		sessionDurationHours = 24
	}
	cfg.MaxHours, _ = clamp(cfg.MaxHours, 0.5, sessionDurationHours, &res, "max_hours")

	// RSI thresholds clamped to sane ranges.
	cfg.RSI.Oversold, _ = clamp(cfg.RSI.Oversold, 5, 45, &res, "rsi_thresholds.oversold")
	cfg.RSI.Overbought, _ = clamp(cfg.RSI.Overbought, 55, 95, &res, "rsi_thresholds.overbought")

	// DCASizeFraction sane range.
	cfg.DCASizeFraction, _ = clamp(cfg.DCASizeFraction, 0.1, 1.0, &res, "dca_size_fraction")

	// KnifeGatePenalty sane range.
	cfg.KnifeGatePenalty, _ = clamp(cfg.KnifeGatePenalty, 0, 50, &res, "knife_gate_penalty")

	// Boolean safety rails forced regardless of input.
	if cfg.UseStopLoss {
		cfg.UseStopLoss = false
		res.Warnings = append(res.Warnings, "use_stop_loss forced to false")
	}
	if !cfg.AcceptLiquidation {
		cfg.AcceptLiquidation = true
		res.Warnings = append(res.Warnings, "accept_liquidation forced to true")
	}
	if cfg.UseFixedTP {
		cfg.UseFixedTP = false
		res.Warnings = append(res.Warnings, "use_fixed_tp forced to false")
	}

	return res
}

func clamp(v, lo, hi float64, res *Result, field string) (float64, bool) {
	if v < lo {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s clamped to minimum %.2f", field, lo))
		return lo, true
	}
	if v > hi {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s clamped to maximum %.2f", field, hi))
		return hi, true
	}
	return v, false
}

func toMap(v interface{}) map[string]interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

// deepMerge overlays overlay onto base, recursing into nested objects
// and preferring overlay's scalar values. Neither input is mutated.
func deepMerge(base, overlay map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, ov := range overlay {
		bv, exists := out[k]
		if !exists {
			out[k] = ov
			continue
		}
		bMap, bIsMap := bv.(map[string]interface{})
		oMap, oIsMap := ov.(map[string]interface{})
		if bIsMap && oIsMap {
			out[k] = deepMerge(bMap, oMap)
		} else {
			out[k] = ov
		}
	}
	return out
}
